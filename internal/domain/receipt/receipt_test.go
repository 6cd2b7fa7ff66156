package receipt

import (
	"errors"
	"strings"
	"testing"

	"lendledger/internal/domain/apperr"
)

func TestValidateLocator(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		ok      bool
	}{
		{"ok", "L1/U1/up-1/receipt.pdf", true},
		{"too few segments", "L1/U1/receipt.pdf", false},
		{"other loan", "L2/U1/up-1/receipt.pdf", false},
		{"other lender", "L1/U2/up-1/receipt.pdf", false},
		{"traversal", "L1/U1/up-1/a..pdf", false},
		{"hidden file", "L1/U1/up-1/.env", false},
		{"empty segment", "L1/U1//receipt.pdf", false},
		{"too long", "L1/U1/up-1/" + strings.Repeat("a", 600), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocator(tt.locator, "L1", "U1")
			if tt.ok != (err == nil) {
				t.Fatalf("ValidateLocator(%q) = %v", tt.locator, err)
			}
			if err != nil && !errors.Is(err, apperr.KindValidation) {
				t.Fatalf("want validation kind, got %v", err)
			}
		})
	}
}
