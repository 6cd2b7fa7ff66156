package participation

import (
	"errors"
	"strings"
	"testing"

	"lendledger/internal/domain/apperr"
)

func TestBankDetail_Validate(t *testing.T) {
	valid := func() BankDetail {
		return BankDetail{BankName: " First Bank ", AccountType: "Checking", RoutingNumber: "021000021", AccountNumber: "12345678"}
	}
	tests := []struct {
		name   string
		mutate func(b *BankDetail)
		ok     bool
	}{
		{"valid", func(b *BankDetail) {}, true},
		{"savings", func(b *BankDetail) { b.AccountType = "savings" }, true},
		{"missing bank", func(b *BankDetail) { b.BankName = "  " }, false},
		{"bad type", func(b *BankDetail) { b.AccountType = "brokerage" }, false},
		{"short routing", func(b *BankDetail) { b.RoutingNumber = "12345678" }, false},
		{"alpha routing", func(b *BankDetail) { b.RoutingNumber = "02100002a" }, false},
		{"short account", func(b *BankDetail) { b.AccountNumber = "123" }, false},
		{"long account", func(b *BankDetail) { b.AccountNumber = strings.Repeat("1", 21) }, false},
		{"long instructions", func(b *BankDetail) { b.Instructions = strings.Repeat("x", 501) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(&b)
			err := b.Validate()
			if tt.ok != (err == nil) {
				t.Fatalf("Validate() = %v", err)
			}
			if err != nil && !errors.Is(err, apperr.KindValidation) {
				t.Fatalf("want validation kind, got %v", err)
			}
		})
	}

	b := valid()
	_ = b.Validate()
	if b.BankName != "First Bank" || b.AccountType != "checking" {
		t.Fatalf("Validate should normalize: %+v", b)
	}
}
