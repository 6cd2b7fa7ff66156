package receipt

import (
	"context"
	"regexp"
	"strings"

	"lendledger/internal/domain/apperr"
)

// Store turns a stored proof-of-payment locator into a short-lived view URL.
type Store interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

const maxLocatorLen = 512

var segment = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateLocator checks loan_id/lender_id/upload_id/filename shape and that
// the locator belongs to the given loan and lender.
func ValidateLocator(locator, loanID, lenderID string) error {
	if len(locator) > maxLocatorLen {
		return apperr.Validation("receipt locator exceeds %d characters", maxLocatorLen)
	}
	parts := strings.Split(locator, "/")
	if len(parts) != 4 {
		return apperr.Validation("receipt locator must be loan_id/lender_id/upload_id/filename")
	}
	for _, p := range parts {
		if !segment.MatchString(p) || strings.Contains(p, "..") {
			return apperr.Validation("receipt locator has an invalid segment %q", p)
		}
	}
	if parts[0] != loanID || parts[1] != lenderID {
		return apperr.Validation("receipt locator does not belong to this loan and lender")
	}
	return nil
}
