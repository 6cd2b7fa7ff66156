package participation

import (
	"regexp"
	"strings"
	"time"

	"lendledger/internal/domain/apperr"
)

// BankDetail is the transfer destination a lender supplies when accepting.
type BankDetail struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	LenderID      string    `gorm:"size:32;not null;uniqueIndex:ux_bank_details_lender_loan,priority:1" json:"lender_id"`
	LoanID        string    `gorm:"size:32;not null;uniqueIndex:ux_bank_details_lender_loan,priority:2" json:"loan_id"`
	BankName      string    `gorm:"size:100;not null" json:"bank_name"`
	AccountType   string    `gorm:"size:16;not null" json:"account_type"`
	RoutingNumber string    `gorm:"size:9;not null" json:"routing_number"`
	AccountNumber string    `gorm:"size:20;not null" json:"account_number"`
	Instructions  string    `gorm:"size:500" json:"special_instructions,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (BankDetail) TableName() string { return "bank_details" }

type BankKey struct {
	LenderID string
	LoanID   string
}

func (b BankDetail) Key() BankKey { return BankKey{LenderID: b.LenderID, LoanID: b.LoanID} }

var (
	reRouting = regexp.MustCompile(`^[0-9]{9}$`)
	reAccount = regexp.MustCompile(`^[0-9]{4,20}$`)
)

// Validate checks the ACH details required to accept an invitation.
func (b *BankDetail) Validate() error {
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountType = strings.ToLower(strings.TrimSpace(b.AccountType))
	b.Instructions = strings.TrimSpace(b.Instructions)
	switch {
	case b.BankName == "" || len(b.BankName) > 100:
		return apperr.Validation("bank name must be 1-100 characters")
	case b.AccountType != "checking" && b.AccountType != "savings":
		return apperr.Validation("account type must be checking or savings")
	case !reRouting.MatchString(b.RoutingNumber):
		return apperr.Validation("routing number must be exactly 9 digits")
	case !reAccount.MatchString(b.AccountNumber):
		return apperr.Validation("account number must be 4-20 digits")
	case len(b.Instructions) > 500:
		return apperr.Validation("special instructions cannot exceed 500 characters")
	}
	return nil
}
