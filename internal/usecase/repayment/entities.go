package repayment

import (
	"time"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/payment"

	"github.com/shopspring/decimal"
)

type SubmitInput struct {
	LoanID          string          `json:"loan_id"`
	ParticipationID string          `json:"participation_id"`
	Amount          decimal.Decimal `json:"amount"`
	Principal       decimal.Decimal `json:"principal_portion"`
	Interest        decimal.Decimal `json:"interest_portion"`
	PaymentDate     time.Time       `json:"payment_date"`
	Method          string          `json:"payment_method,omitempty"`
	Reference       string          `json:"payment_reference,omitempty"`
	ReceiptLocator  string          `json:"receipt_locator,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// Methods accepted for recording an externally executed payment.
var Methods = map[string]bool{"ach": true, "wire": true, "check": true, "cash": true, "other": true}

type LenderBalance struct {
	ParticipationID string          `json:"participation_id"`
	LenderID        string          `json:"lender_id,omitempty"`
	LenderEmail     string          `json:"lender_email"`
	Allocated       decimal.Decimal `json:"allocated_amount"`
	Remaining       decimal.Decimal `json:"remaining_balance"`
	Repaid          decimal.Decimal `json:"principal_repaid"`
	// Schedule is advisory and never used for validation.
	Schedule []loan.Installment `json:"advisory_schedule,omitempty"`
}

type Summary struct {
	LoanID string      `json:"loan_id"`
	Status loan.Status `json:"status"`
	payment.Summary
	Lenders []LenderBalance `json:"lenders"`
}
