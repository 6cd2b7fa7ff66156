package payment

import (
	"strings"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/pkg/money"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Payment is an append-only record of a borrower-executed transfer to one lender.
type Payment struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	PaymentID       string          `gorm:"size:32;not null;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	LoanID          string          `gorm:"size:32;not null;index:idx_payments_loan;uniqueIndex:ux_payments_loan_reference,priority:1" json:"loan_id"`
	ParticipationID string          `gorm:"size:32;not null;index:idx_payments_participation" json:"participation_id"`
	LenderID        string          `gorm:"size:32;not null" json:"lender_id"`
	BorrowerID      string          `gorm:"size:32;not null" json:"borrower_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Principal       decimal.Decimal `gorm:"column:principal_portion;type:decimal(18,2);not null" json:"principal_portion"`
	Interest        decimal.Decimal `gorm:"column:interest_portion;type:decimal(18,2);not null" json:"interest_portion"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Status          Status          `gorm:"size:16;not null" json:"status"`
	Method          string          `gorm:"size:32" json:"payment_method,omitempty"`
	// Reference is unique per loan when present.
	Reference      *string    `gorm:"size:64;uniqueIndex:ux_payments_loan_reference,priority:2" json:"payment_reference,omitempty"`
	ReceiptLocator string     `gorm:"size:512" json:"receipt_locator,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	SubmittedBy    string     `gorm:"size:32;not null" json:"submitted_by"`
	ReviewedBy     *string    `gorm:"size:32" json:"reviewed_by,omitempty"`
	ReviewNotes    string     `gorm:"type:text" json:"review_notes,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"precision:6;not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// ValidateSplit enforces principal + interest == amount within money.Epsilon.
func ValidateSplit(amount, principal, interest decimal.Decimal) error {
	if !money.Positive(amount) {
		return apperr.Validation("amount must be greater than 0")
	}
	if principal.IsNegative() || interest.IsNegative() {
		return apperr.Validation("principal and interest portions cannot be negative")
	}
	if !money.MaxPlaces(amount, 2) || !money.MaxPlaces(principal, 2) || !money.MaxPlaces(interest, 2) {
		return apperr.Validation("amounts must have at most 2 decimal places")
	}
	if !money.EqualWithin(principal.Add(interest), amount) {
		return apperr.Validation("principal (%s) + interest (%s) must equal amount (%s)",
			principal.StringFixed(2), interest.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

func NormalizeReference(ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	return &ref
}

func (p *Payment) Approve(by, notes string, at time.Time) error {
	return p.review(StatusApproved, by, notes, at)
}

func (p *Payment) Reject(by, reason string, at time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return apperr.Validation("rejection reason is required")
	}
	return p.review(StatusRejected, by, reason, at)
}

func (p *Payment) review(to Status, by, notes string, at time.Time) error {
	if p.Status != StatusPending {
		return apperr.Conflict("payment %s is %s, cannot %s", p.PaymentID, p.Status, verb(to))
	}
	t := at.UTC()
	p.Status = to
	p.ReviewedBy = &by
	p.ReviewNotes = strings.TrimSpace(notes)
	p.ReviewedAt = &t
	return nil
}

func verb(s Status) string {
	if s == StatusApproved {
		return "approve"
	}
	return "reject"
}

// Summary aggregates a payment set; it is recomputed on every read.
type Summary struct {
	Submitted decimal.Decimal `json:"total_submitted"`
	Approved  decimal.Decimal `json:"total_approved"`
	Pending   decimal.Decimal `json:"total_pending"`
	Rejected  decimal.Decimal `json:"total_rejected"`
	// ApprovedPrincipal is what has been taken off lender balances.
	ApprovedPrincipal decimal.Decimal `json:"approved_principal"`
	ApprovedInterest  decimal.Decimal `json:"approved_interest"`
	Count             int             `json:"count"`
}

func Summarize(ps []Payment) Summary {
	s := Summary{
		Submitted: decimal.Zero, Approved: decimal.Zero, Pending: decimal.Zero, Rejected: decimal.Zero,
		ApprovedPrincipal: decimal.Zero, ApprovedInterest: decimal.Zero,
	}
	for i := range ps {
		p := &ps[i]
		s.Count++
		s.Submitted = s.Submitted.Add(p.Amount)
		switch p.Status {
		case StatusApproved:
			s.Approved = s.Approved.Add(p.Amount)
			s.ApprovedPrincipal = s.ApprovedPrincipal.Add(p.Principal)
			s.ApprovedInterest = s.ApprovedInterest.Add(p.Interest)
		case StatusPending:
			s.Pending = s.Pending.Add(p.Amount)
		case StatusRejected:
			s.Rejected = s.Rejected.Add(p.Amount)
		}
	}
	return s
}
