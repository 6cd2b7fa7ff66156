package loan

import (
	"time"

	"lendledger/internal/domain/apperr"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft              Status = "draft"
	StatusPending            Status = "pending"
	StatusActive             Status = "active"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

// transitions is the lifecycle graph. Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusDraft:              {StatusPending, StatusActive, StatusCancelled},
	StatusPending:            {StatusActive, StatusCancelled},
	StatusActive:             {StatusPartiallyCompleted, StatusCompleted},
	StatusPartiallyCompleted: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusPartiallyCompleted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OpenForInvites: lenders can be added while the loan is still being assembled.
func (s Status) OpenForInvites() bool { return s == StatusDraft || s == StatusPending }

// Editable: principal and descriptive fields can change before activation.
func (s Status) Editable() bool { return s == StatusDraft || s == StatusPending }

// OpenForRepayment: payments are recorded only against a running loan.
func (s Status) OpenForRepayment() bool {
	return s == StatusActive || s == StatusPartiallyCompleted
}

// VisibleToLenders: draft loans are private to the borrower.
func (s Status) VisibleToLenders() bool { return s != StatusDraft }

type Loan struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID       string          `gorm:"size:32;not null;uniqueIndex:ux_loans_loan_id;index:idx_loans_borrower_created,priority:3" json:"loan_id"`
	BorrowerID   string          `gorm:"size:32;not null;index:idx_loans_borrower_created,priority:1" json:"borrower_id"`
	Principal    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"principal"`
	InterestRate decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"interest_rate"`
	Purpose      string          `gorm:"size:100;not null" json:"purpose"`
	Description  string          `gorm:"type:text" json:"description"`
	Status       Status          `gorm:"size:24;not null;index:idx_loans_status" json:"status"`
	Maturity     MaturityTerms   `gorm:"embedded;embeddedPrefix:maturity_" json:"maturity"`
	// Version guards every write to the loan aggregate (optimistic concurrency).
	Version         int64     `gorm:"not null;default:1" json:"-"`
	StatusUpdatedAt time.Time `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt       time.Time `gorm:"precision:6;not null;index:idx_loans_borrower_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Transition moves the loan along the lifecycle graph.
func (l *Loan) Transition(to Status, at time.Time) error {
	if l.Status.Terminal() {
		return apperr.Conflict("loan %s is %s; no further transitions are allowed", l.LoanID, l.Status)
	}
	if !l.Status.CanTransition(to) {
		return apperr.Conflict("loan %s cannot move from %s to %s", l.LoanID, l.Status, to)
	}
	l.Status = to
	l.StatusUpdatedAt = at.UTC()
	return nil
}
