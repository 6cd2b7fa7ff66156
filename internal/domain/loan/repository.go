package loan

import (
	"context"

	"lendledger/pkg/cursor"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// BatchGet resolves many loans in one read; missing ids are skipped.
	BatchGet(ctx context.Context, loanIDs []string) ([]Loan, error)
	// SaveVersioned writes l only if the stored version still equals l.Version,
	// then bumps l.Version. A lost race surfaces as a conflict.
	SaveVersioned(ctx context.Context, l *Loan) error
	// ListByBorrower reads up to page.Limit+1 rows so callers can detect has_more.
	ListByBorrower(ctx context.Context, borrowerID string, page cursor.Page) ([]Loan, error)
	// ListWithTerms returns running loans that carry maturity terms (advisory reminders).
	ListWithTerms(ctx context.Context, statuses []Status) ([]Loan, error)
}
