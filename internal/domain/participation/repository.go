package participation

import (
	"context"

	"lendledger/pkg/cursor"
)

type Repository interface {
	CreateMany(ctx context.Context, ps []*Participation) error
	GetByParticipationID(ctx context.Context, participationID string) (*Participation, error)
	ListByLoan(ctx context.Context, loanID string) ([]Participation, error)
	// ListByLoanIDs reads the participation sets of many loans in one query.
	ListByLoanIDs(ctx context.Context, loanIDs []string) ([]Participation, error)
	// ListByLender pages over a lender's participations ordered by (invited_at, participation_id).
	ListByLender(ctx context.Context, lenderID string, statuses []Status, page cursor.Page) ([]Participation, error)
	ListPlaceholders(ctx context.Context, email string) ([]Participation, error)
	// UpdateVersioned writes p only if the stored version still equals p.Version.
	UpdateVersioned(ctx context.Context, p *Participation) error
}

type BankRepository interface {
	// Upsert replaces the lender's details for the loan (a re-invited lender may accept again).
	Upsert(ctx context.Context, b *BankDetail) error
	// BatchGet resolves many (lender, loan) keys in one read.
	BatchGet(ctx context.Context, keys []BankKey) ([]BankDetail, error)
}
