package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	ListByLoan(ctx context.Context, loanID string) ([]Payment, error)
	ReferenceExists(ctx context.Context, loanID, reference string) (bool, error)
	// Transition persists a review outcome only while the stored status is still from.
	Transition(ctx context.Context, p *Payment, from Status) error
}
