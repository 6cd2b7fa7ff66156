package paymentmock

import (
	"context"

	domain "lendledger/internal/domain/payment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn          func(ctx context.Context, p *domain.Payment) error
	GetByPaymentIDFn  func(ctx context.Context, id string) (*domain.Payment, error)
	ListByLoanFn      func(ctx context.Context, loanID string) ([]domain.Payment, error)
	ReferenceExistsFn func(ctx context.Context, loanID, reference string) (bool, error)
	TransitionFn      func(ctx context.Context, p *domain.Payment, from domain.Status) error
}

func (m *Repo) Create(ctx context.Context, p *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByPaymentID(ctx context.Context, id string) (*domain.Payment, error) {
	if m.GetByPaymentIDFn != nil {
		return m.GetByPaymentIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoan(ctx context.Context, loanID string) ([]domain.Payment, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) ReferenceExists(ctx context.Context, loanID, reference string) (bool, error) {
	if m.ReferenceExistsFn != nil {
		return m.ReferenceExistsFn(ctx, loanID, reference)
	}
	return false, nil
}

func (m *Repo) Transition(ctx context.Context, p *domain.Payment, from domain.Status) error {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, p, from)
	}
	return nil
}
