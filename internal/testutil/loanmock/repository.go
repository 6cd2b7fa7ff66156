package loanmock

import (
	"context"

	domain "lendledger/internal/domain/loan"
	"lendledger/pkg/cursor"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset read methods return context.Canceled; unset writes succeed.
type Repo struct {
	CreateFn         func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn    func(ctx context.Context, loanID string) (*domain.Loan, error)
	BatchGetFn       func(ctx context.Context, loanIDs []string) ([]domain.Loan, error)
	SaveVersionedFn  func(ctx context.Context, l *domain.Loan) error
	ListByBorrowerFn func(ctx context.Context, borrowerID string, page cursor.Page) ([]domain.Loan, error)
	ListWithTermsFn  func(ctx context.Context, statuses []domain.Status) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) BatchGet(ctx context.Context, loanIDs []string) ([]domain.Loan, error) {
	if m.BatchGetFn != nil {
		return m.BatchGetFn(ctx, loanIDs)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveVersioned(ctx context.Context, l *domain.Loan) error {
	if m.SaveVersionedFn != nil {
		return m.SaveVersionedFn(ctx, l)
	}
	l.Version++
	return nil
}

func (m *Repo) ListByBorrower(ctx context.Context, borrowerID string, page cursor.Page) ([]domain.Loan, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrowerID, page)
	}
	return nil, context.Canceled
}

func (m *Repo) ListWithTerms(ctx context.Context, statuses []domain.Status) ([]domain.Loan, error) {
	if m.ListWithTermsFn != nil {
		return m.ListWithTermsFn(ctx, statuses)
	}
	return nil, context.Canceled
}
