package participationmock

import (
	"context"

	domain "lendledger/internal/domain/participation"
	"lendledger/pkg/cursor"
)

var (
	_ domain.Repository     = (*Repo)(nil)
	_ domain.BankRepository = (*BankRepo)(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateManyFn           func(ctx context.Context, ps []*domain.Participation) error
	GetByParticipationIDFn func(ctx context.Context, id string) (*domain.Participation, error)
	ListByLoanFn           func(ctx context.Context, loanID string) ([]domain.Participation, error)
	ListByLoanIDsFn        func(ctx context.Context, loanIDs []string) ([]domain.Participation, error)
	ListByLenderFn         func(ctx context.Context, lenderID string, statuses []domain.Status, page cursor.Page) ([]domain.Participation, error)
	ListPlaceholdersFn     func(ctx context.Context, email string) ([]domain.Participation, error)
	UpdateVersionedFn      func(ctx context.Context, p *domain.Participation) error
}

func (m *Repo) CreateMany(ctx context.Context, ps []*domain.Participation) error {
	if m.CreateManyFn != nil {
		return m.CreateManyFn(ctx, ps)
	}
	return nil
}

func (m *Repo) GetByParticipationID(ctx context.Context, id string) (*domain.Participation, error) {
	if m.GetByParticipationIDFn != nil {
		return m.GetByParticipationIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoan(ctx context.Context, loanID string) ([]domain.Participation, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]domain.Participation, error) {
	if m.ListByLoanIDsFn != nil {
		return m.ListByLoanIDsFn(ctx, loanIDs)
	}
	return nil, nil
}

func (m *Repo) ListByLender(ctx context.Context, lenderID string, statuses []domain.Status, page cursor.Page) ([]domain.Participation, error) {
	if m.ListByLenderFn != nil {
		return m.ListByLenderFn(ctx, lenderID, statuses, page)
	}
	return nil, nil
}

func (m *Repo) ListPlaceholders(ctx context.Context, email string) ([]domain.Participation, error) {
	if m.ListPlaceholdersFn != nil {
		return m.ListPlaceholdersFn(ctx, email)
	}
	return nil, nil
}

func (m *Repo) UpdateVersioned(ctx context.Context, p *domain.Participation) error {
	if m.UpdateVersionedFn != nil {
		return m.UpdateVersionedFn(ctx, p)
	}
	p.Version++
	return nil
}

// BankRepo is a function-backed mock that satisfies domain.BankRepository.
type BankRepo struct {
	UpsertFn   func(ctx context.Context, b *domain.BankDetail) error
	BatchGetFn func(ctx context.Context, keys []domain.BankKey) ([]domain.BankDetail, error)
}

func (m *BankRepo) Upsert(ctx context.Context, b *domain.BankDetail) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, b)
	}
	return nil
}

func (m *BankRepo) BatchGet(ctx context.Context, keys []domain.BankKey) ([]domain.BankDetail, error) {
	if m.BatchGetFn != nil {
		return m.BatchGetFn(ctx, keys)
	}
	return nil, nil
}
