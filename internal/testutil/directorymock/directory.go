package directorymock

import (
	"context"

	"lendledger/internal/domain/identity"
)

var _ identity.Directory = (*Directory)(nil)

// Directory is a function-backed identity.Directory that also counts batched calls.
type Directory struct {
	GetByIDFn      func(ctx context.Context, id string) (*identity.User, error)
	FindByEmailsFn func(ctx context.Context, emails []string) ([]identity.User, error)
	BatchGetFn     func(ctx context.Context, ids []string) ([]identity.User, error)
	MarkLenderFn   func(ctx context.Context, id string) error
	UpsertFn       func(ctx context.Context, u *identity.User) error

	FindByEmailsCalls int
	BatchGetCalls     int
}

func (m *Directory) GetByID(ctx context.Context, id string) (*identity.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Directory) FindByEmails(ctx context.Context, emails []string) ([]identity.User, error) {
	m.FindByEmailsCalls++
	if m.FindByEmailsFn != nil {
		return m.FindByEmailsFn(ctx, emails)
	}
	return nil, nil
}

func (m *Directory) BatchGet(ctx context.Context, ids []string) ([]identity.User, error) {
	m.BatchGetCalls++
	if m.BatchGetFn != nil {
		return m.BatchGetFn(ctx, ids)
	}
	return nil, nil
}

func (m *Directory) MarkLender(ctx context.Context, id string) error {
	if m.MarkLenderFn != nil {
		return m.MarkLenderFn(ctx, id)
	}
	return nil
}

func (m *Directory) Upsert(ctx context.Context, u *identity.User) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, u)
	}
	return nil
}
