// Package uow scopes multi-aggregate writes to one transaction.
package uow

import (
	"context"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/internal/domain/payment"
)

// Repos are bound to the running transaction; use them only inside fn.
type Repos struct {
	Loans          loan.Repository
	Participations participation.Repository
	BankDetails    participation.BankRepository
	Payments       payment.Repository
}

type UnitOfWork interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
