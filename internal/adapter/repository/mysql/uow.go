package mysql

import (
	"context"

	"lendledger/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:          &LoanRepository{db: tx},
		Participations: &ParticipationRepository{db: tx},
		BankDetails:    &BankDetailRepository{db: tx},
		Payments:       &PaymentRepository{db: tx},
	}
}

// WithinTx runs fn in one transaction. Errors fn already classified pass
// through unchanged; driver errors from begin/commit are classified here.
func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
	return classify(err, "transaction")
}
