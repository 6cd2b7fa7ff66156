package allocation

import (
	"lendledger/internal/domain/participation"

	"github.com/shopspring/decimal"
)

// MaxBatch caps one invite_many call.
const MaxBatch = 20

type InviteInput struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

type InviteResult struct {
	LoanID         string                        `json:"loan_id"`
	Participations []participation.Participation `json:"participations"`
	Totals         participation.Totals          `json:"totals"`
}

type RespondInput struct {
	Accept bool
	// Bank is required when accepting.
	Bank *participation.BankDetail
}
