package loan

import (
	"time"

	domain "lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/internal/usecase/allocation"

	"github.com/shopspring/decimal"
)

// Loan amount bounds accepted at creation and edit.
var (
	MinPrincipal = decimal.NewFromInt(1_000)
	MaxPrincipal = decimal.NewFromInt(1_000_000)
	MaxRate      = decimal.NewFromInt(100)
)

type MaturityInput struct {
	StartDate  time.Time        `json:"start_date"`
	Frequency  domain.Frequency `json:"payment_frequency"`
	TermMonths int              `json:"term_length"`
}

type CreateInput struct {
	Principal    decimal.Decimal          `json:"principal"`
	InterestRate decimal.Decimal          `json:"interest_rate"`
	Purpose      string                   `json:"purpose"`
	Description  string                   `json:"description"`
	Maturity     *MaturityInput           `json:"maturity,omitempty"`
	Lenders      []allocation.InviteInput `json:"lenders,omitempty"`
}

// EditInput carries only the fields being changed.
type EditInput struct {
	Principal   *decimal.Decimal `json:"principal,omitempty"`
	Purpose     *string          `json:"purpose,omitempty"`
	Description *string          `json:"description,omitempty"`
}

type LoanDTO struct {
	*domain.Loan
	Totals         participation.Totals          `json:"totals"`
	Participations []participation.Participation `json:"participations,omitempty"`
}
