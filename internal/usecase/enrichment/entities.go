package enrichment

import (
	"time"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/pkg/cursor"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PageRequest is what a read endpoint receives from the caller.
type PageRequest struct {
	Limit     int
	NextToken string
	Order     cursor.Direction
}

type Page[T any] struct {
	Items     []T    `json:"items"`
	Count     int    `json:"count"`
	HasMore   bool   `json:"has_more"`
	NextToken string `json:"next_token,omitempty"`
}

type Party struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Progress is the funding view derived from the participation set.
type Progress struct {
	participation.Totals
	FundingPercentage decimal.Decimal `json:"funding_percentage"`
	IsFullyInvited    bool            `json:"is_fully_invited"`
	IsFullyFunded     bool            `json:"is_fully_funded"`
}

func progressOf(t participation.Totals) Progress {
	return Progress{
		Totals:            t,
		FundingPercentage: t.FundingPercentage(),
		IsFullyInvited:    t.FullyInvited(),
		IsFullyFunded:     t.FullyFunded(),
	}
}

type Participant struct {
	participation.Participation
	Lender *Party                    `json:"lender,omitempty"`
	Bank   *participation.BankDetail `json:"bank_details,omitempty"`
}

type LoanView struct {
	*loan.Loan
	Borrower     *Party        `json:"borrower,omitempty"`
	Progress     Progress      `json:"progress"`
	Participants []Participant `json:"participants"`
}

// Invitation is one row of a lender's inbox or portfolio.
type Invitation struct {
	ParticipationID string               `json:"participation_id"`
	Status          participation.Status `json:"status"`
	Allocated       decimal.Decimal      `json:"allocated_amount"`
	Remaining       decimal.Decimal      `json:"remaining_balance"`
	InvitedAt       time.Time            `json:"invited_at"`
	RespondedAt     *time.Time           `json:"responded_at,omitempty"`
	Loan            LoanSummary          `json:"loan"`
	Borrower        *Party               `json:"borrower,omitempty"`
	Progress        Progress             `json:"progress"`
}

type LoanSummary struct {
	LoanID       string             `json:"loan_id"`
	Status       loan.Status        `json:"status"`
	Principal    decimal.Decimal    `json:"principal"`
	InterestRate decimal.Decimal    `json:"interest_rate"`
	Purpose      string             `json:"purpose"`
	Maturity     loan.MaturityTerms `json:"maturity"`
}

// LenderStats summarize a lender's accepted participations on one borrower's loans.
type LenderStats struct {
	InvestmentCount   int             `json:"investment_count"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	AverageInvestment decimal.Decimal `json:"average_investment"`
	// AverageAPR is weighted by allocated amount.
	AverageAPR decimal.Decimal `json:"average_apr"`
}

type LastInvestment struct {
	LoanID       string          `json:"loan_id"`
	Purpose      string          `json:"purpose"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Status       loan.Status     `json:"status"`
}

type PastLender struct {
	Party
	Stats          LenderStats    `json:"stats"`
	LastInvestment LastInvestment `json:"last_investment"`
}

type LenderSearch struct {
	Lenders []PastLender `json:"lenders"`
	Count   int          `json:"count"`
}

type BorrowerStats struct {
	ActiveLoans         int             `json:"active_loans"`
	PendingRequests     int             `json:"pending_requests"`
	TotalBorrowed       decimal.Decimal `json:"total_borrowed"`
	AverageInterestRate decimal.Decimal `json:"average_interest_rate"`
}

type LenderDashboard struct {
	PendingInvitations int             `json:"pending_invitations"`
	ActiveInvestments  int             `json:"active_investments"`
	TotalLent          decimal.Decimal `json:"total_lent"`
	// ExpectedReturns is allocated × annual rate over running loans; advisory.
	ExpectedReturns decimal.Decimal `json:"expected_returns"`
}

// Dashboard carries one section per role the actor holds.
type Dashboard struct {
	Borrower *BorrowerStats   `json:"borrower,omitempty"`
	Lender   *LenderDashboard `json:"lender,omitempty"`
}
