package http

import (
	"context"
	"net/http"
	"strings"

	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/usecase/allocation"
	"lendledger/internal/usecase/enrichment"
	idemuc "lendledger/internal/usecase/idempotency"
	loanuc "lendledger/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	loans *loanuc.Usecase
	alloc *allocation.Usecase
	views *enrichment.Usecase
	guard *idemuc.Guard
	op    func(string)
}

func NewLoanHandler(loans *loanuc.Usecase, alloc *allocation.Usecase, views *enrichment.Usecase, guard *idemuc.Guard, op func(string)) *LoanHandler {
	if op == nil {
		op = func(string) {}
	}
	return &LoanHandler{loans: loans, alloc: alloc, views: views, guard: guard, op: op}
}

type lenderReq struct {
	Email  string          `json:"email" validate:"required,email"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0,dec2"`
}

type maturityReq struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Frequency  string `json:"payment_frequency" validate:"required,frequency"`
	TermMonths int    `json:"term_length" validate:"required,min=1,max=60"`
}

type createLoanReq struct {
	Principal    decimal.Decimal `json:"principal" validate:"required,gt=0,dec2"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=100"`
	Purpose      string          `json:"purpose" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	Maturity     *maturityReq    `json:"maturity"`
	Lenders      []lenderReq     `json:"lenders" validate:"omitempty,dive"`
}

func (r createLoanReq) input() (loanuc.CreateInput, error) {
	in := loanuc.CreateInput{
		Principal:    r.Principal,
		InterestRate: r.InterestRate,
		Purpose:      r.Purpose,
		Description:  r.Description,
		Lenders:      invites(r.Lenders),
	}
	if r.Maturity != nil {
		start, err := parseDate("start_date", r.Maturity.StartDate)
		if err != nil {
			return in, err
		}
		in.Maturity = &loanuc.MaturityInput{StartDate: start, Frequency: loan.Frequency(r.Maturity.Frequency), TermMonths: r.Maturity.TermMonths}
	}
	return in, nil
}

func invites(rs []lenderReq) []allocation.InviteInput {
	out := make([]allocation.InviteInput, len(rs))
	for i, r := range rs {
		out[i] = allocation.InviteInput{Email: strings.TrimSpace(r.Email), Amount: r.Amount}
	}
	return out
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req createLoanReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	return keyed(c, h.guard, "create_loan", who.ID, "", http.StatusCreated, func(ctx context.Context) (any, error) {
		dto, err := h.loans.Create(ctx, who, in)
		if err == nil {
			h.op("create_loan")
		}
		return dto, err
	})
}

func (h *LoanHandler) ListLoans(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var q pageQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	page, err := h.views.BorrowerLoans(c.Request().Context(), who, q.request())
	if err != nil {
		return err
	}
	return ok(c, page)
}

type loanPath struct {
	LoanID string `param:"loan_id" validate:"required,hex32"`
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p loanPath
	if err := bind(c, &p); err != nil {
		return err
	}
	view, err := h.views.LoanDetail(c.Request().Context(), who, p.LoanID)
	if err != nil {
		return err
	}
	return ok(c, view)
}

type editLoanReq struct {
	LoanID      string           `param:"loan_id" validate:"required,hex32"`
	Principal   *decimal.Decimal `json:"principal" validate:"omitempty,gt=0,dec2"`
	Purpose     *string          `json:"purpose"`
	Description *string          `json:"description"`
}

func (h *LoanHandler) EditLoan(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req editLoanReq
	if err := bind(c, &req); err != nil {
		return err
	}
	l, err := h.loans.Edit(c.Request().Context(), who, req.LoanID, loanuc.EditInput{
		Principal:   req.Principal,
		Purpose:     req.Purpose,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	h.op("edit_loan")
	return ok(c, l)
}

type transitionFn func(ctx context.Context, who identity.Identity, loanID string) (*loan.Loan, error)

// lifecycle adapts one of the loan transition operations to a handler.
func (h *LoanHandler) lifecycle(op string, fn transitionFn) echo.HandlerFunc {
	return func(c echo.Context) error {
		who, err := actor(c)
		if err != nil {
			return err
		}
		var p loanPath
		if err := bind(c, &p); err != nil {
			return err
		}
		l, err := fn(c.Request().Context(), who, p.LoanID)
		if err != nil {
			return err
		}
		h.op(op)
		return ok(c, l)
	}
}

func (h *LoanHandler) Publish() echo.HandlerFunc {
	return h.lifecycle("publish_loan", h.loans.Publish)
}

func (h *LoanHandler) Activate() echo.HandlerFunc {
	return h.lifecycle("activate_loan", h.loans.Activate)
}

func (h *LoanHandler) Cancel() echo.HandlerFunc {
	return h.lifecycle("cancel_loan", h.loans.Cancel)
}

func (h *LoanHandler) Close() echo.HandlerFunc {
	return h.lifecycle("close_loan", h.loans.Close)
}

type inviteReq struct {
	LoanID  string      `param:"loan_id" validate:"required,hex32"`
	Lenders []lenderReq `json:"lenders" validate:"required,min=1,dive"`
}

func (h *LoanHandler) InviteLenders(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req inviteReq
	if err := bind(c, &req); err != nil {
		return err
	}
	batch := invites(req.Lenders)
	return keyed(c, h.guard, "invite_lenders", who.ID, req.LoanID, http.StatusCreated, func(ctx context.Context) (any, error) {
		res, err := h.alloc.InviteMany(ctx, who, req.LoanID, batch)
		if err == nil {
			h.op("invite_lenders")
		}
		return res, err
	})
}
