package http

import (
	"context"
	"net/http"

	idemuc "lendledger/internal/usecase/idempotency"
	"lendledger/internal/usecase/repayment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	repay *repayment.Usecase
	guard *idemuc.Guard
	op    func(string)
}

func NewPaymentHandler(repay *repayment.Usecase, guard *idemuc.Guard, op func(string)) *PaymentHandler {
	if op == nil {
		op = func(string) {}
	}
	return &PaymentHandler{repay: repay, guard: guard, op: op}
}

type submitPaymentReq struct {
	LoanID          string          `json:"loan_id" validate:"required,hex32"`
	ParticipationID string          `json:"participation_id" validate:"required,hex32"`
	Amount          decimal.Decimal `json:"amount" validate:"required,gt=0,dec2"`
	Principal       decimal.Decimal `json:"principal_portion" validate:"gte=0,dec2"`
	Interest        decimal.Decimal `json:"interest_portion" validate:"gte=0,dec2"`
	PaymentDate     string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Method          string          `json:"payment_method" validate:"omitempty,max=32"`
	Reference       string          `json:"payment_reference" validate:"omitempty,max=64"`
	ReceiptLocator  string          `json:"receipt_locator" validate:"omitempty,max=512"`
	Notes           string          `json:"notes" validate:"omitempty,max=1000"`
}

func (h *PaymentHandler) Submit(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req submitPaymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		return err
	}
	in := repayment.SubmitInput{
		LoanID:          req.LoanID,
		ParticipationID: req.ParticipationID,
		Amount:          req.Amount,
		Principal:       req.Principal,
		Interest:        req.Interest,
		PaymentDate:     date,
		Method:          req.Method,
		Reference:       req.Reference,
		ReceiptLocator:  req.ReceiptLocator,
		Notes:           req.Notes,
	}
	return keyed(c, h.guard, "submit_payment", who.ID, req.LoanID, http.StatusCreated, func(ctx context.Context) (any, error) {
		p, err := h.repay.Submit(ctx, who, in)
		if err == nil {
			h.op("submit_payment")
		}
		return p, err
	})
}

func (h *PaymentHandler) List(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p loanPath
	if err := bind(c, &p); err != nil {
		return err
	}
	items, err := h.repay.List(c.Request().Context(), who, p.LoanID)
	if err != nil {
		return err
	}
	return ok(c, map[string]any{"items": items, "count": len(items)})
}

func (h *PaymentHandler) Summary(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p loanPath
	if err := bind(c, &p); err != nil {
		return err
	}
	s, err := h.repay.Summary(c.Request().Context(), who, p.LoanID)
	if err != nil {
		return err
	}
	return ok(c, s)
}

type paymentPath struct {
	PaymentID string `param:"payment_id" validate:"required,hex32"`
}

func (h *PaymentHandler) Get(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p paymentPath
	if err := bind(c, &p); err != nil {
		return err
	}
	pay, err := h.repay.Get(c.Request().Context(), who, p.PaymentID)
	if err != nil {
		return err
	}
	return ok(c, pay)
}

func (h *PaymentHandler) ReceiptURL(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p paymentPath
	if err := bind(c, &p); err != nil {
		return err
	}
	url, err := h.repay.ReceiptURL(c.Request().Context(), who, p.PaymentID)
	if err != nil {
		return err
	}
	return ok(c, map[string]string{"payment_id": p.PaymentID, "url": url})
}

type reviewReq struct {
	PaymentID string `param:"payment_id" validate:"required,hex32"`
	Notes     string `json:"notes" validate:"max=1000"`
	Reason    string `json:"reason" validate:"max=1000"`
}

func (h *PaymentHandler) Approve(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	pay, err := h.repay.Approve(c.Request().Context(), who, req.PaymentID, req.Notes)
	if err != nil {
		return err
	}
	h.op("approve_payment")
	return ok(c, pay)
}

func (h *PaymentHandler) Reject(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	pay, err := h.repay.Reject(c.Request().Context(), who, req.PaymentID, req.Reason)
	if err != nil {
		return err
	}
	h.op("reject_payment")
	return ok(c, pay)
}
