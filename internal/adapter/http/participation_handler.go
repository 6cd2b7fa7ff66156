package http

import (
	"lendledger/internal/domain/participation"
	"lendledger/internal/usecase/allocation"
	"lendledger/internal/usecase/enrichment"

	"github.com/labstack/echo/v4"
)

type ParticipationHandler struct {
	alloc *allocation.Usecase
	views *enrichment.Usecase
	op    func(string)
}

func NewParticipationHandler(alloc *allocation.Usecase, views *enrichment.Usecase, op func(string)) *ParticipationHandler {
	if op == nil {
		op = func(string) {}
	}
	return &ParticipationHandler{alloc: alloc, views: views, op: op}
}

type participationPath struct {
	ParticipationID string `param:"participation_id" validate:"required,hex32"`
}

type bankReq struct {
	BankName      string `json:"bank_name" validate:"required,max=100"`
	AccountType   string `json:"account_type" validate:"required,oneof=checking savings"`
	RoutingNumber string `json:"routing_number" validate:"required,routing9"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=4,max=20"`
	Instructions  string `json:"special_instructions" validate:"max=500"`
}

type acceptReq struct {
	ParticipationID string  `param:"participation_id" validate:"required,hex32"`
	Bank            bankReq `json:"bank_details"`
}

func (h *ParticipationHandler) Accept(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var req acceptReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.alloc.Respond(c.Request().Context(), who, req.ParticipationID, allocation.RespondInput{
		Accept: true,
		Bank: &participation.BankDetail{
			BankName:      req.Bank.BankName,
			AccountType:   req.Bank.AccountType,
			RoutingNumber: req.Bank.RoutingNumber,
			AccountNumber: req.Bank.AccountNumber,
			Instructions:  req.Bank.Instructions,
		},
	})
	if err != nil {
		return err
	}
	h.op("accept_invitation")
	return ok(c, p)
}

func (h *ParticipationHandler) Decline(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p participationPath
	if err := bind(c, &p); err != nil {
		return err
	}
	out, err := h.alloc.Respond(c.Request().Context(), who, p.ParticipationID, allocation.RespondInput{})
	if err != nil {
		return err
	}
	h.op("decline_invitation")
	return ok(c, out)
}

func (h *ParticipationHandler) Revoke(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var p participationPath
	if err := bind(c, &p); err != nil {
		return err
	}
	out, err := h.alloc.Revoke(c.Request().Context(), who, p.ParticipationID)
	if err != nil {
		return err
	}
	h.op("revoke_invitation")
	return ok(c, out)
}

func (h *ParticipationHandler) Invitations(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var q pageQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	page, err := h.views.Invitations(c.Request().Context(), who, q.request())
	if err != nil {
		return err
	}
	return ok(c, page)
}

func (h *ParticipationHandler) Portfolio(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var q pageQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	page, err := h.views.Portfolio(c.Request().Context(), who, q.request())
	if err != nil {
		return err
	}
	return ok(c, page)
}
