package http

import (
	"lendledger/internal/usecase/enrichment"

	"github.com/labstack/echo/v4"
)

// UserHandler serves the actor-scoped read aggregates.
type UserHandler struct {
	views *enrichment.Usecase
}

func NewUserHandler(views *enrichment.Usecase) *UserHandler { return &UserHandler{views: views} }

type lenderSearchQuery struct {
	Q string `query:"q" validate:"max=100"`
}

func (h *UserHandler) SearchLenders(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	var q lenderSearchQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	res, err := h.views.SearchLenders(c.Request().Context(), who, q.Q)
	if err != nil {
		return err
	}
	return ok(c, res)
}

func (h *UserHandler) Dashboard(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	res, err := h.views.Dashboard(c.Request().Context(), who)
	if err != nil {
		return err
	}
	return ok(c, res)
}
