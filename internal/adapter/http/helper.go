package http

import (
	"context"
	"net/http"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/idempotency"
	"lendledger/internal/domain/identity"
	"lendledger/internal/usecase/enrichment"
	idemuc "lendledger/internal/usecase/idempotency"
	"lendledger/pkg/cursor"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

func actor(c echo.Context) (identity.Identity, error) {
	id, ok := identity.Current(c.Request().Context())
	if !ok {
		return identity.Identity{}, apperr.Permission("no acting identity on request")
	}
	return id, nil
}

// bind decodes path, query and body into req and runs struct validation.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &invalidRequest{details: []FieldError{{Field: "_", Message: "malformed request body"}}}
	}
	return c.Validate(req)
}

type pageQuery struct {
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	NextToken string `query:"next_token"`
	Order     string `query:"order" validate:"omitempty,oneof=asc desc"`
}

func (q pageQuery) request() enrichment.PageRequest {
	return enrichment.PageRequest{Limit: q.Limit, NextToken: q.NextToken, Order: cursor.Direction(q.Order)}
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, &invalidRequest{details: []FieldError{{Field: field, Message: "must be a date in YYYY-MM-DD form"}}}
	}
	return t, nil
}

// keyed runs fn under the idempotency guard when the request carries a key
// and writes the (possibly replayed) body with the given status.
func keyed(c echo.Context, g *idemuc.Guard, op, owner, loanID string, status int, fn func(ctx context.Context) (any, error)) error {
	req := idemuc.Request{Op: op, Owner: owner, LoanID: loanID}
	if k, ok := idempotency.KeyFrom(c.Request().Context()); ok {
		req.Key = k
	}
	res, err := g.Do(c.Request().Context(), req, fn)
	if err != nil {
		return err
	}
	if res.Replayed {
		c.Response().Header().Set("Idempotent-Replayed", "true")
	}
	return c.Blob(status, echo.MIMEApplicationJSONCharsetUTF8, res.Body)
}

func ok(c echo.Context, v any) error { return c.JSON(http.StatusOK, v) }
