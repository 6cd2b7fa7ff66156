package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendledger/internal/domain/apperr"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func TestErrorHandler(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	handle := ErrorHandler(log)

	tests := []struct {
		name       string
		err        error
		status     int
		kind       apperr.Kind
		retryAfter string
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest, apperr.KindValidation, ""},
		{"conflict", apperr.Conflict("taken"), http.StatusConflict, apperr.KindConflict, ""},
		{"stale", apperr.Stale("lost race"), http.StatusConflict, apperr.KindConflict, ""},
		{"not found", apperr.NotFound("gone"), http.StatusNotFound, apperr.KindNotFound, ""},
		{"permission", apperr.Permission("no"), http.StatusForbidden, apperr.KindPermission, ""},
		{"rate limited", apperr.RateLimited(0, nil), http.StatusTooManyRequests, apperr.KindRateLimited, "5"},
		{"unavailable", apperr.Unavailable(1500*time.Millisecond, nil), http.StatusServiceUnavailable, apperr.KindUnavailable, "2"},
		{"invalid token", apperr.InvalidToken(nil), http.StatusBadRequest, apperr.KindInvalidToken, ""},
		{"wrapped", fmt.Errorf("ctx: %w", apperr.NotFound("gone")), http.StatusNotFound, apperr.KindNotFound, ""},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, apperr.KindUnavailable, "10"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, apperr.KindInternal, "10"},
		{"echo 404", echo.ErrNotFound, http.StatusNotFound, apperr.KindNotFound, ""},
		{"echo 401", echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token"), http.StatusUnauthorized, apperr.KindPermission, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handle(tt.err, c)

			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d", rec.Code, tt.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.ErrorKind != tt.kind || body.Message == "" {
				t.Fatalf("body %+v", body)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Fatalf("Retry-After %q, want %q", got, tt.retryAfter)
			}
		})
	}
}

func TestErrorHandler_SkipsCommitted(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.NoContent(http.StatusAccepted)

	ErrorHandler(log)(apperr.Conflict("late"), c)
	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("committed response rewritten: %d %q", rec.Code, rec.Body.String())
	}
}
