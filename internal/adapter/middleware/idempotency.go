package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/idempotency"

	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// maxKeyedBody caps how much of a keyed request body is buffered for hashing.
const maxKeyedBody = 1 << 20

// IdempotencyKey captures the Idempotency-Key header of mutating requests and
// attaches it to the request context together with a fingerprint of method,
// request path and body. Handlers that are idempotent pass it to the guard; the rest
// ignore it. Requests without the header pass through untouched.
func IdempotencyKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			raw := strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey))
			if raw == "" {
				return next(c)
			}
			if !validKey(raw) {
				return apperr.Validation("invalid %s format: want a uuid or 32 hex characters", HeaderIdempotencyKey)
			}

			var body []byte
			if req.Body != nil {
				b, err := io.ReadAll(io.LimitReader(req.Body, maxKeyedBody+1))
				if err != nil {
					return apperr.Validation("unreadable request body")
				}
				if len(b) > maxKeyedBody {
					return echo.ErrStatusRequestEntityTooLarge
				}
				body = b
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			key := idempotency.Key{
				Value:       strings.ToLower(raw),
				Fingerprint: fingerprint(req.Method, req.URL.Path, body),
			}
			c.SetRequest(req.WithContext(idempotency.WithKey(req.Context(), key)))
			return next(c)
		}
	}
}
