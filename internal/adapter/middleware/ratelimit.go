package middleware

import (
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimit applies a token bucket per authenticated identity, falling back to
// the client IP. Denials surface as rate_limited with a retry hint.
func RateLimit(rps float64, burst int, denied func()) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, ok := identity.Current(c.Request().Context()); ok {
				return "user:" + id.ID, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Internal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if denied != nil {
				denied()
			}
			return apperr.RateLimited(0, err)
		},
	})
}
