package middleware

import (
	"strconv"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/infrastructure/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records request counts and latency by route template, and errors by kind.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
				if apperr.Classified(err) {
					m.Errors.WithLabelValues(string(apperr.KindOf(err))).Inc()
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
