package middleware

import (
	"lendledger/internal/domain/identity"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one logrus line per request. Errors are rendered by the
// echo error handler before the line is written so the status is final.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		HandleError:  true,
		LogLatency:   true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := logrus.Fields{
				"method":     v.Method,
				"path":       v.URIPath,
				"route":      v.RoutePath,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			}
			if v.RequestID != "" {
				fields["request_id"] = v.RequestID
			}
			if id, ok := identity.Current(c.Request().Context()); ok {
				fields["actor"] = id.ID
			}
			entry := log.WithFields(fields)
			switch {
			case v.Status >= 500:
				entry.WithError(v.Error).Error("request")
			case v.Error != nil:
				entry.WithError(v.Error).Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}
