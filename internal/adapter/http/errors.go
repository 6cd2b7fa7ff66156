package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	ErrorKind  apperr.Kind  `json:"error_kind"`
	Message    string       `json:"message"`
	RetryAfter int          `json:"retry_after,omitempty"`
	Details    []FieldError `json:"details,omitempty"`
}

// invalidRequest is a binding or struct-tag failure with per-field details.
type invalidRequest struct {
	details []FieldError
}

func (e *invalidRequest) Error() string { return "invalid request" }

func (e *invalidRequest) Is(target error) bool { return target == apperr.KindValidation }

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindPermission:   http.StatusForbidden,
	apperr.KindRateLimited:  http.StatusTooManyRequests,
	apperr.KindUnavailable:  http.StatusServiceUnavailable,
	apperr.KindInvalidToken: http.StatusBadRequest,
	apperr.KindInternal:     http.StatusInternalServerError,
}

// ErrorHandler renders every failure as an ErrorResponse. Unclassified errors
// are logged with request context and reported as a retryable internal error.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if body.ErrorKind == apperr.KindInternal || status >= http.StatusInternalServerError {
			fields := logrus.Fields{
				"method": c.Request().Method,
				"route":  c.Path(),
				"params": c.ParamValues(),
			}
			if id, ok := identity.Current(c.Request().Context()); ok {
				fields["actor"] = id.ID
			}
			log.WithFields(fields).WithError(err).Error("request failed")
		}
		if body.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("writing error response failed")
		}
	}
}

func render(err error) (int, ErrorResponse) {
	var (
		invalid *invalidRequest
		he      *echo.HTTPError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorResponse{ErrorKind: apperr.KindValidation, Message: "request failed validation", Details: invalid.details}
	case apperr.Classified(err):
		kind := apperr.KindOf(err)
		return statusByKind[kind], ErrorResponse{ErrorKind: kind, Message: err.Error(), RetryAfter: seconds(apperr.RetryAfterOf(err))}
	case errors.Is(err, context.DeadlineExceeded):
		return render(apperr.Unavailable(0, err))
	case errors.As(err, &he):
		return he.Code, ErrorResponse{ErrorKind: kindForStatus(he.Code), Message: http.StatusText(he.Code) + messageSuffix(he)}
	default:
		return render(apperr.Internal(err))
	}
}

func kindForStatus(code int) apperr.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.KindPermission
	case code == http.StatusNotFound || code == http.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case code == http.StatusTooManyRequests:
		return apperr.KindRateLimited
	case code >= 500:
		return apperr.KindInternal
	default:
		return apperr.KindValidation
	}
}

func messageSuffix(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok && s != "" && s != http.StatusText(he.Code) {
		return ": " + s
	}
	return ""
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
