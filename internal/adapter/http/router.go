package http

import (
	"time"

	"lendledger/internal/adapter/middleware"
	"lendledger/internal/infrastructure/metrics"
	"lendledger/internal/usecase/allocation"
	"lendledger/internal/usecase/enrichment"
	idemuc "lendledger/internal/usecase/idempotency"
	loanuc "lendledger/internal/usecase/loan"
	"lendledger/internal/usecase/repayment"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Loans      *loanuc.Usecase
	Allocation *allocation.Usecase
	Views      *enrichment.Usecase
	Repayments *repayment.Usecase
	Guard      *idemuc.Guard
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger

	// Checks are pinged by GET /health.
	Checks []Check

	JWTSecret    []byte
	RateRPS      float64
	RateBurst    int
	StoreTimeout time.Duration
}

// NewServer builds the echo instance with every route mounted.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		e.Use(middleware.Metrics(d.Metrics))
	}
	e.Use(echomw.BodyLimit("1M"))

	h := NewHandler(d.Checks...)
	e.GET("/health", h.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	var (
		ledgerOp func(string)
		onDeny   func()
	)
	if d.Metrics != nil {
		ledgerOp = d.Metrics.LedgerOp
		onDeny = d.Metrics.RateLimited.Inc
	}

	api := e.Group("",
		middleware.Authenticate(d.JWTSecret),
		middleware.RateLimit(d.RateRPS, d.RateBurst, onDeny),
		middleware.StoreTimeout(d.StoreTimeout),
		middleware.IdempotencyKey(),
	)

	loans := NewLoanHandler(d.Loans, d.Allocation, d.Views, d.Guard, ledgerOp)
	api.POST("/loans", loans.CreateLoan)
	api.GET("/loans", loans.ListLoans)
	api.GET("/loans/:loan_id", loans.GetLoan)
	api.PATCH("/loans/:loan_id", loans.EditLoan)
	api.POST("/loans/:loan_id/publish", loans.Publish())
	api.POST("/loans/:loan_id/activate", loans.Activate())
	api.POST("/loans/:loan_id/cancel", loans.Cancel())
	api.POST("/loans/:loan_id/close", loans.Close())
	api.POST("/loans/:loan_id/lenders", loans.InviteLenders)

	parts := NewParticipationHandler(d.Allocation, d.Views, ledgerOp)
	api.POST("/participations/:participation_id/accept", parts.Accept)
	api.POST("/participations/:participation_id/decline", parts.Decline)
	api.POST("/participations/:participation_id/revoke", parts.Revoke)
	api.GET("/lender/invitations", parts.Invitations)
	api.GET("/lender/loans", parts.Portfolio)

	pays := NewPaymentHandler(d.Repayments, d.Guard, ledgerOp)
	api.POST("/payments", pays.Submit)
	api.GET("/loans/:loan_id/payments", pays.List)
	api.GET("/loans/:loan_id/repayments", pays.Summary)
	api.GET("/payments/:payment_id", pays.Get)
	api.GET("/payments/:payment_id/receipt-url", pays.ReceiptURL)
	api.POST("/payments/:payment_id/approve", pays.Approve)
	api.POST("/payments/:payment_id/reject", pays.Reject)

	users := NewUserHandler(d.Views)
	api.GET("/lenders/search", users.SearchLenders)
	api.GET("/user/dashboard", users.Dashboard)

	return e
}
