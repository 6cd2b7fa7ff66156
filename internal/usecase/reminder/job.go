// Package reminder sends advisory payment_due notices for running loans
// whose next scheduled installment is close.
package reminder

import (
	"context"
	"time"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Job struct {
	loans     loan.Repository
	sink      notification.Sink
	lookahead int
	timeout   time.Duration
	now       func() time.Time
}

func NewJob(loans loan.Repository, sink notification.Sink, lookaheadDays int) *Job {
	return &Job{
		loans:     loans,
		sink:      sink,
		lookahead: lookaheadDays,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Run sweeps once and returns how many reminders were sent.
func (j *Job) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	loans, err := j.loans.ListWithTerms(ctx, []loan.Status{loan.StatusActive, loan.StatusPartiallyCompleted})
	if err != nil {
		return 0, err
	}
	today := j.now().UTC()
	horizon := time.Date(today.Year(), today.Month(), today.Day()+j.lookahead, 0, 0, 0, 0, time.UTC)
	sent := 0
	for i := range loans {
		l := &loans[i]
		due, ok := l.Maturity.NextDue(today)
		if !ok || due.After(horizon) {
			continue
		}
		notification.Send(ctx, j.sink, notification.Recipient{ID: l.BorrowerID}, notification.EventPaymentDue, map[string]any{
			"loan_id":  l.LoanID,
			"due_date": due.Format(time.DateOnly),
			"days":     int(due.Sub(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24),
		})
		sent++
	}
	return sent, nil
}

// Schedule registers the sweep on c under a cron expression.
func (j *Job) Schedule(c *cron.Cron, expr string) (cron.EntryID, error) {
	return c.AddFunc(expr, func() {
		n, err := j.Run(context.Background())
		if err != nil {
			logrus.WithError(err).Error("reminder: sweep failed")
			return
		}
		logrus.WithField("sent", n).Info("reminder: sweep finished")
	})
}
