package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/notification"
	"lendledger/internal/testutil/loanmock"
	"lendledger/internal/testutil/notifymock"

	"github.com/robfig/cron/v3"
)

var today = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func withTerms(loanID string, start time.Time, freq loan.Frequency, n int) loan.Loan {
	return loan.Loan{
		LoanID:     loanID,
		BorrowerID: "B-" + loanID,
		Status:     loan.StatusActive,
		Maturity:   loan.MaturityTerms{StartDate: &start, Frequency: freq, TermMonths: 12, TotalPayments: n},
	}
}

func TestRun(t *testing.T) {
	loans := []loan.Loan{
		withTerms("SOON", time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC), loan.FrequencyMonthly, 12),  // next 2025-06-12
		withTerms("TODAY", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), loan.FrequencyWeekly, 10),  // due today
		withTerms("LATER", time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC), loan.FrequencyMonthly, 12), // next 2025-06-25
		withTerms("DONE", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), loan.FrequencyQuarterly, 4),  // schedule over
	}
	var statuses []loan.Status
	repo := &loanmock.Repo{ListWithTermsFn: func(_ context.Context, s []loan.Status) ([]loan.Loan, error) {
		statuses = s
		return loans, nil
	}}
	sink := &notifymock.Sink{}
	job := NewJob(repo, sink, 3)
	job.now = func() time.Time { return today }

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || sink.Count(notification.EventPaymentDue) != 2 {
		t.Fatalf("sent %d reminders: %+v", n, sink.Sent())
	}
	if len(statuses) != 2 {
		t.Fatalf("sweep should cover running loans only, asked for %v", statuses)
	}
	got := map[string]string{}
	for _, m := range sink.Sent() {
		got[m.Payload["loan_id"].(string)] = m.Payload["due_date"].(string)
		if m.To.ID != "B-"+m.Payload["loan_id"].(string) {
			t.Fatalf("reminder went to %s", m.To.ID)
		}
	}
	if got["SOON"] != "2025-06-12" || got["TODAY"] != "2025-06-10" {
		t.Fatalf("unexpected reminders %v", got)
	}
}

func TestRun_FailingSinkDoesNotFailSweep(t *testing.T) {
	repo := &loanmock.Repo{ListWithTermsFn: func(context.Context, []loan.Status) ([]loan.Loan, error) {
		return []loan.Loan{withTerms("L1", today, loan.FrequencyWeekly, 4)}, nil
	}}
	job := NewJob(repo, &notifymock.Sink{Err: errors.New("smtp down")}, 3)
	job.now = func() time.Time { return today }
	if n, err := job.Run(context.Background()); err != nil || n != 1 {
		t.Fatalf("Run = %d, %v", n, err)
	}
}

func TestRun_StoreError(t *testing.T) {
	job := NewJob(&loanmock.Repo{}, nil, 3)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the store error to surface")
	}
}

func TestSchedule(t *testing.T) {
	job := NewJob(&loanmock.Repo{}, nil, 3)
	c := cron.New()
	if _, err := job.Schedule(c, "0 8 * * *"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatal("entry not registered")
	}
	if _, err := job.Schedule(c, "not a cron expression"); err == nil {
		t.Fatal("expected a parse error")
	}
}
