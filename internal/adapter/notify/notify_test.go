package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/notification"
	"lendledger/internal/testutil/directorymock"
	"lendledger/internal/testutil/notifymock"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

func newTestEmailSink(dir identity.Directory) (*EmailSink, *[]*email.Email) {
	var sent []*email.Email
	s := NewEmailSink(SMTPConfig{Host: "localhost", Port: "25", From: "ledger@example.com"}, dir, logrus.New())
	s.send = func(e *email.Email) error {
		sent = append(sent, e)
		return nil
	}
	return s, &sent
}

func TestEmailSink_Notify(t *testing.T) {
	dir := &directorymock.Directory{
		GetByIDFn: func(_ context.Context, id string) (*identity.User, error) {
			return &identity.User{UserID: id, Email: "lender@example.com"}, nil
		},
	}

	tests := []struct {
		name   string
		to     notification.Recipient
		wantTo string
	}{
		{"direct address", notification.Recipient{Email: "invitee@example.com"}, "invitee@example.com"},
		{"resolved from directory", notification.Recipient{ID: "U1"}, "lender@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sent := newTestEmailSink(dir)
			err := s.Notify(context.Background(), tt.to, notification.EventPaymentApproved, map[string]any{"loan_id": "L1", "amount": "500.00"})
			if err != nil {
				t.Fatal(err)
			}
			if len(*sent) != 1 {
				t.Fatalf("sent %d emails", len(*sent))
			}
			e := (*sent)[0]
			if e.To[0] != tt.wantTo || e.From != "ledger@example.com" {
				t.Fatalf("envelope %v -> %v", e.From, e.To)
			}
			if e.Subject != "Your repayment was approved" {
				t.Fatalf("subject %q", e.Subject)
			}
			if !strings.Contains(string(e.Text), "amount: 500.00\nloan_id: L1\n") {
				t.Fatalf("body %q", e.Text)
			}
		})
	}
}

func TestEmailSink_Failures(t *testing.T) {
	s, _ := newTestEmailSink(nil)
	if err := s.Notify(context.Background(), notification.Recipient{}, notification.EventLoanActivated, nil); err == nil {
		t.Fatal("recipient without address accepted")
	}

	boom := errors.New("smtp down")
	s.send = func(*email.Email) error { return boom }
	err := s.Notify(context.Background(), notification.Recipient{Email: "a@example.com"}, notification.EventLoanActivated, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("want smtp error, got %v", err)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	err := LogSink{Logger: l}.Notify(context.Background(), notification.Recipient{ID: "U1"}, notification.EventLenderInvited, map[string]any{"loan_id": "L1"})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event":"lender_invited"`) || !strings.Contains(out, `"payload.loan_id":"L1"`) {
		t.Fatalf("log line %s", out)
	}
}

func TestFanout(t *testing.T) {
	ok := &notifymock.Sink{}
	bad := &notifymock.Sink{Err: errors.New("down")}
	err := Fanout{ok, nil, bad}.Notify(context.Background(), notification.Recipient{ID: "U1"}, notification.EventLoanCompleted, nil)
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("want joined failure, got %v", err)
	}
	if ok.Count(notification.EventLoanCompleted) != 1 || bad.Count(notification.EventLoanCompleted) != 1 {
		t.Fatal("every sink should be tried")
	}
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (b *blockingSink) Notify(context.Context, notification.Recipient, notification.EventType, map[string]any) error {
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}

func TestQueue(t *testing.T) {
	t.Run("drains on close", func(t *testing.T) {
		rec := &notifymock.Sink{}
		q := NewQueue(rec, 8)
		ctx, cancel := context.WithCancel(context.Background())
		for i := 0; i < 5; i++ {
			if err := q.Notify(ctx, notification.Recipient{ID: "U1"}, notification.EventPaymentDue, nil); err != nil {
				t.Fatal(err)
			}
		}
		cancel()
		q.Close()
		if got := rec.Count(notification.EventPaymentDue); got != 5 {
			t.Fatalf("delivered %d, want 5", got)
		}
		if err := q.Notify(context.Background(), notification.Recipient{}, notification.EventPaymentDue, nil); err == nil {
			t.Fatal("closed queue accepted an event")
		}
	})

	t.Run("full buffer drops", func(t *testing.T) {
		b := &blockingSink{release: make(chan struct{})}
		q := NewQueue(b, 1)
		var full bool
		deadline := time.Now().Add(time.Second)
		for !full && time.Now().Before(deadline) {
			full = errors.Is(q.Notify(context.Background(), notification.Recipient{}, notification.EventPaymentDue, nil), ErrQueueFull)
		}
		if !full {
			t.Fatal("queue never reported full")
		}
		close(b.release)
		q.Close()
	})
}
