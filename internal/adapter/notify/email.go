package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"

	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/notification"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// EmailSink mails events. Recipients known only by id are looked up in the directory.
type EmailSink struct {
	cfg    SMTPConfig
	users  identity.Directory
	logger *logrus.Logger

	// send is swapped in tests.
	send func(e *email.Email) error
}

func NewEmailSink(cfg SMTPConfig, users identity.Directory, logger *logrus.Logger) *EmailSink {
	s := &EmailSink{cfg: cfg, users: users, logger: logger}
	s.send = func(e *email.Email) error {
		var auth smtp.Auth
		if cfg.User != "" {
			auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
		}
		return e.Send(net.JoinHostPort(cfg.Host, cfg.Port), auth)
	}
	return s
}

var subjects = map[notification.EventType]string{
	notification.EventLenderInvited:      "You have been invited to fund a loan",
	notification.EventInvitationAccepted: "A lender accepted your invitation",
	notification.EventInvitationDeclined: "A lender declined your invitation",
	notification.EventInvitationRevoked:  "An invitation was withdrawn",
	notification.EventLoanActivated:      "A loan you fund is now active",
	notification.EventLoanCancelled:      "A loan was cancelled",
	notification.EventLoanCompleted:      "A loan has been repaid",
	notification.EventPaymentSubmitted:   "A repayment is awaiting your review",
	notification.EventPaymentApproved:    "Your repayment was approved",
	notification.EventPaymentRejected:    "Your repayment was rejected",
	notification.EventPaymentDue:         "A loan payment is coming up",
}

func (s *EmailSink) Notify(ctx context.Context, to notification.Recipient, event notification.EventType, payload map[string]any) error {
	addr := to.Email
	if addr == "" && to.ID != "" && s.users != nil {
		u, err := s.users.GetByID(ctx, to.ID)
		if err != nil {
			return fmt.Errorf("resolve recipient %s: %w", to.ID, err)
		}
		addr = u.Email
	}
	if addr == "" {
		return errors.New("recipient has no email address")
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{addr}
	e.Subject = subject(event)
	e.Text = []byte(body(event, payload))

	if err := s.send(e); err != nil {
		if s.logger != nil {
			s.logger.Errorf("failed to send %s email to %s: %v", event, addr, err)
		}
		return fmt.Errorf("send %s: %w", event, err)
	}
	if s.logger != nil {
		s.logger.Debugf("%s email sent to %s", event, addr)
	}
	return nil
}

func subject(event notification.EventType) string {
	if s, ok := subjects[event]; ok {
		return s
	}
	return "Loan update: " + string(event)
}

func body(event notification.EventType, payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(subject(event))
	b.WriteString(".\n\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, payload[k])
	}
	return b.String()
}
