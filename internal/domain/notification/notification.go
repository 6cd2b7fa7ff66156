package notification

import (
	"context"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventLenderInvited      EventType = "lender_invited"
	EventInvitationAccepted EventType = "invitation_accepted"
	EventInvitationDeclined EventType = "invitation_declined"
	EventInvitationRevoked  EventType = "invitation_revoked"
	EventLoanActivated      EventType = "loan_activated"
	EventLoanCancelled      EventType = "loan_cancelled"
	EventLoanCompleted      EventType = "loan_completed"
	EventPaymentSubmitted   EventType = "payment_submitted"
	EventPaymentApproved    EventType = "payment_approved"
	EventPaymentRejected    EventType = "payment_rejected"
	EventPaymentDue         EventType = "payment_due"
)

// Recipient identifies who gets notified. ID is empty for invitees without an account.
type Recipient struct {
	ID    string
	Email string
}

// Sink delivers notifications. Callers treat it as fire-and-forget.
type Sink interface {
	Notify(ctx context.Context, to Recipient, event EventType, payload map[string]any) error
}

// Send delivers through s and logs failures. A failed notification never
// fails the ledger operation that triggered it.
func Send(ctx context.Context, s Sink, to Recipient, event EventType, payload map[string]any) {
	if s == nil {
		return
	}
	if err := s.Notify(context.WithoutCancel(ctx), to, event, payload); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":     event,
			"recipient": to.ID,
		}).Warn("notification: delivery failed")
	}
}
