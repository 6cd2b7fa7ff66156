// Package notify holds the notification sinks: structured log, SMTP mail,
// fan-out and an asynchronous queue in front of any of them.
package notify

import (
	"context"

	"lendledger/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(_ context.Context, to notification.Recipient, event notification.EventType, payload map[string]any) error {
	l := s.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	fields := logrus.Fields{"event": event, "recipient_id": to.ID, "recipient_email": to.Email}
	for k, v := range payload {
		fields["payload."+k] = v
	}
	l.WithFields(fields).Info("notification")
	return nil
}
