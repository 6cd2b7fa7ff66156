package notify

import (
	"context"
	"errors"

	"lendledger/internal/domain/notification"
)

// Fanout delivers to every sink and joins the failures.
type Fanout []notification.Sink

func (f Fanout) Notify(ctx context.Context, to notification.Recipient, event notification.EventType, payload map[string]any) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, to, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
