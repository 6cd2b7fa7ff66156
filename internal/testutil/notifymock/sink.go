package notifymock

import (
	"context"
	"sync"

	"lendledger/internal/domain/notification"
)

var _ notification.Sink = (*Sink)(nil)

type Sent struct {
	To      notification.Recipient
	Event   notification.EventType
	Payload map[string]any
}

// Sink records every notification. Err, when set, is returned from Notify.
type Sink struct {
	mu   sync.Mutex
	Err  error
	sent []Sent
}

func (s *Sink) Notify(_ context.Context, to notification.Recipient, event notification.EventType, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{To: to, Event: event, Payload: payload})
	return s.Err
}

func (s *Sink) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// Count returns how many notifications of event were sent.
func (s *Sink) Count(event notification.EventType) int {
	n := 0
	for _, m := range s.Sent() {
		if m.Event == event {
			n++
		}
	}
	return n
}
