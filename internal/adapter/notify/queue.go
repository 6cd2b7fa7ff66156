package notify

import (
	"context"
	"errors"
	"sync"

	"lendledger/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

var ErrQueueFull = errors.New("notification queue full")

type job struct {
	ctx     context.Context
	to      notification.Recipient
	event   notification.EventType
	payload map[string]any
}

// Queue hands events to a background worker so slow sinks (SMTP) stay off the
// request path. Notify never blocks; a full buffer drops the event.
type Queue struct {
	next notification.Sink
	jobs chan job
	wg   sync.WaitGroup
	once sync.Once
	mu   sync.RWMutex
	shut bool
}

func NewQueue(next notification.Sink, size int) *Queue {
	if size <= 0 {
		size = 256
	}
	q := &Queue{next: next, jobs: make(chan job, size)}
	q.wg.Add(1)
	go q.loop()
	return q
}

func (q *Queue) Notify(ctx context.Context, to notification.Recipient, event notification.EventType, payload map[string]any) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.shut {
		return errors.New("notification queue closed")
	}
	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), to: to, event: event, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for j := range q.jobs {
		if err := q.next.Notify(j.ctx, j.to, j.event, j.payload); err != nil {
			logrus.WithError(err).WithField("event", j.event).Warn("notification: async delivery failed")
		}
	}
}

// Close stops intake and waits for queued events to drain.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.shut = true
		close(q.jobs)
		q.mu.Unlock()
	})
	q.wg.Wait()
}
