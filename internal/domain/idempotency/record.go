package idempotency

import (
	"context"
	"time"
)

// Record is the stored outcome of one keyed mutating call.
type Record struct {
	Key         string    `json:"key"`
	Owner       string    `json:"owner"`
	Op          string    `json:"op,omitempty"`
	LoanID      string    `json:"loan_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	InProgress  bool      `json:"in_progress"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Store interface {
	// Reserve claims (owner, key) for lockTTL. When the key is already taken it
	// returns the existing record and reserved=false.
	Reserve(ctx context.Context, rec Record, lockTTL time.Duration) (existing *Record, reserved bool, err error)
	// Complete stores the final response for ttl.
	Complete(ctx context.Context, rec Record, ttl time.Duration) error
	// Release drops a reservation whose call failed so the key can be retried.
	Release(ctx context.Context, owner, key string) error
}

// Key is the client-supplied idempotency key plus a fingerprint of the request it came with.
type Key struct {
	Value       string
	Fingerprint string
}

type ctxKey struct{}

func WithKey(ctx context.Context, k Key) context.Context { return context.WithValue(ctx, ctxKey{}, k) }

func KeyFrom(ctx context.Context) (Key, bool) {
	k, ok := ctx.Value(ctxKey{}).(Key)
	return k, ok && k.Value != ""
}
