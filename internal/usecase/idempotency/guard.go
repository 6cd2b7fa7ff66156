// Package idempotency makes consequential mutations at-most-once per client key.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"lendledger/internal/domain/apperr"
	domain "lendledger/internal/domain/idempotency"

	"github.com/sirupsen/logrus"
)

// How long a reservation blocks duplicates while the first call is still running.
const inFlightTTL = 60 * time.Second

type Guard struct {
	store domain.Store
	ttl   time.Duration
	now   func() time.Time
	// Replayed is called on every short-circuited replay (metrics hook).
	Replayed func(op string)
}

func NewGuard(store domain.Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Request scopes one guarded call.
type Request struct {
	Op     string
	Owner  string
	LoanID string
	Key    domain.Key
}

// Result is the JSON body of the response; byte-identical across replays.
type Result struct {
	Body     []byte
	Replayed bool
}

// Do executes fn at most once per (owner, key) within the retention window.
// Without a key fn simply runs.
func (g *Guard) Do(ctx context.Context, req Request, fn func(ctx context.Context) (any, error)) (*Result, error) {
	if req.Key.Value == "" {
		return run(ctx, fn)
	}

	now := g.now()
	rec := domain.Record{
		Key:         req.Key.Value,
		Owner:       req.Owner,
		Op:          req.Op,
		LoanID:      req.LoanID,
		Fingerprint: req.Key.Fingerprint,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.ttl),
	}
	existing, reserved, err := g.store.Reserve(ctx, rec, inFlightTTL)
	if err != nil {
		return nil, err
	}
	if !reserved {
		switch {
		case existing.LoanID != rec.LoanID || existing.Op != rec.Op:
			return nil, apperr.Conflict("idempotency key %s was already used for another operation", rec.Key)
		case existing.Fingerprint != rec.Fingerprint:
			return nil, apperr.Conflict("idempotency key %s was already used with a different request", rec.Key)
		case existing.InProgress:
			return nil, apperr.Conflict("a request with idempotency key %s is still in progress", rec.Key)
		}
		if g.Replayed != nil {
			g.Replayed(req.Op)
		}
		return &Result{Body: existing.Body, Replayed: true}, nil
	}

	res, err := run(ctx, fn)
	if err != nil {
		// the mutation did not happen; free the key so the client can retry
		if relErr := g.store.Release(context.WithoutCancel(ctx), rec.Owner, rec.Key); relErr != nil {
			logrus.WithError(relErr).WithField("idempotency_key", rec.Key).Warn("idempotency: release failed")
		}
		return nil, err
	}

	rec.Body = res.Body
	if err := g.store.Complete(context.WithoutCancel(ctx), rec, g.ttl); err != nil {
		// the mutation is committed; a lost record only weakens replay
		logrus.WithError(err).WithFields(logrus.Fields{
			"op": req.Op, "owner": req.Owner, "idempotency_key": rec.Key,
		}).Error("idempotency: storing response failed")
	}
	return res, nil
}

func run(ctx context.Context, fn func(ctx context.Context) (any, error)) (*Result, error) {
	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Result{Body: body}, nil
}
