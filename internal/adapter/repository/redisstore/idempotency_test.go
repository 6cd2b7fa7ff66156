package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/idempotency"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestReserveCompleteReplay(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	store := NewIdempotencyStore(rdb)
	ctx := context.Background()

	rec := idempotency.Record{Key: "k1", Owner: "B1", LoanID: "L1", Fingerprint: "fp", CreatedAt: time.Now().UTC()}
	existing, reserved, err := store.Reserve(ctx, rec, time.Minute)
	if err != nil || !reserved || existing != nil {
		t.Fatalf("first Reserve = %v, %v, %v", existing, reserved, err)
	}
	if ttl := mr.TTL("idemp:B1:k1"); ttl != time.Minute {
		t.Fatalf("lock ttl = %v", ttl)
	}

	// concurrent duplicate sees the in-progress record
	existing, reserved, err = store.Reserve(ctx, rec, time.Minute)
	if err != nil || reserved || existing == nil || !existing.InProgress {
		t.Fatalf("second Reserve = %+v, %v, %v", existing, reserved, err)
	}

	rec.Body = []byte(`{"ok":true}`)
	if err := store.Complete(ctx, rec, 24*time.Hour); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if ttl := mr.TTL("idemp:B1:k1"); ttl != 24*time.Hour {
		t.Fatalf("final ttl = %v", ttl)
	}
	existing, reserved, err = store.Reserve(ctx, rec, time.Minute)
	if err != nil || reserved || existing.InProgress || string(existing.Body) != `{"ok":true}` || existing.Fingerprint != "fp" {
		t.Fatalf("replay Reserve = %+v, %v, %v", existing, reserved, err)
	}

	// expiry frees the key
	mr.FastForward(25 * time.Hour)
	if _, reserved, _ := store.Reserve(ctx, rec, time.Minute); !reserved {
		t.Fatal("expected key to be free after ttl")
	}
}

func TestKeysAreScopedByOwner(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	store := NewIdempotencyStore(rdb)
	ctx := context.Background()

	if _, ok, _ := store.Reserve(ctx, idempotency.Record{Key: "k", Owner: "A"}, time.Minute); !ok {
		t.Fatal("A should reserve")
	}
	if _, ok, _ := store.Reserve(ctx, idempotency.Record{Key: "k", Owner: "B"}, time.Minute); !ok {
		t.Fatal("B should reserve the same key independently")
	}
}

func TestRelease(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	store := NewIdempotencyStore(rdb)
	ctx := context.Background()

	rec := idempotency.Record{Key: "k", Owner: "A"}
	if _, ok, _ := store.Reserve(ctx, rec, time.Minute); !ok {
		t.Fatal("reserve")
	}
	if err := store.Release(ctx, "A", "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if mr.Exists("idemp:A:k") {
		t.Fatal("key survived release")
	}
}

func TestStoreDown(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	store := NewIdempotencyStore(rdb)
	mr.Close()

	_, _, err := store.Reserve(context.Background(), idempotency.Record{Key: "k", Owner: "A"}, time.Minute)
	if !errors.Is(err, apperr.KindUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}
