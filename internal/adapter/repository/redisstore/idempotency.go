package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/idempotency"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps idempotency records in redis under idemp:<owner>:<key>.
type IdempotencyStore struct{ rdb *redis.Client }

func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore { return &IdempotencyStore{rdb: rdb} }

func buildKey(owner, key string) string { return "idemp:" + owner + ":" + key }

func (s *IdempotencyStore) Reserve(ctx context.Context, rec idempotency.Record, lockTTL time.Duration) (*idempotency.Record, bool, error) {
	rec.InProgress = true
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	k := buildKey(rec.Owner, rec.Key)
	ok, err := s.rdb.SetNX(ctx, k, payload, lockTTL).Result()
	if err != nil {
		return nil, false, unavailable(err)
	}
	if ok {
		return nil, true, nil
	}
	cur, err := s.load(ctx, k)
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return nil, false, apperr.Conflict("idempotency key %s is being released, retry", rec.Key)
	}
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, rec idempotency.Record, ttl time.Duration) error {
	rec.InProgress = false
	payload, err := json.Marshal(rec)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.rdb.Set(ctx, buildKey(rec.Owner, rec.Key), payload, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, owner, key string) error {
	if err := s.rdb.Del(ctx, buildKey(owner, key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *IdempotencyStore) load(ctx context.Context, k string) (*idempotency.Record, error) {
	v, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, err
	}
	if err != nil {
		return nil, unavailable(err)
	}
	var rec idempotency.Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, apperr.Internal(err)
	}
	return &rec, nil
}

func unavailable(err error) error { return apperr.Unavailable(apperr.UnavailableRetryAfter, err) }
