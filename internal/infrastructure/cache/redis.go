package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig points at the idempotency store.
type RedisConfig struct {
	Addr string
	DB   int
	// Timeout bounds dial, read and write; zero keeps the client defaults.
	Timeout time.Duration
}

// OpenRedis connects and pings within ctx's deadline (5s when ctx has none).
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{Addr: cfg.Addr, DB: cfg.DB}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	r := redis.NewClient(opts)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", cfg.Addr, cfg.DB, err)
	}
	return r, nil
}
