package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(context.Background(), RedisConfig{Addr: s.Addr(), DB: 2, Timeout: time.Second})
	if err != nil {
		t.Fatalf("OpenRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Options().DB; got != 2 {
		t.Fatalf("client DB = %d, want 2", got)
	}
	if got := c.Options().ReadTimeout; got != time.Second {
		t.Fatalf("read timeout = %v, want 1s", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Set(ctx, "idemp:B1:k", "v", time.Minute).Err(); err != nil {
		t.Fatalf("SET err: %v", err)
	}
	if !s.DB(2).Exists("idemp:B1:k") {
		t.Fatal("key not written to db 2")
	}
}

func TestOpenRedis_Failure(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := OpenRedis(context.Background(), RedisConfig{Addr: addr, Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Fatalf("error should name the address: %v", err)
	}
}
