package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupLimiter(t *testing.T, max int) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return NewAttemptLimiter(client, "test", time.Minute, max), mr
}

func TestAttemptLimiter_AllowsUpToMax(t *testing.T) {
	l, _ := setupLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		if err != nil || !ok {
			t.Fatalf("attempt %d: expected allowed, got %v / %v", i+1, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected fourth attempt to be refused")
	}

	if ok, _ := l.Allow(ctx, "10.0.0.2"); !ok {
		t.Fatalf("keys must be counted independently")
	}
}

func TestAttemptLimiter_WindowExpires(t *testing.T) {
	l, mr := setupLimiter(t, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("first attempt refused")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("second attempt allowed")
	}
	if ttl := mr.TTL("test:k"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("attempt after window refused")
	}
}

func TestAttemptLimiter_Reset(t *testing.T) {
	l, _ := setupLimiter(t, 1)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k")
	if err := l.Reset(ctx, "k"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("attempt after reset refused")
	}
}

func TestAttemptLimiter_FailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	l := NewAttemptLimiter(client, "test", time.Minute, 1)
	mr.Close()

	ok, err := l.Allow(context.Background(), "k")
	if err == nil {
		t.Fatalf("expected error with redis down")
	}
	if !ok {
		t.Fatalf("expected fail-open on redis error")
	}
}
