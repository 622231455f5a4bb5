//go:build integration

package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"unzer-reconciler/internal/config"
	"unzer-reconciler/internal/domain"
)

func TestRedisLocker_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewClient(ctx, config.RedisConfig{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	l := NewLocker(c)
	key := "reconcile:order:test-" + time.Now().Format("150405.000")

	token, err := l.TryLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.TryLock(ctx, key, 5*time.Second); !errors.Is(err, domain.ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
	if err := l.Unlock(ctx, key, "someone-else"); err != nil {
		t.Fatalf("foreign unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, key, 5*time.Second); !errors.Is(err, domain.ErrLockBusy) {
		t.Fatal("a foreign token must not release the lock")
	}
	if err := l.Unlock(ctx, key, token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	second, err := l.TryLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = l.Unlock(ctx, key, second)
}
