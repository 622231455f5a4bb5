package adapter

import (
	"context"
	"time"
)

// Locker serialises work on one key across processes. TryLock returns
// domain.ErrLockBusy when the key stays held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
