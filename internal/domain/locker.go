package domain

import (
	"context"
	"time"
)

type Locker interface {
	// TryLock returns an owner token when the lock was acquired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
