package locker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotHeld = errors.New("lock is not held by this owner")

// Deletes the key only when it still holds the caller's token, so an expired
// lock taken over by another owner is never released by mistake.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}

	if !acquired {
		return "", false, nil
	}

	return token, true, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	released, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return err
	}

	if released == 0 {
		return ErrLockNotHeld
	}

	return nil
}
