package dispatch

import (
	"context"
	"time"

	"github.com/bsm/redislock"
)

// RedisLocker serializes dispatch attempts per document code across
// instances. The source system did a bare read-then-write here; the lock
// closes that race.
type RedisLocker struct {
	Client *redislock.Client
	TTL    time.Duration
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{
		Client: client,
		TTL:    30 * time.Second,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, docCode string) (func(), error) {
	lock, err := l.Client.Obtain(ctx, "dispatch:"+docCode, l.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 10),
	})
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
