package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix        = "lock:"
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	lockRetryInterval    = 25 * time.Millisecond
	lockReleaseTimeout   = 2 * time.Second
)

// releaseLockScript deletes the lock only while it still holds our token,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

// RedisAdapter provides cross-process locks and idempotency keys.
type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
	log     *slog.Logger
}

func NewRedisAdapter(client *redis.Client, lockTTL time.Duration, logger *slog.Logger) *RedisAdapter {
	return &RedisAdapter{client: client, lockTTL: lockTTL, log: logger}
}

// Acquire polls SET NX until it wins or ctx ends. The lock expires after
// lockTTL even if the holder dies.
func (r *RedisAdapter) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
			defer cancel()
			if err := releaseLockScript.Run(ctx, r.client, []string{lockKey}, token).Err(); err != nil {
				r.log.Error("release lock failed", "key", key, "error", err)
			}
		})
	}, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
