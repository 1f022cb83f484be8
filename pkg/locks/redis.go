package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL    = 30 * time.Second
	defaultRetryDelay = 50 * time.Millisecond
	lockKeyPrefix     = "expensa:lock:"
)

// releaseScript deletes the lock only when the caller still owns it,
// so a lock that expired and was re-acquired elsewhere is not released
// by the original holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker on Redis for multi-instance
// deployments, using SET NX with a TTL and owner-checked release.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
}

// NewRedisLocker creates a locker backed by the given Redis client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        defaultLockTTL,
		retryDelay: defaultRetryDelay,
	}
}

// Acquire polls SET NX until the key is held or ctx is done.
func (rl *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.New().String()

	for {
		acquired, err := rl.client.SetNX(ctx, lockKey, token, rl.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}

		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rl.retryDelay):
		}
	}

	return func() {
		// Release happens on a fresh context: the request context may
		// already be cancelled by the time the transaction finishes.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = releaseScript.Run(releaseCtx, rl.client, []string{lockKey}, token).Err()
	}, nil
}
