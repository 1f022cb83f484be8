package cmd

import (
	"fmt"

	"github.com/expensahq/expensa/pkg/locks"
	"github.com/redis/go-redis/v9"
)

// NewLocker creates the per-expense lock provider. An empty redisURL
// selects the in-process mutex, which is correct for single-instance
// deployments; multi-instance deployments need Redis so decisions on
// the same expense serialize across processes.
func NewLocker(redisURL string) (locks.Locker, error) {
	if redisURL == "" {
		return locks.NewKeyedMutex(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return locks.NewRedisLocker(redis.NewClient(opts)), nil
}
