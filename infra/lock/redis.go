// Package lock holds the Redis SetNX implementation of the per-transfer
// lock for multi-instance deployments.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/abensaid/lendify/pkg/lock"
)

// acquirePollInterval is how often a blocked caller retries SetNX.
const acquirePollInterval = 50 * time.Millisecond

// releaseScript deletes the lock key only when it still carries the
// holder's token, so an expired lock grabbed by someone else is never
// released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a distributed Locker over SET NX with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ lock.Locker = (*Redis)(nil)

// NewRedis creates a Redis-backed Locker.
func NewRedis(url, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis lock: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis lock: connection failed: %w", err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// Acquire takes the lock for key, polling until the context deadline.
// The ttl bounds how long a crashed holder can block other instances.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(acquirePollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("redis lock: acquire failed: %w", err)
		}
		if ok {
			release := func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
			}
			return release, true, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
