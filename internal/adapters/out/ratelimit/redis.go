package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/redis/go-redis/v9"

	"github.com/bnema/hangar/internal/boundaries/out"
)

//go:embed rate_limit.lua
var rateLimitScript string

const keyPrefix = "hangar:ratelimit:"

// Ensure RedisStore implements out.RateLimiter.
var _ out.RateLimiter = (*RedisStore)(nil)

// RedisStore shares rate limits between registry replicas through Redis.
// The token bucket of MemoryStore is approximated by a fixed window of
// burst/rps seconds holding at most burst tokens.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
	log    zerowrap.Logger
}

// NewRedisStore creates a Redis-backed rate limiter.
func NewRedisStore(client *redis.Client, rps float64, burst int, log zerowrap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		script: redis.NewScript(rateLimitScript),
		limit:  burst,
		window: windowFor(rps, burst),
		log:    log,
	}
}

func windowFor(rps float64, burst int) time.Duration {
	if rps <= 0 || burst <= 0 {
		return time.Second
	}
	window := time.Duration(float64(burst) / rps * float64(time.Second))
	if window < time.Millisecond {
		return time.Millisecond
	}
	return window
}

// Allow checks if a request identified by key is allowed.
func (s *RedisStore) Allow(ctx context.Context, key string) bool {
	return s.AllowN(ctx, key, 1)
}

// AllowN checks if n requests identified by key are allowed. Requests are
// let through when Redis cannot be reached.
func (s *RedisStore) AllowN(ctx context.Context, key string, n int) bool {
	allowed, err := s.check(ctx, key, n)
	if err != nil {
		s.log.Warn().Err(err).
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "ratelimit-redis").
			Str("key", key).Msg("rate limit check failed, allowing request")
		return true
	}
	if !allowed {
		s.log.Debug().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "ratelimit-redis").
			Str("key", key).Int(zerowrap.FieldCount, n).Msg("rate limit exceeded")
	}
	return allowed
}

func (s *RedisStore) check(ctx context.Context, key string, n int) (bool, error) {
	res, err := s.script.Run(ctx, s.client, []string{keyPrefix + key}, n, s.limit, s.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return res == 1, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
