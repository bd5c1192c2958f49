package ratelimit

import (
	"fmt"

	"github.com/bnema/zerowrap"
	"github.com/redis/go-redis/v9"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/config"
)

// Limiters groups the two limits applied to registry traffic.
type Limiters struct {
	Global out.RateLimiter
	PerIP  out.RateLimiter
	closer func() error
}

// Close releases backend resources held by the limiters.
func (l *Limiters) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer()
}

// NewStore creates a RateLimiter based on the configured backend.
func NewStore(cfg config.RateLimitConfig, rps float64, burst int, log zerowrap.Logger) (out.RateLimiter, error) {
	switch cfg.Backend {
	case config.RateLimitMemory, "":
		return NewMemoryStore(rps, burst, log), nil
	case config.RateLimitRedis:
		return NewRedisStore(newRedisClient(cfg), rps, burst, log), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}

// NewLimiters builds the global and per-IP limiters from cfg. Both limiters
// share one Redis client when the redis backend is selected.
func NewLimiters(cfg config.RateLimitConfig, log zerowrap.Logger) (*Limiters, error) {
	switch cfg.Backend {
	case config.RateLimitMemory, "":
		return &Limiters{
			Global: NewMemoryStore(cfg.GlobalRPS, cfg.GlobalBurst, log),
			PerIP:  NewMemoryStore(cfg.IPRPS, cfg.IPBurst, log),
		}, nil
	case config.RateLimitRedis:
		client := newRedisClient(cfg)
		return &Limiters{
			Global: NewRedisStore(client, cfg.GlobalRPS, cfg.GlobalBurst, log),
			PerIP:  NewRedisStore(client, cfg.IPRPS, cfg.IPBurst, log),
			closer: client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}

func newRedisClient(cfg config.RateLimitConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
