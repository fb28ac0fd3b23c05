package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	KeyPrefix          string
	MaxLoginAttempts   int
	LoginWindow        time.Duration
	MaxRefreshAttempts int
	RefreshWindow      time.Duration

	// FailOpen admits the attempt when Redis is unreachable.
	FailOpen bool
}

// Limiter enforces per-user attempt budgets for login and refresh using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	warn   func(string, ...any)
}

// New creates a rate [Limiter] backed by the given Redis client. warn may be
// nil.
func New(redisClient redis.UniversalClient, cfg Config, warn func(string, ...any)) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		warn:   warn,
	}
}

// CheckLogin counts a login attempt for userKey and returns
// [ErrRateLimited] once the window budget is exceeded.
func (l *Limiter) CheckLogin(ctx context.Context, userKey string) error {
	return l.check(ctx, l.loginKey(userKey), l.config.MaxLoginAttempts, l.config.LoginWindow)
}

// CheckRefresh counts a refresh attempt for userKey and returns
// [ErrRateLimited] once the window budget is exceeded.
func (l *Limiter) CheckRefresh(ctx context.Context, userKey string) error {
	return l.check(ctx, l.refreshKey(userKey), l.config.MaxRefreshAttempts, l.config.RefreshWindow)
}

func (l *Limiter) loginKey(userKey string) string {
	return l.config.KeyPrefix + ":login:" + userKey
}

func (l *Limiter) refreshKey(userKey string) string {
	return l.config.KeyPrefix + ":refresh:" + userKey
}

func (l *Limiter) check(ctx context.Context, key string, maxAttempts int, window time.Duration) error {
	if maxAttempts <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, key, window)
	if err != nil {
		if l.config.FailOpen {
			if l.warn != nil {
				l.warn("goMiniAuth: rate limiter unavailable, admitting attempt", "key", key, "error", err)
			}
			return nil
		}
		return err
	}
	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
