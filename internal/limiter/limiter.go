// Package limiter throttles logins with fixed-window counters in Redis.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLoginRateLimited = errors.New("login rate limited")
	ErrRedisUnavailable = errors.New("login limiter redis unavailable")
)

type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// LoginLimiter counts login attempts per email and per client IP.
// An empty IP skips the IP counter.
type LoginLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	cooldown    time.Duration
}

func NewLoginLimiter(redisClient redis.UniversalClient, cfg Config) *LoginLimiter {
	return &LoginLimiter{
		redis:       redisClient,
		maxAttempts: cfg.MaxAttempts,
		cooldown:    cfg.Cooldown,
	}
}

// Reserve counts one attempt before the credentials are checked and returns
// ErrLoginRateLimited once a counter exceeds the limit. The decision is taken
// on the INCR result, so concurrent attempts cannot all pass.
func (l *LoginLimiter) Reserve(ctx context.Context, email, ip string) error {
	if err := l.enforceKey(ctx, emailKey(email)); err != nil {
		return err
	}

	if ip != "" {
		if err := l.enforceKey(ctx, ipKey(ip)); err != nil {
			return err
		}
	}

	return nil
}

// Release gives back the attempt of a successful login: the email counter is
// cleared and the IP counter loses the reserved attempt.
func (l *LoginLimiter) Release(ctx context.Context, email, ip string) error {
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if ip == "" {
		return nil
	}

	count, err := l.redis.Decr(ctx, ipKey(ip)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// A window that expired in between leaves a key without TTL.
	if count <= 0 {
		if err := l.redis.Del(ctx, ipKey(ip)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return nil
}

func (l *LoginLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.maxAttempts) {
		return ErrLoginRateLimited
	}

	return nil
}

func emailKey(email string) string {
	return "login:email:" + strings.ToLower(email)
}

func ipKey(ip string) string {
	return "login:ip:" + ip
}
