package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited indicates the login budget for an email or client IP is spent.
	ErrRateLimited = errors.New("authkit.login.rate_limited")
	// ErrLimiterUnavailable wraps redis failures.
	ErrLimiterUnavailable = errors.New("authkit.login.limiter_unavailable")
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLoginWindow      = 15 * time.Minute
	loginKeyPrefix          = "storekeep:login"
)

// LoginLimiterConfig tunes the fixed-window login limiter.
type LoginLimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter counts failed logins per email and per client IP in redis.
// A nil limiter allows every attempt.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config LoginLimiterConfig
}

// NewLoginLimiter constructs a limiter over the redis client.
func NewLoginLimiter(redisClient redis.UniversalClient, config LoginLimiterConfig) *LoginLimiter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxLoginAttempts
	}
	if config.Window <= 0 {
		config.Window = DefaultLoginWindow
	}
	return &LoginLimiter{redis: redisClient, config: config}
}

// Check returns ErrRateLimited when either counter has reached the budget.
func (limiter *LoginLimiter) Check(ctx context.Context, email string, clientIP string) error {
	if limiter == nil {
		return nil
	}
	for _, key := range limiter.keys(email, clientIP) {
		count, err := limiter.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if count >= int64(limiter.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts a failed attempt. The window starts at the first failure.
func (limiter *LoginLimiter) RecordFailure(ctx context.Context, email string, clientIP string) error {
	if limiter == nil {
		return nil
	}
	for _, key := range limiter.keys(email, clientIP) {
		count, err := limiter.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if count == 1 {
			if err := limiter.redis.Expire(ctx, key, limiter.config.Window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears both counters after a successful login.
func (limiter *LoginLimiter) Reset(ctx context.Context, email string, clientIP string) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.redis.Del(ctx, limiter.keys(email, clientIP)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func (limiter *LoginLimiter) keys(email string, clientIP string) []string {
	keys := []string{loginKeyPrefix + ":email:" + strings.ToLower(strings.TrimSpace(email))}
	if clientIP != "" {
		keys = append(keys, loginKeyPrefix+":ip:"+clientIP)
	}
	return keys
}
