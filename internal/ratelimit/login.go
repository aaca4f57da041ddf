package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trashforcoin/internal/config"
)

const keyLoginAttempt = "auth:login:%s"

// LoginLimiter throttles password attempts per account and client address.
type LoginLimiter struct {
	bucket *attemptBucket
	rate   float64
	burst  int
}

func NewLoginLimiter(cfg config.Config, client *redis.Client) (*LoginLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}
	return &LoginLimiter{
		bucket: newAttemptBucket(client),
		rate:   limitCfg.LoginRate,
		burst:  limitCfg.LoginBurst,
	}, nil
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow spends one attempt for email from ip. A disabled limiter always allows.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) (*Attempt, error) {
	if !l.Enabled() {
		return &Attempt{Allowed: true}, nil
	}
	return l.bucket.take(ctx, loginKey(email, ip), l.rate, l.burst)
}

// Reset forgets the failed attempts of email from ip after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	return l.bucket.reset(ctx, loginKey(email, ip))
}

func loginKey(email, ip string) string {
	return fmt.Sprintf(keyLoginAttempt, strings.ToLower(strings.TrimSpace(email))+"|"+strings.TrimSpace(ip))
}
