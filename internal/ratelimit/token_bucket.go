package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refills the bucket from redis server time, spends one token when available,
// and returns {allowed, tokens_left, now_ms}. Tokens travel as a string because
// redis truncates Lua numbers to integers.
const attemptBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + ((now - ts) / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens), now}
`

var (
	ErrLimiterNotConfigured = errors.New("rate limiter not configured")
	ErrLimiterKeyEmpty      = errors.New("rate limiter key is empty")
	ErrLimiterBounds        = errors.New("rate limiter rate and burst must be positive")
)

// Attempt is the outcome of spending one token.
type Attempt struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type attemptBucket struct {
	client *redis.Client
	script *redis.Script
}

func newAttemptBucket(client *redis.Client) *attemptBucket {
	if client == nil {
		return nil
	}
	return &attemptBucket{client: client, script: redis.NewScript(attemptBucketScript)}
}

func (b *attemptBucket) take(ctx context.Context, key string, rate float64, burst int) (*Attempt, error) {
	switch {
	case b == nil || b.client == nil:
		return nil, ErrLimiterNotConfigured
	case key == "":
		return nil, ErrLimiterKeyEmpty
	case rate <= 0 || burst <= 0:
		return nil, ErrLimiterBounds
	}

	ttl := defaultBucketTTL(rate, burst)
	res, err := b.script.Run(ctx, b.client, []string{key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 3 {
		return nil, errors.New("invalid rate limit script response")
	}

	attempt := &Attempt{
		Allowed:   castToInt(res[0]) == 1,
		Limit:     burst,
		Remaining: int(castToFloat(res[1])),
	}
	now := time.UnixMilli(castToInt(res[2]))
	if !attempt.Allowed {
		if missing := 1 - castToFloat(res[1]); missing > 0 {
			attempt.RetryAfter = time.Duration(missing / rate * float64(time.Second))
		}
	}
	attempt.ResetAt = now.Add(attempt.RetryAfter)
	return attempt, nil
}

func (b *attemptBucket) reset(ctx context.Context, key string) error {
	if b == nil || b.client == nil || key == "" {
		return nil
	}
	return b.client.Del(ctx, key).Err()
}

// defaultBucketTTL keeps an idle bucket for twice its full refill time.
func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseFloat(val, 64)
		return int64(parsed)
	default:
		return 0
	}
}

func castToFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
