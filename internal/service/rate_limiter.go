package service

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/redis"
)

// rateLimitScript is a Lua script for sliding window rate limiting
var rateLimitScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local resetAt = now + window
return {1, resetAt}
`)

// InboundLimiter decides whether a sender's message is processed.
type InboundLimiter interface {
	Allow(ctx context.Context, sender string) bool
}

// RateLimiter is a Redis sliding-window limiter shared by all instances.
type RateLimiter struct {
	client    goredis.Scripter
	perMinute int
}

func NewRateLimiter(client goredis.Scripter, perMinute int) *RateLimiter {
	return &RateLimiter{client: client, perMinute: perMinute}
}

// Allow applies the per-minute inbound limit. A non-positive limit disables it.
func (rl *RateLimiter) Allow(ctx context.Context, sender string) bool {
	if rl.perMinute <= 0 {
		return true
	}
	allowed, _ := rl.CheckLimit(ctx, redis.InboundRateKey(sender), rl.perMinute, time.Minute)
	return allowed
}

// CheckLimit records one hit on key and reports whether it fits the limit.
// Redis errors allow the hit.
func (rl *RateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (allowed bool, resetAt time.Time) {
	now := time.Now().Unix()

	result, err := rateLimitScript.Run(
		ctx,
		rl.client,
		[]string{key},
		now,
		int64(window.Seconds()),
		limit,
	).Int64Slice()

	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("rate limit check failed, allowing request")
		return true, time.Now()
	}

	if len(result) != 2 {
		log.Warn().Str("key", key).Msg("unexpected rate limit result, allowing request")
		return true, time.Now()
	}

	return result[0] == 1, time.Unix(result[1], 0)
}
