// Package ratelimit implements the per-sender sliding-window limiter (C5),
// continuing services/dlq/service.go's Lua `ScriptLoad`/`EvalSha` idiom: a
// single atomic script does INCR + conditional EXPIRE in one round trip
// instead of the DLQ's RPUSH + conditional EXPIRE.
package ratelimit

import (
	"chat/src/clients/redis"
	"chat/src/platform/validation"
	"context"
	"fmt"
	"time"
)

const svcBootstrapTimeout = 5 * time.Second

/*
-- KEYS[1] = counter key
-- ARGV[1] = expiration in seconds
-- returns the post-increment counter value
*/
const checkAndIncrementScript = `
local key = KEYS[1]
local ttl = tonumber(ARGV[1])

local count = redis.call("INCR", key)

if count == 1 then
    redis.call("EXPIRE", key, ttl)
end

return count
`

type Result struct {
	Allowed           bool
	RetryAfterSeconds int64
}

type Options struct {
	RedisClient    *redis.Client
	LimitPerWindow int64         `validate:"required,min=1,max=1000000"`
	Window         time.Duration `validate:"required,min=1000000000,max=3600000000000"` // 1s to 1h
}

type Service struct {
	redis          *redis.Client
	evalShaCheck   string
	limitPerWindow int64
	window         time.Duration
}

func NewService(opts *Options) (*Service, error) {
	if err := validation.Instance.Struct(opts); err != nil {
		return nil, fmt.Errorf("can't create rate limiter: invalid options: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), svcBootstrapTimeout)
	defer cancel()

	evalSha, err := opts.RedisClient.Driver.ScriptLoad(ctx, checkAndIncrementScript).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to init rate limiter: can't load check-and-increment script: %w", err)
	}

	return &Service{
		redis:          opts.RedisClient,
		evalShaCheck:   evalSha,
		limitPerWindow: opts.LimitPerWindow,
		window:         opts.Window,
	}, nil
}

// CheckAndIncrement implements C5's checkAndIncrement(senderId): atomically
// increments the sender's window counter, lazily starting the window's TTL
// on the first hit, and denies once the counter exceeds the configured
// limit.
func (s *Service) CheckAndIncrement(ctx context.Context, senderId string) (Result, error) {
	key := s.key(senderId)

	count, err := s.redis.Driver.EvalSha(
		ctx,
		s.evalShaCheck,
		[]string{key},
		s.window.Seconds(),
	).Int64()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed for sender '%s': %w", senderId, err)
	}

	if count <= s.limitPerWindow {
		return Result{Allowed: true}, nil
	}

	ttl, err := s.redis.Driver.TTL(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit ttl lookup failed for sender '%s': %w", senderId, err)
	}
	retryAfter := int64(ttl.Seconds())
	if retryAfter < 0 {
		retryAfter = int64(s.window.Seconds())
	}

	return Result{Allowed: false, RetryAfterSeconds: retryAfter}, nil
}

func (s *Service) key(senderId string) string {
	return "rate:" + senderId
}
