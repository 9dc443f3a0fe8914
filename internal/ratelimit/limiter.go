// Package ratelimit throttles link creation per owner with a fixed-window
// counter kept in Redis, so every server instance shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// windowScript counts one request in the current window and returns
// {count, milliseconds until the window resets}. The first hit opens the
// window; a key that somehow lost its TTL gets it back.
var windowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end

	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end

	return {current, ttl}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter allows up to limit requests per key in each window.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New creates a limiter. New(client, 30, time.Minute) allows 30 requests per
// key per minute.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow counts a request for key and reports whether it fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	result, err := windowScript.Run(ctx, l.client,
		[]string{keyPrefix + key},
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply: %v", result)
	}

	count, ttl := int(result[0]), time.Duration(result[1])*time.Millisecond

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, keyPrefix+key).Err()
}

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}
