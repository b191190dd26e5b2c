package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spiderlily190/cad/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// Scores are unix microseconds so they stay exact as float64.
// KEYS[1] window key; ARGV: now, threshold, limit, ttl ms, member.
var hitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[5])
	count = count + 1
	allowed = 1
end
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
local oldest = ARGV[1]
local head = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if #head > 0 then
	oldest = head[2]
end
return {allowed, count, oldest}
`)

// RateLimitRepository keeps one sorted set of hit timestamps per key.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// Hit trims hits older than window, then records at only while fewer than limit remain.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, limit int, window time.Duration, at time.Time) (port.RateWindow, error) {
	if window <= 0 {
		return port.RateWindow{}, errors.New("window must be positive")
	}

	now := at.UnixMicro()
	threshold := at.Add(-window).UnixMicro()

	ttl := r.cfg.TTL
	if ttl <= 0 {
		ttl = window
	}

	raw, err := hitScript.Run(ctx, r.client, []string{r.key(key)},
		now, threshold, limit, ttl.Milliseconds(), strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Slice()
	if err != nil {
		return port.RateWindow{}, fmt.Errorf("redis rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return port.RateWindow{}, fmt.Errorf("redis rate limit script: unexpected reply %v", raw)
	}

	allowed, _ := raw[0].(int64)
	count, _ := raw[1].(int64)
	oldestText, _ := raw[2].(string)
	oldest, err := strconv.ParseFloat(oldestText, 64)
	if err != nil {
		return port.RateWindow{}, fmt.Errorf("parse oldest hit %q: %w", oldestText, err)
	}

	return port.RateWindow{
		Allowed: allowed == 1,
		Count:   int(count),
		Oldest:  time.UnixMicro(int64(oldest)).UTC(),
	}, nil
}

func (r *RateLimitRepository) key(key string) string {
	if r.cfg.KeyPrefix == "" {
		return key
	}
	return r.cfg.KeyPrefix + ":" + key
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
