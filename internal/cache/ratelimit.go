package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set scored by millisecond timestamps.
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
if count >= limit then
	local retry = window
	local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, 0, retry}
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return {1, limit - count - 1, 0}
`)

type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter caps events per key over a sliding window. The check and the
// increment run in one script, so concurrent callers cannot overshoot.
type RateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

func (r *RateLimiter) Limit() int {
	return r.limit
}

func (r *RateLimiter) Allow(ctx context.Context, id string) (RateDecision, error) {
	now := r.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + id},
		now, r.window.Milliseconds(), r.limit, member).Int64Slice()
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate limit %s: %w", id, err)
	}
	if len(res) != 3 {
		return RateDecision{}, fmt.Errorf("rate limit %s: unexpected reply %v", id, res)
	}
	return RateDecision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
