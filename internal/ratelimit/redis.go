package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript mirrors take(): refill by whole intervals, cap, consume one token.
// All times are unix milliseconds supplied by the caller.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local max_tokens = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = max_tokens
  last = now
end

local elapsed = now - last
if elapsed >= interval then
  local intervals = math.floor(elapsed / interval)
  tokens = math.min(max_tokens, tokens + intervals * refill_rate)
  last = last + intervals * interval
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry = interval - (now - last)
  if retry < 0 then retry = 0 end
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// RedisStore runs the bucket update as a single Lua script, so concurrent
// requests for one key are serialized by Redis.
type RedisStore struct {
	client redis.Scripter
	prefix string
	ttl    time.Duration
}

// NewRedisStore keys buckets as "<prefix><class>:<identifier>"; idle keys expire after ttl.
func NewRedisStore(client redis.Scripter, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, prefix: "ratelimit:", ttl: ttl}
}

func (s *RedisStore) Take(ctx context.Context, identifier string, class Class, rule Rule, now time.Time) (Result, error) {
	key := s.prefix + string(class) + ":" + identifier
	vals, err := takeScript.Run(ctx, s.client, []string{key},
		rule.MaxTokens,
		rule.RefillRate,
		rule.RefillInterval.Milliseconds(),
		now.UnixMilli(),
		int64(s.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	return Result{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
