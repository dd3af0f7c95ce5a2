package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrExpireScript counts the attempt and starts the window on the first hit.
// It returns the count and the remaining TTL in milliseconds.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// Redis is a limiter shared by every replica that talks to the same server.
// Unlike Memory, rejected attempts still increment the counter; the window
// is not extended by them.
type Redis struct {
	rdb    redis.Scripter
	max    int
	window time.Duration
	prefix string
}

func NewRedis(rdb redis.Scripter, max int, win time.Duration) *Redis {
	return &Redis{rdb: rdb, max: max, window: win, prefix: "rl:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := incrExpireScript.Run(ctx, r.rdb, []string{r.prefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true, Limit: r.max, Remaining: r.max}, err
	}
	count, pttl := int(res[0]), res[1]

	reset := time.Duration(pttl) * time.Millisecond
	if pttl < 0 {
		reset = r.window
	}
	remaining := r.max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= r.max,
		Limit:     r.max,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

var _ Limiter = (*Redis)(nil)
