package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrExpireScript counts a hit and starts the window on the first one.
var incrExpireScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateCounter counts requests per key in fixed windows.
type RateCounter struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRateCounter creates a counter storing keys under prefix.
func NewRateCounter(rdb goredis.UniversalClient, prefix string) *RateCounter {
	return &RateCounter{rdb: rdb, prefix: prefix}
}

// Hit records one request and returns the count so far in the current window
// and the time until the window resets.
func (r *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrExpireScript.Run(ctx, r.rdb, []string{r.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, unavailable("rate count", err)
	}

	if len(res) != 2 {
		return 0, 0, unavailable("rate count", errUnexpectedReply)
	}

	reset := time.Duration(res[1]) * time.Millisecond
	if reset < 0 {
		reset = window
	}

	return res[0], reset, nil
}
