package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit is a fixed-window quota.
type Limit struct {
	Limit  int64
	Window time.Duration
}

// Limiter is a fixed-window rate limiter shared across nodes through Redis.
// Buckets without an explicit limit use the "default" entry; buckets with
// neither are unlimited.
type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

func NewLimiter(rdb *redis.Client, limits map[string]Limit) *Limiter {
	return &Limiter{rdb: rdb, limits: limits}
}

var incrWithTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then redis.call("PEXPIRE", KEYS[1], ARGV[1]) end
return n
`)

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
	}
	if !ok || lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := incrWithTTL.Run(ctx, l.rdb, []string{"rl:" + key}, lim.Window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= lim.Limit, nil
}
