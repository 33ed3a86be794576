package probe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisTimeout = 10 * time.Second

// RedisPing opens a dedicated client, sends PING and closes it on every path.
func RedisPing(ctx context.Context, url string, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = DefaultRedisTimeout
	}
	start := time.Now()

	opt, err := redis.ParseURL(url)
	if err != nil {
		return Outcome{}, refused(start, 500, err.Error(), err)
	}
	opt.DialTimeout = timeout
	opt.ReadTimeout = timeout
	opt.WriteTimeout = timeout
	opt.MaxRetries = -1
	opt.PoolSize = 1

	rdb := redis.NewClient(opt)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return Outcome{}, refused(start, 500, err.Error(), err)
	}

	return established(start, 200, "Redis server running"), nil
}
