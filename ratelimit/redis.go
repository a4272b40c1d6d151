package ratelimit

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter and arms the expiry on the first hit of a
// window, atomically on the server.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type redisClient interface {
	redis.Scripter
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a fixed-window limiter whose counters live in Redis, so budgets
// survive a restart of this process.
type Redis struct {
	client redisClient
	prefix string
	cfg    Config
}

func NewRedis(client redisClient, prefix string, cfg Config) *Redis {
	return &Redis{client: client, prefix: prefix, cfg: cfg}
}

func (r *Redis) key(key string) string {
	return "ratelimit:" + r.prefix + ":" + key
}

// Allow fails open: if Redis is unreachable the point is granted and the
// error is logged.
func (r *Redis) Allow(ctx context.Context, key string) bool {
	n, err := incrWindow.Run(ctx, r.client, []string{r.key(key)}, r.cfg.Window.Milliseconds()).Int64()
	if err != nil {
		slog.Warn("rate limiter unavailable", "limiter", r.prefix, "key", key, "error", err)
		return true
	}
	return n <= int64(r.cfg.Points)
}

func (r *Redis) Release(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		slog.Warn("rate limiter release failed", "limiter", r.prefix, "key", key, "error", err)
	}
}
