package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared cache backend. Connection problems surface as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the given Redis address. An unreachable server is
// reported but not fatal: the returned cache simply misses until the
// backend comes back.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, cache will miss until it recovers",
			slog.String("addr", addr),
			slog.Any("error", err),
		)
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key Key) ([]byte, bool) {
	value, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("cache get failed, treating as miss",
				slog.String("key", key.String()),
				slog.Any("error", err),
			)
		}
		return nil, false
	}
	return value, true
}

func (r *Redis) Put(ctx context.Context, key Key, value []byte) {
	if err := r.client.Set(ctx, key.String(), value, r.ttl).Err(); err != nil {
		slog.Debug("cache put failed",
			slog.String("key", key.String()),
			slog.Any("error", err),
		)
	}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
