package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis connects and pings. The caller owns the returned client.
func OpenRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	slog.Info("redis connected", "addr", addr, "db", db)
	return r, nil
}

// Ping adapts a client to a health probe.
func Ping(r redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error { return r.Ping(ctx).Err() }
}
