// Package rdx owns the Redis connection used for order events.
package rdx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nongxian/config"
)

// Connect opens a client and pings it. An empty address means Redis is not
// configured and yields a nil client.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	conn := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return conn, nil
}
