package redis

import (
	"context"

	"github.com/mossy-p/signalhub/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Connect opens a client and checks it with PING
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", cfg.Addr)
	}
	return client, nil
}
