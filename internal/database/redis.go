package database

import (
	"context"
	"fmt"

	"saarthi-alert/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建Redis客户端并验证连接
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
