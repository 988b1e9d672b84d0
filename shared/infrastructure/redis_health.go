package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisHealthChecker pings the Redis instance behind the asynq queue
type RedisHealthChecker struct {
	client *redis.Client
}

func NewRedisHealthChecker(addr, password string, db int) *RedisHealthChecker {
	return &RedisHealthChecker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisHealthChecker) Name() string {
	return "redis"
}

func (c *RedisHealthChecker) Check(ctx context.Context) error {
	return errors.Wrap(c.client.Ping(ctx).Err(), "redis ping failed")
}

func (c *RedisHealthChecker) Close() error {
	return c.client.Close()
}
