package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/playtype/account-recovery-service/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is the shared TTL-capable cache every request coordinates through
type Redis struct {
	client redis.UniversalClient
	log    *zap.Logger
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	log.Info("Connected to redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return &Redis{client: client, log: log}, nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client redis.UniversalClient, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log}
}

// Client returns the underlying client
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Ping checks if the cache is reachable
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close closes the connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
