package persistence

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/config"
)

// Redis holds the client behind the directory cache. A nil *Redis means
// the cache is switched off and every lookup goes to the backend.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the cache client. An unreachable server is logged, not
// fatal: cache operations fail open until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled {
		logger.Info("redis disabled; directory cache off")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "ticket-relay",
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("directory cache unreachable; continuing without it", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("directory cache connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Redis{Client: client}
}

// Enabled reports whether a cache client exists.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Handle returns the client, or nil when the cache is off.
func (r *Redis) Handle() *redis.Client {
	if !r.Enabled() {
		return nil
	}
	return r.Client
}

// Ping checks connectivity. A disabled cache is always healthy.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	return r.Client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}
