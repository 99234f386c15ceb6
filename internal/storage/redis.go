package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/saga-engine/pkg/storage"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// worldsKeyPrefix is followed by the store id
const worldsKeyPrefix = "saga:worlds:"

// RedisStorage keeps all worlds as a single JSON document under one key, so
// every save is one atomic SET.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	storeID string
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port address.
func NewRedisStorage(redisURL, storeID string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if storeID == "" {
		storeID = "default"
	}
	return &RedisStorage{
		client:  redis.NewClient(opt),
		logger:  logger,
		storeID: storeID,
	}, nil
}

func parseRedisURL(redisURL string) (*redis.Options, error) {
	if !strings.Contains(redisURL, "://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return opt, nil
}

// Key returns the redis key holding this store's worlds
func (r *RedisStorage) Key() string {
	return worldsKeyPrefix + r.storeID
}

// Client exposes the underlying client so other components (pub/sub) can share it
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// World operations

func (r *RedisStorage) LoadAllWorlds(ctx context.Context) ([]world.World, error) {
	data, err := r.client.Get(ctx, r.Key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("No worlds stored yet", "key", r.Key())
			return []world.World{}, nil
		}
		r.logger.Error("Failed to load worlds", "key", r.Key(), "error", err)
		return nil, fmt.Errorf("failed to load worlds: %w", err)
	}

	worlds := []world.World{}
	if err := json.Unmarshal(data, &worlds); err != nil {
		r.logger.Error("Failed to unmarshal worlds", "key", r.Key(), "error", err)
		return nil, fmt.Errorf("failed to unmarshal worlds: %w", err)
	}
	return worlds, nil
}

func (r *RedisStorage) SaveAllWorlds(ctx context.Context, worlds []world.World) error {
	if worlds == nil {
		worlds = []world.World{}
	}
	data, err := json.Marshal(worlds)
	if err != nil {
		r.logger.Error("Failed to marshal worlds", "error", err)
		return fmt.Errorf("failed to marshal worlds: %w", err)
	}

	if err := r.client.Set(ctx, r.Key(), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save worlds", "key", r.Key(), "error", err)
		return fmt.Errorf("failed to save worlds: %w", err)
	}
	r.logger.Debug("Worlds saved", "key", r.Key(), "count", len(worlds), "bytes", len(data))
	return nil
}
