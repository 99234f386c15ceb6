package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/pkg/storage"
)

// Open connects the backend named by cfg.StorageBackend. For redis the
// underlying client is returned too so callers can reuse it for pub/sub;
// it is nil for the other backends.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, *redis.Client, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.StoreID, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := rs.WaitForConnection(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		return rs, rs.Client(), nil
	case config.BackendSQLite:
		ss, err := NewSQLiteStorage(ctx, cfg.SQLitePath, cfg.StoreID, logger)
		if err != nil {
			return nil, nil, err
		}
		return ss, nil, nil
	case config.BackendMemory:
		logger.Warn("Using in-memory storage; worlds are lost on restart")
		return storage.NewMockStorage(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
