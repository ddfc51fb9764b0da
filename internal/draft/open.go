package draft

import (
	"context"
	"fmt"

	"github.com/zjrosen/barangay/internal/config"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.DraftConfig) (Store, error) {
	switch cfg.Backend {
	case config.DraftBackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.DraftBackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	case config.DraftBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown draft backend %q", cfg.Backend)
	}
}
