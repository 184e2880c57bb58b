// package repositories provides persistence layer implementations for token pairs.
package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
)

// Store drivers accepted in the [store] config table.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Open builds the [models.TokenStore] named by cfg.Driver.
//
// ttl bounds how long a redis entry outlives its last write; it matches the session cookie lifetime.
func Open(ctx context.Context, cfg shared.StoreConfig, ttl time.Duration) (models.TokenStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		return NewMemoryTokenStore(), nil
	case DriverSQLite:
		db, err := shared.OpenDatabase(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		if err := shared.RunMigrationsContext(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLiteTokenStore(db), nil
	case DriverRedis:
		store, err := OpenRedis(ctx, cfg.Redis, cfg.KeyPrefix, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

func notFound(sid string) error {
	return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sid)
}
