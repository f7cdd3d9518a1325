// Package remote opens the configured storage.RemoteStore.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kotlinhustle/power-split/internal/storage"
	"github.com/kotlinhustle/power-split/internal/storage/memory"
	"github.com/kotlinhustle/power-split/internal/storage/postgres"
	"github.com/kotlinhustle/power-split/internal/storage/postgrest"
	"github.com/kotlinhustle/power-split/internal/storage/redis"
)

// Supported drivers.
const (
	DriverNone      = "none"
	DriverMemory    = "memory"
	DriverPostgREST = "postgrest"
	DriverPostgres  = "postgres"
	DriverRedis     = "redis"
)

// Config controls how the remote backend is opened.
type Config struct {
	Driver string

	// postgrest
	URL    string
	APIKey string

	// postgrest, postgres
	Table string

	// postgres
	DSN string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// Open constructs the RemoteStore for cfg.Driver. An empty or "none" driver
// returns a nil store and no error: the caller runs local-only.
func Open(ctx context.Context, cfg Config) (storage.RemoteStore, error) {
	drv := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch drv {
	case "", DriverNone:
		slog.Info("remote storage disabled")
		return nil, nil

	case DriverMemory:
		slog.Warn("remote storage: using in-memory backend, nothing survives a restart")
		return memory.NewRemoteStore(), nil

	case DriverPostgREST:
		slog.Info("remote storage: using postgrest", "url", cfg.URL, "table", cfg.Table)
		st, err := postgrest.New(postgrest.Config{URL: cfg.URL, APIKey: cfg.APIKey, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return st, nil

	case DriverPostgres:
		slog.Info("remote storage: using postgres", "table", cfg.Table)
		st, err := postgres.Open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return st, nil

	case DriverRedis:
		slog.Info("remote storage: using redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		st, err := redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported remote driver %q", cfg.Driver)
	}
}
