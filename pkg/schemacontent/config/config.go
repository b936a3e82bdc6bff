// Package config builds a ready-to-run schemacontent.Service from
// declarative configuration, applying functional options on top of
// library defaults.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keelhq/schema-content/pkg/schemacontent"
	"github.com/keelhq/schema-content/pkg/schemacontent/repo/memory"
	repopg "github.com/keelhq/schema-content/pkg/schemacontent/repo/postgres"
)

// ServerConfig holds everything needed to build a service instance.
type ServerConfig struct {
	Port        string
	Environment string

	// DatabaseType is "memory" or "postgres".
	DatabaseType string
	DatabaseURL  string

	CacheSize int
	CacheTTL  time.Duration

	// EnableLoggingHooks attaches the built-in lifecycle logging hooks.
	EnableLoggingHooks bool
}

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top
// of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		CacheSize:    256,
		CacheTTL:     5 * time.Minute,
	}
}

// Validate checks the configuration for consistency.
func (c *ServerConfig) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", c.DatabaseType)
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for postgres")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1, got: %d", c.CacheSize)
	}
	return nil
}

// BuildRepository constructs the configured repository backend.
func (c *ServerConfig) BuildRepository(ctx context.Context) (schemacontent.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", c.DatabaseType)
	}
}

// BuildService constructs a service with the configured repository,
// cache, and hooks.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (schemacontent.Service, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, err
	}

	bus := schemacontent.NewHookBus()
	if c.EnableLoggingHooks {
		if err := schemacontent.RegisterLoggingHooks(bus, logger); err != nil {
			return nil, err
		}
	}

	return schemacontent.New(
		schemacontent.WithRepository(repo),
		schemacontent.WithHookBus(bus),
		schemacontent.WithLogger(logger),
		schemacontent.WithCacheSize(c.CacheSize),
		schemacontent.WithCacheTTL(c.CacheTTL),
	)
}
