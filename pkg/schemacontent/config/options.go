package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithCache sets the blueprint cache capacity and entry TTL
func WithCache(size int, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if size < 1 {
			return fmt.Errorf("cache size must be at least 1, got: %d", size)
		}
		c.CacheSize = size
		c.CacheTTL = ttl
		return nil
	}
}

// WithLoggingHooks attaches the built-in lifecycle logging hooks
func WithLoggingHooks() Option {
	return func(c *ServerConfig) error {
		c.EnableLoggingHooks = true
		return nil
	}
}
