package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
//	PORT          - Server port (default: "8080")
//	ENVIRONMENT   - Runtime environment (default: "development")
//	DATABASE_URL  - Connection string. "postgres://" or "postgresql://"
//	                selects the postgres backend; empty or "memory" uses
//	                the in-memory repository.
//	CACHE_SIZE    - Blueprint cache capacity (default: 256)
//	CACHE_TTL     - Blueprint cache entry TTL, e.g. "5m" (default: 5m)
//	LOGGING_HOOKS - "true" attaches the built-in lifecycle logging hooks
//
// Use programmatic options for anything beyond these.
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "CACHE_SIZE"); ok && v != "" {
			size, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid CACHE_SIZE %q: %w", v, err)
			}
			c.CacheSize = size
		}
		if v, ok := lookupEnv(prefix, "CACHE_TTL"); ok && v != "" {
			ttl, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
			}
			c.CacheTTL = ttl
		}
		if v, ok := lookupEnv(prefix, "LOGGING_HOOKS"); ok {
			c.EnableLoggingHooks = v == "true" || v == "1"
		}

		return nil
	}
}

func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")

	if !hasURL {
		return nil
	}
	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL scheme: %s", dbURL)
}

func lookupEnv(prefix, key string) (string, bool) {
	if prefix != "" {
		return os.LookupEnv(prefix + "_" + key)
	}
	return os.LookupEnv(key)
}
