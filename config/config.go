package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	SnapshotBackend string
	StorageKey      string
	CatalogURL      string
	CatalogTimeout  time.Duration
	LogLevel        logrus.Level
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	backend := os.Getenv("SNAPSHOT_BACKEND")
	switch backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		backend = BackendMemory
	}

	key := os.Getenv("CART_STORAGE_KEY")
	if key == "" {
		key = "@RocketShoes:cart"
	}

	catalogURL := os.Getenv("CATALOG_URL")
	if catalogURL == "" {
		catalogURL = selfURL(port)
	}

	timeout := 10 * time.Second
	if v := os.Getenv("CATALOG_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := logrus.ParseLevel(v); err == nil {
			level = l
		}
	}

	return &Config{
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		SnapshotBackend: backend,
		StorageKey:      key,
		CatalogURL:      catalogURL,
		CatalogTimeout:  timeout,
		LogLevel:        level,
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.SnapshotBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("SNAPSHOT_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("SNAPSHOT_BACKEND=redis requires REDIS_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.SnapshotBackend)
	}
	// catalog routes are only mounted with a database
	if c.DatabaseURL == "" && c.CatalogURL == selfURL(c.Port) {
		return errors.New("CATALOG_URL points at this server, which serves the catalog only when DATABASE_URL is set")
	}
	return nil
}

func selfURL(port string) string {
	return "http://localhost:" + port
}
