package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	DBDriver        string
	DatabaseURL     string
	InitSchema      bool
	AMQPURL         string
	AMQPQueue       string
	ShutdownTimeout time.Duration
}

const (
	defaultHTTPAddr        = ":3000"
	defaultDBDriver        = "sqlite3"
	defaultDatabaseURL     = "covid19India.db"
	defaultAMQPQueue       = "district.events"
	defaultShutdownTimeout = 5 * time.Second
)

// Load reads configuration from environment variables. Values from a .env
// file in the working directory are applied first without overriding
// variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        getenv("HTTP_ADDR", defaultHTTPAddr),
		DBDriver:        getenv("DB_DRIVER", defaultDBDriver),
		DatabaseURL:     getenv("DATABASE_URL", defaultDatabaseURL),
		AMQPURL:         os.Getenv("AMQP_URL"),
		AMQPQueue:       getenv("AMQP_QUEUE", defaultAMQPQueue),
		ShutdownTimeout: defaultShutdownTimeout,
	}
	if raw := os.Getenv("DB_INIT_SCHEMA"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("DB_INIT_SCHEMA: %w", err)
		}
		cfg.InitSchema = v
	}
	if raw := os.Getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	switch cfg.DBDriver {
	case "sqlite3", "pgx":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be sqlite3 or pgx, got %q", cfg.DBDriver)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
