package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

func validateDriver(driver string) error {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens the database with the given driver, sizes the connection pool
// for it and verifies the connection.
func Open(
	ctx context.Context,
	openDB func(driverName, dsn string) (*sql.DB, error),
	driver, dsn string,
) (*sql.DB, error) {
	if err := validateDriver(driver); err != nil {
		return nil, err
	}
	db, err := openDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	ConfigurePool(db, driver)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// ConfigurePool applies the pool limits for driver. A SQLite file accepts a
// single writer, so its pool is capped at one connection.
func ConfigurePool(db *sql.DB, driver string) {
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
}
