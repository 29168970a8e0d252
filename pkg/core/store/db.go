package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned when no database URL is available.
var ErrNotConfigured = errors.New("DATABASE_URL environment variable not set")

var (
	pool *pgxpool.Pool
	once sync.Once
)

// DatabaseURL returns DATABASE_URL.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// InitDB initializes the connection pool. An empty dbURL falls back to
// DATABASE_URL.
func InitDB(ctx context.Context, dbURL string) error {
	if dbURL == "" {
		dbURL = DatabaseURL()
	}
	if dbURL == "" {
		return ErrNotConfigured
	}

	var err error
	once.Do(func() {
		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			err = fmt.Errorf("failed to create pool: %w", err)
			return
		}
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			pool = nil
			err = fmt.Errorf("failed to reach database: %w", pingErr)
		}
	})
	return err
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
