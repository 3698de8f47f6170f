package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"intrinseco/pkg/core/logging"
)

// MaxConns caps the shared pool.
const MaxConns = 8

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB opens the shared connection pool. An empty url falls back to the
// DATABASE_URL environment variable. Only the first call has any effect.
func InitDB(ctx context.Context, url string) error {
	var err error
	once.Do(func() {
		if url == "" {
			url = os.Getenv("DATABASE_URL")
		}
		if url == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(url)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		if config.MaxConns > MaxConns {
			config.MaxConns = MaxConns
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			pool = nil
			err = fmt.Errorf("failed to reach database: %w", pingErr)
			return
		}
		logging.Named("store").Info("database connected",
			zap.String("host", config.ConnConfig.Host),
			zap.String("database", config.ConnConfig.Database),
			zap.Int32("max_conns", config.MaxConns))
	})
	return err
}

// GetPool returns the shared pool, or nil when InitDB was not called or failed.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the shared pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
