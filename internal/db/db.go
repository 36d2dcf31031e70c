package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Open opens the embedded SQLite database at path. WAL journaling with
// NORMAL synchronous keeps writers from blocking readers; the busy timeout
// lets concurrent writers queue instead of failing with SQLITE_BUSY.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	handle, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to open %s: %w", path, err)
	}
	return handle, nil
}

// New opens the database and ties its lifetime to the Fx lifecycle.
func New(lc fx.Lifecycle, logger *zap.Logger, path string) (*sql.DB, error) {
	logger.Info("opening datalog database", zap.String("path", path))

	handle, err := Open(path)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := handle.PingContext(ctx); err != nil {
				logger.Error("database ping failed", zap.Error(err), zap.String("path", path))
				return fmt.Errorf("[DATABASE] cannot open datalog at %s: %w", path, err)
			}
			logger.Info("database ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := handle.Close(); err != nil {
				logger.Error("failed to close database", zap.Error(err))
				return err
			}
			logger.Info("database closed")
			return nil
		},
	})

	return handle, nil
}
