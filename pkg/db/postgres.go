package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"car-rental/pkg/logger"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  logger.Logger
}

const (
	connectAttempts = 30
	connectBackoff  = 2 * time.Second
)

// Connect opens a pool, retrying until postgres answers a ping or ctx ends.
func Connect(ctx context.Context, dsn string, log logger.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 8

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info("connected to postgres", logger.String("db", cfg.ConnConfig.Database))
				return &DB{Pool: pool, log: log}, nil
			}
			pool.Close()
		}
		log.Warn("waiting for postgres", logger.Int("attempt", attempt), logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("postgres: failed after %d attempts: %w", connectAttempts, err)
}

// RunMigrations applies the .sql files of migrationFS that schema_migrations
// has not seen yet. Each file runs in its own transaction together with its
// schema_migrations row.
func (d *DB) RunMigrations(ctx context.Context, migrationFS fs.FS) error {
	_, err := d.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT        PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := PendingOrder(migrationFS)
	if err != nil {
		return err
	}

	applied := 0
	for _, file := range files {
		var done bool
		if err := d.Pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", file,
		).Scan(&done); err != nil {
			return fmt.Errorf("check %s: %w", file, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if err := d.apply(ctx, file, string(content)); err != nil {
			return err
		}
		applied++
		d.log.Info("applied migration", logger.String("file", file))
	}
	d.log.Debug("migrations up to date", logger.Int("applied", applied), logger.Int("total", len(files)))
	return nil
}

func (d *DB) apply(ctx context.Context, file, sql string) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", file, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", file); err != nil {
		return fmt.Errorf("record %s: %w", file, err)
	}
	return tx.Commit(ctx)
}

// PendingOrder lists the .sql files of migrationFS in apply order.
func PendingOrder(migrationFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var sqlFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			sqlFiles = append(sqlFiles, e.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

// Close shuts down the pool.
func (d *DB) Close() { d.Pool.Close() }
