// Package postgres persists gateway keys as JSONB rows in a Postgres table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"momentum/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.Gateway = (*Gateway)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/momentum?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Gateway stores each key as a row of state(bucket, payload JSONB).
type Gateway struct {
	db *sql.DB
}

// New opens the database at dsn (falls back to defaultDSN), verifies the
// connection and ensures the state table exists.
func New(ctx context.Context, dsn string) (*Gateway, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Gateway{db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Get implements domain.Gateway.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT bucket, payload FROM state WHERE bucket = $1`, key)
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()
	var (
		payload string
		found   bool
	)
	for rows.Next() {
		var bucket string
		var raw []byte
		if err := rows.Scan(&bucket, &raw); err != nil {
			return "", false, fmt.Errorf("scan %s: %w", key, err)
		}
		if bucket == key {
			payload, found = string(raw), true
		}
	}
	if err := rows.Err(); err != nil {
		return "", false, fmt.Errorf("iterate %s: %w", key, err)
	}
	return payload, found, nil
}

// Set implements domain.Gateway.
func (g *Gateway) Set(ctx context.Context, key, value string) error {
	if _, err := g.db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.Gateway.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (g *Gateway) Close() error { return g.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (g *Gateway) DB() *sql.DB { return g.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
