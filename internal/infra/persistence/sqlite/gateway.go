// Package sqlite persists gateway keys in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"momentum/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.Gateway = (*Gateway)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "momentum.db"

// Gateway stores each key as a row of state(bucket, payload).
type Gateway struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path and ensures the state table.
func New(ctx context.Context, path string) (*Gateway, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Gateway{db: db, path: path}, nil
}

// Get implements domain.Gateway.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool, error) {
	var payload []byte
	err := g.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return string(payload), true, nil
}

// Set implements domain.Gateway.
func (g *Gateway) Set(ctx context.Context, key, value string) error {
	if _, err := g.db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, key, []byte(value)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.Gateway.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (g *Gateway) Close() error { return g.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (g *Gateway) DB() *sql.DB { return g.db }

// Path returns the configured database path.
func (g *Gateway) Path() string { return g.path }
