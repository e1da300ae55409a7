// Package database provides the sqlite connection and schema migration.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection with production-grade configuration
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection. Path may be a filesystem path or a
// file: URI (used for in-memory databases in tests).
func New(path string) (*DB, error) {
	if !strings.HasPrefix(path, "file:") {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath
	}

	conn, err := sql.Open("sqlite", connectionString(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer keeps sqlite happy under WAL; reads share the pool.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// connectionString builds the DSN with the PRAGMAs that must be set at
// connection time.
func connectionString(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(ON)")
	return "file:" + path + "?" + params.Encode()
}

// Conn exposes the underlying sql.DB for repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the connection, checkpointing the WAL first so a clean copy
// of the database file is left on disk.
func (db *DB) Close() error {
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

// migrate creates the schema if it does not exist yet.
func (db *DB) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS portfolios (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id             TEXT PRIMARY KEY,
			portfolio_id   TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			asset_type     TEXT NOT NULL,
			symbol         TEXT NOT NULL DEFAULT '',
			name           TEXT NOT NULL,
			quantity       REAL NOT NULL,
			purchase_price REAL NOT NULL,
			current_price  REAL NOT NULL DEFAULT 0,
			purchase_date  TIMESTAMP NOT NULL,
			created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_portfolio ON assets(portfolio_id)`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
			id           TEXT PRIMARY KEY,
			asset_id     TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
			direction    TEXT NOT NULL CHECK (direction IN ('above', 'below')),
			threshold    REAL NOT NULL,
			triggered    INTEGER NOT NULL DEFAULT 0,
			triggered_at TIMESTAMP,
			created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_asset ON price_alerts(asset_id)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
