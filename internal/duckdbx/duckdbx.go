// Package duckdbx wraps DuckDB behind database/sql for the parquet merge
// path. One process-wide DB is shared; every query runs on a fresh
// connection with the session settings applied.
package duckdbx

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type option func(*Config)

type Config struct {
	MemoryLimitMB int64
}

// WithMemoryLimitMB sets a memory limit for DuckDB in megabytes.
func WithMemoryLimitMB(limit int64) option {
	return func(c *Config) {
		c.MemoryLimitMB = limit
	}
}

type DB struct {
	db     *sql.DB
	config Config
}

// Open opens a DuckDB database with the given data source name. An empty
// name opens an in-memory database, which is all the merge path needs.
func Open(dataSourceName string, opts ...option) (*DB, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, err
	}

	var config Config
	for _, opt := range opts {
		opt(&config)
	}
	return &DB{db: db, config: config}, nil
}

// Conn returns a new connection with session setup already performed.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.setupConn(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (d *DB) setupConn(ctx context.Context, conn *sql.Conn) error {
	// Object cache lets repeated parquet scans reuse internal structures.
	if _, err := conn.ExecContext(ctx, "PRAGMA enable_object_cache;"); err != nil {
		return fmt.Errorf("failed to enable object cache: %w", err)
	}
	if d.config.MemoryLimitMB > 0 {
		stmt := fmt.Sprintf("SET memory_limit='%dMB';", d.config.MemoryLimitMB)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set memory limit: %w", err)
		}
	}
	return nil
}

// Query executes a SQL query using a new DuckDB connection and returns the
// result set. The caller is responsible for calling rows.Close() after
// iteration.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get duckdb connection: %w", err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("query failed, and closing connection also failed: %v; %v", err, closeErr)
		}
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	return rows, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
