// Package settingscache provides a WAL-mode SQLite-backed cache of the last
// known-good gRPC connect URL per service name, for a ServiceSettings source
// that can temporarily fail to resolve (a config backend outage, a
// service-discovery hiccup) without losing the ability to reconnect to
// wherever the service was last known to live.
//
// # WAL mode
//
// The database is opened with PRAGMA journal_mode = WAL. The Cache holds a
// single database connection, so concurrent Get and Put calls are
// serialised through it rather than running in parallel.
package settingscache

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Cache is a WAL-mode SQLite-backed key/value store of one GRPCURL per
// service name. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies its
// schema. If path is ":memory:", an in-memory database is used; this is
// suitable for tests but loses all data when the Cache is closed.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settingscache: open %q: %w", path, err)
	}

	// A single writer at a time is all SQLite supports; serialising through
	// one connection avoids "database is locked" errors under concurrent
	// Put calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("settingscache: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("settingscache: set synchronous = NORMAL: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("settingscache: apply schema: %w", err)
	}

	return &Cache{db: db}, nil
}

const ddl = `
CREATE TABLE IF NOT EXISTS service_endpoint (
    service_name  TEXT PRIMARY KEY,
    url           TEXT NOT NULL,
    host_metadata TEXT NOT NULL DEFAULT '',
    updated_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`

// Put records the last known-good url/hostMetadata pair for serviceName,
// overwriting any previous entry.
func (c *Cache) Put(ctx context.Context, serviceName, url, hostMetadata string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO service_endpoint (service_name, url, host_metadata, updated_at)
		 VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(service_name) DO UPDATE SET
		   url = excluded.url,
		   host_metadata = excluded.host_metadata,
		   updated_at = excluded.updated_at`,
		serviceName, url, hostMetadata,
	)
	if err != nil {
		return fmt.Errorf("settingscache: put %q: %w", serviceName, err)
	}
	return nil
}

// Get returns the last recorded url/hostMetadata pair for serviceName. ok is
// false if no entry has ever been recorded for it.
func (c *Cache) Get(ctx context.Context, serviceName string) (url, hostMetadata string, ok bool, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT url, host_metadata FROM service_endpoint WHERE service_name = ?`, serviceName)
	err = row.Scan(&url, &hostMetadata)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("settingscache: get %q: %w", serviceName, err)
	}
	return url, hostMetadata, true, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
