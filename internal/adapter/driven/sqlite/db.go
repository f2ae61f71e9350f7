package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the connection to the local last-known-good account cache.
// The cache has exactly one writer (the scheduler committing a fresh
// extraction) and rare startup reads, so a single WAL-mode connection is
// enough and sidesteps "database is locked" errors.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates the cache database connection with WAL mode, busy timeout,
// synchronous NORMAL, and foreign keys enabled.
func Open(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Conn exposes the underlying connection for migrations and repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the cache database connection.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("close cache db: %w", err)
	}
	return nil
}
