package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);
`

// SQLiteSubstrate persists keys in a single sqlite table. A byte quota can
// be configured so the store's quota-exceeded handling is driven by the
// substrate itself rather than simulated above it.
type SQLiteSubstrate struct {
	conn     *sql.DB
	maxBytes int64
}

// OpenSQLite opens (or creates) the database at dsn and ensures the kv
// schema exists. maxBytes of zero disables the quota.
func OpenSQLite(dsn string, maxBytes int64) (*SQLiteSubstrate, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteSubstrate{conn: db, maxBytes: maxBytes}, nil
}

func (s *SQLiteSubstrate) Get(key string) ([]byte, error) {
	var value []byte
	row := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteSubstrate) Set(key string, value []byte) error {
	if s.maxBytes > 0 {
		used, err := s.UsedBytes()
		if err != nil {
			return err
		}
		var existing int64
		row := s.conn.QueryRow(`SELECT LENGTH(value) FROM kv WHERE key = ?`, key)
		if err := row.Scan(&existing); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to size key %s: %w", key, err)
		}
		if used-existing+int64(len(value)) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	_, err := s.conn.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSubstrate) Delete(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSubstrate) Keys() ([]string, error) {
	rows, err := s.conn.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteSubstrate) UsedBytes() (int64, error) {
	var n int64
	row := s.conn.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to sum value sizes: %w", err)
	}
	return n, nil
}

func (s *SQLiteSubstrate) Close() error {
	return s.conn.Close()
}
