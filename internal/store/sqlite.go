package store

import (
	"database/sql"
	"fmt"
)

// SQLiteStore is a Gateway over the kv table. Writes that would push the total
// stored bytes above quota are refused with ErrCapacityExceeded.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteStore creates a SQLiteStore. A quota of zero means unlimited.
func NewSQLiteStore(db *sql.DB, quota int64) *SQLiteStore {
	return &SQLiteStore{db: db, quota: quota}
}

func (s *SQLiteStore) Read(key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read kv: %w", err)
	}
	return data, true, nil
}

func (s *SQLiteStore) Write(key string, data []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var used int64
		err := tx.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?`, key).Scan(&used)
		if err != nil {
			return fmt.Errorf("measure kv: %w", err)
		}
		if used+int64(len(data)) > s.quota {
			return fmt.Errorf("%w: %d of %d bytes in use, %d requested", ErrCapacityExceeded, used, s.quota, len(data))
		}
	}

	_, err = tx.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("write kv: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Usage returns the bytes stored across all keys and the configured quota.
func (s *SQLiteStore) Usage() (int64, int64, error) {
	var used int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv`).Scan(&used)
	if err != nil {
		return 0, 0, fmt.Errorf("measure kv: %w", err)
	}
	return used, s.quota, nil
}
