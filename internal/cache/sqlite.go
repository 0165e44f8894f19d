package cache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `create table if not exists kv (
	name text primary key,
	value blob not null
);`

// SQLiteStorage keeps the snapshot as one row of a key/value table.
type SQLiteStorage struct {
	db    *sql.DB
	quota int64
}

// OpenSQLiteStorage opens (or creates) the database at path. Use
// ":memory:" for a throwaway database.
func OpenSQLiteStorage(path string, quota int64) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteStorage{db: db, quota: quota}, nil
}

func (s *SQLiteStorage) Load() ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`select value from kv where name = ?`, StorageKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sqlite cache: %w", err)
	}
	return data, nil
}

func (s *SQLiteStorage) Save(data []byte) error {
	if s.quota > 0 && int64(len(data)) > s.quota {
		return fmt.Errorf("sqlite storage: %d bytes: %w", len(data), ErrQuotaExceeded)
	}
	_, err := s.db.Exec(
		`insert into kv (name, value) values (?, ?)
		on conflict(name) do update set value = excluded.value`,
		StorageKey, data,
	)
	if err != nil {
		return fmt.Errorf("failed to write sqlite cache: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Remove() error {
	if _, err := s.db.Exec(`delete from kv where name = ?`, StorageKey); err != nil {
		return fmt.Errorf("failed to remove sqlite cache: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
