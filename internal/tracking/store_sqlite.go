package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store and KeyLister over the occupancy_records
// table.
//
// Values are stored as opaque text (the tracker writes JSON); the store
// itself knows nothing about the record layout. The schema lives in the
// migrations package.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed record store.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteStore: Store instance ready for use
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the stored value for a key.
//
// Returns:
//   - []byte: The stored bytes
//   - error: ErrRecordNotFound if the key is absent, otherwise the
//     underlying query error
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidSourceID
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM occupancy_records WHERE key = ?",
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}

	return []byte(value), nil
}

// Set durably stores a value under a key, replacing any previous value.
//
// The upsert is a single statement, so a concurrent Get sees either the
// old or the new value, never a partial write.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidSourceID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO occupancy_records (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     value = excluded.value,
		     updated_at = excluded.updated_at`,
		key,
		string(value),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing record: %w", err)
	}

	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidSourceID
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM occupancy_records WHERE key = ?",
		key,
	); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	return nil
}

// Keys returns all stored keys in lexical order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM occupancy_records ORDER BY key",
	)
	if err != nil {
		return nil, fmt.Errorf("querying record keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning record key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record keys: %w", err)
	}

	return keys, nil
}
