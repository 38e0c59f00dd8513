package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps sessions in the device_sessions table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, username string, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_sessions (username, device_id, issued_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET device_id = excluded.device_id, issued_at = excluded.issued_at`,
		username, rec.DeviceID, rec.IssuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: storing session: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, username string) (Record, bool, error) {
	var rec Record
	var issuedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT device_id, issued_at FROM device_sessions WHERE username = ?", username,
	).Scan(&rec.DeviceID, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: reading session: %w", ErrStoreUnavailable, err)
	}

	rec.IssuedAt, err = time.Parse(time.RFC3339Nano, issuedAt)
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: parsing issued_at %q: %w", ErrStoreUnavailable, issuedAt, err)
	}
	return rec, true, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM device_sessions WHERE username = ?", username); err != nil {
		return fmt.Errorf("%w: deleting session: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close is a no-op; the database handle belongs to the caller.
func (s *SQLiteStore) Close() error { return nil }
