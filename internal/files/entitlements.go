package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/geogate/internal/infrastructure/database"
)

// EntitlementStore persists file_entitlements rows.
type EntitlementStore interface {
	// List returns the user's entitlements in insertion order.
	List(ctx context.Context, username string) ([]Entitlement, error)
	// Get returns the entitlement for (username, filename) or ErrNotEntitled.
	Get(ctx context.Context, username, filename string) (Entitlement, error)
	// Consume removes a one-time entitlement. It returns ErrNotEntitled when
	// no such row remained to remove.
	Consume(ctx context.Context, username, filename string) error
	// Grant adds or replaces entitlements for username in one transaction.
	Grant(ctx context.Context, username string, ents ...Entitlement) error
	// Count returns the total number of entitlements across users.
	Count(ctx context.Context) (int, error)
}

// SQLiteEntitlementStore implements EntitlementStore over SQLite.
type SQLiteEntitlementStore struct {
	db *sql.DB
}

// NewSQLiteEntitlementStore creates a store over an already migrated database.
func NewSQLiteEntitlementStore(db *sql.DB) *SQLiteEntitlementStore {
	return &SQLiteEntitlementStore{db: db}
}

// List implements EntitlementStore.
func (s *SQLiteEntitlementStore) List(ctx context.Context, username string) ([]Entitlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT filename, view_type FROM file_entitlements WHERE username = ? ORDER BY id",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing entitlements: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	ents := []Entitlement{}
	for rows.Next() {
		var e Entitlement
		var viewType string
		if err := rows.Scan(&e.Filename, &viewType); err != nil {
			return nil, fmt.Errorf("%w: scanning entitlement: %w", ErrStoreUnavailable, err)
		}
		e.ViewType = ParseViewType(viewType)
		ents = append(ents, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating entitlements: %w", ErrStoreUnavailable, err)
	}
	return ents, nil
}

// Get implements EntitlementStore.
func (s *SQLiteEntitlementStore) Get(ctx context.Context, username, filename string) (Entitlement, error) {
	var viewType string
	err := s.db.QueryRowContext(ctx,
		"SELECT view_type FROM file_entitlements WHERE username = ? AND filename = ?",
		username, filename,
	).Scan(&viewType)
	if errors.Is(err, sql.ErrNoRows) {
		return Entitlement{}, ErrNotEntitled
	}
	if err != nil {
		return Entitlement{}, fmt.Errorf("%w: reading entitlement: %w", ErrStoreUnavailable, err)
	}
	return Entitlement{Filename: filename, ViewType: ParseViewType(viewType)}, nil
}

// Consume implements EntitlementStore.
func (s *SQLiteEntitlementStore) Consume(ctx context.Context, username, filename string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM file_entitlements WHERE username = ? AND filename = ? AND view_type = ?",
		username, filename, string(ViewOneTime),
	)
	if err != nil {
		return fmt.Errorf("%w: consuming entitlement: %w", ErrStoreUnavailable, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking consumed rows: %w", ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrNotEntitled
	}
	return nil
}

// Grant implements EntitlementStore. Invalid filenames are rejected before
// anything is written.
func (s *SQLiteEntitlementStore) Grant(ctx context.Context, username string, ents ...Entitlement) error {
	for _, e := range ents {
		if !ValidFilename(e.Filename) {
			return fmt.Errorf("invalid filename %q", e.Filename)
		}
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, e := range ents {
			viewType := e.ViewType
			if viewType != ViewOneTime {
				viewType = ViewNormal
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO file_entitlements (username, filename, view_type) VALUES (?, ?, ?)
				 ON CONFLICT(username, filename) DO UPDATE SET view_type = excluded.view_type`,
				username, e.Filename, string(viewType),
			); err != nil {
				return fmt.Errorf("granting %q: %w", e.Filename, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Count implements EntitlementStore.
func (s *SQLiteEntitlementStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_entitlements").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting entitlements: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}
