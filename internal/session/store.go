package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

// ErrStoreUnavailable wraps every backend failure.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Record is the device currently trusted for one user.
type Record struct {
	DeviceID string    `json:"device_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Store persists at most one Record per username. Implementations must make
// each single call atomic; the Manager serializes read-modify-write
// sequences per username on top of that.
type Store interface {
	// Put replaces any existing record for username.
	Put(ctx context.Context, username string, rec Record) error
	// Get returns the record and true, or false when none exists.
	Get(ctx context.Context, username string) (Record, bool, error)
	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, username string) error
	Close() error
}

// NewStore builds the backend selected by cfg.Backend. db is required for
// the sqlite backend only.
func NewStore(ctx context.Context, cfg config.SessionsConfig, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case "", config.SessionBackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite session backend requires a database handle")
		}
		return NewSQLiteStore(db), nil
	case config.SessionBackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.SessionBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
