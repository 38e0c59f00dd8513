package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/database"
	_ "github.com/nerrad567/geogate/migrations"
)

func sqliteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "sessions.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewSQLiteStore(db.DB)
}

func redisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

// TestStoreContract runs the same lifecycle against every backend.
func TestStoreContract(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return sqliteStore(t) },
		"redis": func(t *testing.T) Store {
			s, _ := redisStore(t)
			return s
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)
			issued := time.Date(2026, 3, 1, 9, 30, 0, 123000000, time.UTC)

			_, ok, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.False(t, ok, "fresh store should have no session")

			require.NoError(t, store.Put(ctx, "alice", Record{DeviceID: "first", IssuedAt: issued}))
			require.NoError(t, store.Put(ctx, "alice", Record{DeviceID: "second", IssuedAt: issued}))
			require.NoError(t, store.Put(ctx, "bob", Record{DeviceID: "bobs", IssuedAt: issued}))

			rec, ok, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "second", rec.DeviceID, "Put must replace the previous device")
			assert.True(t, rec.IssuedAt.Equal(issued), "IssuedAt = %v, want %v", rec.IssuedAt, issued)

			require.NoError(t, store.Delete(ctx, "alice"))
			require.NoError(t, store.Delete(ctx, "alice"), "Delete must be idempotent")

			_, ok, err = store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.False(t, ok)

			rec, ok, err = store.Get(ctx, "bob")
			require.NoError(t, err)
			assert.True(t, ok, "other users are untouched")
			assert.Equal(t, "bobs", rec.DeviceID)

			assert.NoError(t, store.Close())
		})
	}
}

func TestRedisStore_KeyLayout(t *testing.T) {
	store, mr := redisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", Record{DeviceID: "abc123", IssuedAt: time.Now()}))
	assert.True(t, mr.Exists("geogate:device:alice"))
	assert.Zero(t, mr.TTL("geogate:device:alice"), "session keys must not expire")
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := redisStore(t)
	require.NoError(t, mr.Set("geogate:device:alice", "{not json"))

	_, _, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := redisStore(t)
	mr.Close()

	ctx := context.Background()
	_, _, err := store.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, store.Put(ctx, "alice", Record{DeviceID: "x"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(ctx, "alice"), ErrStoreUnavailable)
}

func TestNewRedisStore_PingFails(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}

func TestSQLiteStore_StoreUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLiteStore(db)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT device_id, issued_at FROM device_sessions`).WithArgs("alice").WillReturnError(boom)
	_, _, err = store.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	mock.ExpectExec(`INSERT INTO device_sessions`).WillReturnError(boom)
	assert.ErrorIs(t, store.Put(ctx, "alice", Record{DeviceID: "x"}), ErrStoreUnavailable)

	mock.ExpectExec(`DELETE FROM device_sessions`).WithArgs("alice").WillReturnError(boom)
	assert.ErrorIs(t, store.Delete(ctx, "alice"), ErrStoreUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, config.SessionsConfig{Backend: config.SessionBackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(ctx, config.SessionsConfig{Backend: config.SessionBackendSQLite}, nil)
	assert.Error(t, err, "sqlite backend needs a db handle")

	_, err = NewStore(ctx, config.SessionsConfig{Backend: "etcd"}, nil)
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	s, err = NewStore(ctx, config.SessionsConfig{
		Backend: config.SessionBackendRedis,
		Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
	}, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Put(ctx, "u", Record{DeviceID: "d"}))
	assert.True(t, mr.Exists("test:u"))
}
