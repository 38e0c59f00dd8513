package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/database"
	_ "github.com/nerrad567/geogate/migrations"
)

// testDB returns a migrated temp-file SQLite database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

// seedTestUser inserts a user whose stored secret is produced by scheme.
func seedTestUser(t *testing.T, repo UserRepository, scheme SecretScheme, username, password string) {
	t.Helper()

	secret, err := scheme.Hash(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	if err := repo.Create(context.Background(), &User{Username: username, PasswordHash: secret}); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
}
