package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/database"
	_ "github.com/nerrad567/geogate/migrations"
)

func testStore(t *testing.T) *SQLiteEntitlementStore {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "files.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewSQLiteEntitlementStore(db.DB)
}

// testBlobDir creates a directory holding the given name->content files.
func testBlobDir(t *testing.T, blobs map[string]string) *DirStore {
	t.Helper()
	dir := t.TempDir()
	for name, content := range blobs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	store, err := NewDirStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
