package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/geogate/internal/infrastructure/logging"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "files.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	path := writeSeed(t, `{
		"alice": [
			{"filename": "b.pdf", "viewtype": "normal"},
			{"filename": "a.pdf", "viewtype": "onetime"},
			{"filename": "../bad", "viewtype": "normal"}
		],
		"bob": [{"filename": "c.txt", "viewtype": "normal"}]
	}`)

	n, err := SeedFromFile(ctx, store, path, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ents, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []Entitlement{
		{Filename: "b.pdf", ViewType: ViewNormal},
		{Filename: "a.pdf", ViewType: ViewOneTime},
	}, ents)

	again, err := SeedFromFile(ctx, store, path, logging.Discard())
	require.NoError(t, err)
	assert.Zero(t, again, "seed runs only on an empty table")
}

func TestSeedFromFile_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := SeedFromFile(ctx, testStore(t), filepath.Join(t.TempDir(), "absent.json"), logging.Discard())
	assert.Error(t, err)

	_, err = SeedFromFile(ctx, testStore(t), writeSeed(t, `{"alice": "not a list"}`), logging.Discard())
	assert.Error(t, err)
}
