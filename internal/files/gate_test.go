package files

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGate(t *testing.T) (*Gate, *SQLiteEntitlementStore) {
	t.Helper()
	store := testStore(t)
	blobs := testBlobDir(t, map[string]string{
		"normal.txt": "normal content",
		"once.txt":   "secret content",
		"other.txt":  "bob only",
	})
	ctx := context.Background()
	require.NoError(t, store.Grant(ctx, "alice",
		Entitlement{Filename: "normal.txt", ViewType: ViewNormal},
		Entitlement{Filename: "once.txt", ViewType: ViewOneTime},
		Entitlement{Filename: "ghost.txt", ViewType: ViewNormal},
	))
	require.NoError(t, store.Grant(ctx, "bob", Entitlement{Filename: "other.txt"}))
	return NewGate(store, blobs), store
}

func readBlob(t *testing.T, blob *Blob) string {
	t.Helper()
	defer blob.Body.Close()
	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	return string(data)
}

func TestGate_List(t *testing.T) {
	gate, _ := testGate(t)

	ents, err := gate.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, ents, 3)
	assert.Equal(t, "normal.txt", ents[0].Filename)

	ents, err = gate.List(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, []Entitlement{}, ents)
}

func TestGate_FetchNormalRepeats(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blob, ent, err := gate.Fetch(ctx, "alice", "normal.txt")
		require.NoError(t, err)
		assert.Equal(t, ViewNormal, ent.ViewType)
		assert.Equal(t, "normal content", readBlob(t, blob))
	}
}

func TestGate_FetchOneTimeOnce(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()

	blob, ent, err := gate.Fetch(ctx, "alice", "once.txt")
	require.NoError(t, err)
	assert.Equal(t, ViewOneTime, ent.ViewType)
	assert.Equal(t, "secret content", readBlob(t, blob))

	_, _, err = gate.Fetch(ctx, "alice", "once.txt")
	assert.ErrorIs(t, err, ErrNotEntitled)

	ents, err := gate.List(ctx, "alice")
	require.NoError(t, err)
	for _, e := range ents {
		assert.NotEqual(t, "once.txt", e.Filename)
	}
}

func TestGate_FetchOneTimeConcurrent(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	served, denied := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blob, _, err := gate.Fetch(ctx, "alice", "once.txt")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				blob.Body.Close()
				served++
			case errors.Is(err, ErrNotEntitled):
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, served)
	assert.Equal(t, workers-1, denied)
}

func TestGate_FetchErrors(t *testing.T) {
	gate, store := testGate(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		filename string
		want     error
	}{
		{"other user's file", "alice", "other.txt", ErrNotEntitled},
		{"unknown file", "alice", "nope.txt", ErrNotEntitled},
		{"traversal", "alice", "../once.txt", ErrNotEntitled},
		{"empty name", "alice", "", ErrNotEntitled},
		{"entitled but no blob", "alice", "ghost.txt", ErrBlobMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := gate.Fetch(ctx, tt.username, tt.filename)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	require.NoError(t, store.Grant(ctx, "alice", Entitlement{Filename: "lost.txt", ViewType: ViewOneTime}))
	_, _, err := gate.Fetch(ctx, "alice", "lost.txt")
	assert.ErrorIs(t, err, ErrBlobMissing)
	_, err = store.Get(ctx, "alice", "lost.txt")
	assert.NoError(t, err, "a missing blob must not consume the entitlement")
}
