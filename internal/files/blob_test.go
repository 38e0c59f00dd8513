package files

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

func TestDirStore_Open(t *testing.T) {
	ctx := context.Background()
	store := testBlobDir(t, map[string]string{"report.pdf": "PDFDATA"})

	blob, err := store.Open(ctx, "report.pdf")
	require.NoError(t, err)
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	assert.Equal(t, "PDFDATA", string(data))
	assert.Equal(t, int64(7), blob.Size)
	assert.Equal(t, "report.pdf", blob.Name)

	_, err = store.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrBlobMissing)

	_, err = store.Open(ctx, "../report.pdf")
	assert.ErrorIs(t, err, ErrBlobMissing)
}

func TestDirStore_DirectoryIsMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))
	store, err := NewDirStore(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Open(context.Background(), "sub")
	assert.ErrorIs(t, err, ErrBlobMissing)
}

func TestNewDirStore_NoDir(t *testing.T) {
	_, err := NewDirStore(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

// fakeS3 serves path-style GetObject requests for bucket "files".
func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := strings.CutPrefix(r.URL.Path, "/files/")
		if r.Method != http.MethodGet || !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if key == "forbidden.txt" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			return
		}
		body, found := objects[key]
		if !found {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Last-Modified", "Sun, 01 Mar 2026 09:00:00 GMT")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func s3Store(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	store, err := NewS3Store(context.Background(), config.S3Config{
		Bucket:       "files",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestS3Store_Open(t *testing.T) {
	ctx := context.Background()
	srv := fakeS3(t, map[string]string{"report.pdf": "S3DATA"})
	store := s3Store(t, srv.URL)

	blob, err := store.Open(ctx, "report.pdf")
	require.NoError(t, err)
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	assert.Equal(t, "S3DATA", string(data))
	assert.Equal(t, int64(6), blob.Size)
	assert.False(t, blob.ModTime.IsZero())

	_, err = store.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrBlobMissing)

	_, err = store.Open(ctx, "forbidden.txt")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrBlobMissing)

	_, err = store.Open(ctx, "../escape")
	assert.ErrorIs(t, err, ErrBlobMissing)

	require.NoError(t, store.Close())
}

func TestNewBlobStore(t *testing.T) {
	ctx := context.Background()

	local, err := NewBlobStore(ctx, config.StorageConfig{Backend: config.StorageBackendLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, local)
	require.NoError(t, local.Close())

	srv := fakeS3(t, nil)
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	remote, err := NewBlobStore(ctx, config.StorageConfig{
		Backend: config.StorageBackendS3,
		S3:      config.S3Config{Bucket: "files", Region: "us-east-1", Endpoint: srv.URL, AccessKey: "k", SecretKey: "s", UsePathStyle: true},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, remote)

	_, err = NewBlobStore(ctx, config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
