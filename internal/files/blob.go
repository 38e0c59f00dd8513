package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

// BlobStore resolves a filename to stored content.
type BlobStore interface {
	// Open returns the blob or ErrBlobMissing.
	Open(ctx context.Context, name string) (*Blob, error)
	Close() error
}

// NewBlobStore builds the backend selected by cfg.Backend.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "", config.StorageBackendLocal:
		return NewDirStore(cfg.Dir)
	case config.StorageBackendS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// DirStore serves blobs from one directory. Lookups are confined to that
// directory through os.Root.
type DirStore struct {
	root *os.Root
}

// NewDirStore opens dir, which must already exist.
func NewDirStore(dir string) (*DirStore, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening storage dir %s: %w", dir, err)
	}
	return &DirStore{root: root}, nil
}

// Open implements BlobStore.
func (d *DirStore) Open(_ context.Context, name string) (*Blob, error) {
	if !ValidFilename(name) {
		return nil, ErrBlobMissing
	}

	f, err := d.root.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobMissing
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStoreUnavailable, name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrStoreUnavailable, name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrBlobMissing
	}

	return &Blob{Name: name, Size: info.Size(), ModTime: info.ModTime(), Body: f}, nil
}

// Close releases the directory handle.
func (d *DirStore) Close() error {
	return d.root.Close()
}
