package files

import (
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotEntitled indicates the user holds no entitlement for the file.
	ErrNotEntitled = errors.New("file not entitled")

	// ErrBlobMissing indicates an entitlement exists but storage has no blob.
	ErrBlobMissing = errors.New("file blob missing")

	// ErrStoreUnavailable wraps entitlement or blob backend failures.
	ErrStoreUnavailable = errors.New("file store unavailable")
)

// ViewType controls whether an entitlement survives a fetch.
type ViewType string

const (
	ViewNormal  ViewType = "normal"
	ViewOneTime ViewType = "onetime"
)

// ParseViewType maps a stored or legacy value onto a ViewType.
// Anything other than a one-time marker is a normal view.
func ParseViewType(s string) ViewType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onetime", "one-time", "one_time":
		return ViewOneTime
	default:
		return ViewNormal
	}
}

// Entitlement grants one user access to one filename.
type Entitlement struct {
	Filename string   `json:"filename"`
	ViewType ViewType `json:"viewtype"`
}

// Blob is an open handle on stored file content. Callers must close Body.
type Blob struct {
	Name    string
	Size    int64
	ModTime time.Time
	Body    io.ReadCloser
}

// ValidFilename reports whether name is a bare file name that cannot escape
// the blob root.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return !strings.Contains(name, "..")
}
