// Package files decides which stored files a user may fetch and enforces
// one-time-view consumption.
//
// Entitlements live in the file_entitlements table and are listed in
// insertion order. Blobs are resolved by filename from a BlobStore: a local
// directory (DirStore) or an S3-compatible bucket (S3Store).
//
// Fetch consumes a one-time entitlement with a single conditional DELETE
// before the blob is handed back, so a concurrent second fetch of the same
// file observes ErrNotEntitled. Callers must check the device session
// before calling into this package.
package files
