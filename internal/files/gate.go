package files

import (
	"context"
)

// Gate combines entitlements with blob storage.
type Gate struct {
	entitlements EntitlementStore
	blobs        BlobStore
}

// NewGate creates a Gate.
func NewGate(entitlements EntitlementStore, blobs BlobStore) *Gate {
	return &Gate{entitlements: entitlements, blobs: blobs}
}

// List returns the user's entitlements; never nil.
func (g *Gate) List(ctx context.Context, username string) ([]Entitlement, error) {
	ents, err := g.entitlements.List(ctx, username)
	if err != nil {
		return nil, err
	}
	if ents == nil {
		ents = []Entitlement{}
	}
	return ents, nil
}

// Fetch opens the blob for an entitled file. A one-time entitlement is
// removed before the blob is returned; if another request consumed it first
// the blob is closed and ErrNotEntitled returned. The caller closes
// Blob.Body.
func (g *Gate) Fetch(ctx context.Context, username, filename string) (*Blob, Entitlement, error) {
	if !ValidFilename(filename) {
		return nil, Entitlement{}, ErrNotEntitled
	}

	ent, err := g.entitlements.Get(ctx, username, filename)
	if err != nil {
		return nil, Entitlement{}, err
	}

	blob, err := g.blobs.Open(ctx, filename)
	if err != nil {
		return nil, ent, err
	}

	if ent.ViewType == ViewOneTime {
		if err := g.entitlements.Consume(ctx, username, filename); err != nil {
			blob.Body.Close()
			return nil, ent, err
		}
	}

	return blob, ent, nil
}
