package photostore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no blob exists for the reference.
var ErrNotFound = errors.New("photo not found")

// BlobStore owns the image files referenced by journal entries.
type BlobStore interface {
	// Put writes data under a newly generated reference and returns it.
	Put(ctx context.Context, data []byte) (ref string, err error)
	// Get returns ErrNotFound when the blob is absent.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Delete removes the blob. Failures are logged, never returned.
	Delete(ctx context.Context, ref string)
}
