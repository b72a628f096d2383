// Package filesystem stores media blobs. Blobs are large and re-capturable
// only by the user, so they are written with relaxed durability; the
// record store alone carries the durability guarantees.
package filesystem

import (
	"context"
	"io"
)

type BlobStore interface {
	// Save writes the blob under name and returns the reference to store
	// on the media record.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
