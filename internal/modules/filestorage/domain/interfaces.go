package domain

import (
	"context"
	"io"
)

// ObjectStorage is a flat key/value blob store. Implemented by S3 (or MinIO),
// Google Cloud Storage and the local filesystem.
type ObjectStorage interface {
	// PutObject creates the object at key. It never overwrites: if the key is
	// already taken it fails with ErrObjectExists.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// RemoveObject deletes the object at key. Removing a missing object succeeds.
	RemoveObject(ctx context.Context, key string) error
}
