package domain

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MetadataStore holds one user's file records. Every method only ever sees
// the rows of the user the store was scoped to.
type MetadataStore interface {
	// List returns the records newest first; no records is an empty slice.
	List(ctx context.Context) ([]File, error)
	// Insert stores f and fills in its ID and CreatedAt.
	Insert(ctx context.Context, f *File) error
	Get(ctx context.Context, id uuid.UUID) (*File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore holds one user's payloads; keys outside the user's prefix are refused.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Remove is idempotent: a missing object is success.
	Remove(ctx context.Context, key string) error
}

// OrphanRecorder durably notes an object that could not be removed.
type OrphanRecorder interface {
	Record(ctx context.Context, key string, reason OrphanReason, cause error) error
}

// DataClient is the capability a request holds after authentication. It is
// bound to exactly one user and cannot reach anyone else's data.
type DataClient interface {
	UserID() uuid.UUID
	Files() MetadataStore
	Objects() ObjectStore
	Orphans() OrphanRecorder
}

// Event types pushed to the owner of a file.
const (
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
)

// EventPublisher pushes a notification to one user. It must not block.
type EventPublisher interface {
	Publish(userID uuid.UUID, eventType string, payload any)
}
