package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrphanReason says which path leaked an object.
type OrphanReason string

const (
	OrphanUploadCompensation OrphanReason = "upload_compensation"
	OrphanDeleteCleanup      OrphanReason = "delete_cleanup"
)

// Orphan is an object that should not exist and could not be removed inline.
type Orphan struct {
	ID        uuid.UUID    `db:"id"`
	UserID    uuid.UUID    `db:"user_id"`
	ObjectKey string       `db:"object_key"`
	Reason    OrphanReason `db:"reason"`
	Attempts  int          `db:"attempts"`
	LastError string       `db:"last_error"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}
