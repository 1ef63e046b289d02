package domain

import (
	"time"

	"github.com/google/uuid"
)

// File is the metadata record of one uploaded object.
type File struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Size      int64     `json:"size" db:"size"`
	Type      string    `json:"type" db:"type"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StorageKey is where the record's payload lives in the object store.
func (f *File) StorageKey() string {
	return ObjectKey(f.UserID, f.Name)
}

// UploadInput is one file taken from an upload request. A nil Data means
// the request carried no file at all; an empty non-nil Data is a zero byte file.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size is the payload length in bytes.
func (in UploadInput) Size() int64 {
	return int64(len(in.Data))
}

// UploadResult is returned after both stores have accepted an upload.
type UploadResult struct {
	Path string `json:"path"`
	File *File  `json:"file"`
}
