package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects client input before any store is touched.
// Reason is safe to show to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Is matches any ValidationError with the same reason, so wrapped or
// re-created values still compare equal to the sentinels below.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

var (
	ErrMissingFile     = &ValidationError{Reason: "No file uploaded"}
	ErrFileTooLarge    = &ValidationError{Reason: "File too large"}
	ErrUnsupportedType = &ValidationError{Reason: "Unsupported file type."}
	ErrCorruptImage    = &ValidationError{Reason: "File content does not match its type"}
)

// ErrNotFound covers both absent records and records owned by someone else.
var ErrNotFound = errors.New("file not found")

type StoreErrorKind int

const (
	StoreWrite StoreErrorKind = iota + 1
	StoreRead
	StoreDelete
)

func (k StoreErrorKind) String() string {
	switch k {
	case StoreWrite:
		return "write"
	case StoreRead:
		return "read"
	case StoreDelete:
		return "delete"
	}
	return "unknown"
}

// Store names used in StoreError.
const (
	MetadataStoreName = "metadata"
	ObjectStoreName   = "object"
)

// StoreError is a failure of the metadata or object store.
type StoreError struct {
	Kind  StoreErrorKind
	Store string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s failed: %v", e.Store, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a StoreError of the given kind.
func IsStoreError(err error, kind StoreErrorKind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}
