package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/modules/filestorage/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
)

// ObjectService validates keys and logs around the configured backend.
// It is unscoped; request code only ever sees a UserObjects.
type ObjectService struct {
	storage domain.ObjectStorage
	logger  *slog.Logger
}

func NewObjectService(storage domain.ObjectStorage, logger *slog.Logger) *ObjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectService{
		storage: storage,
		logger:  logger.With(logging.Component("objectstore")),
	}
}

// Put stores body at key. The key must not be taken.
func (s *ObjectService) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	if err := s.storage.PutObject(ctx, key, body, size, contentType); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "object stored", logging.ObjectKey(key), slog.Int64("size", size))
	return nil
}

// Remove deletes the object at key; a missing object is not an error.
func (s *ObjectService) Remove(ctx context.Context, key string) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	if err := s.storage.RemoveObject(ctx, key); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "object removed", logging.ObjectKey(key))
	return nil
}

// ForUser returns a handle that only accepts keys under "<userID>/".
func (s *ObjectService) ForUser(userID uuid.UUID) *UserObjects {
	return &UserObjects{service: s, prefix: userID.String() + "/"}
}

// UserObjects is an ObjectService restricted to one user's key prefix.
type UserObjects struct {
	service *ObjectService
	prefix  string
}

func (u *UserObjects) check(key string) error {
	if !strings.HasPrefix(key, u.prefix) {
		return fmt.Errorf("%w: %q", domain.ErrKeyOutOfScope, key)
	}
	return nil
}

func (u *UserObjects) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := u.check(key); err != nil {
		return err
	}
	return u.service.Put(ctx, key, body, size, contentType)
}

func (u *UserObjects) Remove(ctx context.Context, key string) error {
	if err := u.check(key); err != nil {
		return err
	}
	return u.service.Remove(ctx, key)
}
