package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/saransh1220/filebox/internal/modules/filestorage/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSConfig holds configuration for Google Cloud Storage
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	// Endpoint points the client at an emulator such as fake-gcs-server.
	// Emulators are used without authentication.
	Endpoint string
}

// GCSStorage implements domain.ObjectStorage on a GCS bucket
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}, nil
}

// PutObject writes with a does-not-exist precondition so an existing object is never replaced.
func (g *GCSStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		// cancelling the context aborts the upload; Close then reports the same failure
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to upload to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return domain.ErrObjectExists
		}
		return fmt.Errorf("failed to upload to gcs: %w", err)
	}
	return nil
}

// RemoveObject implements domain.ObjectStorage
func (g *GCSStorage) RemoveObject(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from gcs: %w", err)
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
