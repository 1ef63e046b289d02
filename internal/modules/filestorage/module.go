package filestorage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saransh1220/filebox/internal/modules/filestorage/application"
	"github.com/saransh1220/filebox/internal/modules/filestorage/domain"
	"github.com/saransh1220/filebox/internal/modules/filestorage/infrastructure/gcs"
	"github.com/saransh1220/filebox/internal/modules/filestorage/infrastructure/local"
	"github.com/saransh1220/filebox/internal/modules/filestorage/infrastructure/s3"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
)

// Module represents the FileStorage module
type Module struct {
	service *application.ObjectService
	storage domain.ObjectStorage
	closer  func() error
}

// NewModule picks the backend named by cfg.Driver.
func NewModule(ctx context.Context, cfg config.FileStorageConfig, logger *slog.Logger) (*Module, error) {
	var storage domain.ObjectStorage
	closer := func() error { return nil }

	switch cfg.Driver {
	case "s3":
		st, err := s3.NewS3Storage(ctx, s3.S3Config{
			BucketName:        cfg.S3BucketName,
			Region:            cfg.S3Region,
			Endpoint:          cfg.S3Endpoint,
			AccessKey:         cfg.S3AccessKey,
			SecretKey:         cfg.S3SecretKey,
			UseSSL:            cfg.S3UseSSL,
			ConditionalWrites: cfg.S3ConditionalWrite,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		storage = st
	case "gcs":
		st, err := gcs.NewGCSStorage(ctx, gcs.GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
			Endpoint:        cfg.GCSEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS storage: %w", err)
		}
		storage = st
		closer = st.Close
	case "local":
		st, err := local.NewLocalStorage(cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		storage = st
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	return &Module{
		service: application.NewObjectService(storage, logger),
		storage: storage,
		closer:  closer,
	}, nil
}

// Service returns the object service for use by other modules
func (m *Module) Service() *application.ObjectService {
	return m.service
}

// Close releases backend clients that hold connections.
func (m *Module) Close() error {
	return m.closer()
}
