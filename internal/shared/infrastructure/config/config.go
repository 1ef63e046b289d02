package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/database"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    database.PostgresConfig
	Redis       database.RedisConfig
	JWT         JWTConfig
	FileStorage FileStorageConfig
	Upload      UploadConfig
	RateLimit   RateLimitConfig
	Reconcile   ReconcileConfig
	Google      GoogleConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string `env:"PORT" envDefault:"3001"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	MigrationsAuto bool   `env:"MIGRATIONS_AUTO" envDefault:"true"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET" envDefault:"default-dev-secret"`
	Expiry time.Duration `env:"JWT_EXPIRATION" envDefault:"1h"`
}

// GoogleConfig holds Google OAuth configuration
type GoogleConfig struct {
	ClientID string `env:"GOOGLE_CLIENT_ID"`
}

// FileStorageConfig selects and configures the object store backend.
type FileStorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"s3"`

	S3Region           string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint         string `env:"S3_ENDPOINT"`
	S3AccessKey        string `env:"S3_ACCESS_KEY"`
	S3SecretKey        string `env:"S3_SECRET_KEY"`
	S3BucketName       string `env:"S3_BUCKET" envDefault:"files"`
	S3UseSSL           bool   `env:"S3_USE_SSL" envDefault:"true"`
	S3ConditionalWrite bool   `env:"S3_CONDITIONAL_WRITES" envDefault:"true"`

	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	GCSEndpoint        string `env:"GCS_ENDPOINT"`

	LocalPath string `env:"LOCAL_STORAGE_PATH" envDefault:"./uploads"`
}

// UploadConfig is the upload policy. It is read once at startup and never mutated.
type UploadConfig struct {
	MaxBytes     int64    `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	AllowedTypes []string `env:"UPLOAD_ALLOWED_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif,application/pdf,text/plain"`
}

// RateLimitConfig configures the per-client fixed window limiter.
type RateLimitConfig struct {
	Enabled    bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests   int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window     time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Only
	// enable it behind a proxy that overwrites those headers.
	TrustProxy bool          `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`
}

// ReconcileConfig configures compensation retries and the orphan sweep.
type ReconcileConfig struct {
	Schedule             string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 5m"`
	Batch                int           `env:"RECONCILE_BATCH" envDefault:"100"`
	MaxAttempts          int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"10"`
	CompensationAttempts uint64        `env:"COMPENSATION_ATTEMPTS" envDefault:"3"`
	CompensationBackoff  time.Duration `env:"COMPENSATION_BACKOFF" envDefault:"100ms"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads the optional .env file and then environment variables.
func Load() (Config, error) {
	// a missing .env file is fine, real deployments use the environment
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom parses configuration from the given variables only. Used by tests.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("%w: UPLOAD_MAX_BYTES must be positive, got %d", ErrInvalidConfig, c.Upload.MaxBytes)
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("%w: UPLOAD_ALLOWED_TYPES must not be empty", ErrInvalidConfig)
	}
	switch c.FileStorage.Driver {
	case "s3", "gcs", "local":
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.FileStorage.Driver)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("%w: rate limit needs positive requests and window", ErrInvalidConfig)
	}
	return nil
}
