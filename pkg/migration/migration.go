// Package migration applies the embedded SQL schema with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// ErrDirty means a previous run stopped half way. Repair with Force.
var ErrDirty = errors.New("schema is dirty")

var errNoSource = errors.New("no migration source configured")

type Config struct {
	// Source holds the .sql files, usually migrations.FS.
	Source fs.FS
	// Dir is the directory inside Source; "" means the root.
	Dir         string
	DatabaseURL string
	Logger      *slog.Logger
}

// Runner opens a fresh migrate instance per call and closes it afterwards.
type Runner struct {
	source fs.FS
	dir    string
	dbURL  string
	logger *slog.Logger
}

func NewRunner(config *Config) *Runner {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	dir := config.Dir
	if dir == "" {
		dir = "."
	}
	return &Runner{
		source: config.Source,
		dir:    dir,
		dbURL:  config.DatabaseURL,
		logger: logger.With(slog.String("component", "migrate")),
	}
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (r *Runner) Up() error {
	return r.with("up", func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			r.logger.Info("schema already current")
			return nil
		}
		return err
	})
}

// Down reverts exactly one migration.
func (r *Runner) Down() error {
	return r.with("down", func(m *migrate.Migrate) error {
		err := m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			r.logger.Info("nothing to revert")
			return nil
		}
		return err
	})
}

// Force records version as applied and clears the dirty flag without running SQL.
func (r *Runner) Force(version int) error {
	r.logger.Warn("forcing schema version", slog.Int("version", version))
	return r.with("force", func(m *migrate.Migrate) error {
		return m.Force(version)
	})
}

// Version reports the applied version; 0 when nothing has run yet.
func (r *Runner) Version() (version uint, dirty bool, err error) {
	err = r.with("version", func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func (r *Runner) with(op string, fn func(*migrate.Migrate) error) error {
	m, err := r.open()
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	defer m.Close()

	if err := fn(m); err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	return nil
}

func (r *Runner) open() (*migrate.Migrate, error) {
	if r.source == nil {
		return nil, errNoSource
	}

	src, err := iofs.New(r.source, r.dir)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	db, err := sql.Open("postgres", r.dbURL)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return nil, fmt.Errorf("postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, err
	}
	return m, nil
}

// AutoMigrate runs Up at server start. A dirty schema stops startup so an
// operator can inspect it and run `migrate force`.
func AutoMigrate(dbURL string, source fs.FS, logger *slog.Logger) error {
	runner := NewRunner(&Config{Source: source, DatabaseURL: dbURL, Logger: logger})

	from, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	if dirty {
		runner.logger.Error("schema is dirty, run migrate force", slog.Uint64("version", uint64(from)))
		return fmt.Errorf("%w at version %d", ErrDirty, from)
	}

	if err := runner.Up(); err != nil {
		return err
	}

	to, _, err := runner.Version()
	if err != nil {
		return err
	}
	runner.logger.Info("schema migrated",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}
