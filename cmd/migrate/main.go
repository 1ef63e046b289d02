// Command migrate applies or repairs the database schema outside of server startup.
//
//	migrate up | down | version | force VERSION
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/migrations"
	"github.com/saransh1220/filebox/pkg/migration"
)

var errUsage = errors.New("usage: migrate up | down | version | force VERSION")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	runner := migration.NewRunner(&migration.Config{
		Source:      migrations.FS,
		DatabaseURL: cfg.Database.URL(),
		Logger:      logger,
	})
	return dispatch(runner, fs.Args(), out)
}

type runner interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

func dispatch(r runner, args []string, out io.Writer) error {
	switch args[0] {
	case "up":
		return r.Up()
	case "down":
		return r.Down()
	case "version":
		version, dirty, err := r.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version %d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) != 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return r.Force(version)
	default:
		return errUsage
	}
}
