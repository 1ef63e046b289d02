// Package cli implements the filebox command line client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/saransh1220/filebox/pkg/client"
)

// ErrUsage means the command line was malformed; usage has been printed.
var ErrUsage = errors.New("usage")

const usageText = `Usage: filebox [-server URL] [-session FILE] <command> [args]

Commands:
  register [-email EMAIL]   create an account
  login [-email EMAIL]      log in and remember the session
  logout                    revoke the session
  whoami                    show the logged in user
  list                      list your files
  upload FILE...            upload one or more files
  delete ID...              delete files by id
`

type App struct {
	client *client.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *client.Client, in io.Reader, out io.Writer) *App {
	return &App{client: c, reader: bufio.NewReader(in), out: out}
}

// Main parses global flags, runs one command and returns the exit code.
func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("filebox", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	server := fs.String("server", envOr("FILEBOX_URL", "http://localhost:3001"), "server base URL")
	sessionPath := fs.String("session", os.Getenv("FILEBOX_SESSION"), "session file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := *sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		path = p
	}

	app := NewApp(client.New(*server, client.NewFileStore(path)), stdin, stdout)
	if err := app.Run(ctx, fs.Args()); err != nil {
		if errors.Is(err, ErrUsage) {
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usageText)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "list", "ls":
		return a.list(ctx)
	case "upload":
		return a.upload(ctx, rest)
	case "delete", "rm":
		return a.delete(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usageText)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", cmd, usageText)
		return ErrUsage
	}
}

func (a *App) credentials(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return "", "", ErrUsage
	}

	if *email == "" {
		e, err := GetSimpleText(a.reader, "Email", a.out)
		if err != nil {
			return "", "", err
		}
		*email = e
	}
	pw, err := GetPassword(a.reader, a.out)
	if err != nil {
		return "", "", err
	}
	return *email, string(pw), nil
}

func (a *App) register(ctx context.Context, args []string) error {
	email, password, err := a.credentials("register", args)
	if err != nil {
		return err
	}
	if err := a.client.Register(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signup successful. Please log in.")
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", s.Email)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) whoami() error {
	s, err := a.client.Session()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", s.Email, s.UserID)
	if s.ExpiresAt != 0 {
		fmt.Fprintf(a.out, "session expires %s\n", time.Unix(s.ExpiresAt, 0).Format(time.RFC3339))
	}
	return nil
}

func (a *App) list(ctx context.Context) error {
	files, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.ID, f.Name, f.Size, f.Type, f.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// upload sends every path and keeps going past failures.
func (a *App) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		fmt.Fprintln(a.out, "upload needs at least one file")
		return ErrUsage
	}

	var result *multierror.Error
	for _, p := range paths {
		stored, err := a.uploadOne(ctx, p)
		if err != nil {
			fmt.Fprintf(a.out, "Failed to upload %s: %v\n", p, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", p, err))
			continue
		}
		fmt.Fprintf(a.out, "Upload complete: %s -> %s\n", p, stored)
	}
	return result.ErrorOrNil()
}

func (a *App) uploadOne(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return a.client.Upload(ctx, path, f)
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "delete needs at least one file id")
		return ErrUsage
	}

	var result *multierror.Error
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: not a file id", arg))
			continue
		}
		if err := a.client.Delete(ctx, id); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", arg, err))
			continue
		}
		fmt.Fprintf(a.out, "File deleted: %s\n", id)
	}
	return result.ErrorOrNil()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
