// Command expensectl manages expenses from a terminal. It signs in against
// the expense API and keeps the session in a per-user file, one entry per
// profile.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"expensetracker/internal/api"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/export"
	"expensetracker/internal/export/google"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
	"expensetracker/internal/session/file"
)

const usage = `Usage: expensectl [flags] <command> [args]

Commands:
  login [identifier]       sign in with a username or email
  register                 create an account
  logout                   forget the stored session
  whoami                   show the signed-in user
  list [-from d] [-to d]   list expenses with their total
  add                      add an expense
  edit <id>                change an expense
  delete <id>              delete an expense
  export [-from d] [-to d] append the list to the configured spreadsheet

Flags:
`

// errSessionExpired is reported after the API rejected the stored token.
var errSessionExpired = errors.New("Session expired, please log in again")

func main() {
	cli.LoadEnvFile()
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	client   *api.Client
	store    *session.Store
	logger   *log.Logger
	cfg      *config.Config
	in       *bufio.Reader
	stdin    io.Reader
	out      io.Writer
	errOut   io.Writer
	now      func() time.Time
	exporter func(ctx context.Context) (export.ExpenseExporter, error)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("expensectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	profile := fs.String("profile", "default", "Session profile name")
	apiURL := fs.String("api", cfg.APIBaseURL, "Expense API base URL")
	sessionFile := fs.String("session-file", "", "Session file (default: user config dir)")
	verbose := fs.Bool("v", false, "Log API calls to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	path := *sessionFile
	if path == "" {
		var err error
		if path, err = file.DefaultPath(); err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
	}

	logger := log.Discard()
	if *verbose {
		l, _, err := log.NewFromOptions(log.Options{Level: "debug", Component: log.ComponentCLI, Output: stderr})
		if err != nil {
			return err
		}
		logger = l
	}

	verifier, err := session.NewVerifier(cfg.SessionVerifier)
	if err != nil {
		return err
	}

	a := &app{
		client: api.New(*apiURL, cfg.APITimeout, api.WithLogger(logger)),
		store: session.NewStore(file.New(path), *profile,
			session.WithVerifier(verifier),
			session.WithLogger(logger)),
		logger: logger,
		cfg:    cfg,
		in:     bufio.NewReader(stdin),
		stdin:  stdin,
		out:    stdout,
		errOut: stderr,
		now:    time.Now,
		exporter: func(ctx context.Context) (export.ExpenseExporter, error) {
			c, err := google.NewFromEnv(ctx, google.Config{
				SpreadsheetID: cfg.GoogleSpreadsheetID,
				ExpensesSheet: cfg.GoogleSheetName,
				ActivitySheet: cfg.ActivitySheetName,
			}, logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
