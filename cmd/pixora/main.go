// Command pixora is a terminal client for the Pixora backend. Run with a
// command for a one-shot call, or with no arguments (or "shell") for an
// interactive session that keeps the signed-in state between commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/config"
	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/notify"
	"github.com/BradenHooton/pixora/internal/storage"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	logger := pkglogger.New(stderr, cfg.Client.LogLevel)
	slog.SetDefault(logger)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		return 1
	}
	defer closeStore()

	queue := notify.New(
		notify.WithDuration(cfg.Client.ToastDuration),
		notify.WithMaxLen(cfg.Client.ToastMaxLen),
	)
	defer queue.Close()
	defer printToasts(queue, stdout)()

	a := newApp(cfg, flows.Deps{
		API: apiclient.New(cfg.API.BaseURL,
			apiclient.WithTimeout(cfg.API.Timeout),
			apiclient.WithLogger(logger),
		),
		Store:  store,
		Nav:    &consoleNavigator{out: stdout},
		Notify: queue,
		Logger: logger,
		Audit:  pkglogger.NewAuditLogger(logger),
		Delays: flows.Delays{
			CallbackDisplay: cfg.Client.CallbackDisplayDelay,
			ResetRedirect:   cfg.Client.ResetRedirectDelay,
		},
		Env: cfg.Client.Env,
	}, stdin, stdout)
	defer a.Close()

	if len(args) == 0 || args[0] == "shell" {
		if cfg.Client.StorageBackend == config.StorageMemory {
			fmt.Fprintln(stdout, "Using in-memory storage: the session lasts until you exit.")
		}
		return a.shell(ctx)
	}

	if err := a.dispatch(ctx, args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

// openStore returns the configured token store and a func releasing it
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if cfg.Client.StorageBackend != config.StoragePostgres {
		return storage.NewMemory(), func() {}, nil
	}

	if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewPostgres(db, cfg.Client.StorageNamespace), db.Close, nil
}

// shell reads commands until EOF or "exit"
func (a *app) shell(ctx context.Context) int {
	fmt.Fprintln(a.out, `Type "help" for commands, "exit" to quit.`)
	for {
		line, err := a.prompt.Ask("pixora")
		if err != nil {
			fmt.Fprintln(a.out)
			return 0
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return 0
		}
		if err := a.dispatch(ctx, fields); err != nil && !errors.Is(err, errReported) {
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return 1
		}
	}
}
