// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup and database opening to reduce
// boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/config"
	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/logging"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/webhooks"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB (nil if NeedsDB is false)
	Store *store.Store

	// Logger writes diagnostics to stderr; never nil after Bootstrap
	Logger *zap.Logger

	// Hooks notifies the configured webhooks; nil when there are none
	Hooks *webhooks.Dispatcher
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// ConfigOnly returns options for commands that never touch the database.
func ConfigOnly() Options {
	return Options{NeedsDB: false}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	if dbPath := flagValue(cmd, "db"); dbPath != "" {
		app.Config.DBPath = dbPath
	}
	if level := flagValue(cmd, "log-level"); level != "" {
		app.Config.LogLevel = level
	}

	logger, err := logging.New(logging.Config{
		Encoding:          app.Config.LogFormat,
		Level:             app.Config.LogLevel,
		DisableCaller:     true,
		DisableStacktrace: true,
	})
	if err != nil {
		return nil, err
	}
	app.Logger = logger
	app.Hooks = webhooks.New(app.Config.WebhookURLs, logger)

	if opts.NeedsDB {
		database, err := OpenMigrated(app.Config.DBPath)
		if err != nil {
			return nil, err
		}
		app.DB = database
		app.Store = store.New(database)
	}

	return app, nil
}

// OpenMigrated opens the database at path and fails if migrations are
// pending.
func OpenMigrated(path string) (*db.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RequiresMigrationError(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
