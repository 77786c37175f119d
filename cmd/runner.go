package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sparkify/internal/repositories"
	"github.com/desertthunder/sparkify/internal/shared"
	"github.com/urfave/cli/v3"
)

// StoreOpener opens the destination store described by config.
type StoreOpener func(ctx context.Context, config *shared.Config) (repositories.Store, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	openStore StoreOpener
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config // Skips config resolution when set
	Logger    *log.Logger
	Output    io.Writer
	OpenStore StoreOpener
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenStore == nil {
		opts.OpenStore = OpenStore
	}

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		openStore: opts.OpenStore,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// useFileLogger sends the runner's logs to the file at path until restore is called.
// restore closes the file and reinstates the previous logger.
func (r *Runner) useFileLogger(path string) (func(), error) {
	fileLogger, closer, err := shared.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	previous := r.logger
	fileLogger.SetLevel(previous.GetLevel())
	r.SetLogger(fileLogger)
	return func() {
		r.SetLogger(previous)
		if err := closer.Close(); err != nil {
			previous.Warn("failed to close log file", "path", path, "err", err)
		}
	}, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){runCommand, setupCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the config at path and applies its log level.
// A missing file falls back to defaults unless required is set.
func (r *Runner) loadConfig(path string, required bool) (*shared.Config, error) {
	config := r.config
	if config == nil {
		resolved, err := shared.Resolve(path, required)
		if err != nil {
			return nil, err
		}
		config = resolved
	} else if err := config.Validate(); err != nil {
		return nil, err
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return nil, err
	}
	shared.SetLogLevel(r.logger, level)
	return config, nil
}

// OpenStore connects to the database named by config.Database.
//
// SQLite goes through database/sql and mattn/go-sqlite3; PostgreSQL uses a pgx pool.
// Connection failures wrap [shared.ErrConnection].
func OpenStore(ctx context.Context, config *shared.Config) (repositories.Store, error) {
	dialect, err := shared.ParseDialect(config.Database.Driver)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case shared.Postgres:
		pool, err := shared.NewPostgresPool(ctx, config.Database.URL, config.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return repositories.NewPgxStore(pool), nil
	default:
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		return repositories.NewSQLStore(db, shared.SQLite), nil
	}
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
