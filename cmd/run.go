package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sparkify/internal/formatter"
	"github.com/desertthunder/sparkify/internal/shared"
	"github.com/desertthunder/sparkify/internal/tasks"
	"github.com/desertthunder/sparkify/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run loads the song tree then the log tree and prints a summary.
//
// Row and file failures and undiscoverable roots are reported in the summary but do not fail the command.
// Connection failures and cancellation do.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("summary"))
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: --summary must be one of %s", shared.ErrInvalidFlag, strings.Join(formatter.Formats, ", "))
	}

	useTUI := cmd.Bool("tui")
	if useTUI {
		// Redirect logs to file to avoid interfering with TUI rendering
		restore, err := r.useFileLogger(cmd.String("log-file"))
		if err != nil {
			return err
		}
		defer restore()
	}

	config, err := r.loadConfig(cmd.String("config"), cmd.IsSet("config"))
	if err != nil {
		return err
	}

	if cmd.Bool("migrate") {
		if err := r.migrate(ctx, config); err != nil {
			return err
		}
	}

	runID := shared.GenerateID()
	logger := shared.WithLogger(r.logger, "run", runID)

	store, err := r.openStore(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", "err", err)
		}
	}()

	var engineOutput io.Writer = r.output
	if useTUI {
		engineOutput = io.Discard
	}

	engine := tasks.NewEngine(tasks.EngineOpts{
		Store:     store,
		Logger:    logger,
		Output:    engineOutput,
		Extension: config.Data.Extension,
		RateLimit: config.Data.RateLimit,
	})

	logger.Info("starting run", "driver", config.Database.Driver, "songs", config.Data.SongDir, "logs", config.Data.LogDir)
	job := runJob(engine, config, runID, logger)

	var summary *formatter.Summary
	if useTUI {
		summary, err = ui.Run(ctx, job)
	} else {
		summary, err = job(ctx, nil)
	}

	if summary != nil {
		if werr := r.writeSummary(summary, format, cmd.String("output")); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// runJob processes the song root then the log root.
//
// A root that cannot be discovered is logged, recorded in the summary and skipped; the other root still runs.
// Only cancellation ends the job early.
func runJob(engine *tasks.Engine, config *shared.Config, runID string, logger *log.Logger) ui.Job {
	return func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*formatter.Summary, error) {
		started := time.Now()
		var results []*tasks.BatchResult

		roots := []struct {
			dir    string
			loader tasks.Loader
		}{
			{config.Data.SongDir, engine.SongLoader()},
			{config.Data.LogDir, engine.LogLoader()},
		}

		for _, root := range roots {
			result, err := engine.Process(ctx, root.dir, root.loader, progress)
			results = append(results, result)
			if err == nil {
				continue
			}
			if !tasks.RootSkippable(err) {
				return formatter.NewSummary(runID, config.Database.Driver, started, results...),
					fmt.Errorf("%s: %w", root.loader.Phase, err)
			}
			logger.Error("skipping root", "phase", root.loader.Phase, "root", root.dir, "err", err)
		}

		engine.Finish(progress, results...)
		return formatter.NewSummary(runID, config.Database.Driver, started, results...), nil
	}
}

func (r *Runner) migrate(ctx context.Context, config *shared.Config) error {
	db, dialect, closeDB, err := openSchemaDB(ctx, config)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := shared.RunMigrations(db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (r *Runner) writeSummary(summary *formatter.Summary, format, path string) error {
	data, err := formatter.Render(summary, format)
	if err != nil {
		return err
	}
	if format == formatter.FormatText {
		r.writePlain("\n")
	}
	if err := r.writePlain("%s", data); err != nil {
		return err
	}

	if path != "" {
		if err := formatter.WriteSummary(summary, format, path); err != nil {
			return err
		}
		r.logger.Info("summary written", "path", path)
	}
	return nil
}
