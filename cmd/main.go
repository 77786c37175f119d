package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/sparkify/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "sparkify",
		Usage:    "Load song metadata and listening logs into a song play star schema",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrConnection):
			logger.Fatalf("database connection failed: %v", err)
		case errors.Is(err, shared.ErrMissingConfig):
			logger.Fatalf("%v (run `sparkify setup --config <path>` to create one)", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
