// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/sparkify/internal/formatter"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand loads the song tree then the log tree
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Load song files and log files into the database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view (logs go to --log-file)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log destination while --tui owns the terminal",
				Value: "./tmp/sparkify.log",
			},
			&cli.StringFlag{
				Name:  "summary",
				Usage: fmt.Sprintf("Summary format (%s)", strings.Join(formatter.Formats, ", ")),
				Value: formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Also write the summary to this file",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Create the schema before loading",
			},
		},
		Action: r.Run,
	}
}

// setupCommand handles config and schema creation.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and the star schema",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Drop the star schema instead of creating it",
			},
		},
		Action: r.Setup,
	}
}
