package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/sparkify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a default config file when none exists and creates (or with --rollback drops) the star schema.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config == nil {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
			}
		}
	}

	config, err := r.loadConfig(configPath, false)
	if err != nil {
		return err
	}

	db, dialect, closeDB, err := openSchemaDB(ctx, config)
	if err != nil {
		return err
	}
	defer closeDB()

	if cmd.Bool("rollback") {
		r.logger.Info("dropping star schema", "driver", dialect)
		if err := shared.RollbackMigration(db, dialect); err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		r.writePlain("✓ schema dropped (%s)\n", dialect)
		return nil
	}

	r.logger.Info("running database migrations", "driver", dialect)
	if err := shared.RunMigrations(db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", describeTarget(config))
	r.writePlain("✓ schema ready (%s)\n", dialect)
	return nil
}

// openSchemaDB opens a [sql.DB] for running migrations against the configured database.
func openSchemaDB(ctx context.Context, config *shared.Config) (*sql.DB, shared.Dialect, func(), error) {
	dialect, err := shared.ParseDialect(config.Database.Driver)
	if err != nil {
		return nil, "", nil, err
	}

	if dialect == shared.Postgres {
		pool, err := shared.NewPostgresPool(ctx, config.Database.URL, config.Database.MaxOpenConns)
		if err != nil {
			return nil, "", nil, err
		}
		db := shared.PoolDB(pool)
		return db, dialect, func() {
			db.Close()
			pool.Close()
		}, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, "", nil, err
	}
	return db, dialect, func() { db.Close() }, nil
}

// describeTarget names the database without credentials.
func describeTarget(config *shared.Config) string {
	if dialect, err := shared.ParseDialect(config.Database.Driver); err == nil && dialect == shared.Postgres {
		return "postgres"
	}
	return config.Database.Path
}
