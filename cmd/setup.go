package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/revu/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the config file when missing and prepares the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if err := r.SetupConfig(ctx, cmd); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return r.SetupDatabase(ctx, cmd)
}

// SetupConfig creates config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		r.logger.Info("config file already exists", "path", path)
		return fmt.Errorf("%w: %s", os.ErrExist, path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Wrote %s\n", path)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		r.config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		r.db = db
	}

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(r.db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back latest migration\n")
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}
