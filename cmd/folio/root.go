// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/config"
	"github.com/olegiv/folio/internal/logging"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/store"
)

// appContext is shared by all subcommands. Config and the database are
// opened on demand so that "version" and "help" work without either.
type appContext struct {
	envFile string

	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
}

func newRootCommand() *cobra.Command {
	app := &appContext{}

	rootCmd := &cobra.Command{
		Use:           "folio",
		Short:         "Portfolio and publishing site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.loadEnv()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.envFile, "env-file", ".env", "Dotenv file loaded before reading FOLIO_* variables")

	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newMigrateCommand(app))
	rootCmd.AddCommand(newAdminCommand(app))
	rootCmd.AddCommand(newSubscribersCommand(app))
	rootCmd.AddCommand(newNewsletterCommand(app))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadEnv reads the dotenv file if present. Variables already set in the
// environment win.
func (a *appContext) loadEnv() error {
	if a.envFile == "" {
		return nil
	}
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}
	return nil
}

// config loads configuration and installs the default logger.
func (a *appContext) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(os.Stdout, cfg.LogLevel, cfg.IsDevelopment())
	slog.SetDefault(a.logger)
	return cfg, nil
}

// database opens the SQLite database and applies pending migrations unless
// migrate is false.
func (a *appContext) database(migrate bool) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if migrate {
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	a.db = db
	return db, nil
}

func (a *appContext) sections() (*section.Table, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if cfg.SectionsFile == "" {
		return section.Default(), nil
	}
	t, err := section.LoadFile(cfg.SectionsFile)
	if err != nil {
		return nil, fmt.Errorf("loading sections: %w", err)
	}
	return t, nil
}

func (a *appContext) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
