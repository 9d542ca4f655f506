// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/store"
)

func newMigrateCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.database(false)
			if err != nil {
				return err
			}
			if err := store.Migrate(db); err != nil {
				return err
			}
			return printVersion(cmd, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.database(false)
			if err != nil {
				return err
			}
			if err := store.MigrateDown(db); err != nil {
				return err
			}
			return printVersion(cmd, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := app.database(false)
			if err != nil {
				return err
			}
			return store.MigrationStatus(db)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, app *appContext) error {
	v, err := store.MigrationVersion(app.db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return err
}
