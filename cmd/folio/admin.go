// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/auth"
	"github.com/olegiv/folio/internal/newsletter"
	"github.com/olegiv/folio/internal/store"
)

// adminPasswordEnv supplies the password non-interactively.
const adminPasswordEnv = "FOLIO_ADMIN_PASSWORD"

func newAdminCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCommand(app))
	cmd.AddCommand(newAdminPasswordCommand(app))
	return cmd
}

func newAdminCreateCommand(app *appContext) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long: "Create an admin account. The password is read from " + adminPasswordEnv +
			" or, when unset, from the first line of standard input.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = newsletter.NormalizeEmail(email)
			if err := newsletter.ValidateEmail(email); err != nil {
				return fmt.Errorf("--email: %w", err)
			}
			hash, err := readPasswordHash(cmd.InOrStdin())
			if err != nil {
				return err
			}

			db, err := app.database(true)
			if err != nil {
				return err
			}
			q := store.New(db)
			if _, err := q.GetAdminByEmail(cmd.Context(), email); err == nil {
				return fmt.Errorf("admin %s already exists", email)
			} else if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("checking admin: %w", err)
			}

			admin, err := q.CreateAdmin(cmd.Context(), store.CreateAdminParams{
				Email:        email,
				PasswordHash: hash,
				CreatedAt:    time.Now().UTC(),
			})
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created admin %d (%s)\n", admin.ID, admin.Email)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAdminPasswordCommand(app *appContext) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Reset an admin password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, err := readPasswordHash(cmd.InOrStdin())
			if err != nil {
				return err
			}
			db, err := app.database(true)
			if err != nil {
				return err
			}
			q := store.New(db)
			admin, err := q.GetAdminByEmail(cmd.Context(), newsletter.NormalizeEmail(email))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no admin with email %s", email)
				}
				return fmt.Errorf("loading admin: %w", err)
			}
			if err := q.UpdateAdminPassword(cmd.Context(), store.UpdateAdminPasswordParams{
				PasswordHash: hash,
				ID:           admin.ID,
			}); err != nil {
				return fmt.Errorf("updating password: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", admin.Email)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPasswordHash(stdin io.Reader) (string, error) {
	password := os.Getenv(adminPasswordEnv)
	if password == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return "", err
	}
	return auth.HashPassword(password)
}
