// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/newsletter"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/render"
)

func newNewsletterCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsletter",
		Short: "Send newsletter issues",
	}

	var subject string
	send := &cobra.Command{
		Use:   "send <file>",
		Short: "Send an issue to every active subscriber",
		Long:  "Send an issue to every active subscriber. Files ending in .md are rendered as Markdown, anything else is treated as HTML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject = strings.TrimSpace(subject)
			if subject == "" {
				return errors.New("--subject is required")
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading issue: %w", err)
			}
			body, err := render.HTML(formatFor(args[0]), string(raw))
			if err != nil {
				return err
			}

			cfg, err := app.config()
			if err != nil {
				return err
			}
			db, err := app.database(true)
			if err != nil {
				return err
			}
			// the limiter only guards public subscribe calls
			svc := newsletter.NewService(db, ratelimit.NewMemory(ratelimit.DefaultMax, ratelimit.DefaultWindow),
				newSender(cfg, app.logger), newsletter.Options{
					SiteURL:   cfg.SiteURL,
					SiteTitle: cfg.SiteTitle,
					Logger:    app.logger,
				})

			res, err := svc.Broadcast(cmd.Context(), subject, body)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Sent", "Failed"},
				[][]string{{strconv.Itoa(res.Sent), strconv.Itoa(res.Failed)}},
				1, 2,
			))
			return err
		},
	}
	send.Flags().StringVarP(&subject, "subject", "s", "", "Email subject")
	cmd.AddCommand(send)

	return cmd
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return render.FormatMarkdown
	default:
		return render.FormatHTML
	}
}
