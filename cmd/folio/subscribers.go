// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/store"
)

func newSubscribersCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Inspect newsletter subscribers",
	}

	var limit, offset int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List subscribers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.database(true)
			if err != nil {
				return err
			}
			q := store.New(db)
			subs, err := q.ListSubscribers(cmd.Context(), store.ListSubscribersParams{Limit: limit, Offset: offset})
			if err != nil {
				return fmt.Errorf("listing subscribers: %w", err)
			}
			total, err := q.CountSubscribers(cmd.Context())
			if err != nil {
				return fmt.Errorf("counting subscribers: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), subscribersTable(subs))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d\n", len(subs), total)
			return err
		},
	}
	list.Flags().Int64Var(&limit, "limit", 50, "Maximum rows")
	list.Flags().Int64Var(&offset, "offset", 0, "Rows to skip")
	cmd.AddCommand(list)

	return cmd
}

func subscribersTable(subs []store.Subscriber) string {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		status := "active"
		if !s.IsSubscribed {
			status = "unsubscribed"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Email,
			status,
			s.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return renderTable([]string{"ID", "Email", "Status", "Subscribed"}, rows, 1)
}
