package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/isomatch/client"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			output(resp, resp.Status)
		},
	}
}

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the run history",
	}
	cmd.AddCommand(eventListCmd())
	cmd.AddCommand(eventPurgeCmd())
	return cmd
}

func eventListCmd() *cobra.Command {
	var runID, action, since string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List run events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.EventQueryOptions{RunID: runID, Action: action, Limit: limit, Offset: offset}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid --since %q: %w", since, err)
				}
				t := time.Now().Add(-d)
				opts.Since = &t
			}

			events, hasMore, err := apiClient.Events.Query(context.Background(), opts)
			if err != nil {
				fatal("list events", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, len(events))
				for i, e := range events {
					rows[i] = []string{
						strconv.FormatInt(e.ID, 10),
						e.CreatedAt.Format(time.RFC3339),
						e.Action,
						e.RunID,
						e.Actor,
					}
				}
				formatTable([]string{"ID", "TIME", "ACTION", "RUN", "ACTOR"}, rows)
				return nil
			}
			formatJSON(map[string]any{"events": events, "has_more": hasMore})
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Filter by run ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (run.stored, run.rejected, run.deleted)")
	cmd.Flags().StringVar(&since, "since", "", "Only events newer than this duration ago (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset")
	return cmd
}

func eventPurgeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete events older than the retention window",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			deleted, err := apiClient.Events.Purge(context.Background(), days)
			if err != nil {
				fatal("purge events", err)
			}
			output(map[string]int{"deleted": deleted}, strconv.Itoa(deleted))
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Retention in days")
	return cmd
}
