package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/isomatch/client"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Submit and inspect match runs",
	}
	cmd.AddCommand(matchSubmitCmd())
	cmd.AddCommand(matchGetCmd())
	cmd.AddCommand(matchListCmd())
	cmd.AddCommand(matchRecordsCmd())
	cmd.AddCommand(matchDeleteCmd())
	return cmd
}

// readSubmitRequest decodes a submission from path, or stdin when path is "-".
func readSubmitRequest(path string, stdin io.Reader) (*client.SubmitRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var req client.SubmitRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &req, nil
}

func matchSubmitCmd() *cobra.Command {
	var pattern, onInvalid, source string
	cmd := &cobra.Command{
		Use:   "submit <file|->",
		Short: "Submit embeddings from a JSON file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req, err := readSubmitRequest(args[0], os.Stdin)
			if err != nil {
				fatal("read submission", err)
			}
			if pattern != "" {
				req.Pattern = pattern
			}
			if onInvalid != "" {
				req.OnInvalid = onInvalid
			}
			if source != "" {
				req.Source = source
			}

			run, err := apiClient.Matches.Submit(context.Background(), req)
			if err != nil {
				if client.IsInvalidReference(err) {
					fatal("submit (retry with --on-invalid=skip to drop disposed nodes)", err)
				}
				fatal("submit", err)
			}
			outputRecords(run, run.ID)
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "Pattern name")
	cmd.Flags().StringVar(&onInvalid, "on-invalid", "", "Policy for disposed nodes: abort|skip")
	cmd.Flags().StringVar(&source, "source", "", "Name of the engine that produced the embeddings")
	return cmd
}

func matchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a run with its records",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run, err := apiClient.Matches.Get(context.Background(), args[0])
			if err != nil {
				fatal("get run", err)
			}
			outputRecords(run, run.ID)
		},
	}
}

func matchListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runs, hasMore, err := apiClient.Matches.List(context.Background(), &client.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				fatal("list runs", err)
			}
			switch flagFmt {
			case "table":
				rows := make([][]string, len(runs))
				for i, r := range runs {
					rows[i] = []string{
						r.ID,
						r.Pattern,
						strconv.Itoa(r.TotalSubgraphs),
						strconv.Itoa(r.RecordCount),
						strconv.Itoa(r.SkippedRecords),
						r.CreatedAt.Format("2006-01-02 15:04:05"),
					}
				}
				formatTable([]string{"ID", "PATTERN", "SUBGRAPHS", "RECORDS", "SKIPPED", "CREATED"}, rows)
			case "quiet":
				for _, r := range runs {
					formatQuiet(r.ID)
				}
			default:
				formatJSON(map[string]any{"runs": runs, "has_more": hasMore})
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset")
	return cmd
}

func matchRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records <id>",
		Short: "Print a run's records as a table",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			table, err := apiClient.Matches.Records(context.Background(), args[0])
			if err != nil {
				fatal("get records", err)
			}
			if flagFmt == "json" {
				formatJSON(table)
				return
			}
			formatTable(table.Columns, table.Rows)
		},
	}
}

func matchDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Matches.Delete(context.Background(), args[0]); err != nil {
				fatal("delete run", err)
			}
			fmt.Println("deleted")
		},
	}
}
