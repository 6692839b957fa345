package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/persistorai/isomatch/client"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}
		fmt.Println(strings.Join(parts, "  "))
	}

	printRow(headers)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(id string) {
	fmt.Println(id)
}

func output(v any, quietVal string) {
	if flagFmt == "quiet" {
		formatQuiet(quietVal)
		return
	}
	formatJSON(v)
}

// recordRows flattens match records into table rows.
func recordRows(records []client.MatchRecord) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.ResultNodeID, r.QueryNodeID, r.SubgraphIndex, r.TotalSubgraphCount}
	}
	return rows
}

// outputRecords prints a run in the selected format. The table form lists
// only the records.
func outputRecords(run *client.MatchRun, quietVal string) {
	if flagFmt == "table" {
		formatTable([]string{"resultNodeId", "queryNodeId", "subgraphIndex", "totalSubgraphCount"}, recordRows(run.Records))
		return
	}
	output(run, quietVal)
}
