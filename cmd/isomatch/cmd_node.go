package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/isomatch/client"
)

// maxNodesPerRequest matches the server's bulk registration cap.
const maxNodesPerRequest = 1000

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage the node registry match references resolve against",
	}
	cmd.AddCommand(nodeRegisterCmd())
	cmd.AddCommand(nodeImportCmd())
	cmd.AddCommand(nodeListCmd())
	cmd.AddCommand(nodeDeleteCmd())
	return cmd
}

// readNodes decodes a JSON array of nodes from path, or stdin when path is "-".
func readNodes(path string, stdin io.Reader) ([]client.NodeRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var nodes []client.NodeRequest
	if err := json.NewDecoder(r).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return nodes, nil
}

// batchNodes splits nodes into request-sized batches.
func batchNodes(nodes []client.NodeRequest, size int) [][]client.NodeRequest {
	var batches [][]client.NodeRequest
	for start := 0; start < len(nodes); start += size {
		batches = append(batches, nodes[start:min(start+size, len(nodes))])
	}
	return batches
}

func nodeRegisterCmd() *cobra.Command {
	var nodeType, label string
	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register or update one node",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			n, err := apiClient.Nodes.Register(context.Background(), &client.NodeRequest{ID: args[0], Type: nodeType, Label: label})
			if err != nil {
				fatal("register node", err)
			}
			output(map[string]any{"registered": n}, args[0])
		},
	}
	cmd.Flags().StringVar(&nodeType, "type", "", "Node type")
	cmd.Flags().StringVar(&label, "label", "", "Node label")
	return cmd
}

func nodeImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Register nodes from a JSON array, in batches of 1000",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			nodes, err := readNodes(args[0], os.Stdin)
			if err != nil {
				fatal("read nodes", err)
			}

			total := 0
			for _, batch := range batchNodes(nodes, maxNodesPerRequest) {
				n, err := apiClient.Nodes.RegisterBulk(context.Background(), batch)
				if err != nil {
					fatal(fmt.Sprintf("import nodes (%d registered before failure)", total), err)
				}
				total += n
			}
			output(map[string]any{"registered": total, "read": len(nodes)}, fmt.Sprint(total))
		},
	}
}

func nodeListCmd() *cobra.Command {
	var nodeType string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered nodes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			nodes, hasMore, err := apiClient.Nodes.List(context.Background(), &client.NodeListOptions{
				Type: nodeType, Limit: limit, Offset: offset,
			})
			if err != nil {
				fatal("list nodes", err)
			}
			switch flagFmt {
			case "table":
				rows := make([][]string, len(nodes))
				for i, n := range nodes {
					rows[i] = []string{n.ID, n.Type, n.Label, n.UpdatedAt.Format("2006-01-02 15:04:05")}
				}
				formatTable([]string{"ID", "TYPE", "LABEL", "UPDATED"}, rows)
			case "quiet":
				for _, n := range nodes {
					formatQuiet(n.ID)
				}
			default:
				formatJSON(map[string]any{"nodes": nodes, "has_more": hasMore})
			}
		},
	}
	cmd.Flags().StringVar(&nodeType, "type", "", "Filter by node type")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset")
	return cmd
}

func nodeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a node from the registry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Nodes.Delete(context.Background(), args[0]); err != nil {
				fatal("delete node", err)
			}
			fmt.Println("deleted")
		},
	}
}
