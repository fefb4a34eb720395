package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coolify-mcp/internal/mcp"
)

// newToolsCmd prints the tool catalog. It needs no configuration.
func newToolsCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := json.MarshalIndent(mcp.ListToolsResult{Tools: mcp.NewRegistry().Tools()}, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding catalog: %w", err)
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		},
	}
}
