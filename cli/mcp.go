// ABOUTME: MCP server subcommand
// ABOUTME: Serves claim and link tools over stdio for assistant integration
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/claimsync/handlers"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := requireBaseURL(e.cfg); err != nil {
				return err
			}

			ctx := background(cmd)
			server := handlers.NewServer(e.db, e.initiator(ctx, e.peerClient()), Version)

			e.logger.Info("starting MCP server")
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
