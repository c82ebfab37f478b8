// ABOUTME: Overview commands: text statistics and the link topology graph
// ABOUTME: Graph output is DOT by default, or SVG written to a file
package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/harperreed/claimsync/viz"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show claim and link statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := viz.GenerateDashboardStats(background(cmd), e.db)
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s", viz.RenderDashboard(stats))
			return nil
		},
	}
}

func newLinkGraphCmd(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render workspaces and their peers as a graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			var gvFormat graphviz.Format
			switch format {
			case "dot":
				gvFormat = graphviz.XDOT
			case "svg":
				gvFormat = graphviz.SVG
			default:
				return fmt.Errorf("unsupported format %q (use dot or svg)", format)
			}

			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			rendered, err := viz.NewGraphGenerator(e.db).GenerateLinkGraph(background(cmd), gvFormat)
			if err != nil {
				return err
			}

			if output == "" {
				printf(cmd.OutOrStdout(), "%s", rendered)
				return nil
			}
			if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("failed to write graph: %w", err)
			}
			printf(cmd.OutOrStdout(), "%s Graph written to %s\n", okStyle.Render("✓"), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
