// ABOUTME: dashboard command launching the terminal UI
// ABOUTME: Runs with a no-op logger so log lines do not tear the screen
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harperreed/claimsync/tui"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive view of linked workspaces and sync history",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := requireBaseURL(e.cfg); err != nil {
				return err
			}

			// Log lines would tear the full-screen view.
			e.logger = zap.NewNop()
			return tui.Run(e.db, e.initiator(background(cmd), e.peerClient()))
		},
	}
}
