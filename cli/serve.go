// ABOUTME: serve command running the sync webhooks and the optional scheduler
// ABOUTME: Shuts down cleanly on SIGINT or SIGTERM
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harperreed/claimsync/sync"
	"github.com/harperreed/claimsync/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the claim-sync and workspace-sync webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if addr != "" {
				e.cfg.ListenAddr = addr
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			initiator := e.initiator(ctx, e.peerClient())
			receiver := sync.NewReceiver(e.db, e.logger)

			server := web.NewServer(initiator, receiver, web.Secrets{
				ServiceKey:          e.cfg.ServiceKey,
				CronSecret:          e.cfg.CronSecret,
				ClaimSyncSecret:     e.cfg.ClaimSyncSecret,
				WorkspaceSyncSecret: e.cfg.WorkspaceSyncSecret,
			}, e.logger)

			if e.cfg.Sync.Interval > 0 {
				go initiator.RunEvery(ctx, e.cfg.Sync.Interval)
			}

			e.logger.Info("starting claimsync",
				zap.String("base_url", e.cfg.BaseURL),
				zap.String("database", e.cfg.DatabasePath),
				zap.Int("workers", e.cfg.Sync.Workers))

			return server.Start(ctx, e.cfg.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides listen_addr")
	return cmd
}

// background is used by commands that run to completion without signal handling.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
