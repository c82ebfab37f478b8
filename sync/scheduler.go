// ABOUTME: Fixed-interval scheduler for sync_all_workspaces passes
// ABOUTME: Runs inside serve when sync.interval is set
package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunEvery calls SyncAllWorkspaces on every tick until ctx is done. Passes
// never overlap; a slow pass delays the next tick.
func (i *Initiator) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i.logger.Info("scheduled sync enabled", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := i.SyncAllWorkspaces(ctx)
			if err != nil {
				i.logger.Error("scheduled sync failed", zap.Error(err))
				continue
			}
			failed := 0
			for _, lr := range out {
				failed += Failed(lr.Results)
			}
			i.logger.Info("scheduled sync finished", zap.Int("links", len(out)), zap.Int("failed_claims", failed))
		}
	}
}
