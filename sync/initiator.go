// ABOUTME: Drives replication of a workspace's claims to linked peer instances
// ABOUTME: Handles manual and scheduled passes plus link registration and revocation
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/worker"
)

// InitiatorConfig holds the settings an initiator needs from configuration.
type InitiatorConfig struct {
	// BaseURL is this instance's public url, sent as source_instance_url.
	BaseURL string
	Workers int
}

// Initiator replicates claims to peers.
type Initiator struct {
	db         *sql.DB
	aggregator *Aggregator
	sender     ClaimSender
	cfg        InitiatorConfig
	logger     *zap.Logger
}

// NewInitiator wires an initiator.
func NewInitiator(database *sql.DB, aggregator *Aggregator, sender ClaimSender, cfg InitiatorConfig, logger *zap.Logger) *Initiator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	cfg.BaseURL = NormalizeURL(cfg.BaseURL)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{db: database, aggregator: aggregator, sender: sender, cfg: cfg, logger: logger}
}

// NormalizeURL trims whitespace and trailing slashes so one peer has one spelling.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// SyncClaims pushes every claim of workspaceID to targetURL after checking
// secret against the stored link.
func (i *Initiator) SyncClaims(ctx context.Context, workspaceID, targetURL, secret string) ([]ClaimResult, error) {
	targetURL = NormalizeURL(targetURL)
	if workspaceID == "" || targetURL == "" {
		return nil, invalidf("workspace_id and target_instance_url are required")
	}
	if secret == "" {
		return nil, invalidf("sync_secret is required")
	}

	link, err := db.FindLinkedWorkspace(ctx, i.db, workspaceID, targetURL)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, notFoundf("no linked workspace for %s", targetURL)
	}
	if !SecretsMatch(secret, link.SyncSecret) {
		return nil, fmt.Errorf("%w: sync secret does not match", ErrUnauthorized)
	}
	if link.Status != models.LinkStatusActive {
		return nil, fmt.Errorf("%w: link %s is %s", ErrUnauthorized, link.ID, link.Status)
	}

	return i.syncLink(ctx, link, models.TriggerManual)
}

// SyncAllWorkspaces runs one pass per active link. A link whose pass cannot
// start is reported with an error and the loop continues.
func (i *Initiator) SyncAllWorkspaces(ctx context.Context) ([]LinkResult, error) {
	links, err := db.ListLinkedWorkspaces(ctx, i.db, models.LinkStatusActive)
	if err != nil {
		return nil, err
	}

	out := make([]LinkResult, 0, len(links))
	for _, link := range links {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		lr := LinkResult{
			LinkedWorkspaceID: link.ID,
			WorkspaceID:       link.WorkspaceID,
			TargetInstanceURL: link.ExternalInstanceURL,
		}

		results, err := i.syncLink(ctx, &link, models.TriggerCron)
		if err != nil {
			lr.Error = err.Error()
			i.logger.Error("link pass failed", zap.String("link_id", link.ID), zap.Error(err))
		}
		lr.Results = results
		out = append(out, lr)
	}

	return out, nil
}

// syncLink runs one pass for link. Per-claim failures are data; last_synced_at
// is stamped once the pass has run, whatever the individual outcomes.
func (i *Initiator) syncLink(ctx context.Context, link *models.LinkedWorkspace, trigger string) ([]ClaimResult, error) {
	log := i.logger.With(zap.String("link_id", link.ID), zap.String("target", link.ExternalInstanceURL), zap.String("trigger", trigger))

	run, err := db.StartSyncRun(ctx, i.db, link.ID, trigger)
	if err != nil {
		return nil, err
	}

	claims, err := i.outboundClaims(ctx, link)
	if err != nil {
		i.finishRun(ctx, run, nil)
		return nil, err
	}

	log.Info("sync pass started", zap.Int("claims", len(claims)))

	results, mapErr := worker.Map(ctx, i.cfg.Workers, claims, func(ctx context.Context, c models.Claim) ClaimResult {
		return i.syncClaim(ctx, link, c.ID)
	})
	for idx := range results {
		if results[idx].ClaimID == "" {
			results[idx] = ClaimResult{ClaimID: claims[idx].ID, Error: "sync cancelled"}
		}
	}

	// The stamp must land even if the caller's context ended mid-pass.
	bg := context.WithoutCancel(ctx)
	if err := db.TouchLinkedWorkspaceSynced(bg, i.db, link.ID, time.Now().UTC()); err != nil {
		log.Error("failed to stamp last_synced_at", zap.Error(err))
	}
	i.finishRun(bg, run, results)

	log.Info("sync pass finished", zap.Int("succeeded", run.Succeeded), zap.Int("failed", run.Failed))

	if mapErr != nil && !errors.Is(mapErr, context.Canceled) && !errors.Is(mapErr, context.DeadlineExceeded) {
		return results, mapErr
	}
	return results, nil
}

// outboundClaims lists the workspace's claims minus those received from the
// link's own peer, so a two-way link never sends a copy back to its origin.
func (i *Initiator) outboundClaims(ctx context.Context, link *models.LinkedWorkspace) ([]models.Claim, error) {
	claims, err := db.ListClaimsByWorkspace(ctx, i.db, link.WorkspaceID)
	if err != nil {
		return nil, err
	}

	received, err := db.ClaimIDsFromSource(ctx, i.db, NormalizeURL(link.ExternalInstanceURL))
	if err != nil {
		return nil, err
	}
	if len(received) == 0 {
		return claims, nil
	}

	out := claims[:0]
	for _, c := range claims {
		if !received[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (i *Initiator) finishRun(ctx context.Context, run *models.SyncRun, results []ClaimResult) {
	run.Failed = Failed(results)
	run.Succeeded = len(results) - run.Failed
	if err := db.FinishSyncRun(ctx, i.db, run); err != nil {
		i.logger.Error("failed to record sync run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (i *Initiator) syncClaim(ctx context.Context, link *models.LinkedWorkspace, claimID string) ClaimResult {
	res := ClaimResult{ClaimID: claimID}

	payload, err := i.aggregator.Aggregate(ctx, claimID, link.ID)
	if err != nil {
		res.Error = err.Error()
		i.logger.Warn("aggregate failed", zap.String("claim_id", claimID), zap.Error(err))
		return res
	}

	req := &Request{
		ClaimPayload:      *payload,
		ExternalClaimID:   claimID,
		SourceInstanceURL: i.cfg.BaseURL,
		TargetWorkspaceID: link.ExternalWorkspaceID,
	}

	remote, err := i.sender.SendClaim(ctx, link.ExternalInstanceURL, link.SyncSecret, req)
	if err != nil {
		res.Error = err.Error()
		i.logger.Warn("claim sync failed", zap.String("claim_id", claimID), zap.Error(err))
		return res
	}

	res.Success = true
	res.RemoteClaimID = remote.ClaimID
	res.Created = remote.Created
	return res
}

// LinkParams describes a link to register.
type LinkParams struct {
	WorkspaceID         string
	ExternalInstanceURL string
	ExternalWorkspaceID string
	InstanceName        string
	SyncSecret          string
}

// RegisterLink creates the link for (workspace, url) or returns the existing
// one with created=false.
func (i *Initiator) RegisterLink(ctx context.Context, p LinkParams) (*models.LinkedWorkspace, bool, error) {
	return registerLink(ctx, i.db, p)
}

func registerLink(ctx context.Context, database *sql.DB, p LinkParams) (*models.LinkedWorkspace, bool, error) {
	p.ExternalInstanceURL = NormalizeURL(p.ExternalInstanceURL)
	if p.WorkspaceID == "" || p.ExternalInstanceURL == "" {
		return nil, false, invalidf("workspace_id and external_instance_url are required")
	}
	if p.SyncSecret == "" {
		return nil, false, invalidf("sync_secret is required")
	}

	var link *models.LinkedWorkspace
	created := false

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		ws, err := db.GetWorkspace(ctx, tx, p.WorkspaceID)
		if err != nil {
			return err
		}
		if ws == nil {
			return notFoundf("workspace %s", p.WorkspaceID)
		}

		existing, err := db.FindLinkedWorkspace(ctx, tx, p.WorkspaceID, p.ExternalInstanceURL)
		if err != nil {
			return err
		}
		if existing != nil {
			link = existing
			return nil
		}

		link = &models.LinkedWorkspace{
			WorkspaceID:         p.WorkspaceID,
			ExternalInstanceURL: p.ExternalInstanceURL,
			ExternalWorkspaceID: p.ExternalWorkspaceID,
			InstanceName:        p.InstanceName,
			SyncSecret:          p.SyncSecret,
		}
		created = true
		return db.CreateLinkedWorkspace(ctx, tx, link)
	})
	if err != nil {
		return nil, false, err
	}

	return link, created, nil
}

// RevokeLink deactivates a link. Inactive links fail sync_claims and are
// skipped by scheduled passes; the row itself is kept.
func (i *Initiator) RevokeLink(ctx context.Context, linkID string) error {
	if linkID == "" {
		return invalidf("linked_workspace_id is required")
	}

	err := db.SetLinkedWorkspaceStatus(ctx, i.db, linkID, models.LinkStatusInactive)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundf("linked workspace %s", linkID)
	}
	return err
}
