// ABOUTME: Applies claim payloads received from peer instances
// ABOUTME: Upserts the claim by external reference and each child set by external id
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

// Receiver handles the target side of replication. Callers authenticate the
// request before invoking it.
type Receiver struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewReceiver(database *sql.DB, logger *zap.Logger) *Receiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{db: database, logger: logger}
}

// CreateOrUpdate applies one claim payload in a single transaction. Nothing is
// ever deleted: children missing from the payload are left alone.
func (r *Receiver) CreateOrUpdate(ctx context.Context, req *Request) (*ReceiveResult, error) {
	source := NormalizeURL(req.SourceInstanceURL)
	switch {
	case req.ExternalClaimID == "":
		return nil, invalidf("external_claim_id is required")
	case source == "":
		return nil, invalidf("source_instance_url is required")
	case req.TargetWorkspaceID == "":
		return nil, invalidf("target_workspace_id is required")
	case req.Claim == nil:
		return nil, invalidf("claim_data is required")
	}

	result := &ReceiveResult{Counts: map[string]int{}}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		ws, err := db.GetWorkspace(ctx, tx, req.TargetWorkspaceID)
		if err != nil {
			return err
		}
		if ws == nil {
			return notFoundf("workspace %s", req.TargetWorkspaceID)
		}

		claimID, created, err := r.upsertClaim(ctx, tx, ws.ID, source, req)
		if err != nil {
			return err
		}
		result.ClaimID = claimID
		result.Created = created

		return r.upsertChildren(ctx, tx, claimID, source, req, result.Counts)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("claim received",
		zap.String("source", source),
		zap.String("external_claim_id", req.ExternalClaimID),
		zap.String("claim_id", result.ClaimID),
		zap.Bool("created", result.Created))

	return result, nil
}

func (r *Receiver) upsertClaim(ctx context.Context, tx *sql.Tx, workspaceID, source string, req *Request) (string, bool, error) {
	incoming := *req.Claim

	localID, err := db.FindClaimRef(ctx, tx, source, req.ExternalClaimID)
	if err != nil {
		return "", false, err
	}

	if localID != "" {
		existing, err := db.GetClaim(ctx, tx, localID)
		if err != nil {
			return "", false, err
		}
		if existing != nil {
			incoming.ID = existing.ID
			incoming.WorkspaceID = existing.WorkspaceID
			if err := db.UpdateClaim(ctx, tx, &incoming); err != nil {
				return "", false, err
			}
			return existing.ID, false, nil
		}
	}

	incoming.WorkspaceID = workspaceID
	if err := db.CreateClaim(ctx, tx, &incoming); err != nil {
		return "", false, err
	}
	if err := db.PutClaimRef(ctx, tx, source, req.ExternalClaimID, incoming.ID); err != nil {
		return "", false, err
	}
	return incoming.ID, true, nil
}

func (r *Receiver) upsertChildren(ctx context.Context, tx *sql.Tx, claimID, source string, req *Request, counts map[string]int) error {
	// Attachments are not copied; the peer's signed url becomes our remote link.
	for i := range req.Files {
		req.Files[i].RemoteURL = req.Files[i].SignedURL
		req.Files[i].StoragePath = ""
	}
	for i := range req.Photos {
		req.Photos[i].RemoteURL = req.Photos[i].SignedURL
		req.Photos[i].StoragePath = ""
	}

	acct := req.Accounting
	if acct == nil {
		acct = &AccountingData{}
	}

	steps := []struct {
		name string
		run  func() (int, error)
	}{
		{"tasks", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Tasks, claimID, source, req.Tasks) }},
		{"updates", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Updates, claimID, source, req.Updates) }},
		{"inspections", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Inspections, claimID, source, req.Inspections) }},
		{"adjusters", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Adjusters, claimID, source, req.Adjusters) }},
		{"settlements", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Settlements, claimID, source, acct.Settlements) }},
		{"checks", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Checks, claimID, source, acct.Checks) }},
		{"expenses", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Expenses, claimID, source, acct.Expenses) }},
		{"fees", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Fees, claimID, source, acct.Fees) }},
		{"payments", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Payments, claimID, source, acct.Payments) }},
		{"files", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Files, claimID, source, req.Files) }},
		{"photos", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Photos, claimID, source, req.Photos) }},
		{"emails", func() (int, error) { return db.UpsertReceived(ctx, tx, db.Emails, claimID, source, req.Emails) }},
	}

	for _, step := range steps {
		n, err := step.run()
		if errors.Is(err, db.ErrMissingID) {
			return invalidf("%s_data: %v", step.name, err)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", step.name, err)
		}
		counts[step.name] = n
	}

	if pa := req.PartnerAssignment; pa != nil {
		err := db.PutReceivedPartnerAssignment(ctx, tx, &models.ReceivedPartnerAssignment{
			ClaimID:           claimID,
			SourceInstanceURL: source,
			PartnerName:       pa.PartnerName,
			PartnerEmail:      pa.PartnerEmail,
			PartnerPhone:      pa.PartnerPhone,
			PartnerCompany:    pa.PartnerCompany,
			Notes:             pa.Notes,
			UpdatedAt:         time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		counts["partner_assignment"] = 1
	}

	return nil
}

// LinkSecretMatches reports whether presented is the secret of an active local
// link back to the calling instance. When the request names a target
// workspace, only that workspace's link counts.
func (r *Receiver) LinkSecretMatches(ctx context.Context, req *Request, presented string) (bool, error) {
	source := NormalizeURL(req.SourceInstanceURL)
	if source == "" || presented == "" {
		return false, nil
	}

	links, err := db.ListLinksByInstanceURL(ctx, r.db, source)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.Status != models.LinkStatusActive {
			continue
		}
		if req.TargetWorkspaceID != "" && l.WorkspaceID != req.TargetWorkspaceID {
			continue
		}
		if SecretsMatch(presented, l.SyncSecret) {
			return true, nil
		}
	}
	return false, nil
}

// GetUsers returns the local user directory.
func (r *Receiver) GetUsers(ctx context.Context) ([]models.User, error) {
	return db.ListUsers(ctx, r.db)
}

// ReceiveWorkspaceInvite registers the inviting instance as a peer of the
// local target workspace. Repeated invites return the existing link.
func (r *Receiver) ReceiveWorkspaceInvite(ctx context.Context, req *Request) (*models.LinkedWorkspace, bool, error) {
	if req.TargetWorkspaceID == "" || req.InstanceURL == "" {
		return nil, false, invalidf("target_workspace_id and instance_url are required")
	}

	link, created, err := registerLink(ctx, r.db, LinkParams{
		WorkspaceID:         req.TargetWorkspaceID,
		ExternalInstanceURL: req.InstanceURL,
		ExternalWorkspaceID: req.WorkspaceID,
		InstanceName:        req.InstanceName,
		SyncSecret:          req.SyncSecret,
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		r.logger.Info("workspace invite accepted", zap.String("link_id", link.ID), zap.String("instance_url", link.ExternalInstanceURL))
	}
	return link, created, nil
}
