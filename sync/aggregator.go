// ABOUTME: Builds the outbound payload for one claim from its child tables
// ABOUTME: Reads every set concurrently and swaps attachment paths for signed URLs
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/storage"
)

// maxConcurrentSigns bounds in-flight signing requests per claim.
const maxConcurrentSigns = 8

// Aggregator assembles ClaimPayloads.
type Aggregator struct {
	db     *sql.DB
	signer storage.Signer
	ttl    time.Duration
	logger *zap.Logger
}

// NewAggregator creates an aggregator. A zero ttl means storage.DefaultTTL.
func NewAggregator(database *sql.DB, signer storage.Signer, ttl time.Duration, logger *zap.Logger) *Aggregator {
	if ttl <= 0 {
		ttl = storage.DefaultTTL
	}
	if signer == nil {
		signer = storage.Unconfigured{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{db: database, signer: signer, ttl: ttl, logger: logger}
}

// fetch runs one list query inside the group and stores its result in dst.
func fetch[T any](ctx context.Context, g *errgroup.Group, dst *[]T, list func(ctx context.Context) ([]T, error)) {
	g.Go(func() error {
		rows, err := list(ctx)
		if err != nil {
			return err
		}
		*dst = rows
		return nil
	})
}

// Aggregate loads claimID with all of its children. Only released payments are
// included and the partner assignment is the one scoped to linkedWorkspaceID.
// Attachment signing failures are reported per item and never fail the call.
func (a *Aggregator) Aggregate(ctx context.Context, claimID, linkedWorkspaceID string) (*ClaimPayload, error) {
	claim, err := db.GetClaim(ctx, a.db, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, notFoundf("claim %s", claimID)
	}

	p := &ClaimPayload{Claim: claim, Accounting: &AccountingData{}}
	var partner *models.PartnerAssignment

	g, gctx := errgroup.WithContext(ctx)

	fetch(gctx, g, &p.Tasks, func(ctx context.Context) ([]models.Task, error) {
		return db.ListChildren(ctx, a.db, db.Tasks, claimID)
	})
	fetch(gctx, g, &p.Updates, func(ctx context.Context) ([]models.ClaimUpdate, error) {
		return db.ListChildren(ctx, a.db, db.Updates, claimID)
	})
	fetch(gctx, g, &p.Inspections, func(ctx context.Context) ([]models.Inspection, error) {
		return db.ListChildren(ctx, a.db, db.Inspections, claimID)
	})
	fetch(gctx, g, &p.Adjusters, func(ctx context.Context) ([]models.Adjuster, error) {
		return db.ListChildren(ctx, a.db, db.Adjusters, claimID)
	})
	fetch(gctx, g, &p.Accounting.Settlements, func(ctx context.Context) ([]models.Settlement, error) {
		return db.ListChildren(ctx, a.db, db.Settlements, claimID)
	})
	fetch(gctx, g, &p.Accounting.Checks, func(ctx context.Context) ([]models.Check, error) {
		return db.ListChildren(ctx, a.db, db.Checks, claimID)
	})
	fetch(gctx, g, &p.Accounting.Expenses, func(ctx context.Context) ([]models.Expense, error) {
		return db.ListChildren(ctx, a.db, db.Expenses, claimID)
	})
	fetch(gctx, g, &p.Accounting.Fees, func(ctx context.Context) ([]models.Fee, error) {
		return db.ListChildren(ctx, a.db, db.Fees, claimID)
	})
	fetch(gctx, g, &p.Accounting.Payments, func(ctx context.Context) ([]models.Payment, error) {
		return db.ListPaymentsByDirection(ctx, a.db, claimID, models.PaymentDirectionReleased)
	})
	fetch(gctx, g, &p.Files, func(ctx context.Context) ([]models.ClaimFile, error) {
		return db.ListChildren(ctx, a.db, db.Files, claimID)
	})
	fetch(gctx, g, &p.Photos, func(ctx context.Context) ([]models.ClaimPhoto, error) {
		return db.ListChildren(ctx, a.db, db.Photos, claimID)
	})
	fetch(gctx, g, &p.Emails, func(ctx context.Context) ([]models.ClaimEmail, error) {
		return db.ListChildren(ctx, a.db, db.Emails, claimID)
	})
	g.Go(func() error {
		pa, err := db.GetPartnerAssignment(gctx, a.db, claimID, linkedWorkspaceID)
		if err != nil {
			return err
		}
		partner = pa
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate claim %s: %w", claimID, err)
	}

	if partner != nil {
		p.PartnerAssignment = &PartnerData{
			PartnerName:    partner.PartnerName,
			PartnerEmail:   partner.PartnerEmail,
			PartnerPhone:   partner.PartnerPhone,
			PartnerCompany: partner.PartnerCompany,
			Notes:          partner.Notes,
		}
	}

	a.signAttachments(ctx, p)
	return p, nil
}

// signAttachments fills SignedURL on every file and photo, or URLError when
// signing fails. Rows received from a peer have no local object; their
// remote link is passed through.
func (a *Aggregator) signAttachments(ctx context.Context, p *ClaimPayload) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentSigns)

	for i := range p.Files {
		f := &p.Files[i]
		g.Go(func() error {
			f.SignedURL, f.URLExpiresAt, f.URLError = a.sign(ctx, &f.ChildBase, f.StoragePath, f.RemoteURL, f.URLExpiresAt)
			return nil
		})
	}
	for i := range p.Photos {
		ph := &p.Photos[i]
		g.Go(func() error {
			ph.SignedURL, ph.URLExpiresAt, ph.URLError = a.sign(ctx, &ph.ChildBase, ph.StoragePath, ph.RemoteURL, ph.URLExpiresAt)
			return nil
		})
	}

	_ = g.Wait()
}

// sign returns the link to send for one attachment with its expiry, or a
// url_error. A link received from a peer is forwarded only while it is still
// valid; without a recorded expiry it is assumed to last ttl from when it
// was stored.
func (a *Aggregator) sign(ctx context.Context, base *models.ChildBase, path, remote string, remoteExpires *time.Time) (string, *time.Time, string) {
	if path == "" {
		if remote == "" {
			return "", nil, "no storage path"
		}
		expires := remoteExpires
		if expires == nil {
			at := base.UpdatedAt.Add(a.ttl)
			expires = &at
		}
		if !time.Now().Before(*expires) {
			return "", nil, "remote link expired"
		}
		return remote, expires, ""
	}

	signed, err := a.signer.SignURL(ctx, path, a.ttl)
	if err != nil {
		a.logger.Warn("signed url failed", zap.String("attachment_id", base.ID), zap.String("path", path), zap.Error(err))
		return "", nil, err.Error()
	}
	return signed.URL, &signed.ExpiresAt, ""
}
