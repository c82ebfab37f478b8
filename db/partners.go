// ABOUTME: Partner assignment operations, scoped per linked workspace
// ABOUTME: Outbound assignments key on (claim, link); received ones on (claim, source instance)
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/claimsync/models"
)

// PutPartnerAssignment creates or replaces the assignment for (claim, linked workspace).
func PutPartnerAssignment(ctx context.Context, q DBTX, pa *models.PartnerAssignment) error {
	if pa.ClaimID == "" || pa.LinkedWorkspaceID == "" {
		return fmt.Errorf("partner assignment requires claim and linked workspace")
	}
	pa.ID = uuid.New().String()
	now := time.Now().UTC()
	pa.CreatedAt = now
	pa.UpdatedAt = now

	err := q.QueryRowContext(ctx, `
		INSERT INTO partner_assignments (id, claim_id, linked_workspace_id, partner_name, partner_email,
			partner_phone, partner_company, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, linked_workspace_id) DO UPDATE SET
			partner_name = excluded.partner_name,
			partner_email = excluded.partner_email,
			partner_phone = excluded.partner_phone,
			partner_company = excluded.partner_company,
			notes = excluded.notes,
			updated_at = excluded.updated_at
		RETURNING id
	`, pa.ID, pa.ClaimID, pa.LinkedWorkspaceID, pa.PartnerName, pa.PartnerEmail,
		pa.PartnerPhone, pa.PartnerCompany, pa.Notes, pa.CreatedAt, pa.UpdatedAt).Scan(&pa.ID)
	if err != nil {
		return fmt.Errorf("failed to save partner assignment: %w", err)
	}

	return nil
}

// GetPartnerAssignment returns the assignment visible to one linked workspace, or nil.
func GetPartnerAssignment(ctx context.Context, q DBTX, claimID, linkedWorkspaceID string) (*models.PartnerAssignment, error) {
	pa := &models.PartnerAssignment{}
	err := q.QueryRowContext(ctx, `
		SELECT id, claim_id, linked_workspace_id, partner_name, partner_email,
			partner_phone, partner_company, notes, created_at, updated_at
		FROM partner_assignments
		WHERE claim_id = ? AND linked_workspace_id = ?
	`, claimID, linkedWorkspaceID).Scan(
		&pa.ID, &pa.ClaimID, &pa.LinkedWorkspaceID, &pa.PartnerName, &pa.PartnerEmail,
		&pa.PartnerPhone, &pa.PartnerCompany, &pa.Notes, &pa.CreatedAt, &pa.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner assignment: %w", err)
	}

	return pa, nil
}

// PutReceivedPartnerAssignment stores the assignment a peer scoped to this instance.
func PutReceivedPartnerAssignment(ctx context.Context, q DBTX, rpa *models.ReceivedPartnerAssignment) error {
	rpa.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO received_partner_assignments (claim_id, source_instance_url, partner_name,
			partner_email, partner_phone, partner_company, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, source_instance_url) DO UPDATE SET
			partner_name = excluded.partner_name,
			partner_email = excluded.partner_email,
			partner_phone = excluded.partner_phone,
			partner_company = excluded.partner_company,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, rpa.ClaimID, rpa.SourceInstanceURL, rpa.PartnerName, rpa.PartnerEmail,
		rpa.PartnerPhone, rpa.PartnerCompany, rpa.Notes, rpa.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save received partner assignment: %w", err)
	}
	return nil
}

func GetReceivedPartnerAssignment(ctx context.Context, q DBTX, claimID, sourceURL string) (*models.ReceivedPartnerAssignment, error) {
	rpa := &models.ReceivedPartnerAssignment{}
	err := q.QueryRowContext(ctx, `
		SELECT claim_id, source_instance_url, partner_name, partner_email,
			partner_phone, partner_company, notes, updated_at
		FROM received_partner_assignments
		WHERE claim_id = ? AND source_instance_url = ?
	`, claimID, sourceURL).Scan(
		&rpa.ClaimID, &rpa.SourceInstanceURL, &rpa.PartnerName, &rpa.PartnerEmail,
		&rpa.PartnerPhone, &rpa.PartnerCompany, &rpa.Notes, &rpa.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get received partner assignment: %w", err)
	}

	return rpa, nil
}
