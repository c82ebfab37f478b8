// ABOUTME: Workspace and claim database operations
// ABOUTME: Handles creation, lookup, listing and in-place updates of claim rows
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/claimsync/models"
)

func CreateWorkspace(ctx context.Context, q DBTX, ws *models.Workspace) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	ws.CreatedAt = now
	ws.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, ws.ID, ws.Name, ws.CreatedAt, ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

func GetWorkspace(ctx context.Context, q DBTX, id string) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM workspaces WHERE id = ?
	`, id).Scan(&ws.ID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return ws, nil
}

func ListWorkspaces(ctx context.Context, q DBTX) ([]models.Workspace, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM workspaces ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, ws)
	}

	return out, rows.Err()
}

const claimColumns = `id, workspace_id, claim_number, policy_number, policyholder_name,
	policyholder_email, policyholder_phone, property_address, status, amount,
	insurance_company, loss_type, loss_date, loss_description, created_at, updated_at`

func claimDest(c *models.Claim) []any {
	return []any{
		&c.ID, &c.WorkspaceID, &c.ClaimNumber, &c.PolicyNumber, &c.PolicyholderName,
		&c.PolicyholderEmail, &c.PolicyholderPhone, &c.PropertyAddress, &c.Status, &c.Amount,
		&c.InsuranceCompany, &c.LossType, &c.LossDate, &c.LossDescription, &c.CreatedAt, &c.UpdatedAt,
	}
}

// CreateClaim inserts a claim. The workspace must already exist.
func CreateClaim(ctx context.Context, q DBTX, c *models.Claim) error {
	if c.WorkspaceID == "" {
		return fmt.Errorf("claim requires a workspace")
	}
	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = models.ClaimStatusOpen
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := q.ExecContext(ctx, `INSERT INTO claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, claimDest(c)...)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

func GetClaim(ctx context.Context, q DBTX, id string) (*models.Claim, error) {
	c := &models.Claim{}
	err := q.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id).Scan(claimDest(c)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return c, nil
}

// ListClaimsByWorkspace returns every claim in a workspace, oldest first.
func ListClaimsByWorkspace(ctx context.Context, q DBTX, workspaceID string) ([]models.Claim, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE workspace_id = ?
		ORDER BY created_at, id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(claimDest(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

// UpdateClaim overwrites the mutable claim fields. Workspace and created_at never change.
func UpdateClaim(ctx context.Context, q DBTX, c *models.Claim) error {
	c.UpdatedAt = time.Now().UTC()

	res, err := q.ExecContext(ctx, `
		UPDATE claims
		SET claim_number = ?, policy_number = ?, policyholder_name = ?, policyholder_email = ?,
			policyholder_phone = ?, property_address = ?, status = ?, amount = ?,
			insurance_company = ?, loss_type = ?, loss_date = ?, loss_description = ?, updated_at = ?
		WHERE id = ?
	`, c.ClaimNumber, c.PolicyNumber, c.PolicyholderName, c.PolicyholderEmail,
		c.PolicyholderPhone, c.PropertyAddress, c.Status, c.Amount,
		c.InsuranceCompany, c.LossType, c.LossDate, c.LossDescription, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("claim not found: %s", c.ID)
	}

	return nil
}

// CountClaimsByWorkspace is used by tests and the CLI summary.
func CountClaimsByWorkspace(ctx context.Context, q DBTX, workspaceID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims WHERE workspace_id = ?`, workspaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return n, nil
}
