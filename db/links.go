// ABOUTME: Linked workspace database operations
// ABOUTME: Registers peer instances, looks them up by pair, and stamps last sync times
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/claimsync/models"
)

const linkColumns = `id, workspace_id, external_instance_url, external_workspace_id, instance_name,
	sync_secret, status, last_synced_at, created_at, updated_at`

func linkDest(l *models.LinkedWorkspace) []any {
	return []any{
		&l.ID, &l.WorkspaceID, &l.ExternalInstanceURL, &l.ExternalWorkspaceID, &l.InstanceName,
		&l.SyncSecret, &l.Status, &l.LastSyncedAt, &l.CreatedAt, &l.UpdatedAt,
	}
}

// CreateLinkedWorkspace inserts a new link. The (workspace, url) pair is unique;
// callers wanting idempotency should look the pair up first.
func CreateLinkedWorkspace(ctx context.Context, q DBTX, l *models.LinkedWorkspace) error {
	l.ID = uuid.New().String()
	if l.Status == "" {
		l.Status = models.LinkStatusActive
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := q.ExecContext(ctx, `INSERT INTO linked_workspaces (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, linkDest(l)...)
	if err != nil {
		return fmt.Errorf("failed to create linked workspace: %w", err)
	}

	return nil
}

func GetLinkedWorkspace(ctx context.Context, q DBTX, id string) (*models.LinkedWorkspace, error) {
	return scanLink(q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM linked_workspaces WHERE id = ?`, id))
}

// FindLinkedWorkspace looks a link up by its (workspace, external url) pair.
func FindLinkedWorkspace(ctx context.Context, q DBTX, workspaceID, externalURL string) (*models.LinkedWorkspace, error) {
	return scanLink(q.QueryRowContext(ctx, `
		SELECT `+linkColumns+` FROM linked_workspaces
		WHERE workspace_id = ? AND external_instance_url = ?
	`, workspaceID, externalURL))
}

// ListLinksByInstanceURL returns every link, in any workspace, to one peer instance.
func ListLinksByInstanceURL(ctx context.Context, q DBTX, externalURL string) ([]models.LinkedWorkspace, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM linked_workspaces
		WHERE external_instance_url = ?
		ORDER BY created_at, id
	`, externalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list links for %s: %w", externalURL, err)
	}
	defer func() { _ = rows.Close() }()

	var links []models.LinkedWorkspace
	for rows.Next() {
		var l models.LinkedWorkspace
		if err := rows.Scan(linkDest(&l)...); err != nil {
			return nil, fmt.Errorf("failed to scan linked workspace: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

func scanLink(row *sql.Row) (*models.LinkedWorkspace, error) {
	l := &models.LinkedWorkspace{}
	err := row.Scan(linkDest(l)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked workspace: %w", err)
	}
	return l, nil
}

// ListLinkedWorkspaces returns links filtered by status; an empty status returns all.
func ListLinkedWorkspaces(ctx context.Context, q DBTX, status string) ([]models.LinkedWorkspace, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = q.QueryContext(ctx, `
			SELECT `+linkColumns+` FROM linked_workspaces
			WHERE status = ?
			ORDER BY created_at, id
		`, status)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT `+linkColumns+` FROM linked_workspaces
			ORDER BY created_at, id
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list linked workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []models.LinkedWorkspace
	for rows.Next() {
		var l models.LinkedWorkspace
		if err := rows.Scan(linkDest(&l)...); err != nil {
			return nil, fmt.Errorf("failed to scan linked workspace: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

// TouchLinkedWorkspaceSynced stamps last_synced_at. It is a plain update with no
// version check, so overlapping passes leave whichever finished last.
func TouchLinkedWorkspaceSynced(ctx context.Context, q DBTX, id string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE linked_workspaces SET last_synced_at = ?, updated_at = ? WHERE id = ?
	`, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_synced_at: %w", err)
	}
	return nil
}

func SetLinkedWorkspaceStatus(ctx context.Context, q DBTX, id, status string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE linked_workspaces SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update link status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func CountLinkedWorkspaces(ctx context.Context, q DBTX) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM linked_workspaces`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count linked workspaces: %w", err)
	}
	return n, nil
}
