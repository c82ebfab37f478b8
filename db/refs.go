// ABOUTME: External claim reference mapping for received claims
// ABOUTME: Maps (source instance, remote claim id) to the local claim row
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FindClaimRef returns the local claim id for a remote claim, or "" if unmapped.
func FindClaimRef(ctx context.Context, q DBTX, sourceURL, externalClaimID string) (string, error) {
	var claimID string
	err := q.QueryRowContext(ctx, `
		SELECT claim_id FROM claim_refs
		WHERE source_instance_url = ? AND external_claim_id = ?
	`, sourceURL, externalClaimID).Scan(&claimID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up claim ref: %w", err)
	}

	return claimID, nil
}

// PutClaimRef records or refreshes the mapping for a remote claim.
func PutClaimRef(ctx context.Context, q DBTX, sourceURL, externalClaimID, claimID string) error {
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO claim_refs (source_instance_url, external_claim_id, claim_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_instance_url, external_claim_id) DO UPDATE SET
			claim_id = excluded.claim_id,
			updated_at = excluded.updated_at
	`, sourceURL, externalClaimID, claimID, now, now)
	if err != nil {
		return fmt.Errorf("failed to save claim ref: %w", err)
	}
	return nil
}

// ClaimIDsFromSource returns the local ids of every claim received from sourceURL.
func ClaimIDsFromSource(ctx context.Context, q DBTX, sourceURL string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT claim_id FROM claim_refs WHERE source_instance_url = ?
	`, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list claim refs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan claim ref: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}
