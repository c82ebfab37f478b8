// ABOUTME: Database operations for the sync_runs table
// ABOUTME: Records each initiator pass per linked workspace with success and failure counts
package db

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/harperreed/claimsync/models"
	"github.com/oklog/ulid/v2"
)

// NewRunID returns a time-sortable id for a sync run.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// StartSyncRun inserts an open run row.
func StartSyncRun(ctx context.Context, q DBTX, linkID, trigger string) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:                NewRunID(),
		LinkedWorkspaceID: linkID,
		Trigger:           trigger,
		StartedAt:         time.Now().UTC(),
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO sync_runs (id, linked_workspace_id, trigger_type, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.LinkedWorkspaceID, run.Trigger, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start sync run: %w", err)
	}

	return run, nil
}

// FinishSyncRun closes a run with its tallies.
func FinishSyncRun(ctx context.Context, q DBTX, run *models.SyncRun) error {
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	_, err := q.ExecContext(ctx, `
		UPDATE sync_runs SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?
	`, finished, run.Succeeded, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	return nil
}

// ListSyncRuns returns the most recent runs for a link.
func ListSyncRuns(ctx context.Context, q DBTX, linkID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, linked_workspace_id, trigger_type, started_at, finished_at, succeeded, failed
		FROM sync_runs
		WHERE linked_workspace_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var finished sql.NullTime

		if err := rows.Scan(&run.ID, &run.LinkedWorkspaceID, &run.Trigger, &run.StartedAt,
			&finished, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if finished.Valid {
			run.FinishedAt = &finished.Time
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
