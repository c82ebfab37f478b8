// ABOUTME: Linked workspace MCP tool handlers
// ABOUTME: Implements list_links, sync_link and list_sync_runs
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/sync"
)

// Syncer runs one pass for a link. *sync.Initiator satisfies it.
type Syncer interface {
	SyncClaims(ctx context.Context, workspaceID, targetURL, secret string) ([]sync.ClaimResult, error)
}

type LinkHandlers struct {
	db     *sql.DB
	syncer Syncer
}

func NewLinkHandlers(database *sql.DB, syncer Syncer) *LinkHandlers {
	return &LinkHandlers{db: database, syncer: syncer}
}

type ListLinksInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active or inactive"`
}

type LinkOutput struct {
	ID                  string  `json:"id"`
	WorkspaceID         string  `json:"workspace_id"`
	ExternalInstanceURL string  `json:"external_instance_url"`
	ExternalWorkspaceID string  `json:"external_workspace_id,omitempty"`
	InstanceName        string  `json:"instance_name,omitempty"`
	Status              string  `json:"status"`
	LastSyncedAt        *string `json:"last_synced_at,omitempty"`
}

type ListLinksOutput struct {
	Links []LinkOutput `json:"links"`
	Count int          `json:"count"`
}

func (h *LinkHandlers) ListLinks(ctx context.Context, _ *mcp.CallToolRequest, input ListLinksInput) (*mcp.CallToolResult, ListLinksOutput, error) {
	links, err := db.ListLinkedWorkspaces(ctx, h.db, input.Status)
	if err != nil {
		return nil, ListLinksOutput{}, fmt.Errorf("failed to list links: %w", err)
	}

	out := ListLinksOutput{Links: make([]LinkOutput, 0, len(links))}
	for _, l := range links {
		lo := LinkOutput{
			ID:                  l.ID,
			WorkspaceID:         l.WorkspaceID,
			ExternalInstanceURL: l.ExternalInstanceURL,
			ExternalWorkspaceID: l.ExternalWorkspaceID,
			InstanceName:        l.InstanceName,
			Status:              l.Status,
		}
		if l.LastSyncedAt != nil {
			s := l.LastSyncedAt.Format(time.RFC3339)
			lo.LastSyncedAt = &s
		}
		out.Links = append(out.Links, lo)
	}
	out.Count = len(out.Links)

	return nil, out, nil
}

type SyncLinkInput struct {
	LinkedWorkspaceID string `json:"linked_workspace_id" jsonschema:"Linked workspace ID (required)"`
}

type SyncLinkOutput struct {
	Results []sync.ClaimResult `json:"results"`
	Failed  int                `json:"failed"`
}

// SyncLink pushes every claim of the link's workspace using the stored secret.
func (h *LinkHandlers) SyncLink(ctx context.Context, _ *mcp.CallToolRequest, input SyncLinkInput) (*mcp.CallToolResult, SyncLinkOutput, error) {
	if input.LinkedWorkspaceID == "" {
		return nil, SyncLinkOutput{}, fmt.Errorf("linked_workspace_id is required")
	}

	link, err := db.GetLinkedWorkspace(ctx, h.db, input.LinkedWorkspaceID)
	if err != nil {
		return nil, SyncLinkOutput{}, err
	}
	if link == nil {
		return nil, SyncLinkOutput{}, fmt.Errorf("linked workspace not found: %s", input.LinkedWorkspaceID)
	}

	results, err := h.syncer.SyncClaims(ctx, link.WorkspaceID, link.ExternalInstanceURL, link.SyncSecret)
	if err != nil {
		return nil, SyncLinkOutput{}, err
	}

	return nil, SyncLinkOutput{Results: results, Failed: sync.Failed(results)}, nil
}

type ListSyncRunsInput struct {
	LinkedWorkspaceID string `json:"linked_workspace_id" jsonschema:"Linked workspace ID (required)"`
	Limit             int    `json:"limit,omitempty" jsonschema:"Maximum runs to return (default 10)"`
}

type SyncRunOutput struct {
	ID         string  `json:"id"`
	Trigger    string  `json:"trigger"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
}

type ListSyncRunsOutput struct {
	Runs []SyncRunOutput `json:"runs"`
}

func (h *LinkHandlers) ListSyncRuns(ctx context.Context, _ *mcp.CallToolRequest, input ListSyncRunsInput) (*mcp.CallToolResult, ListSyncRunsOutput, error) {
	if input.LinkedWorkspaceID == "" {
		return nil, ListSyncRunsOutput{}, fmt.Errorf("linked_workspace_id is required")
	}

	runs, err := db.ListSyncRuns(ctx, h.db, input.LinkedWorkspaceID, input.Limit)
	if err != nil {
		return nil, ListSyncRunsOutput{}, err
	}

	out := ListSyncRunsOutput{Runs: make([]SyncRunOutput, 0, len(runs))}
	for _, r := range runs {
		ro := SyncRunOutput{
			ID:        r.ID,
			Trigger:   r.Trigger,
			StartedAt: r.StartedAt.Format(time.RFC3339),
			Succeeded: r.Succeeded,
			Failed:    r.Failed,
		}
		if r.FinishedAt != nil {
			s := r.FinishedAt.Format(time.RFC3339)
			ro.FinishedAt = &s
		}
		out.Runs = append(out.Runs, ro)
	}

	return nil, out, nil
}
