// ABOUTME: MCP server exposing claim and link tools
// ABOUTME: Lets an assistant inspect claims and trigger syncs over stdio
package handlers

import (
	"database/sql"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer registers every claimsync tool on a fresh MCP server.
func NewServer(database *sql.DB, syncer Syncer, version string) *mcp.Server {
	claimHandlers := NewClaimHandlers(database)
	linkHandlers := NewLinkHandlers(database, syncer)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "claimsync",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_claims",
		Description: "List the claims of a workspace",
	}, claimHandlers.ListClaims)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_claim",
		Description: "Get a claim with the number of tasks, inspections, payments, files and other child records it carries",
	}, claimHandlers.GetClaim)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_links",
		Description: "List linked workspaces on peer instances, optionally filtered by status",
	}, linkHandlers.ListLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_link",
		Description: "Push every claim of a linked workspace to its peer now and report per-claim results",
	}, linkHandlers.SyncLink)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sync_runs",
		Description: "Show recent sync passes for a linked workspace",
	}, linkHandlers.ListSyncRuns)

	return server
}
