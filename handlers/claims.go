// ABOUTME: Claim MCP tool handlers
// ABOUTME: Implements list_claims and get_claim over the local database
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

type ClaimHandlers struct {
	db *sql.DB
}

func NewClaimHandlers(database *sql.DB) *ClaimHandlers {
	return &ClaimHandlers{db: database}
}

type ListClaimsInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"Workspace ID (required)"`
}

type ClaimOutput struct {
	ID               string `json:"id"`
	ClaimNumber      string `json:"claim_number,omitempty"`
	PolicyholderName string `json:"policyholder_name"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	InsuranceCompany string `json:"insurance_company,omitempty"`
	LossType         string `json:"loss_type,omitempty"`
	UpdatedAt        string `json:"updated_at"`
}

type ListClaimsOutput struct {
	Claims []ClaimOutput `json:"claims"`
	Count  int           `json:"count"`
}

func (h *ClaimHandlers) ListClaims(ctx context.Context, _ *mcp.CallToolRequest, input ListClaimsInput) (*mcp.CallToolResult, ListClaimsOutput, error) {
	if input.WorkspaceID == "" {
		return nil, ListClaimsOutput{}, fmt.Errorf("workspace_id is required")
	}

	claims, err := db.ListClaimsByWorkspace(ctx, h.db, input.WorkspaceID)
	if err != nil {
		return nil, ListClaimsOutput{}, fmt.Errorf("failed to list claims: %w", err)
	}

	out := ListClaimsOutput{Claims: make([]ClaimOutput, 0, len(claims))}
	for i := range claims {
		out.Claims = append(out.Claims, claimToOutput(&claims[i]))
	}
	out.Count = len(out.Claims)

	return nil, out, nil
}

type GetClaimInput struct {
	ClaimID string `json:"claim_id" jsonschema:"Claim ID (required)"`
}

type GetClaimOutput struct {
	Claim    ClaimOutput    `json:"claim"`
	Children map[string]int `json:"children"`
}

func (h *ClaimHandlers) GetClaim(ctx context.Context, _ *mcp.CallToolRequest, input GetClaimInput) (*mcp.CallToolResult, GetClaimOutput, error) {
	if input.ClaimID == "" {
		return nil, GetClaimOutput{}, fmt.Errorf("claim_id is required")
	}

	claim, err := db.GetClaim(ctx, h.db, input.ClaimID)
	if err != nil {
		return nil, GetClaimOutput{}, err
	}
	if claim == nil {
		return nil, GetClaimOutput{}, fmt.Errorf("claim not found: %s", input.ClaimID)
	}

	counts, err := db.ClaimChildCounts(ctx, h.db, claim.ID)
	if err != nil {
		return nil, GetClaimOutput{}, err
	}

	out := GetClaimOutput{Claim: claimToOutput(claim), Children: make(map[string]int, len(counts))}
	for _, c := range counts {
		out.Children[c.Table] = c.Count
	}

	return nil, out, nil
}

func claimToOutput(c *models.Claim) ClaimOutput {
	return ClaimOutput{
		ID:               c.ID,
		ClaimNumber:      c.ClaimNumber,
		PolicyholderName: c.PolicyholderName,
		Status:           c.Status,
		Amount:           c.Amount,
		InsuranceCompany: c.InsuranceCompany,
		LossType:         c.LossType,
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
}
