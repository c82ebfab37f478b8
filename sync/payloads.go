// ABOUTME: Wire format exchanged between instances on the sync webhooks
// ABOUTME: One Request struct carries every action; child sets travel as *_data arrays
package sync

import "github.com/harperreed/claimsync/models"

// Webhook paths relative to an instance base url.
const (
	ClaimSyncPath     = "/functions/v1/claim-sync-webhook"
	WorkspaceSyncPath = "/functions/v1/workspace-sync"
)

// Actions understood by the webhooks.
const (
	ActionCreateOrUpdate         = "create_or_update"
	ActionGetUsers               = "get_users"
	ActionRegisterLink           = "register_link"
	ActionSyncClaims             = "sync_claims"
	ActionReceiveWorkspaceInvite = "receive_workspace_invite"
	ActionSyncAllWorkspaces      = "sync_all_workspaces"
	ActionRevokeLink             = "revoke_link"
)

// Header names carrying shared secrets.
const (
	HeaderClaimSyncSecret     = "x-claim-sync-secret"
	HeaderWorkspaceSyncSecret = "x-workspace-sync-secret"
	HeaderCronSecret          = "x-cron-secret"
)

// AccountingData groups the money-related child sets.
type AccountingData struct {
	Settlements []models.Settlement `json:"settlements"`
	Checks      []models.Check      `json:"checks"`
	Expenses    []models.Expense    `json:"expenses"`
	Fees        []models.Fee        `json:"fees"`
	Payments    []models.Payment    `json:"payments"`
}

// PartnerData is the partner assignment as seen by one peer.
type PartnerData struct {
	PartnerName    string `json:"partner_name"`
	PartnerEmail   string `json:"partner_email,omitempty"`
	PartnerPhone   string `json:"partner_phone,omitempty"`
	PartnerCompany string `json:"partner_company,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// ClaimPayload is one claim plus every child set, as built by the aggregator.
type ClaimPayload struct {
	Claim             *models.Claim        `json:"claim_data,omitempty"`
	Tasks             []models.Task        `json:"tasks_data,omitempty"`
	Updates           []models.ClaimUpdate `json:"updates_data,omitempty"`
	Inspections       []models.Inspection  `json:"inspections_data,omitempty"`
	Adjusters         []models.Adjuster    `json:"adjusters_data,omitempty"`
	Accounting        *AccountingData      `json:"accounting_data,omitempty"`
	Files             []models.ClaimFile   `json:"files_data,omitempty"`
	Photos            []models.ClaimPhoto  `json:"photos_data,omitempty"`
	Emails            []models.ClaimEmail  `json:"emails_data,omitempty"`
	PartnerAssignment *PartnerData         `json:"partner_assignment,omitempty"`
}

// Request is the body of every webhook call. Fields unused by an action are omitted.
type Request struct {
	Action string `json:"action"`

	ClaimPayload
	ExternalClaimID   string `json:"external_claim_id,omitempty"`
	SourceInstanceURL string `json:"source_instance_url,omitempty"`
	TargetWorkspaceID string `json:"target_workspace_id,omitempty"`

	WorkspaceID         string `json:"workspace_id,omitempty"`
	TargetInstanceURL   string `json:"target_instance_url,omitempty"`
	ExternalInstanceURL string `json:"external_instance_url,omitempty"`
	ExternalWorkspaceID string `json:"external_workspace_id,omitempty"`
	InstanceName        string `json:"instance_name,omitempty"`
	InstanceURL         string `json:"instance_url,omitempty"`
	SyncSecret          string `json:"sync_secret,omitempty"`
	LinkedWorkspaceID   string `json:"linked_workspace_id,omitempty"`
}

// ReceiveResult reports what create_or_update did on the target.
type ReceiveResult struct {
	ClaimID string         `json:"claim_id"`
	Created bool           `json:"created"`
	Counts  map[string]int `json:"counts"`
}

// ClaimResult is the per-claim outcome of a sync pass.
type ClaimResult struct {
	ClaimID       string `json:"claim_id"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	RemoteClaimID string `json:"remote_claim_id,omitempty"`
	Created       bool   `json:"created,omitempty"`
}

// LinkResult is the outcome of one link's pass inside sync_all_workspaces.
type LinkResult struct {
	LinkedWorkspaceID string        `json:"linked_workspace_id"`
	WorkspaceID       string        `json:"workspace_id"`
	TargetInstanceURL string        `json:"target_instance_url"`
	Results           []ClaimResult `json:"results"`
	Error             string        `json:"error,omitempty"`
}

// Failed counts unsuccessful claim results.
func Failed(results []ClaimResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
