// ABOUTME: Data models for claims, linked workspaces and claim child records
// ABOUTME: Shared by the db layer, the sync payloads and the webhook server
package models

import (
	"time"
)

type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claim is the root record. Amount is stored in cents.
type Claim struct {
	ID                string     `json:"id"`
	WorkspaceID       string     `json:"workspace_id"`
	ClaimNumber       string     `json:"claim_number,omitempty"`
	PolicyNumber      string     `json:"policy_number,omitempty"`
	PolicyholderName  string     `json:"policyholder_name"`
	PolicyholderEmail string     `json:"policyholder_email,omitempty"`
	PolicyholderPhone string     `json:"policyholder_phone,omitempty"`
	PropertyAddress   string     `json:"property_address,omitempty"`
	Status            string     `json:"status"`
	Amount            int64      `json:"amount,omitempty"`
	InsuranceCompany  string     `json:"insurance_company,omitempty"`
	LossType          string     `json:"loss_type,omitempty"`
	LossDate          *time.Time `json:"loss_date,omitempty"`
	LossDescription   string     `json:"loss_description,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Claim status values used by the CRM. Status is free text; these are the common ones.
const (
	ClaimStatusOpen       = "open"
	ClaimStatusInProgress = "in_progress"
	ClaimStatusSettled    = "settled"
	ClaimStatusClosed     = "closed"
)

// LinkedWorkspace is a trust relationship between a local workspace and a peer instance.
// ExternalWorkspaceID names the workspace on the peer that receives our claims.
type LinkedWorkspace struct {
	ID                  string     `json:"id"`
	WorkspaceID         string     `json:"workspace_id"`
	ExternalInstanceURL string     `json:"external_instance_url"`
	ExternalWorkspaceID string     `json:"external_workspace_id,omitempty"`
	InstanceName        string     `json:"instance_name,omitempty"`
	SyncSecret          string     `json:"-"`
	Status              string     `json:"status"`
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Link status constants.
const (
	LinkStatusActive   = "active"
	LinkStatusInactive = "inactive"
)

// PartnerAssignment ties a sales/referral partner to a claim for one linked workspace.
type PartnerAssignment struct {
	ID                string    `json:"id"`
	ClaimID           string    `json:"claim_id"`
	LinkedWorkspaceID string    `json:"linked_workspace_id,omitempty"`
	PartnerName       string    `json:"partner_name"`
	PartnerEmail      string    `json:"partner_email,omitempty"`
	PartnerPhone      string    `json:"partner_phone,omitempty"`
	PartnerCompany    string    `json:"partner_company,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ReceivedPartnerAssignment is the receiver's copy of the assignment a peer scoped to it.
type ReceivedPartnerAssignment struct {
	ClaimID           string    `json:"claim_id"`
	SourceInstanceURL string    `json:"source_instance_url"`
	PartnerName       string    `json:"partner_name"`
	PartnerEmail      string    `json:"partner_email,omitempty"`
	PartnerPhone      string    `json:"partner_phone,omitempty"`
	PartnerCompany    string    `json:"partner_company,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncRun records one initiator pass for a linked workspace.
type SyncRun struct {
	ID                string     `json:"id"`
	LinkedWorkspaceID string     `json:"linked_workspace_id"`
	Trigger           string     `json:"trigger"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Succeeded         int        `json:"succeeded"`
	Failed            int        `json:"failed"`
}

// Sync trigger constants.
const (
	TriggerManual = "manual"
	TriggerCron   = "cron"
)
