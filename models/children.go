// ABOUTME: Child record types attached to a claim (tasks, accounting, files, emails)
// ABOUTME: Each embeds ChildBase so every set can be upserted by external id
package models

import "time"

// ChildBase holds the columns shared by every claim child table.
// ExternalID and SourceInstanceURL are only set on rows received from a peer.
type ChildBase struct {
	ID                string    `json:"id"`
	ClaimID           string    `json:"claim_id"`
	ExternalID        string    `json:"external_id,omitempty"`
	SourceInstanceURL string    `json:"source_instance_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Task struct {
	ChildBase
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ClaimUpdate struct {
	ChildBase
	Content    string `json:"content"`
	UpdateType string `json:"update_type,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
}

type Inspection struct {
	ChildBase
	InspectionDate *time.Time `json:"inspection_date,omitempty"`
	Inspector      string     `json:"inspector,omitempty"`
	Status         string     `json:"status,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

type Adjuster struct {
	ChildBase
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Role    string `json:"role,omitempty"`
}

type Settlement struct {
	ChildBase
	Amount         int64      `json:"amount"` // cents
	SettlementType string     `json:"settlement_type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
}

type Check struct {
	ChildBase
	CheckNumber string     `json:"check_number,omitempty"`
	Amount      int64      `json:"amount"` // cents
	Payee       string     `json:"payee,omitempty"`
	Status      string     `json:"status,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
}

type Expense struct {
	ChildBase
	Description string     `json:"description"`
	Amount      int64      `json:"amount"` // cents
	Category    string     `json:"category,omitempty"`
	IncurredAt  *time.Time `json:"incurred_at,omitempty"`
}

type Fee struct {
	ChildBase
	Description string  `json:"description"`
	Amount      int64   `json:"amount"` // cents
	FeeType     string  `json:"fee_type,omitempty"`
	Percentage  float64 `json:"percentage,omitempty"`
}

type Payment struct {
	ChildBase
	Amount    int64      `json:"amount"` // cents
	Direction string     `json:"direction"`
	Method    string     `json:"method,omitempty"`
	Reference string     `json:"reference,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// Payment direction constants. Only released payments leave the instance.
const (
	PaymentDirectionReleased = "released"
	PaymentDirectionReceived = "received"
)

// ClaimFile is a document attachment. StoragePath is the object key in the
// local bucket; SignedURL is filled in by the aggregator and RemoteURL keeps
// the link a peer sent us. URLExpiresAt is when SignedURL stops working on the
// wire, and when RemoteURL does once stored.
type ClaimFile struct {
	ChildBase
	FileName     string     `json:"file_name"`
	StoragePath  string     `json:"storage_path,omitempty"`
	MimeType     string     `json:"mime_type,omitempty"`
	SizeBytes    int64      `json:"size_bytes,omitempty"`
	RemoteURL    string     `json:"remote_url,omitempty"`
	SignedURL    string     `json:"signed_url,omitempty"`
	URLExpiresAt *time.Time `json:"url_expires_at,omitempty"`
	URLError     string     `json:"url_error,omitempty"`
}

type ClaimPhoto struct {
	ChildBase
	FileName     string     `json:"file_name"`
	StoragePath  string     `json:"storage_path,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	RemoteURL    string     `json:"remote_url,omitempty"`
	SignedURL    string     `json:"signed_url,omitempty"`
	URLExpiresAt *time.Time `json:"url_expires_at,omitempty"`
	URLError     string     `json:"url_error,omitempty"`
}

type ClaimEmail struct {
	ChildBase
	Subject     string     `json:"subject"`
	Body        string     `json:"body,omitempty"`
	FromAddress string     `json:"from_address,omitempty"`
	ToAddress   string     `json:"to_address,omitempty"`
	Direction   string     `json:"direction,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}
