// ABOUTME: Database schema definitions for claims, links and claim child records
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	claim_number TEXT NOT NULL DEFAULT '',
	policy_number TEXT NOT NULL DEFAULT '',
	policyholder_name TEXT NOT NULL,
	policyholder_email TEXT NOT NULL DEFAULT '',
	policyholder_phone TEXT NOT NULL DEFAULT '',
	property_address TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	amount INTEGER NOT NULL DEFAULT 0,
	insurance_company TEXT NOT NULL DEFAULT '',
	loss_type TEXT NOT NULL DEFAULT '',
	loss_date DATETIME,
	loss_description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (workspace_id) REFERENCES workspaces(id)
);

CREATE INDEX IF NOT EXISTS idx_claims_workspace_id ON claims(workspace_id);

CREATE TABLE IF NOT EXISTS linked_workspaces (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	external_instance_url TEXT NOT NULL,
	external_workspace_id TEXT NOT NULL DEFAULT '',
	instance_name TEXT NOT NULL DEFAULT '',
	sync_secret TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'inactive')),
	last_synced_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(workspace_id, external_instance_url),
	FOREIGN KEY (workspace_id) REFERENCES workspaces(id)
);

CREATE INDEX IF NOT EXISTS idx_linked_workspaces_status ON linked_workspaces(status);

CREATE TABLE IF NOT EXISTS claim_refs (
	source_instance_url TEXT NOT NULL,
	external_claim_id TEXT NOT NULL,
	claim_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (source_instance_url, external_claim_id),
	FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_claim_refs_claim_id ON claim_refs(claim_id);

CREATE TABLE IF NOT EXISTS partner_assignments (
	id TEXT PRIMARY KEY,
	claim_id TEXT NOT NULL,
	linked_workspace_id TEXT NOT NULL,
	partner_name TEXT NOT NULL,
	partner_email TEXT NOT NULL DEFAULT '',
	partner_phone TEXT NOT NULL DEFAULT '',
	partner_company TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(claim_id, linked_workspace_id),
	FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE,
	FOREIGN KEY (linked_workspace_id) REFERENCES linked_workspaces(id)
);

CREATE TABLE IF NOT EXISTS received_partner_assignments (
	claim_id TEXT NOT NULL,
	source_instance_url TEXT NOT NULL,
	partner_name TEXT NOT NULL,
	partner_email TEXT NOT NULL DEFAULT '',
	partner_phone TEXT NOT NULL DEFAULT '',
	partner_company TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (claim_id, source_instance_url),
	FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	linked_workspace_id TEXT NOT NULL,
	trigger_type TEXT NOT NULL CHECK(trigger_type IN ('manual', 'cron')),
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (linked_workspace_id) REFERENCES linked_workspaces(id)
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_link ON sync_runs(linked_workspace_id, started_at DESC);
`

// childColumns lists the typed columns of each claim child table. The shared
// columns (id, claim_id, external_id, source_instance_url, created_at,
// updated_at) are added by childTableDDL.
var childColumns = map[string]string{
	"claim_tasks": `
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT '',
	due_date DATETIME,
	completed_at DATETIME`,
	"claim_updates": `
	content TEXT NOT NULL,
	update_type TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT ''`,
	"claim_inspections": `
	inspection_date DATETIME,
	inspector TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''`,
	"claim_adjusters": `
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT ''`,
	"claim_settlements": `
	amount INTEGER NOT NULL DEFAULT 0,
	settlement_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	settled_at DATETIME`,
	"claim_checks": `
	check_number TEXT NOT NULL DEFAULT '',
	amount INTEGER NOT NULL DEFAULT 0,
	payee TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	issued_at DATETIME`,
	"claim_expenses": `
	description TEXT NOT NULL,
	amount INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	incurred_at DATETIME`,
	"claim_fees": `
	description TEXT NOT NULL,
	amount INTEGER NOT NULL DEFAULT 0,
	fee_type TEXT NOT NULL DEFAULT '',
	percentage REAL NOT NULL DEFAULT 0`,
	"claim_payments": `
	amount INTEGER NOT NULL DEFAULT 0,
	direction TEXT NOT NULL,
	method TEXT NOT NULL DEFAULT '',
	reference TEXT NOT NULL DEFAULT '',
	paid_at DATETIME`,
	"claim_files": `
	file_name TEXT NOT NULL,
	storage_path TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	remote_url TEXT NOT NULL DEFAULT '',
	remote_url_expires_at DATETIME`,
	"claim_photos": `
	file_name TEXT NOT NULL,
	storage_path TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	remote_url TEXT NOT NULL DEFAULT '',
	remote_url_expires_at DATETIME`,
	"claim_emails": `
	subject TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	from_address TEXT NOT NULL DEFAULT '',
	to_address TEXT NOT NULL DEFAULT '',
	direction TEXT NOT NULL DEFAULT '',
	sent_at DATETIME`,
}

// childTableDDL builds the CREATE statements for one child table. The partial
// unique index on (claim_id, external_id) is the upsert key for received rows.
func childTableDDL(table, columns string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	claim_id TEXT NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	source_instance_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,%[2]s,
	FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_claim_id ON %[1]s(claim_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_external ON %[1]s(claim_id, external_id) WHERE external_id <> '';
`, table, columns)
	return b.String()
}

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create core tables: %w", err)
	}
	for table, columns := range childColumns {
		if _, err := db.Exec(childTableDDL(table, columns)); err != nil {
			return fmt.Errorf("failed to create %s: %w", table, err)
		}
	}
	return nil
}
