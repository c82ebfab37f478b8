// ABOUTME: Generic storage for claim child record sets (tasks, accounting, files, emails)
// ABOUTME: One ChildTable per set drives listing, inserting and upserting by external id
package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/claimsync/models"
)

// ChildTable describes how one child record type maps onto its table.
// fields returns pointers to the typed columns in column order; the same
// pointers are used for Scan and for Exec arguments.
type ChildTable[T any] struct {
	Name    string
	columns []string
	base    func(*T) *models.ChildBase
	fields  func(*T) []any
}

// ErrMissingID is returned when a received child row carries no id.
var ErrMissingID = errors.New("missing id")

var baseColumns = []string{"id", "claim_id", "external_id", "source_instance_url", "created_at", "updated_at"}

func (t ChildTable[T]) allColumns() []string {
	return append(append([]string{}, baseColumns...), t.columns...)
}

func (t ChildTable[T]) dest(rec *T) []any {
	b := t.base(rec)
	return append([]any{&b.ID, &b.ClaimID, &b.ExternalID, &b.SourceInstanceURL, &b.CreatedAt, &b.UpdatedAt}, t.fields(rec)...)
}

var Tasks = ChildTable[models.Task]{
	Name:    "claim_tasks",
	columns: []string{"title", "description", "status", "priority", "due_date", "completed_at"},
	base:    func(r *models.Task) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Task) []any {
		return []any{&r.Title, &r.Description, &r.Status, &r.Priority, &r.DueDate, &r.CompletedAt}
	},
}

var Updates = ChildTable[models.ClaimUpdate]{
	Name:    "claim_updates",
	columns: []string{"content", "update_type", "created_by"},
	base:    func(r *models.ClaimUpdate) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.ClaimUpdate) []any {
		return []any{&r.Content, &r.UpdateType, &r.CreatedBy}
	},
}

var Inspections = ChildTable[models.Inspection]{
	Name:    "claim_inspections",
	columns: []string{"inspection_date", "inspector", "status", "notes"},
	base:    func(r *models.Inspection) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Inspection) []any {
		return []any{&r.InspectionDate, &r.Inspector, &r.Status, &r.Notes}
	},
}

var Adjusters = ChildTable[models.Adjuster]{
	Name:    "claim_adjusters",
	columns: []string{"name", "email", "phone", "company", "role"},
	base:    func(r *models.Adjuster) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Adjuster) []any {
		return []any{&r.Name, &r.Email, &r.Phone, &r.Company, &r.Role}
	},
}

var Settlements = ChildTable[models.Settlement]{
	Name:    "claim_settlements",
	columns: []string{"amount", "settlement_type", "status", "notes", "settled_at"},
	base:    func(r *models.Settlement) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Settlement) []any {
		return []any{&r.Amount, &r.SettlementType, &r.Status, &r.Notes, &r.SettledAt}
	},
}

var Checks = ChildTable[models.Check]{
	Name:    "claim_checks",
	columns: []string{"check_number", "amount", "payee", "status", "issued_at"},
	base:    func(r *models.Check) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Check) []any {
		return []any{&r.CheckNumber, &r.Amount, &r.Payee, &r.Status, &r.IssuedAt}
	},
}

var Expenses = ChildTable[models.Expense]{
	Name:    "claim_expenses",
	columns: []string{"description", "amount", "category", "incurred_at"},
	base:    func(r *models.Expense) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Expense) []any {
		return []any{&r.Description, &r.Amount, &r.Category, &r.IncurredAt}
	},
}

var Fees = ChildTable[models.Fee]{
	Name:    "claim_fees",
	columns: []string{"description", "amount", "fee_type", "percentage"},
	base:    func(r *models.Fee) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Fee) []any {
		return []any{&r.Description, &r.Amount, &r.FeeType, &r.Percentage}
	},
}

var Payments = ChildTable[models.Payment]{
	Name:    "claim_payments",
	columns: []string{"amount", "direction", "method", "reference", "paid_at"},
	base:    func(r *models.Payment) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.Payment) []any {
		return []any{&r.Amount, &r.Direction, &r.Method, &r.Reference, &r.PaidAt}
	},
}

var Files = ChildTable[models.ClaimFile]{
	Name:    "claim_files",
	columns: []string{"file_name", "storage_path", "mime_type", "size_bytes", "remote_url", "remote_url_expires_at"},
	base:    func(r *models.ClaimFile) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.ClaimFile) []any {
		return []any{&r.FileName, &r.StoragePath, &r.MimeType, &r.SizeBytes, &r.RemoteURL, &r.URLExpiresAt}
	},
}

var Photos = ChildTable[models.ClaimPhoto]{
	Name:    "claim_photos",
	columns: []string{"file_name", "storage_path", "caption", "remote_url", "remote_url_expires_at"},
	base:    func(r *models.ClaimPhoto) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.ClaimPhoto) []any {
		return []any{&r.FileName, &r.StoragePath, &r.Caption, &r.RemoteURL, &r.URLExpiresAt}
	},
}

var Emails = ChildTable[models.ClaimEmail]{
	Name:    "claim_emails",
	columns: []string{"subject", "body", "from_address", "to_address", "direction", "sent_at"},
	base:    func(r *models.ClaimEmail) *models.ChildBase { return &r.ChildBase },
	fields: func(r *models.ClaimEmail) []any {
		return []any{&r.Subject, &r.Body, &r.FromAddress, &r.ToAddress, &r.Direction, &r.SentAt}
	},
}

// ListChildren returns every row of t owned by claimID, oldest first.
func ListChildren[T any](ctx context.Context, q DBTX, t ChildTable[T], claimID string) ([]T, error) {
	return listChildrenWhere(ctx, q, t, "claim_id = ?", claimID)
}

// ListPaymentsByDirection returns a claim's payments filtered by direction.
func ListPaymentsByDirection(ctx context.Context, q DBTX, claimID, direction string) ([]models.Payment, error) {
	return listChildrenWhere(ctx, q, Payments, "claim_id = ? AND direction = ?", claimID, direction)
}

func listChildrenWhere[T any](ctx context.Context, q DBTX, t ChildTable[T], where string, args ...any) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at, id`,
		strings.Join(t.allColumns(), ", "), t.Name, where)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		var rec T
		if err := rows.Scan(t.dest(&rec)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.Name, err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", t.Name, err)
	}

	return out, nil
}

// CreateChild inserts a new locally-owned row and assigns its ID and timestamps.
func CreateChild[T any](ctx context.Context, q DBTX, t ChildTable[T], rec *T) error {
	b := t.base(rec)
	if b.ClaimID == "" {
		return fmt.Errorf("%s: claim_id is required", t.Name)
	}
	b.ID = uuid.New().String()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	cols := t.allColumns()
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.Name, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := q.ExecContext(ctx, query, t.dest(rec)...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", t.Name, err)
	}

	return nil
}

// UpsertChildByExternalID creates or updates the row keyed by (claim_id, external_id).
// On update the existing local ID is kept and written back into rec.
func UpsertChildByExternalID[T any](ctx context.Context, q DBTX, t ChildTable[T], rec *T) error {
	b := t.base(rec)
	if b.ClaimID == "" || b.ExternalID == "" {
		return fmt.Errorf("%s: claim_id and external_id are required", t.Name)
	}
	b.ID = uuid.New().String()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	cols := t.allColumns()
	sets := make([]string, 0, len(t.columns)+2)
	sets = append(sets, "source_instance_url = excluded.source_instance_url", "updated_at = excluded.updated_at")
	for _, c := range t.columns {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT(claim_id, external_id) WHERE external_id <> '' DO UPDATE SET %s
		RETURNING id
	`, t.Name, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(sets, ", "))

	if err := q.QueryRowContext(ctx, query, t.dest(rec)...).Scan(&b.ID); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", t.Name, err)
	}

	return nil
}

// UpsertReceived stores rows sent by a peer under the local claimID. Each
// row's wire id becomes its external id, so a repeated receive updates the
// same local rows. Returns the number of rows written.
func UpsertReceived[T any](ctx context.Context, q DBTX, t ChildTable[T], claimID, sourceURL string, rows []T) (int, error) {
	for i := range rows {
		b := t.base(&rows[i])
		if b.ID == "" {
			return i, fmt.Errorf("%s[%d]: %w", t.Name, i, ErrMissingID)
		}
		b.ExternalID = b.ID
		b.ClaimID = claimID
		b.SourceInstanceURL = sourceURL

		if err := UpsertChildByExternalID(ctx, q, t, &rows[i]); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

// CountChildren returns how many rows of t belong to claimID.
func CountChildren[T any](ctx context.Context, q DBTX, t ChildTable[T], claimID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE claim_id = ?`, t.Name), claimID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.Name, err)
	}
	return count, nil
}

// ChildCount is the row count of one child table for a claim.
type ChildCount struct {
	Table string
	Count int
}

// ClaimChildCounts counts a claim's rows in every child table, by table name.
func ClaimChildCounts(ctx context.Context, q DBTX, claimID string) ([]ChildCount, error) {
	tables := make([]string, 0, len(childColumns))
	for table := range childColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	out := make([]ChildCount, 0, len(tables))
	for _, table := range tables {
		var n int
		err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE claim_id = ?`, table), claimID).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out = append(out, ChildCount{Table: table, Count: n})
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
