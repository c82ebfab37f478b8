package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/claimsync/models"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a fresh on-disk database in a temp dir.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedClaim creates a workspace and one claim in it.
func seedClaim(t *testing.T, db *sql.DB) (*models.Workspace, *models.Claim) {
	t.Helper()
	ctx := context.Background()

	ws := &models.Workspace{Name: "Gulf Coast Adjusting"}
	require.NoError(t, CreateWorkspace(ctx, db, ws))

	claim := &models.Claim{
		WorkspaceID:      ws.ID,
		ClaimNumber:      "CLM-1001",
		PolicyholderName: "Dana Whitfield",
		Amount:           1250000,
		InsuranceCompany: "Coastal Mutual",
		LossType:         "wind",
	}
	require.NoError(t, CreateClaim(ctx, db, claim))
	return ws, claim
}

func TestOpenDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected WAL mode, got %s", mode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("Expected foreign keys on, got %d", fk)
	}
}

func TestOpenDatabaseInvalidPath(t *testing.T) {
	_, err := OpenDatabase("/invalid/nonexistent/path/that/cannot/be/created/test.db")
	if err == nil {
		t.Errorf("Expected error for invalid path, but OpenDatabase succeeded")
	}
}

func TestOpenDatabaseReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// CREATE ... IF NOT EXISTS must tolerate an existing schema
	db, err = OpenDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := CreateWorkspace(ctx, tx, &models.Workspace{Name: "rolled back"}); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	require.ErrorIs(t, err, sql.ErrTxDone)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM workspaces`).Scan(&n))
	require.Equal(t, 0, n)
}
