package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/storage"
)

const testSecret = "shared-secret"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func createWorkspace(t *testing.T, database *sql.DB, name string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{Name: name}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))
	return ws
}

func createClaim(t *testing.T, database *sql.DB, workspaceID, holder string) *models.Claim {
	t.Helper()
	c := &models.Claim{WorkspaceID: workspaceID, PolicyholderName: holder, ClaimNumber: "CLM-" + holder, Amount: 500000}
	require.NoError(t, db.CreateClaim(context.Background(), database, c))
	return c
}

// fakeSigner fails for any path containing "bad".
type fakeSigner struct{}

func (fakeSigner) SignURL(_ context.Context, path string, ttl time.Duration) (storage.SignedURL, error) {
	if strings.Contains(path, "bad") {
		return storage.SignedURL{}, errors.New("object not found")
	}
	return storage.SignedURL{
		URL:       fmt.Sprintf("https://files.example.com/%s?ttl=%d", path, int(ttl.Seconds())),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// receiverServer stands in for a peer's claim webhook, checking the secret
// header the same way the real server does.
func receiverServer(t *testing.T, rcv *Receiver, secret string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(ClaimSyncPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !SecretsMatch(r.Header.Get(HeaderClaimSyncSecret), secret) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "invalid sync secret"})
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": err.Error()})
			return
		}

		switch req.Action {
		case ActionGetUsers:
			users, err := rcv.GetUsers(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "users": users})
		default:
			res, err := rcv.CreateOrUpdate(r.Context(), &req)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "claim_id": res.ClaimID, "created": res.Created, "counts": res.Counts})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// fixture is a source instance linked to one target instance.
type fixture struct {
	source    *sql.DB
	target    *sql.DB
	sourceWS  *models.Workspace
	targetWS  *models.Workspace
	server    *httptest.Server
	initiator *Initiator
	link      *models.LinkedWorkspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{source: setupTestDB(t), target: setupTestDB(t)}
	f.sourceWS = createWorkspace(t, f.source, "Source Adjusters")
	f.targetWS = createWorkspace(t, f.target, "Target Adjusters")
	f.server = receiverServer(t, NewReceiver(f.target, nil), testSecret)

	agg := NewAggregator(f.source, fakeSigner{}, time.Hour, nil)
	f.initiator = NewInitiator(f.source, agg, NewPeerClient(5*time.Second, nil),
		InitiatorConfig{BaseURL: "https://source.example.com/"}, nil)

	link, created, err := f.initiator.RegisterLink(context.Background(), LinkParams{
		WorkspaceID:         f.sourceWS.ID,
		ExternalInstanceURL: f.server.URL,
		ExternalWorkspaceID: f.targetWS.ID,
		InstanceName:        "target",
		SyncSecret:          testSecret,
	})
	require.NoError(t, err)
	require.True(t, created)
	f.link = link
	return f
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
