package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/sync"
)

var testSecrets = Secrets{
	ServiceKey:          "service-key",
	CronSecret:          "cron-secret",
	ClaimSyncSecret:     "claim-secret",
	WorkspaceSyncSecret: "workspace-secret",
}

type testEnv struct {
	db     *sql.DB
	ws     *models.Workspace
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))

	agg := sync.NewAggregator(database, nil, 0, nil)
	initiator := sync.NewInitiator(database, agg, sync.NewPeerClient(0, nil), sync.InitiatorConfig{BaseURL: "https://local.example.com"}, nil)
	srv := httptest.NewServer(NewServer(initiator, sync.NewReceiver(database, nil), testSecrets, nil).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{db: database, ws: ws, server: srv}
}

func (e *testEnv) post(t *testing.T, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func claimBody(workspaceID string) map[string]any {
	return map[string]any{
		"action":              "create_or_update",
		"external_claim_id":   "remote-1",
		"source_instance_url": "https://peer.example.com",
		"target_workspace_id": workspaceID,
		"claim_data":          map[string]any{"id": "remote-1", "policyholder_name": "Dana", "status": "open"},
		"tasks_data":          []map[string]any{{"id": "t1", "title": "Call carrier"}},
		"accounting_data": map[string]any{
			"payments": []map[string]any{{"id": "p1", "amount": 5000, "direction": "released"}},
		},
	}
}

func TestCreateOrUpdateWebhook(t *testing.T) {
	e := newTestEnv(t)
	hdr := map[string]string{sync.HeaderClaimSyncSecret: "claim-secret"}

	status, out := e.post(t, sync.ClaimSyncPath, claimBody(e.ws.ID), hdr)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["created"])

	status, out = e.post(t, sync.ClaimSyncPath, claimBody(e.ws.ID), hdr)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, false, out["created"])

	assert.Equal(t, 1, e.count(t, "claims"))
	assert.Equal(t, 1, e.count(t, "claim_tasks"))
	assert.Equal(t, 1, e.count(t, "claim_payments"))
}

func TestCreateOrUpdateWebhookAuth(t *testing.T) {
	e := newTestEnv(t)

	status, out := e.post(t, sync.ClaimSyncPath, claimBody(e.ws.ID), map[string]string{sync.HeaderClaimSyncSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, out["success"])

	status, _ = e.post(t, sync.ClaimSyncPath, claimBody(e.ws.ID), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Equal(t, 0, e.count(t, "claims"))
	assert.Equal(t, 0, e.count(t, "claim_refs"))
}

func TestCreateOrUpdateWebhookErrors(t *testing.T) {
	e := newTestEnv(t)
	hdr := map[string]string{sync.HeaderClaimSyncSecret: "claim-secret"}

	status, _ := e.post(t, sync.ClaimSyncPath, claimBody("missing"), hdr)
	assert.Equal(t, http.StatusNotFound, status)

	body := claimBody(e.ws.ID)
	delete(body, "external_claim_id")
	status, _ = e.post(t, sync.ClaimSyncPath, body, hdr)
	assert.Equal(t, http.StatusBadRequest, status)

	status, out := e.post(t, sync.ClaimSyncPath, map[string]any{"action": "explode"}, hdr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["error"], "unknown action")
}

func TestSyncAllRequiresCronOrServiceToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	link := &models.LinkedWorkspace{WorkspaceID: e.ws.ID, ExternalInstanceURL: "https://peer.invalid", SyncSecret: "s"}
	require.NoError(t, db.CreateLinkedWorkspace(ctx, e.db, link))

	body := map[string]any{"action": "sync_all_workspaces"}
	for _, hdr := range []map[string]string{
		nil,
		{sync.HeaderCronSecret: "nope"},
		{"Authorization": "Bearer nope"},
	} {
		status, _ := e.post(t, sync.ClaimSyncPath, body, hdr)
		assert.Equal(t, http.StatusUnauthorized, status)
	}

	got, err := db.GetLinkedWorkspace(ctx, e.db, link.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncedAt)
	runs, err := db.ListSyncRuns(ctx, e.db, link.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// With the cron secret the pass runs; the workspace has no claims so nothing is sent
	status, out := e.post(t, sync.ClaimSyncPath, body, map[string]string{sync.HeaderCronSecret: "cron-secret"})
	require.Equal(t, http.StatusOK, status, out)
	got, err = db.GetLinkedWorkspace(ctx, e.db, link.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSyncedAt)

	status, _ = e.post(t, sync.WorkspaceSyncPath, body, map[string]string{"Authorization": "Bearer service-key"})
	assert.Equal(t, http.StatusOK, status)
}

func TestRegisterAndRevokeLink(t *testing.T) {
	e := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer service-key"}
	body := map[string]any{
		"action":                "register_link",
		"workspace_id":          e.ws.ID,
		"external_instance_url": "https://peer.example.com/",
		"instance_name":         "Peer",
		"sync_secret":           "s",
	}

	status, first := e.post(t, sync.WorkspaceSyncPath, body, auth)
	require.Equal(t, http.StatusOK, status, first)
	assert.Equal(t, true, first["created"])

	status, second := e.post(t, sync.WorkspaceSyncPath, body, auth)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, second["created"])

	linkID := first["link"].(map[string]any)["id"]
	assert.Equal(t, linkID, second["link"].(map[string]any)["id"])
	assert.NotContains(t, first["link"], "sync_secret")
	assert.Equal(t, 1, e.count(t, "linked_workspaces"))

	status, _ = e.post(t, sync.WorkspaceSyncPath, body, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.post(t, sync.WorkspaceSyncPath, map[string]any{"action": "revoke_link", "linked_workspace_id": linkID}, auth)
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.post(t, sync.WorkspaceSyncPath, map[string]any{"action": "revoke_link", "linked_workspace_id": "missing"}, auth)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.post(t, sync.WorkspaceSyncPath, map[string]any{
		"action":              "sync_claims",
		"workspace_id":        e.ws.ID,
		"target_instance_url": "https://peer.example.com",
		"sync_secret":         "s",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSyncClaimsWebhookSecretMismatch(t *testing.T) {
	e := newTestEnv(t)
	link := &models.LinkedWorkspace{WorkspaceID: e.ws.ID, ExternalInstanceURL: "https://peer.example.com", SyncSecret: "right"}
	require.NoError(t, db.CreateLinkedWorkspace(context.Background(), e.db, link))

	status, _ := e.post(t, sync.ClaimSyncPath, map[string]any{
		"action":              "sync_claims",
		"workspace_id":        e.ws.ID,
		"target_instance_url": "https://peer.example.com",
		"sync_secret":         "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.post(t, sync.ClaimSyncPath, map[string]any{
		"action":              "sync_claims",
		"workspace_id":        e.ws.ID,
		"target_instance_url": "https://other.example.com",
		"sync_secret":         "right",
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWorkspaceInviteWebhook(t *testing.T) {
	e := newTestEnv(t)
	body := map[string]any{
		"action":              "receive_workspace_invite",
		"target_workspace_id": e.ws.ID,
		"instance_url":        "https://inviter.example.com",
		"workspace_id":        "their-ws",
		"sync_secret":         "s",
	}

	status, _ := e.post(t, sync.WorkspaceSyncPath, body, map[string]string{sync.HeaderWorkspaceSyncSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 0, e.count(t, "linked_workspaces"))

	status, out := e.post(t, sync.WorkspaceSyncPath, body, map[string]string{sync.HeaderWorkspaceSyncSecret: "workspace-secret"})
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, true, out["created"])
}

func TestGetUsersWebhook(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, db.CreateUser(context.Background(), e.db, &models.User{Email: "ana@example.com"}))

	status, out := e.post(t, sync.ClaimSyncPath, map[string]any{"action": "get_users"}, map[string]string{sync.HeaderClaimSyncSecret: "claim-secret"})
	require.Equal(t, http.StatusOK, status)
	users := out["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "ana@example.com", users[0].(map[string]any)["email"])
}

func TestOptionsAndMethods(t *testing.T) {
	e := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, e.server.URL+sync.ClaimSyncPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), sync.HeaderClaimSyncSecret)

	resp, err = http.Get(e.server.URL + sync.ClaimSyncPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(e.server.URL+sync.ClaimSyncPath, "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(e.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateOrUpdateAcceptsLinkSecret(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	link := &models.LinkedWorkspace{
		WorkspaceID:         e.ws.ID,
		ExternalInstanceURL: "https://peer.example.com",
		SyncSecret:          "per-link-secret",
	}
	require.NoError(t, db.CreateLinkedWorkspace(ctx, e.db, link))
	hdr := map[string]string{sync.HeaderClaimSyncSecret: "per-link-secret"}

	body := claimBody(e.ws.ID)
	body["source_instance_url"] = "https://peer.example.com/"
	status, out := e.post(t, sync.ClaimSyncPath, body, hdr)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, 1, e.count(t, "claims"))

	// The secret only vouches for the instance it was shared with
	other := claimBody(e.ws.ID)
	other["source_instance_url"] = "https://elsewhere.example.com"
	status, _ = e.post(t, sync.ClaimSyncPath, other, hdr)
	assert.Equal(t, http.StatusUnauthorized, status)

	// and only for the workspace that holds the link
	otherWS := &models.Workspace{Name: "Other"}
	require.NoError(t, db.CreateWorkspace(ctx, e.db, otherWS))
	status, _ = e.post(t, sync.ClaimSyncPath, claimBody(otherWS.ID), hdr)
	assert.Equal(t, http.StatusUnauthorized, status)

	require.NoError(t, db.SetLinkedWorkspaceStatus(ctx, e.db, link.ID, models.LinkStatusInactive))
	status, _ = e.post(t, sync.ClaimSyncPath, claimBody(e.ws.ID), hdr)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 1, e.count(t, "claims"))
}
