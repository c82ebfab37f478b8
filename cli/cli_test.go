package cli

import (
	"bytes"
	"context"
	"database/sql"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/sync"
	"github.com/harperreed/claimsync/web"
)

type testCLI struct {
	configPath string
	dbPath     string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	c := &testCLI{
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "claimsync.db"),
	}

	yaml := "database_path: " + c.dbPath + "\n" +
		"base_url: https://local.example.com/\n" +
		"service_key: service-key\n" +
		"log_level: error\n"
	require.NoError(t, os.WriteFile(c.configPath, []byte(yaml), 0o600))
	return c
}

func (c *testCLI) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", c.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *testCLI) open(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDatabase(c.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestVersion(t *testing.T) {
	c := newTestCLI(t)
	out, err := c.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "claimsync version "+Version)
}

func TestWorkspaceAndClaimCommands(t *testing.T) {
	c := newTestCLI(t)

	out, err := c.run(t, "workspace", "add", "--name", "Gulf Coast Adjusting")
	require.NoError(t, err)
	assert.Contains(t, out, "Workspace created: Gulf Coast Adjusting")

	database := c.open(t)
	workspaces, err := db.ListWorkspaces(context.Background(), database)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	wsID := workspaces[0].ID

	out, err = c.run(t, "claim", "add", "--workspace", wsID, "--policyholder", "Dana Whitfield",
		"--number", "CLM-1001", "--amount", "12500.50")
	require.NoError(t, err)
	assert.Contains(t, out, "Claim created: Dana Whitfield")

	out, err = c.run(t, "claim", "list", "--workspace", wsID)
	require.NoError(t, err)
	assert.Contains(t, out, "CLM-1001")
	assert.Contains(t, out, "$12500.50")
	assert.Contains(t, out, "Total: 1 claim(s)")

	claims, err := db.ListClaimsByWorkspace(context.Background(), database, wsID)
	require.NoError(t, err)
	require.Len(t, claims, 1)

	out, err = c.run(t, "claim", "show", claims[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "claim_tasks")

	_, err = c.run(t, "claim", "add", "--policyholder", "No Workspace")
	assert.Error(t, err)

	out, err = c.run(t, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Gulf Coast Adjusting")
}

func TestUserCommands(t *testing.T) {
	c := newTestCLI(t)

	_, err := c.run(t, "user", "add", "--email", "Ana@Example.com", "--name", "Ana Diaz")
	require.NoError(t, err)

	out, err := c.run(t, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "Total: 1 user(s)")
}

func TestLinkCommands(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))
	stubSecrets(t, nil)

	out, err := c.run(t, "link", "register", "--workspace", ws.ID, "--url", "https://peer.example.com/", "--name", "Peer")
	require.NoError(t, err)
	assert.Contains(t, out, "Linked workspace created")
	assert.Contains(t, out, "Secret: ")

	out, err = c.run(t, "link", "register", "--workspace", ws.ID, "--url", "https://peer.example.com", "--secret", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "Link already exists")

	links, err := db.ListLinkedWorkspaces(context.Background(), database, "")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://peer.example.com", links[0].ExternalInstanceURL)

	out, err = c.run(t, "link", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "never")

	_, err = c.run(t, "link", "revoke", links[0].ID)
	require.NoError(t, err)

	out, err = c.run(t, "link", "list", "--status", models.LinkStatusActive)
	require.NoError(t, err)
	assert.Contains(t, out, "No linked workspaces found")

	_, err = c.run(t, "link", "revoke", "missing")
	assert.Error(t, err)
}

// peer starts a second instance behind the real webhook server.
func startPeer(t *testing.T, claimSecret, workspaceSecret string) (*sql.DB, *models.Workspace, string) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "peer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ws := &models.Workspace{Name: "Peer Workspace"}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))
	require.NoError(t, db.CreateUser(context.Background(), database, &models.User{Email: "peer@example.com"}))

	agg := sync.NewAggregator(database, nil, 0, nil)
	initiator := sync.NewInitiator(database, agg, sync.NewPeerClient(0, nil), sync.InitiatorConfig{BaseURL: "https://peer"}, nil)
	srv := httptest.NewServer(web.NewServer(initiator, sync.NewReceiver(database, nil), web.Secrets{
		ServiceKey:          "peer-service",
		ClaimSyncSecret:     claimSecret,
		WorkspaceSyncSecret: workspaceSecret,
	}, nil).Handler())
	t.Cleanup(srv.Close)

	return database, ws, srv.URL
}

func TestSyncToPeer(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ctx := context.Background()

	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(ctx, database, ws))
	claim := &models.Claim{WorkspaceID: ws.ID, PolicyholderName: "Dana Whitfield"}
	require.NoError(t, db.CreateClaim(ctx, database, claim))
	require.NoError(t, db.CreateChild(ctx, database, db.Tasks, &models.Task{ChildBase: models.ChildBase{ClaimID: claim.ID}, Title: "Call carrier"}))

	peerDB, peerWS, peerURL := startPeer(t, "shared", "invite-secret")

	_, err := c.run(t, "link", "invite", "--workspace", ws.ID, "--url", peerURL,
		"--remote-workspace", peerWS.ID, "--secret", "shared", "--workspace-secret", "invite-secret")
	require.NoError(t, err)

	back, err := db.FindLinkedWorkspace(ctx, peerDB, peerWS.ID, "https://local.example.com")
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, ws.ID, back.ExternalWorkspaceID)

	out, err := c.run(t, "sync", "--workspace", ws.ID, "--target", peerURL)
	require.NoError(t, err, out)
	assert.Contains(t, out, "created as")

	n, err := db.CountClaimsByWorkspace(ctx, peerDB, peerWS.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second pass updates in place
	_, err = c.run(t, "sync-all")
	require.NoError(t, err)
	n, err = db.CountClaimsByWorkspace(ctx, peerDB, peerWS.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	links, err := db.ListLinkedWorkspaces(ctx, database, models.LinkStatusActive)
	require.NoError(t, err)
	require.Len(t, links, 1)

	out, err = c.run(t, "runs", links[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, models.TriggerManual)
	assert.Contains(t, out, models.TriggerCron)

	out, err = c.run(t, "link", "users", links[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "peer@example.com")
}

func TestSyncReportsPeerRejection(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ctx := context.Background()

	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(ctx, database, ws))
	require.NoError(t, db.CreateClaim(ctx, database, &models.Claim{WorkspaceID: ws.ID, PolicyholderName: "Dana"}))

	peerDB, peerWS, peerURL := startPeer(t, "peer-secret", "")
	_, err := c.run(t, "link", "register", "--workspace", ws.ID, "--url", peerURL,
		"--remote-workspace", peerWS.ID, "--secret", "not-the-peer-secret")
	require.NoError(t, err)

	out, err := c.run(t, "sync", "--workspace", ws.ID, "--target", peerURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 claims failed")
	assert.Contains(t, out, "401")

	n, err := db.CountClaimsByWorkspace(ctx, peerDB, peerWS.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatsAndGraph(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))
	require.NoError(t, db.CreateClaim(context.Background(), database, &models.Claim{WorkspaceID: ws.ID, PolicyholderName: "Dana"}))

	out, err := c.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "1 claims")

	_, err = c.run(t, "link", "graph", "--format", "png")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "links.dot")
	_, err = c.run(t, "link", "graph", "-o", path)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Local")
}

// stubSecrets answers hidden prompts from answers. A nil map behaves like a
// non-terminal stdin.
func stubSecrets(t *testing.T, answers map[string]string) *[]string {
	t.Helper()
	var asked []string
	orig := readSecret
	readSecret = func(_ *cobra.Command, prompt string) (string, bool, error) {
		asked = append(asked, prompt)
		if answers == nil {
			return "", false, nil
		}
		return answers[prompt], true, nil
	}
	t.Cleanup(func() { readSecret = orig })
	return &asked
}

func TestInviteWithGeneratedSecretSyncsToPeerWithOwnSecrets(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ctx := context.Background()

	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(ctx, database, ws))
	require.NoError(t, db.CreateClaim(ctx, database, &models.Claim{WorkspaceID: ws.ID, PolicyholderName: "Dana Whitfield"}))

	// The peer's instance-wide claim secret is never shared with us
	peerDB, peerWS, peerURL := startPeer(t, "peer-only-claim-secret", "invite-secret")

	asked := stubSecrets(t, map[string]string{promptWorkspaceSecret: "invite-secret"})
	_, err := c.run(t, "link", "invite", "--workspace", ws.ID, "--url", peerURL, "--remote-workspace", peerWS.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{promptWorkspaceSecret, promptSyncSecret}, *asked)

	links, err := db.ListLinkedWorkspaces(ctx, database, models.LinkStatusActive)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.NotEmpty(t, links[0].SyncSecret)
	assert.NotEqual(t, "peer-only-claim-secret", links[0].SyncSecret)

	back, err := db.FindLinkedWorkspace(ctx, peerDB, peerWS.ID, "https://local.example.com")
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, links[0].SyncSecret, back.SyncSecret)

	out, err := c.run(t, "sync", "--workspace", ws.ID, "--target", peerURL)
	require.NoError(t, err, out)
	n, err := db.CountClaimsByWorkspace(ctx, peerDB, peerWS.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err = c.run(t, "link", "users", links[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "peer@example.com")
}

func TestLinkSecretsWithoutTerminal(t *testing.T) {
	c := newTestCLI(t)
	database := c.open(t)
	ws := &models.Workspace{Name: "Local"}
	require.NoError(t, db.CreateWorkspace(context.Background(), database, ws))
	stubSecrets(t, nil)

	_, err := c.run(t, "link", "invite", "--workspace", ws.ID, "--url", "https://peer.example.com", "--remote-workspace", "remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--workspace-secret is required")

	out, err := c.run(t, "link", "register", "--workspace", ws.ID, "--url", "https://peer.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Secret: ")

	out, err = c.run(t, "link", "register", "--workspace", ws.ID, "--url", "https://other.example.com", "--secret", "given")
	require.NoError(t, err)
	assert.NotContains(t, out, "Secret: ")
}
