package viz

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

func seed(t *testing.T) (*GraphGenerator, func() (*DashboardStats, error)) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "viz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ws := &models.Workspace{Name: "Gulf Coast Adjusting"}
	require.NoError(t, db.CreateWorkspace(ctx, database, ws))
	for _, c := range []models.Claim{
		{WorkspaceID: ws.ID, PolicyholderName: "A", Amount: 250000_00},
		{WorkspaceID: ws.ID, PolicyholderName: "B", Amount: 50000_00},
		{WorkspaceID: ws.ID, PolicyholderName: "C", Status: models.ClaimStatusSettled},
		{WorkspaceID: ws.ID, PolicyholderName: "D", Status: "appraisal"},
	} {
		c := c
		require.NoError(t, db.CreateClaim(ctx, database, &c))
	}

	fresh := &models.LinkedWorkspace{WorkspaceID: ws.ID, ExternalInstanceURL: "https://fresh.example.com", InstanceName: "Fresh", SyncSecret: "s"}
	never := &models.LinkedWorkspace{WorkspaceID: ws.ID, ExternalInstanceURL: "https://never.example.com", SyncSecret: "s"}
	gone := &models.LinkedWorkspace{WorkspaceID: ws.ID, ExternalInstanceURL: "https://gone.example.com", SyncSecret: "s"}
	for _, l := range []*models.LinkedWorkspace{fresh, never, gone} {
		require.NoError(t, db.CreateLinkedWorkspace(ctx, database, l))
	}
	require.NoError(t, db.TouchLinkedWorkspaceSynced(ctx, database, fresh.ID, time.Now().UTC()))
	require.NoError(t, db.SetLinkedWorkspaceStatus(ctx, database, gone.ID, models.LinkStatusInactive))

	run, err := db.StartSyncRun(ctx, database, fresh.ID, models.TriggerCron)
	require.NoError(t, err)
	run.Succeeded, run.Failed = 3, 1
	require.NoError(t, db.FinishSyncRun(ctx, database, run))

	return NewGraphGenerator(database), func() (*DashboardStats, error) {
		return GenerateDashboardStats(ctx, database)
	}
}

func TestGenerateDashboardStats(t *testing.T) {
	_, generate := seed(t)

	stats, err := generate()
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalWorkspaces)
	assert.Equal(t, 4, stats.TotalClaims)
	assert.Equal(t, 2, stats.ClaimsByStatus[models.ClaimStatusOpen].Count)
	assert.Equal(t, int64(300000_00), stats.ClaimsByStatus[models.ClaimStatusOpen].Amount)
	assert.Equal(t, 2, stats.ActiveLinks)
	assert.Equal(t, 1, stats.InactiveLinks)

	require.Len(t, stats.StaleLinks, 1)
	assert.Equal(t, "https://never.example.com", stats.StaleLinks[0].URL)
	assert.Equal(t, -1, stats.StaleLinks[0].DaysSince)

	require.Len(t, stats.FailedLinks, 1)
	assert.Equal(t, 1, stats.FailedLinks[0].Failed)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "CLAIMSYNC DASHBOARD")
	assert.Contains(t, out, "appraisal")
	assert.Contains(t, out, "never synced")
	assert.Contains(t, out, "failed on the last pass")
}

func TestGenerateLinkGraph(t *testing.T) {
	gen, _ := seed(t)

	dot, err := gen.GenerateLinkGraph(context.Background(), graphviz.XDOT)
	require.NoError(t, err)
	assert.Contains(t, dot, "Gulf Coast Adjusting")
	assert.Contains(t, dot, "https://never.example.com")
	assert.Contains(t, dot, "dashed")
}
