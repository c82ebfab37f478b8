package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoWayLinkDoesNotEchoClaims(t *testing.T) {
	ctx := context.Background()
	dbA, dbB := setupTestDB(t), setupTestDB(t)
	wsA := createWorkspace(t, dbA, "Instance A")
	wsB := createWorkspace(t, dbB, "Instance B")
	srvA := receiverServer(t, NewReceiver(dbA, nil), testSecret)
	srvB := receiverServer(t, NewReceiver(dbB, nil), testSecret)

	newInitiator := func(database *sql.DB, baseURL string) *Initiator {
		agg := NewAggregator(database, fakeSigner{}, time.Hour, nil)
		return NewInitiator(database, agg, NewPeerClient(5*time.Second, nil), InitiatorConfig{BaseURL: baseURL}, nil)
	}
	initA := newInitiator(dbA, srvA.URL)
	initB := newInitiator(dbB, srvB.URL)

	_, _, err := initA.RegisterLink(ctx, LinkParams{
		WorkspaceID:         wsA.ID,
		ExternalInstanceURL: srvB.URL,
		ExternalWorkspaceID: wsB.ID,
		SyncSecret:          testSecret,
	})
	require.NoError(t, err)

	// B accepts A's invite, giving an active link in each direction
	_, _, err = NewReceiver(dbB, nil).ReceiveWorkspaceInvite(ctx, &Request{
		TargetWorkspaceID: wsB.ID,
		InstanceURL:       srvA.URL + "/",
		WorkspaceID:       wsA.ID,
		SyncSecret:        testSecret,
	})
	require.NoError(t, err)

	fromA := createClaim(t, dbA, wsA.ID, "Origin")
	fromB := createClaim(t, dbB, wsB.ID, "Local")

	for pass := 1; pass <= 3; pass++ {
		outA, err := initA.SyncAllWorkspaces(ctx)
		require.NoError(t, err)
		require.Len(t, outA, 1)
		require.Len(t, outA[0].Results, 1, "pass %d", pass)
		assert.Equal(t, fromA.ID, outA[0].Results[0].ClaimID)
		assert.True(t, outA[0].Results[0].Success, outA[0].Results[0].Error)

		outB, err := initB.SyncAllWorkspaces(ctx)
		require.NoError(t, err)
		require.Len(t, outB, 1)
		require.Len(t, outB[0].Results, 1, "pass %d", pass)
		assert.Equal(t, fromB.ID, outB[0].Results[0].ClaimID)
		assert.True(t, outB[0].Results[0].Success, outB[0].Results[0].Error)

		assert.Equal(t, 2, countRows(t, dbA, "claims"), "pass %d", pass)
		assert.Equal(t, 2, countRows(t, dbB, "claims"), "pass %d", pass)
	}
}
