package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterPerHost(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example.com/functions/v1/claim-sync-webhook"))
	// Different host has its own bucket
	require.NoError(t, l.Wait(ctx, "https://b.example.com/functions/v1/claim-sync-webhook"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short, "https://a.example.com/other"))
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://peer.example.com"))
	}
}

func TestLimiterBadURL(t *testing.T) {
	l := NewLimiter(1, 1)
	assert.Error(t, l.Wait(context.Background(), "://bad"))
}
