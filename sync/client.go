// ABOUTME: HTTP client for calling a peer instance's sync webhooks
// ABOUTME: Applies per-host rate limiting, a per-request timeout and the shared-secret header
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/worker"
)

// DefaultHTTPTimeout bounds one outbound webhook call.
const DefaultHTTPTimeout = 30 * time.Second

// ClaimSender delivers one claim to a peer.
type ClaimSender interface {
	SendClaim(ctx context.Context, targetURL, secret string, req *Request) (*ReceiveResult, error)
}

// PeerClient talks to other instances.
type PeerClient struct {
	http    *http.Client
	limiter *worker.Limiter
}

// NewPeerClient creates a client. A nil limiter disables rate limiting.
func NewPeerClient(timeout time.Duration, limiter *worker.Limiter) *PeerClient {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	return &PeerClient{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

type peerResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	ReceiveResult
	Users []models.User `json:"users"`
}

// SendClaim posts a create_or_update request to targetURL's claim webhook.
func (c *PeerClient) SendClaim(ctx context.Context, targetURL, secret string, req *Request) (*ReceiveResult, error) {
	req.Action = ActionCreateOrUpdate

	var resp peerResponse
	if err := c.post(ctx, targetURL+ClaimSyncPath, HeaderClaimSyncSecret, secret, req, &resp); err != nil {
		return nil, err
	}

	result := resp.ReceiveResult
	return &result, nil
}

// FetchUsers asks a peer for its user directory. req identifies the caller
// (source_instance_url, target_workspace_id) so the peer can match the secret
// to its link back here.
func (c *PeerClient) FetchUsers(ctx context.Context, targetURL, secret string, req *Request) ([]models.User, error) {
	req.Action = ActionGetUsers

	var resp peerResponse
	if err := c.post(ctx, targetURL+ClaimSyncPath, HeaderClaimSyncSecret, secret, req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// SendInvite asks a peer to register this instance as a linked workspace.
func (c *PeerClient) SendInvite(ctx context.Context, targetURL, workspaceSecret string, req *Request) error {
	req.Action = ActionReceiveWorkspaceInvite

	var resp peerResponse
	return c.post(ctx, targetURL+WorkspaceSyncPath, HeaderWorkspaceSyncSecret, workspaceSecret, req, &resp)
}

func (c *PeerClient) post(ctx context.Context, url, header, secret string, body any, out *peerResponse) error {
	if err := c.limiter.Wait(ctx, url); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(header, secret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("peer returned %d: %s", resp.StatusCode, msg)
	}

	return nil
}
