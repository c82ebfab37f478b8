// ABOUTME: HTTP server exposing the claim-sync and workspace-sync webhooks
// ABOUTME: Authenticates each action by its secret header and dispatches to the sync package
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/claimsync/sync"
)

const maxBodyBytes = 32 << 20

// Secrets are the shared credentials each action is checked against.
type Secrets struct {
	ServiceKey          string
	CronSecret          string
	ClaimSyncSecret     string
	WorkspaceSyncSecret string
}

type Server struct {
	initiator *sync.Initiator
	receiver  *sync.Receiver
	secrets   Secrets
	logger    *zap.Logger
	mux       *http.ServeMux
}

func NewServer(initiator *sync.Initiator, receiver *sync.Receiver, secrets Secrets, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		initiator: initiator,
		receiver:  receiver,
		secrets:   secrets,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc(sync.ClaimSyncPath, s.handleWebhook)
	s.mux.HandleFunc(sync.WorkspaceSyncPath, s.handleWebhook)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sync.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	log := s.logger.With(zap.String("action", req.Action), zap.String("path", r.URL.Path))

	if status, msg := s.authorize(r, &req); status != 0 {
		log.Warn("rejected webhook call", zap.Int("status", status), zap.String("reason", msg))
		writeError(w, status, msg)
		return
	}

	body, err := s.dispatch(r.Context(), &req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("webhook action failed", zap.Error(err))
		} else {
			log.Info("webhook action refused", zap.Int("status", status), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

// authorize checks the credential each action requires. It returns a zero
// status when the call may proceed.
func (s *Server) authorize(r *http.Request, req *sync.Request) (int, string) {
	switch req.Action {
	case sync.ActionCreateOrUpdate, sync.ActionGetUsers:
		return s.authorizePeer(r, req)

	case sync.ActionReceiveWorkspaceInvite:
		return checkHeader(r.Header.Get(sync.HeaderWorkspaceSyncSecret), s.secrets.WorkspaceSyncSecret, sync.HeaderWorkspaceSyncSecret)

	case sync.ActionSyncAllWorkspaces:
		if sync.SecretsMatch(r.Header.Get(sync.HeaderCronSecret), s.secrets.CronSecret) ||
			sync.SecretsMatch(bearerToken(r), s.secrets.ServiceKey) {
			return 0, ""
		}
		return http.StatusUnauthorized, "cron secret or service token required"

	case sync.ActionRegisterLink, sync.ActionRevokeLink:
		token := bearerToken(r)
		if token == "" {
			return http.StatusBadRequest, "missing authorization header"
		}
		if !sync.SecretsMatch(token, s.secrets.ServiceKey) {
			return http.StatusUnauthorized, "invalid service token"
		}
		return 0, ""

	case sync.ActionSyncClaims:
		// Checked against the stored link by the initiator.
		return 0, ""

	case "":
		return http.StatusBadRequest, "action is required"
	default:
		return http.StatusBadRequest, "unknown action: " + req.Action
	}
}

// authorizePeer accepts either the instance-wide claim sync secret or the
// secret of the active link this instance holds for the calling peer.
func (s *Server) authorizePeer(r *http.Request, req *sync.Request) (int, string) {
	presented := r.Header.Get(sync.HeaderClaimSyncSecret)
	if presented == "" {
		return http.StatusBadRequest, "missing " + sync.HeaderClaimSyncSecret + " header"
	}
	if sync.SecretsMatch(presented, s.secrets.ClaimSyncSecret) {
		return 0, ""
	}

	ok, err := s.receiver.LinkSecretMatches(r.Context(), req, presented)
	if err != nil {
		s.logger.Error("link secret lookup failed", zap.Error(err))
		return http.StatusInternalServerError, "failed to check sync secret"
	}
	if !ok {
		return http.StatusUnauthorized, "invalid " + sync.HeaderClaimSyncSecret
	}
	return 0, ""
}

func checkHeader(presented, expected, name string) (int, string) {
	if presented == "" {
		return http.StatusBadRequest, "missing " + name + " header"
	}
	if !sync.SecretsMatch(presented, expected) {
		return http.StatusUnauthorized, "invalid " + name
	}
	return 0, ""
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func (s *Server) dispatch(ctx context.Context, req *sync.Request) (map[string]any, error) {
	switch req.Action {
	case sync.ActionCreateOrUpdate:
		res, err := s.receiver.CreateOrUpdate(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"claim_id": res.ClaimID, "created": res.Created, "counts": res.Counts}, nil

	case sync.ActionGetUsers:
		users, err := s.receiver.GetUsers(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"users": users}, nil

	case sync.ActionRegisterLink:
		link, created, err := s.initiator.RegisterLink(ctx, sync.LinkParams{
			WorkspaceID:         req.WorkspaceID,
			ExternalInstanceURL: req.ExternalInstanceURL,
			ExternalWorkspaceID: req.ExternalWorkspaceID,
			InstanceName:        req.InstanceName,
			SyncSecret:          req.SyncSecret,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"link": link, "created": created}, nil

	case sync.ActionSyncClaims:
		results, err := s.initiator.SyncClaims(ctx, req.WorkspaceID, req.TargetInstanceURL, req.SyncSecret)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results, "failed": sync.Failed(results)}, nil

	case sync.ActionReceiveWorkspaceInvite:
		link, created, err := s.receiver.ReceiveWorkspaceInvite(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"link": link, "created": created}, nil

	case sync.ActionSyncAllWorkspaces:
		out, err := s.initiator.SyncAllWorkspaces(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"links": out}, nil

	case sync.ActionRevokeLink:
		if err := s.initiator.RevokeLink(ctx, req.LinkedWorkspaceID); err != nil {
			return nil, err
		}
		return map[string]any{"linked_workspace_id": req.LinkedWorkspaceID}, nil
	}

	return nil, errors.New("unhandled action " + req.Action)
}
