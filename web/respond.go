// ABOUTME: JSON and CORS response helpers for the webhook server
// ABOUTME: Maps sync error kinds onto HTTP status codes
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harperreed/claimsync/sync"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type, " +
		sync.HeaderClaimSyncSecret + ", " + sync.HeaderWorkspaceSyncSecret + ", " + sync.HeaderCronSecret,
}

func setCORS(w http.ResponseWriter) {
	for k, v := range corsHeaders {
		w.Header().Set(k, v)
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// statusFor maps sync error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sync.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, sync.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, sync.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
