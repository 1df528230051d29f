// Package handlers translates HTTP requests into domain calls and maps
// domain errors to status codes. Handlers never touch registries' internals.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nlatta/caseforge/internal/api/ctxkeys"
	"github.com/nlatta/caseforge/internal/domain/policy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// principalFrom builds the dispatch principal from the claims the auth
// middleware injected. An unauthenticated request yields a zero principal;
// the orchestrator's policy checks decide whether that is acceptable.
func principalFrom(ctx context.Context) policy.Principal {
	return policy.Principal{
		UserID:      ctxkeys.StringValue(ctx, ctxkeys.UserID),
		WorkspaceID: ctxkeys.StringValue(ctx, ctxkeys.WorkspaceID),
		Permissions: ctxkeys.PermissionsValue(ctx),
	}
}
