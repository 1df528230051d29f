// Package middleware provides the HTTP middleware for protected routes.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nlatta/caseforge/internal/api/ctxkeys"
	pkgauth "github.com/nlatta/caseforge/pkg/auth"
)

// Auth validates the Bearer JWT and injects user, workspace and
// permissions into the request context. Applied to all /api/v1/* routes;
// /auth/* and /health stay public.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing or invalid Authorization header")
			return
		}

		claims, err := pkgauth.ParseJWT(token)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := r.Context()
		ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
		ctx = ctxkeys.WithValue(ctx, ctxkeys.WorkspaceID, claims.WorkspaceID)
		ctx = ctxkeys.WithPermissions(ctx, claims.Permissions)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken pulls the token from "Authorization: Bearer <token>".
// Empty string on missing header, wrong scheme, or empty token.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
