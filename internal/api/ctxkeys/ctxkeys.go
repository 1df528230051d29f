// Package ctxkeys holds the shared context keys for the API layer. A leaf
// package so middleware and handlers agree on key type and value without
// import cycles.
package ctxkeys

import "context"

// Key is the named type for all API context keys. context.Value compares
// type and value, so a named type cannot collide with string keys from
// other packages.
type Key string

const (
	// UserID is the authenticated user, injected from JWT claims.
	UserID Key = "user_id"

	// WorkspaceID is the active workspace, injected from JWT claims.
	WorkspaceID Key = "workspace_id"

	// Permissions is the caller's permission list, injected from JWT claims.
	Permissions Key = "permissions"
)

// WithValue adds a string value under key.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// WithPermissions adds the caller's permission list.
func WithPermissions(ctx context.Context, perms []string) context.Context {
	return context.WithValue(ctx, Permissions, perms)
}

// StringValue reads a string value; missing or mistyped values read as "".
func StringValue(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// PermissionsValue reads the permission list; missing reads as nil.
func PermissionsValue(ctx context.Context) []string {
	v, _ := ctx.Value(Permissions).([]string)
	return v
}
