// Package policy defines the declarative session/casefile/audit overlays
// attached to tools and the enforcement checks the orchestrator runs before
// a handler executes.
package policy

import (
	"errors"
	"fmt"
	"slices"
)

// PolicyViolation sentinels. The orchestrator maps these to structured
// failure responses; they are never raised at build time.
var (
	ErrAuthRequired         = errors.New("authentication required")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrSessionRequired      = errors.New("active session required")
	ErrCasefileAccessDenied = errors.New("casefile access denied")
	ErrCasefileStateInvalid = errors.New("casefile state invalid")
	ErrUnknownTemplate      = errors.New("unknown policy template")
)

// SessionPolicy governs session handling during context preparation.
type SessionPolicy struct {
	RequiresActiveSession bool `json:"requires_active_session" yaml:"requires_active_session"`
	AllowNewSession       bool `json:"allow_new_session" yaml:"allow_new_session"`
	AllowSessionResume    bool `json:"allow_session_resume" yaml:"allow_session_resume"`
}

// CasefilePolicy governs casefile loading and state gating.
type CasefilePolicy struct {
	RequiresCasefile bool     `json:"requires_casefile" yaml:"requires_casefile"`
	AllowedStatuses  []string `json:"allowed_statuses,omitempty" yaml:"allowed_statuses,omitempty"`
}

// AuditPolicy governs the audit hook's verbosity.
type AuditPolicy struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	IncludePayload bool `json:"include_payload" yaml:"include_payload"`
}

// Set is a fully resolved policy for one dispatch: a named template merged
// with the tool's overlay and the operation's business rules.
type Set struct {
	Template            string         `json:"template"`
	AuthRequired        bool           `json:"auth_required"`
	RequiredPermissions []string       `json:"required_permissions,omitempty"`
	Session             SessionPolicy  `json:"session"`
	Casefile            CasefilePolicy `json:"casefile"`
	Audit               AuditPolicy    `json:"audit"`
}

// Overlay is the optional per-tool policy block from a declarative spec.
// Nil sections inherit the template value unchanged.
type Overlay struct {
	Template string          `json:"template,omitempty" yaml:"template,omitempty"`
	Session  *SessionPolicy  `json:"session,omitempty" yaml:"session,omitempty"`
	Casefile *CasefilePolicy `json:"casefile,omitempty" yaml:"casefile,omitempty"`
	Audit    *AuditPolicy    `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// DefaultTemplate is merged into specs that carry no policy block.
const DefaultTemplate = "authenticated_access"

// templates are the named baseline policies. Kept in code, not config:
// adding one is a reviewed change.
var templates = map[string]Set{
	"authenticated_access": {
		Template:     "authenticated_access",
		AuthRequired: true,
		Session:      SessionPolicy{AllowNewSession: true, AllowSessionResume: true},
		Audit:        AuditPolicy{Enabled: true},
	},
	"session_bound": {
		Template:     "session_bound",
		AuthRequired: true,
		Session:      SessionPolicy{RequiresActiveSession: true, AllowNewSession: true, AllowSessionResume: true},
		Audit:        AuditPolicy{Enabled: true},
	},
	"public_access": {
		Template: "public_access",
		Audit:    AuditPolicy{Enabled: false},
	},
	"casefile_write": {
		Template:     "casefile_write",
		AuthRequired: true,
		Session:      SessionPolicy{AllowNewSession: true, AllowSessionResume: true},
		Casefile:     CasefilePolicy{RequiresCasefile: true, AllowedStatuses: []string{"open"}},
		Audit:        AuditPolicy{Enabled: true, IncludePayload: true},
	},
}

// Template returns a copy of the named template.
func Template(name string) (Set, error) {
	t, ok := templates[name]
	if !ok {
		return Set{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	t.RequiredPermissions = slices.Clone(t.RequiredPermissions)
	t.Casefile.AllowedStatuses = slices.Clone(t.Casefile.AllowedStatuses)
	return t, nil
}

// TemplateNames lists the known templates, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Rules is the subset of an operation's business rules the resolver folds in.
type Rules struct {
	AuthRequired        bool
	RequiredPermissions []string
	RequiresCasefile    bool
}

// Resolve merges template, overlay and operation rules into one Set.
// Overlay sections replace the template section wholesale; operation rules
// can only tighten (auth and casefile requirements are OR-ed in, permissions
// are unioned).
func Resolve(overlay Overlay, rules Rules) (Set, error) {
	name := overlay.Template
	if name == "" {
		name = DefaultTemplate
	}
	set, err := Template(name)
	if err != nil {
		return Set{}, err
	}

	if overlay.Session != nil {
		set.Session = *overlay.Session
	}
	if overlay.Casefile != nil {
		set.Casefile = *overlay.Casefile
	}
	if overlay.Audit != nil {
		set.Audit = *overlay.Audit
	}

	set.AuthRequired = set.AuthRequired || rules.AuthRequired
	set.Casefile.RequiresCasefile = set.Casefile.RequiresCasefile || rules.RequiresCasefile
	for _, perm := range rules.RequiredPermissions {
		if !slices.Contains(set.RequiredPermissions, perm) {
			set.RequiredPermissions = append(set.RequiredPermissions, perm)
		}
	}
	return set, nil
}

// Principal is the authenticated caller identity the transport layer
// establishes before dispatch.
type Principal struct {
	UserID      string
	WorkspaceID string
	Permissions []string
}

// Authenticated reports whether a user identity is present.
func (p Principal) Authenticated() bool { return p.UserID != "" }

// Can reports whether the principal holds perm ("*" grants everything).
func (p Principal) Can(perm string) bool {
	return slices.Contains(p.Permissions, perm) || slices.Contains(p.Permissions, "*")
}

// CheckAccess verifies the principal against the resolved set. Session and
// casefile state checks live in the orchestrator, which owns those snapshots.
func CheckAccess(set Set, principal Principal) error {
	if !set.AuthRequired {
		return nil
	}
	if !principal.Authenticated() {
		return ErrAuthRequired
	}
	for _, perm := range set.RequiredPermissions {
		if !principal.Can(perm) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, perm)
		}
	}
	return nil
}

// CheckCasefileState verifies a loaded casefile's status against the set's
// allowed statuses. An empty allow-list accepts any status.
func CheckCasefileState(set Set, status string) error {
	if len(set.Casefile.AllowedStatuses) == 0 {
		return nil
	}
	if !slices.Contains(set.Casefile.AllowedStatuses, status) {
		return fmt.Errorf("%w: status %q", ErrCasefileStateInvalid, status)
	}
	return nil
}
