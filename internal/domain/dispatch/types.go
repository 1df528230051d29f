// Package dispatch is the request orchestrator: one entry point that takes a
// caller envelope, prepares an execution context, runs hooks around the tool
// execution, and maps every failure to a uniform error shape.
package dispatch

import (
	"errors"
	"time"

	"github.com/nlatta/caseforge/internal/domain/casefile"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
	"github.com/nlatta/caseforge/internal/domain/session"
	"github.com/nlatta/caseforge/internal/domain/tool"
)

var (
	ErrUnknownTool = errors.New("dispatch: unknown tool")
	ErrUnknownHook = errors.New("dispatch: unknown hook")
	ErrHookBlocked = errors.New("dispatch: blocked by hook")
)

// State is the dispatch lifecycle position. Transitions are linear; a
// failure at any point moves straight to StateFailed.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateContextPrepared State = "CONTEXT_PREPARED"
	StatePreHooksRun     State = "PRE_HOOKS_RUN"
	StateExecuting       State = "EXECUTING"
	StatePostHooksRun    State = "POST_HOOKS_RUN"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// ContextRequirements lets a caller demand context beyond what the tool's
// policy asks for. Requirements only add: they can tighten the resolved
// policy but never relax it.
type ContextRequirements struct {
	Session  bool `json:"session,omitempty"`
	Casefile bool `json:"casefile,omitempty"`
}

// RequestEnvelope is one inbound tool invocation. Hooks names the hook ids
// to run, in order, on both stages; empty means the full default chain.
// PolicyHint selects a policy template in place of the tool's own.
type RequestEnvelope struct {
	RequestID  string              `json:"request_id,omitempty"`
	Tool       string              `json:"tool"`
	Input      map[string]any      `json:"input"`
	Hooks      []string            `json:"hooks,omitempty"`
	PolicyHint string              `json:"policy_hint,omitempty"`
	Require    ContextRequirements `json:"context_requirements,omitempty"`
	Principal  policy.Principal    `json:"-"`
}

// ErrorInfo is the uniform error shape every failed dispatch carries. The
// operation and request id always travel with the message so a caller can
// report a failure without access to server logs.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Operation string `json:"operation,omitempty"`
	RequestID string `json:"request_id"`
}

// HookEvent is one entry of the ordered hook event log.
type HookEvent struct {
	Hook  string `json:"hook"`
	Phase string `json:"phase"` // pre | post
	Event string `json:"event"`
}

// ResponseEnvelope is the outcome of one dispatch.
type ResponseEnvelope struct {
	RequestID        string         `json:"request_id"`
	Tool             string         `json:"tool"`
	Operation        string         `json:"operation,omitempty"`
	State            State          `json:"state"`
	Result           map[string]any `json:"result,omitempty"`
	Error            *ErrorInfo     `json:"error,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	SessionRecreated bool           `json:"session_recreated"`
	HookEvents       []HookEvent    `json:"hook_events"`
	DurationMS       int64          `json:"duration_ms"`
}

// ExecutionContext is the per-request state hooks and the executor see. It
// is built once in prepare and mutated only by the orchestrator and hooks.
type ExecutionContext struct {
	RequestID  string
	Tool       *tool.Definition
	Operation  *operation.Definition // nil for composite tools
	Principal  policy.Principal
	Policy     policy.Set
	PolicyHint string
	Require    ContextRequirements
	Input      map[string]any

	Session          *session.Session
	SessionCreated   bool
	SessionRecreated bool
	Casefile         *casefile.Casefile

	State      State
	StartedAt  time.Time
	hookEvents []HookEvent
}

// RecordHookEvent appends to the ordered hook event log.
func (ec *ExecutionContext) RecordHookEvent(hook, phase, event string) {
	ec.hookEvents = append(ec.hookEvents, HookEvent{Hook: hook, Phase: phase, Event: event})
}

// HookEvents returns the event log in recording order.
func (ec *ExecutionContext) HookEvents() []HookEvent {
	return ec.hookEvents
}

// CasefileID returns the casefile this request targets, or "".
func (ec *ExecutionContext) CasefileID() string {
	if ec.Casefile != nil {
		return ec.Casefile.ID
	}
	if id, ok := ec.Input["casefile_id"].(string); ok {
		return id
	}
	return ""
}
