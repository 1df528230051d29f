package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nlatta/caseforge/internal/domain/audit"
	"github.com/nlatta/caseforge/internal/domain/casefile"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
	"github.com/nlatta/caseforge/internal/domain/session"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/infra/eventbus"
)

const defaultTimeout = 5 * time.Second

// Orchestrator is the single entry point for tool invocations. It owns the
// dispatch lifecycle; transports translate wire requests into envelopes and
// never touch registries or services directly.
type Orchestrator struct {
	ops       *operation.Registry
	tools     *tool.Registry
	casefiles *casefile.Service
	sessions  *session.Store
	hooks     []Hook          // default chain, slice order
	hookIndex map[string]Hook // by Name, for envelope-declared chains
	bus       eventbus.EventBus
	logger    *slog.Logger
	now       func() time.Time
}

// New wires an orchestrator. hooks is the named hook table; its slice order
// is the default chain when an envelope declares none. bus may be nil when
// no lifecycle consumers exist (tests).
func New(ops *operation.Registry, tools *tool.Registry, casefiles *casefile.Service,
	sessions *session.Store, hooks []Hook, bus eventbus.EventBus, logger *slog.Logger) *Orchestrator {
	index := make(map[string]Hook, len(hooks))
	for _, h := range hooks {
		index[h.Name()] = h
	}
	return &Orchestrator{
		ops:       ops,
		tools:     tools,
		casefiles: casefiles,
		sessions:  sessions,
		hooks:     hooks,
		hookIndex: index,
		bus:       bus,
		logger:    logger.With("component", "dispatch"),
		now:       time.Now,
	}
}

// Dispatch runs one request through the full lifecycle. The envelope always
// comes back non-nil; failures are carried in its Error field, never as a
// bare Go error the transport would have to re-map.
func (o *Orchestrator) Dispatch(ctx context.Context, req *RequestEnvelope) *ResponseEnvelope {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	started := o.now()
	resp := &ResponseEnvelope{
		RequestID: req.RequestID,
		Tool:      req.Tool,
		State:     StateReceived,
	}

	def, err := o.tools.Lookup(req.Tool)
	if err != nil {
		return o.finish(resp, nil, started, nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Tool))
	}
	resp.Operation = def.Operation

	ec := &ExecutionContext{
		RequestID:  req.RequestID,
		Tool:       def,
		Principal:  req.Principal,
		PolicyHint: req.PolicyHint,
		Require:    req.Require,
		Input:      req.Input,
		State:      StateReceived,
		StartedAt:  started,
	}
	if def.Kind != tool.KindComposite {
		// lookup cannot fail: the registry resolved it at load
		ec.Operation, _ = o.ops.Lookup(def.Operation)
	}

	hooks, err := o.resolveHooks(req.Hooks)
	if err != nil {
		return o.finish(resp, ec, started, nil, err)
	}

	if err := o.prepareContext(ctx, ec); err != nil {
		return o.finish(resp, ec, started, nil, err)
	}
	ec.State = StateContextPrepared

	for _, h := range hooks {
		if err := h.Before(ctx, ec); err != nil {
			if h.Blocking() {
				return o.finish(resp, ec, started, nil, fmt.Errorf("%w: %s: %v", ErrHookBlocked, h.Name(), err))
			}
			o.logger.Warn("advisory hook failed", "hook", h.Name(), "request_id", ec.RequestID, "error", err)
		}
	}
	ec.State = StatePreHooksRun

	ec.State = StateExecuting
	execCtx, cancel := context.WithTimeout(ctx, o.timeoutFor(def))
	executor := tool.NewExecutor(&opInvoker{
		casefiles:   o.casefiles,
		workspaceID: ec.Principal.WorkspaceID,
		actorID:     ec.Principal.UserID,
	}, o.logger)
	result, execErr := executor.Execute(execCtx, def, req.Input)
	cancel()

	// Post hooks run regardless of the execution outcome; a timed-out
	// request still gets its metrics and audit trail.
	for _, h := range hooks {
		if err := h.After(ctx, ec, result, execErr); err != nil {
			o.logger.Warn("post hook failed", "hook", h.Name(), "request_id", ec.RequestID, "error", err)
		}
	}
	ec.State = StatePostHooksRun

	return o.finish(resp, ec, started, result, execErr)
}

// resolveHooks turns envelope-declared hook ids into an execution chain.
// No declaration selects the full default chain.
func (o *Orchestrator) resolveHooks(ids []string) ([]Hook, error) {
	if len(ids) == 0 {
		return o.hooks, nil
	}
	chain := make([]Hook, 0, len(ids))
	for _, id := range ids {
		h, ok := o.hookIndex[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHook, id)
		}
		chain = append(chain, h)
	}
	return chain, nil
}

// prepareContext resolves policy, authenticates, establishes the session,
// and snapshots the target casefile. An envelope policy hint replaces the
// tool's template; envelope context requirements fold in on top, so a
// caller can require more context than the tool asks for but never less.
func (o *Orchestrator) prepareContext(ctx context.Context, ec *ExecutionContext) error {
	overlay := ec.Tool.Policy
	if ec.PolicyHint != "" {
		overlay.Template = ec.PolicyHint
	}
	set, err := policy.Resolve(overlay, o.rulesFor(ec.Tool))
	if err != nil {
		return err
	}
	set.Session.RequiresActiveSession = set.Session.RequiresActiveSession || ec.Require.Session
	set.Casefile.RequiresCasefile = set.Casefile.RequiresCasefile || ec.Require.Casefile
	ec.Policy = set

	if err := policy.CheckAccess(set, ec.Principal); err != nil {
		return err
	}
	if err := o.prepareSession(ctx, ec); err != nil {
		return err
	}
	if set.Casefile.RequiresCasefile {
		id, _ := ec.Input["casefile_id"].(string)
		if id == "" {
			return fmt.Errorf("%w: casefile_id", tool.ErrMissingParam)
		}
		cf, err := o.casefiles.Get(ctx, ec.Principal.WorkspaceID, id)
		if err != nil {
			return err
		}
		if err := policy.CheckCasefileState(set, cf.Status); err != nil {
			return err
		}
		ec.Casefile = cf
	}
	return nil
}

// prepareSession finds, recreates, or creates the caller's session per the
// resolved session policy. An expired session is closed and replaced when
// resume or fresh creation is allowed; a resumed replacement is flagged so
// clients can refresh any session-scoped state.
func (o *Orchestrator) prepareSession(ctx context.Context, ec *ExecutionContext) error {
	if !ec.Principal.Authenticated() {
		if ec.Policy.Session.RequiresActiveSession {
			return policy.ErrSessionRequired
		}
		return nil
	}

	existing, err := o.sessions.ActiveForUser(ctx, ec.Principal.UserID)
	switch {
	case err == nil && existing.Active(o.now()):
		ec.Session = existing
		return nil
	case err == nil && ec.Policy.Session.AllowSessionResume:
		// Expired but resumable: close the stale record and start over.
		if err := o.sessions.Close(ctx, existing.ID); err != nil {
			return err
		}
		fresh, err := o.sessions.Create(ctx, ec.Principal.UserID)
		if err != nil {
			return err
		}
		ec.Session = fresh
		ec.SessionRecreated = true
		return nil
	case err == nil:
		// Expired and resume disallowed: treat the stale record as absent.
		if !ec.Policy.Session.AllowNewSession {
			if ec.Policy.Session.RequiresActiveSession {
				return policy.ErrSessionRequired
			}
			return nil
		}
		if err := o.sessions.Close(ctx, existing.ID); err != nil {
			return err
		}
		fresh, err := o.sessions.Create(ctx, ec.Principal.UserID)
		if err != nil {
			return err
		}
		ec.Session = fresh
		ec.SessionCreated = true
		return nil
	case errors.Is(err, session.ErrSessionNotFound):
		if !ec.Policy.Session.AllowNewSession {
			if ec.Policy.Session.RequiresActiveSession {
				return policy.ErrSessionRequired
			}
			return nil
		}
		fresh, err := o.sessions.Create(ctx, ec.Principal.UserID)
		if err != nil {
			return err
		}
		ec.Session = fresh
		ec.SessionCreated = true
		return nil
	default:
		return err
	}
}

// rulesFor folds the operation business rules into policy input. Composite
// tools aggregate across steps: auth and casefile requirements are OR-ed,
// permissions unioned.
func (o *Orchestrator) rulesFor(def *tool.Definition) policy.Rules {
	var rules policy.Rules
	for _, ref := range def.OperationRefs() {
		op, err := o.ops.Lookup(ref)
		if err != nil {
			continue
		}
		rules.AuthRequired = rules.AuthRequired || op.Rules.AuthRequired
		rules.RequiresCasefile = rules.RequiresCasefile || op.Rules.RequiresCasefile
		for _, perm := range op.Rules.RequiredPermissions {
			rules.RequiredPermissions = append(rules.RequiredPermissions, perm)
		}
	}
	return rules
}

// timeoutFor picks the execution deadline: the wrapped operation's timeout,
// or for composites the sum of step timeouts, floored at the default.
func (o *Orchestrator) timeoutFor(def *tool.Definition) time.Duration {
	var total time.Duration
	for _, ref := range def.OperationRefs() {
		if op, err := o.ops.Lookup(ref); err == nil {
			total += op.Rules.Timeout
		}
	}
	if total <= 0 {
		return defaultTimeout
	}
	return total
}

// finish stamps the terminal state, attaches hook metadata, maps the error,
// and publishes the lifecycle record.
func (o *Orchestrator) finish(resp *ResponseEnvelope, ec *ExecutionContext, started time.Time,
	result map[string]any, execErr error) *ResponseEnvelope {
	resp.DurationMS = o.now().Sub(started).Milliseconds()
	if ec != nil {
		resp.HookEvents = ec.HookEvents()
		resp.SessionRecreated = ec.SessionRecreated
		if ec.Session != nil {
			resp.SessionID = ec.Session.ID
		}
	}
	if resp.HookEvents == nil {
		resp.HookEvents = []HookEvent{}
	}

	if execErr != nil {
		resp.State = StateFailed
		resp.Error = mapError(execErr, resp.Operation, resp.RequestID)
		o.publish(eventbus.TopicRequestFailed, resp, ec, execErr)
		return resp
	}
	resp.State = StateCompleted
	resp.Result = result
	o.publish(eventbus.TopicRequestCompleted, resp, ec, nil)
	return resp
}

func (o *Orchestrator) publish(topic string, resp *ResponseEnvelope, ec *ExecutionContext, execErr error) {
	if o.bus == nil {
		return
	}
	status := "completed"
	errMsg := ""
	if execErr != nil {
		status = "failed"
		errMsg = execErr.Error()
	}
	rec := audit.RequestRecord{
		RequestID:  resp.RequestID,
		Operation:  resp.Operation,
		Status:     status,
		DurationMS: resp.DurationMS,
		Error:      errMsg,
	}
	if ec != nil {
		rec.WorkspaceID = ec.Principal.WorkspaceID
		rec.UserID = ec.Principal.UserID
	}
	o.bus.Publish(topic, rec)
}

// mapError folds any failure into the uniform error shape. Sentinel checks
// run most-specific first.
func mapError(err error, op, requestID string) *ErrorInfo {
	code := "internal"
	switch {
	case errors.Is(err, ErrUnknownTool), errors.Is(err, operation.ErrOperationNotFound):
		code = "unknown_operation"
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	case errors.Is(err, policy.ErrAuthRequired):
		code = "auth_required"
	case errors.Is(err, policy.ErrPermissionDenied), errors.Is(err, policy.ErrCasefileAccessDenied):
		code = "permission_denied"
	case errors.Is(err, policy.ErrSessionRequired):
		code = "session_required"
	case errors.Is(err, policy.ErrCasefileStateInvalid), errors.Is(err, casefile.ErrCasefileClosed):
		code = "invalid_state"
	case errors.Is(err, casefile.ErrCasefileNotFound), errors.Is(err, session.ErrSessionNotFound):
		code = "not_found"
	case errors.Is(err, tool.ErrMissingParam), errors.Is(err, tool.ErrInvalidParam),
		errors.Is(err, ErrUnknownHook), errors.Is(err, policy.ErrUnknownTemplate):
		code = "invalid_input"
	case errors.Is(err, ErrHookBlocked):
		code = "hook_blocked"
	case errors.Is(err, tool.ErrStepFailed):
		code = "step_failed"
	}
	return &ErrorInfo{
		Code:      code,
		Message:   err.Error(),
		Operation: op,
		RequestID: requestID,
	}
}
