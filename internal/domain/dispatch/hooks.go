package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nlatta/caseforge/internal/domain/audit"
	"github.com/nlatta/caseforge/internal/domain/session"
)

// Hook runs before and after tool execution. A blocking hook's Before error
// fails the dispatch; advisory hook errors are logged and ignored. After
// always runs best-effort, even when execution failed or timed out.
type Hook interface {
	Name() string
	Blocking() bool
	Before(ctx context.Context, ec *ExecutionContext) error
	After(ctx context.Context, ec *ExecutionContext, result map[string]any, execErr error) error
}

// BuiltinHooks returns the standard hook chain in its default order: session
// lifecycle first (blocking), then metrics, then audit. An envelope may
// select a subset of these by name.
func BuiltinHooks(sessions *session.Store, auditor *audit.Service, logger *slog.Logger) []Hook {
	return []Hook{
		&sessionLifecycleHook{sessions: sessions},
		&metricsHook{logger: logger.With("component", "metrics")},
		&auditHook{auditor: auditor},
	}
}

// sessionLifecycleHook keeps the session record in step with request
// activity. Sessions are created or recreated during context preparation;
// this hook only reports those transitions and extends the active session.
type sessionLifecycleHook struct {
	sessions *session.Store
}

func (h *sessionLifecycleHook) Name() string   { return "session_lifecycle" }
func (h *sessionLifecycleHook) Blocking() bool { return true }

func (h *sessionLifecycleHook) Before(ctx context.Context, ec *ExecutionContext) error {
	if ec.Session == nil {
		return nil // policy allows sessionless requests
	}
	if ec.SessionCreated || ec.SessionRecreated {
		ec.RecordHookEvent(h.Name(), "pre", "session_created")
		return nil
	}
	if err := h.sessions.Touch(ctx, ec.Session.ID); err != nil {
		return fmt.Errorf("touch session %s: %w", ec.Session.ID, err)
	}
	ec.RecordHookEvent(h.Name(), "pre", "activity_updated")
	return nil
}

func (h *sessionLifecycleHook) After(ctx context.Context, ec *ExecutionContext, _ map[string]any, _ error) error {
	return nil
}

// metricsHook records request timing. In-process only: counters live in the
// structured log stream, which is what the deployment scrapes.
type metricsHook struct {
	logger *slog.Logger
}

func (h *metricsHook) Name() string   { return "metrics" }
func (h *metricsHook) Blocking() bool { return false }

func (h *metricsHook) Before(_ context.Context, ec *ExecutionContext) error {
	ec.RecordHookEvent(h.Name(), "pre", "request_started")
	return nil
}

func (h *metricsHook) After(_ context.Context, ec *ExecutionContext, _ map[string]any, execErr error) error {
	outcome := "request_completed"
	if execErr != nil {
		outcome = "request_failed"
	}
	ec.RecordHookEvent(h.Name(), "post", outcome)
	h.logger.Info("request finished",
		"request_id", ec.RequestID,
		"tool", ec.Tool.Name,
		"outcome", outcome,
		"duration_ms", time.Since(ec.StartedAt).Milliseconds(),
	)
	return nil
}

// auditHook writes one audit event per finished dispatch when the resolved
// policy enables auditing. The pre stage only marks the trail as armed; the
// durable record is written after execution, when the outcome is known.
type auditHook struct {
	auditor *audit.Service
}

func (h *auditHook) Name() string   { return "audit" }
func (h *auditHook) Blocking() bool { return false }

func (h *auditHook) Before(_ context.Context, ec *ExecutionContext) error {
	if !ec.Policy.Audit.Enabled {
		return nil
	}
	ec.RecordHookEvent(h.Name(), "pre", "audit_started")
	return nil
}

func (h *auditHook) After(ctx context.Context, ec *ExecutionContext, result map[string]any, execErr error) error {
	if !ec.Policy.Audit.Enabled {
		return nil
	}
	outcome := audit.OutcomeSuccess
	if execErr != nil {
		outcome = audit.OutcomeError
	}
	details := map[string]any{"tool": ec.Tool.Name}
	if ec.Policy.Audit.IncludePayload {
		details["input"] = ec.Input
		if execErr == nil {
			details["result"] = result
		}
	}
	if execErr != nil {
		details["error"] = execErr.Error()
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}

	requestID := ec.RequestID
	evt := &audit.Event{
		WorkspaceID: ec.Principal.WorkspaceID,
		ActorID:     ec.Principal.UserID,
		ActorType:   audit.ActorTypeUser,
		Action:      "tool." + ec.Tool.Name,
		RequestID:   &requestID,
		Details:     raw,
		Outcome:     outcome,
	}
	if id := ec.CasefileID(); id != "" {
		entityType := "casefile"
		evt.EntityType = &entityType
		evt.EntityID = &id
	}
	if err := h.auditor.Log(ctx, evt); err != nil {
		return err
	}
	ec.RecordHookEvent(h.Name(), "post", "audit_logged")
	return nil
}
