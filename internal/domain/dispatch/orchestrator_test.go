package dispatch

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nlatta/caseforge/internal/domain/audit"
	"github.com/nlatta/caseforge/internal/domain/casefile"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
	"github.com/nlatta/caseforge/internal/domain/session"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/domain/tool/gen"
	"github.com/nlatta/caseforge/internal/infra/eventbus"
	"github.com/nlatta/caseforge/internal/infra/sqlite"
)

type testEnv struct {
	db        *sql.DB
	orch      *Orchestrator
	casefiles *casefile.Service
	sessions  *session.Store
	auditor   *audit.Service
	bus       *eventbus.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// casefile and session rows reference workspace and user_account.
	_, err = db.Exec(`INSERT INTO workspace (id, name, created_at) VALUES ('ws-1', 'Acme Support', '2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO user_account (id, workspace_id, email, display_name, password_hash, permissions, created_at)
		VALUES ('user-1', 'ws-1', 'nina@example.com', 'Nina', 'x', '["casefile:read","casefile:write"]', '2026-01-01T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	ops := operation.NewRegistry()
	if err := operation.BootstrapInventory(ops); err != nil {
		t.Fatalf("bootstrap inventory: %v", err)
	}
	tools := tool.NewRegistry()
	ctx := context.Background()
	if err := gen.LoadGenerated(ctx, db, ops, tools); err != nil {
		t.Fatalf("load tools: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	casefiles := casefile.NewService(db)
	sessions := session.NewStore(db, 30*time.Minute)
	auditor := audit.NewService(db, logger)
	bus := eventbus.New()
	orch := New(ops, tools, casefiles, sessions, BuiltinHooks(sessions, auditor, logger), bus, logger)

	return &testEnv{
		db:        db,
		orch:      orch,
		casefiles: casefiles,
		sessions:  sessions,
		auditor:   auditor,
		bus:       bus,
	}
}

func fullAccess() policy.Principal {
	return policy.Principal{
		UserID:      "user-1",
		WorkspaceID: "ws-1",
		Permissions: []string{"casefile:read", "casefile:write"},
	}
}

// seedCasefile creates a casefile directly through the service, bypassing
// dispatch, so tests can stage preconditions.
func seedCasefile(t *testing.T, env *testEnv) *casefile.Casefile {
	t.Helper()
	cf, err := env.casefiles.Create(context.Background(), casefile.CreateInput{
		WorkspaceID: "ws-1",
		OwnerID:     "user-1",
		Title:       "Broken SSO",
		Priority:    "high",
	})
	if err != nil {
		t.Fatalf("seed casefile: %v", err)
	}
	return cf
}

func TestDispatch_CreateCasefileLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	completed := env.bus.Subscribe(eventbus.TopicRequestCompleted)

	resp := env.orch.Dispatch(ctx, &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "Broken SSO"},
		Principal: fullAccess(),
	})

	if resp.State != StateCompleted {
		t.Fatalf("state = %s, error = %+v", resp.State, resp.Error)
	}
	if resp.Operation != "create_casefile" {
		t.Errorf("operation = %q", resp.Operation)
	}
	id, _ := resp.Result["casefile_id"].(string)
	if id == "" {
		t.Fatalf("result missing casefile_id: %v", resp.Result)
	}
	if resp.SessionID == "" {
		t.Error("expected a session to be established")
	}
	if resp.SessionRecreated {
		t.Error("first session must not be flagged as recreated")
	}

	want := []HookEvent{
		{Hook: "session_lifecycle", Phase: "pre", Event: "session_created"},
		{Hook: "metrics", Phase: "pre", Event: "request_started"},
		{Hook: "audit", Phase: "pre", Event: "audit_started"},
		{Hook: "metrics", Phase: "post", Event: "request_completed"},
		{Hook: "audit", Phase: "post", Event: "audit_logged"},
	}
	if len(resp.HookEvents) != len(want) {
		t.Fatalf("hook events = %+v, want %d entries", resp.HookEvents, len(want))
	}
	for i, evt := range want {
		if resp.HookEvents[i] != evt {
			t.Errorf("hook event[%d] = %+v, want %+v", i, resp.HookEvents[i], evt)
		}
	}

	// The write must be visible through the service.
	if _, err := env.casefiles.Get(ctx, "ws-1", id); err != nil {
		t.Errorf("created casefile not readable: %v", err)
	}

	// The audit hook writes synchronously inside the dispatch.
	events, err := env.auditor.ListByWorkspace(ctx, "ws-1", 10, 0)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	found := false
	for _, evt := range events {
		if evt.Action == "tool.create_casefile_tool" {
			found = true
		}
	}
	if !found {
		t.Errorf("no audit event for the dispatch, got %d events", len(events))
	}

	select {
	case evt := <-completed:
		rec, ok := evt.Payload.(audit.RequestRecord)
		if !ok {
			t.Fatalf("payload type %T", evt.Payload)
		}
		if rec.Status != "completed" || rec.WorkspaceID != "ws-1" || rec.RequestID != resp.RequestID {
			t.Errorf("lifecycle record = %+v", rec)
		}
	default:
		t.Error("no lifecycle event published")
	}
}

func TestDispatch_SecondRequestReusesSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := env.orch.Dispatch(ctx, &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "First"},
		Principal: fullAccess(),
	})
	if first.State != StateCompleted {
		t.Fatalf("first dispatch: %+v", first.Error)
	}

	second := env.orch.Dispatch(ctx, &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "Second"},
		Principal: fullAccess(),
	})
	if second.State != StateCompleted {
		t.Fatalf("second dispatch: %+v", second.Error)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session changed: %q -> %q", first.SessionID, second.SessionID)
	}
	if got := second.HookEvents[0].Event; got != "activity_updated" {
		t.Errorf("first hook event = %q, want activity_updated", got)
	}
}

func TestDispatch_ExpiredSessionRecreated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	_, err := env.db.Exec(`
		INSERT INTO session (id, user_id, status, created_at, last_active_at, expires_at)
		VALUES ('sess-stale', 'user-1', 'active', ?, ?, ?)
	`, past, past, past)
	if err != nil {
		t.Fatalf("seed stale session: %v", err)
	}

	resp := env.orch.Dispatch(ctx, &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "After expiry"},
		Principal: fullAccess(),
	})
	if resp.State != StateCompleted {
		t.Fatalf("dispatch failed: %+v", resp.Error)
	}
	if !resp.SessionRecreated {
		t.Error("expected session_recreated")
	}
	if resp.SessionID == "" || resp.SessionID == "sess-stale" {
		t.Errorf("session id = %q", resp.SessionID)
	}
	if got := resp.HookEvents[0].Event; got != "session_created" {
		t.Errorf("first hook event = %q, want session_created", got)
	}

	stale, err := env.sessions.Get(ctx, "sess-stale")
	if err != nil {
		t.Fatalf("get stale session: %v", err)
	}
	if stale.Status != "closed" {
		t.Errorf("stale session status = %q, want closed", stale.Status)
	}
}

func TestDispatch_ExpiredSessionReplacedWithoutResume(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// A policy that never resumes sessions but happily starts fresh ones.
	ops := operation.NewRegistry()
	if err := operation.BootstrapInventory(ops); err != nil {
		t.Fatalf("bootstrap inventory: %v", err)
	}
	tools := tool.NewRegistry()
	def := &tool.Definition{
		Name:      "create_casefile_no_resume_tool",
		Kind:      tool.KindAPICall,
		Operation: "create_casefile",
		Policy: policy.Overlay{
			Session: &policy.SessionPolicy{AllowNewSession: true},
		},
	}
	if err := tools.Load(ctx, nil, ops, []*tool.Definition{def}); err != nil {
		t.Fatalf("load tool: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := New(ops, tools, env.casefiles, env.sessions,
		BuiltinHooks(env.sessions, env.auditor, logger), nil, logger)

	past := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	_, err := env.db.Exec(`
		INSERT INTO session (id, user_id, status, created_at, last_active_at, expires_at)
		VALUES ('sess-old', 'user-1', 'active', ?, ?, ?)
	`, past, past, past)
	if err != nil {
		t.Fatalf("seed stale session: %v", err)
	}

	// A stale row must not fail a request the policy does not gate on an
	// active session; a fresh session replaces it.
	resp := orch.Dispatch(ctx, &RequestEnvelope{
		Tool:      "create_casefile_no_resume_tool",
		Input:     map[string]any{"title": "After expiry, no resume"},
		Principal: fullAccess(),
	})
	if resp.State != StateCompleted {
		t.Fatalf("dispatch failed: %+v", resp.Error)
	}
	if resp.SessionID == "" || resp.SessionID == "sess-old" {
		t.Errorf("session id = %q, want a fresh session", resp.SessionID)
	}
	if resp.SessionRecreated {
		t.Error("fresh session must not be flagged as resumed")
	}

	stale, err := env.sessions.Get(ctx, "sess-old")
	if err != nil {
		t.Fatalf("get stale session: %v", err)
	}
	if stale.Status != "closed" {
		t.Errorf("stale session status = %q, want closed", stale.Status)
	}
}

func TestDispatch_DeclaredHooksRunInOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "Investigation X"},
		Hooks:     []string{"metrics", "audit"},
		Principal: fullAccess(),
	})
	if resp.State != StateCompleted {
		t.Fatalf("state = %s, error = %+v", resp.State, resp.Error)
	}
	if id, _ := resp.Result["casefile_id"].(string); id == "" {
		t.Fatalf("result missing casefile_id: %v", resp.Result)
	}

	// Two declared hooks, both stages, declaration order within each stage.
	want := []HookEvent{
		{Hook: "metrics", Phase: "pre", Event: "request_started"},
		{Hook: "audit", Phase: "pre", Event: "audit_started"},
		{Hook: "metrics", Phase: "post", Event: "request_completed"},
		{Hook: "audit", Phase: "post", Event: "audit_logged"},
	}
	if len(resp.HookEvents) != len(want) {
		t.Fatalf("hook events = %+v, want %d entries", resp.HookEvents, len(want))
	}
	for i, evt := range want {
		if resp.HookEvents[i] != evt {
			t.Errorf("hook event[%d] = %+v, want %+v", i, resp.HookEvents[i], evt)
		}
	}
}

func TestDispatch_UnknownHookRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "x"},
		Hooks:     []string{"metrics", "tracing"},
		Principal: fullAccess(),
	})
	if resp.State != StateFailed {
		t.Fatal("expected failure for an undeclared hook id")
	}
	if resp.Error.Code != "invalid_input" {
		t.Errorf("code = %q (%s)", resp.Error.Code, resp.Error.Message)
	}
}

func TestDispatch_PolicyHint(t *testing.T) {
	t.Parallel()

	t.Run("hint replaces the tool template", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		// casefile_write demands a casefile; the create tool's own policy
		// does not. The hint must win.
		resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
			Tool:       "create_casefile_tool",
			Input:      map[string]any{"title": "x"},
			PolicyHint: "casefile_write",
			Principal:  fullAccess(),
		})
		if resp.State != StateFailed {
			t.Fatal("expected failure without a casefile id")
		}
		if resp.Error.Code != "invalid_input" {
			t.Errorf("code = %q (%s)", resp.Error.Code, resp.Error.Message)
		}
	})

	t.Run("unknown hint rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
			Tool:       "create_casefile_tool",
			Input:      map[string]any{"title": "x"},
			PolicyHint: "backstage_pass",
			Principal:  fullAccess(),
		})
		if resp.State != StateFailed {
			t.Fatal("expected failure for an unknown template")
		}
		if resp.Error.Code != "invalid_input" {
			t.Errorf("code = %q (%s)", resp.Error.Code, resp.Error.Message)
		}
	})
}

func TestDispatch_ContextRequirementsTighten(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "create_casefile_tool",
		Input:     map[string]any{"title": "x"},
		Require:   ContextRequirements{Casefile: true},
		Principal: fullAccess(),
	})
	if resp.State != StateFailed {
		t.Fatal("expected failure: the envelope demanded a casefile")
	}
	if resp.Error.Code != "invalid_input" {
		t.Errorf("code = %q (%s)", resp.Error.Code, resp.Error.Message)
	}
}

func TestDispatch_ErrorMapping(t *testing.T) {
	t.Parallel()

	readOnly := fullAccess()
	readOnly.Permissions = []string{"casefile:read"}

	tests := []struct {
		name     string
		setup    func(t *testing.T, env *testEnv) *RequestEnvelope
		wantCode string
	}{
		{
			name: "unknown tool",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				return &RequestEnvelope{Tool: "no_such_tool", Principal: fullAccess()}
			},
			wantCode: "unknown_operation",
		},
		{
			name: "unauthenticated",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				return &RequestEnvelope{Tool: "create_casefile_tool", Input: map[string]any{"title": "x"}}
			},
			wantCode: "auth_required",
		},
		{
			name: "missing permission",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				return &RequestEnvelope{
					Tool:      "create_casefile_tool",
					Input:     map[string]any{"title": "x"},
					Principal: readOnly,
				}
			},
			wantCode: "permission_denied",
		},
		{
			name: "missing casefile id",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				return &RequestEnvelope{Tool: "get_casefile_tool", Input: map[string]any{}, Principal: fullAccess()}
			},
			wantCode: "invalid_input",
		},
		{
			name: "casefile not found",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				return &RequestEnvelope{
					Tool:      "get_casefile_tool",
					Input:     map[string]any{"casefile_id": "cf-missing"},
					Principal: fullAccess(),
				}
			},
			wantCode: "not_found",
		},
		{
			name: "closed casefile rejected",
			setup: func(t *testing.T, env *testEnv) *RequestEnvelope {
				cf := seedCasefile(t, env)
				if _, err := env.casefiles.Close(context.Background(), "ws-1", cf.ID, "user-1", "done"); err != nil {
					t.Fatalf("close casefile: %v", err)
				}
				return &RequestEnvelope{
					Tool:      "close_casefile_tool",
					Input:     map[string]any{"casefile_id": cf.ID},
					Principal: fullAccess(),
				}
			},
			wantCode: "invalid_state",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			req := tc.setup(t, env)
			resp := env.orch.Dispatch(context.Background(), req)

			if resp.State != StateFailed {
				t.Fatalf("state = %s, want FAILED", resp.State)
			}
			if resp.Error == nil {
				t.Fatal("missing error info")
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("code = %q (%s), want %q", resp.Error.Code, resp.Error.Message, tc.wantCode)
			}
			if resp.Error.RequestID != resp.RequestID {
				t.Errorf("error request id = %q, envelope = %q", resp.Error.RequestID, resp.RequestID)
			}
			if resp.HookEvents == nil {
				t.Error("hook events must be an empty slice, not nil")
			}
		})
	}
}

func TestDispatch_FailurePublishesLifecycleRecord(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	failed := env.bus.Subscribe(eventbus.TopicRequestFailed)

	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "no_such_tool",
		Principal: fullAccess(),
	})
	if resp.State != StateFailed {
		t.Fatalf("state = %s", resp.State)
	}

	select {
	case evt := <-failed:
		rec, ok := evt.Payload.(audit.RequestRecord)
		if !ok {
			t.Fatalf("payload type %T", evt.Payload)
		}
		if rec.Status != "failed" || rec.Error == "" {
			t.Errorf("lifecycle record = %+v", rec)
		}
	default:
		t.Error("no failure event published")
	}
}

func TestDispatch_CompositeEscalate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	cf := seedCasefile(t, env)

	resp := env.orch.Dispatch(ctx, &RequestEnvelope{
		Tool: "escalate_casefile_tool",
		Input: map[string]any{
			"casefile_id": cf.ID,
			"priority":    "urgent",
			"body":        "Paging on-call, SLA at risk.",
		},
		Principal: fullAccess(),
	})
	if resp.State != StateCompleted {
		t.Fatalf("dispatch failed: %+v", resp.Error)
	}
	if _, ok := resp.Result["escalated_at"].(string); !ok {
		t.Errorf("result missing escalated_at: %v", resp.Result)
	}
	if _, ok := resp.Result["note_id"].(string); !ok {
		t.Errorf("result missing note_id: %v", resp.Result)
	}

	got, err := env.casefiles.Get(ctx, "ws-1", cf.ID)
	if err != nil {
		t.Fatalf("get casefile: %v", err)
	}
	if got.Priority != "urgent" {
		t.Errorf("priority = %q, want urgent", got.Priority)
	}
}

func TestDispatch_DataTransformSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cf := seedCasefile(t, env)

	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "casefile_summary_tool",
		Input:     map[string]any{"casefile_id": cf.ID},
		Principal: fullAccess(),
	})
	if resp.State != StateCompleted {
		t.Fatalf("dispatch failed: %+v", resp.Error)
	}
	if got, _ := resp.Result["summary"].(string); got != "Broken SSO [open/high]" {
		t.Errorf("summary = %q", got)
	}
}

func TestDispatch_InputValidationRejectsBadEnum(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cf := seedCasefile(t, env)

	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool: "update_casefile_tool",
		Input: map[string]any{
			"casefile_id": cf.ID,
			"priority":    "catastrophic",
		},
		Principal: fullAccess(),
	})
	if resp.State != StateFailed {
		t.Fatal("expected validation failure")
	}
	if resp.Error.Code != "invalid_input" {
		t.Errorf("code = %q (%s)", resp.Error.Code, resp.Error.Message)
	}
}

func TestDispatch_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.orch.Dispatch(context.Background(), &RequestEnvelope{
		Tool:      "no_such_tool",
		Principal: fullAccess(),
	})
	if resp.RequestID == "" {
		t.Error("request id not assigned")
	}
}
