// Package audit provides append-only audit logging. Events are immutable:
// the service exposes no update or delete path, and the audit_event table
// never receives one.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nlatta/caseforge/internal/infra/eventbus"
)

// ActorType identifies who performed an audited action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
	ActorTypeHook   ActorType = "hook"
)

// Outcome is the result of an audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Event is a single audit log entry.
type Event struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	ActorID     string          `json:"actor_id"`
	ActorType   ActorType       `json:"actor_type"`
	Action      string          `json:"action"`
	EntityType  *string         `json:"entity_type,omitempty"`
	EntityID    *string         `json:"entity_id,omitempty"`
	RequestID   *string         `json:"request_id,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	Outcome     Outcome         `json:"outcome"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Service writes audit events to SQLite.
type Service struct {
	db  *sql.DB
	log *slog.Logger
}

// NewService returns an audit service backed by db.
func NewService(db *sql.DB, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, log: log.With("component", "audit")}
}

// Log appends one event. This is the only write path for audit records.
func (s *Service) Log(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	details := event.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (
			id, workspace_id, actor_id, actor_type, action,
			entity_type, entity_id, request_id, details, outcome, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.WorkspaceID, event.ActorID, string(event.ActorType), event.Action,
		event.EntityType, event.EntityID, event.RequestID, string(details),
		string(event.Outcome), event.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("audit: log: %w", err)
	}
	return nil
}

// LogAction is the common-case helper: marshals details and appends.
func (s *Service) LogAction(ctx context.Context, workspaceID, actorID string, actorType ActorType, action string, outcome Outcome, details map[string]any) error {
	var raw json.RawMessage
	if len(details) > 0 {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	return s.Log(ctx, &Event{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		ActorType:   actorType,
		Action:      action,
		Details:     raw,
		Outcome:     outcome,
	})
}

// ListByWorkspace returns events newest-first.
func (s *Service) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]*Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, actor_id, actor_type, action,
		       entity_type, entity_id, request_id, details, outcome, created_at
		FROM audit_event
		WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Event, 0, limit)
	for rows.Next() {
		var (
			e         Event
			actorType string
			outcome   string
			details   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.ActorID, &actorType, &e.Action,
			&e.EntityType, &e.EntityID, &e.RequestID, &details, &outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.ActorType = ActorType(actorType)
		e.Outcome = Outcome(outcome)
		e.Details = json.RawMessage(details)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// RequestRecord is the lifecycle payload the orchestrator publishes on the
// event bus for every finished dispatch.
type RequestRecord struct {
	RequestID   string `json:"request_id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Operation   string `json:"operation"`
	Status      string `json:"status"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// StartRecorder consumes request lifecycle events from the bus and persists
// them out-of-band. It returns when ctx is cancelled.
func (s *Service) StartRecorder(ctx context.Context, bus eventbus.EventBus) {
	completed := bus.Subscribe(eventbus.TopicRequestCompleted)
	failed := bus.Subscribe(eventbus.TopicRequestFailed)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-completed:
			s.recordLifecycle(ctx, evt, OutcomeSuccess)
		case evt := <-failed:
			s.recordLifecycle(ctx, evt, OutcomeError)
		}
	}
}

func (s *Service) recordLifecycle(ctx context.Context, evt eventbus.Event, outcome Outcome) {
	rec, ok := evt.Payload.(RequestRecord)
	if !ok {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	requestID := rec.RequestID
	err = s.Log(ctx, &Event{
		WorkspaceID: rec.WorkspaceID,
		ActorID:     rec.UserID,
		ActorType:   ActorTypeSystem,
		Action:      "request." + rec.Status,
		RequestID:   &requestID,
		Details:     raw,
		Outcome:     outcome,
	})
	if err != nil {
		s.log.Warn("lifecycle audit write failed", "request_id", rec.RequestID, "error", err)
	}
}
