// Package casefile owns the casefile records operations act on. Handlers
// reach it only through the orchestrator; the service itself performs no
// locking and relies on last-writer-wins at the database layer.
package casefile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCasefileNotFound = errors.New("casefile not found")
	ErrCasefileClosed   = errors.New("casefile is not open")
)

// Casefile is one workspace casefile record.
type Casefile struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Note is one append-only casefile note.
type Note struct {
	ID         string    `json:"id"`
	CasefileID string    `json:"casefile_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateInput holds the fields for a new casefile.
type CreateInput struct {
	WorkspaceID string
	OwnerID     string
	Title       string
	Description string
	Priority    string
}

// UpdateInput carries optional field changes; empty strings leave the
// current value untouched.
type UpdateInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
}

// ListInput pages workspace casefiles, optionally filtered by status.
type ListInput struct {
	Status string
	Limit  int
	Offset int
}

// Service is a SQLite-backed casefile store.
type Service struct {
	db *sql.DB
}

// NewService returns a casefile service backed by db.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new open casefile and returns it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Casefile, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("casefile: title is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}

	now := time.Now().UTC()
	item := &Casefile{
		ID:          uuid.NewString(),
		WorkspaceID: in.WorkspaceID,
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		Status:      "open",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO casefile (
			id, workspace_id, owner_id, title, description,
			priority, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.WorkspaceID, item.OwnerID, item.Title, item.Description,
		item.Priority, item.Status, item.CreatedAt.Format(time.RFC3339), item.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("casefile: create: %w", err)
	}
	return item, nil
}

// Get returns a workspace casefile by id.
func (s *Service) Get(ctx context.Context, workspaceID, id string) (*Casefile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, owner_id, title, description,
		       priority, status, created_at, updated_at, closed_at
		FROM casefile
		WHERE workspace_id = ? AND id = ?
		LIMIT 1
	`, workspaceID, id)
	return scanCasefile(row)
}

// Update applies the non-empty fields of in to an open casefile.
// Returns ErrCasefileClosed for casefiles that are no longer open.
func (s *Service) Update(ctx context.Context, workspaceID, id string, in UpdateInput) (*Casefile, error) {
	existing, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != "open" && in.Status != "open" {
		return nil, fmt.Errorf("%w: %s", ErrCasefileClosed, id)
	}

	if in.Title != "" {
		existing.Title = in.Title
	}
	if in.Description != "" {
		existing.Description = in.Description
	}
	if in.Priority != "" {
		existing.Priority = in.Priority
	}
	if in.Status != "" {
		existing.Status = in.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE casefile
		SET title = ?, description = ?, priority = ?, status = ?, updated_at = ?
		WHERE workspace_id = ? AND id = ?
	`, existing.Title, existing.Description, existing.Priority, existing.Status,
		existing.UpdatedAt.Format(time.RFC3339), workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("casefile: update: %w", err)
	}
	return existing, nil
}

// Close transitions an open casefile to closed, recording the closure time.
// A reason, when given, is appended as a system note.
func (s *Service) Close(ctx context.Context, workspaceID, id, actorID, reason string) (*Casefile, error) {
	return s.terminate(ctx, workspaceID, id, actorID, reason, "closed")
}

// Archive is the deprecated terminal transition kept for archive_casefile.
func (s *Service) Archive(ctx context.Context, workspaceID, id, actorID string) (*Casefile, error) {
	return s.terminate(ctx, workspaceID, id, actorID, "", "archived")
}

func (s *Service) terminate(ctx context.Context, workspaceID, id, actorID, reason, status string) (*Casefile, error) {
	existing, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != "open" {
		return nil, fmt.Errorf("%w: %s", ErrCasefileClosed, id)
	}

	now := time.Now().UTC()
	existing.Status = status
	existing.UpdatedAt = now
	existing.ClosedAt = &now

	_, err = s.db.ExecContext(ctx, `
		UPDATE casefile
		SET status = ?, updated_at = ?, closed_at = ?
		WHERE workspace_id = ? AND id = ?
	`, status, now.Format(time.RFC3339), now.Format(time.RFC3339), workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("casefile: %s: %w", status, err)
	}

	if reason != "" {
		if _, noteErr := s.AddNote(ctx, workspaceID, id, actorID, "closed: "+reason); noteErr != nil {
			return nil, noteErr
		}
	}
	return existing, nil
}

// AddNote appends a note to an existing casefile.
func (s *Service) AddNote(ctx context.Context, workspaceID, casefileID, authorID, body string) (*Note, error) {
	if body == "" {
		return nil, fmt.Errorf("casefile: note body is required")
	}
	if _, err := s.Get(ctx, workspaceID, casefileID); err != nil {
		return nil, err
	}

	note := &Note{
		ID:         uuid.NewString(),
		CasefileID: casefileID,
		AuthorID:   authorID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO casefile_note (id, casefile_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.CasefileID, note.AuthorID, note.Body, note.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("casefile: add note: %w", err)
	}
	return note, nil
}

// List returns a page of workspace casefiles plus the total match count.
func (s *Service) List(ctx context.Context, workspaceID string, in ListInput) ([]*Casefile, int, error) {
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	where := "workspace_id = ?"
	args := []any{workspaceID}
	if in.Status != "" {
		where += " AND status = ?"
		args = append(args, in.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM casefile WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("casefile: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, owner_id, title, description,
		       priority, status, created_at, updated_at, closed_at
		FROM casefile
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, in.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("casefile: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Casefile, 0, limit)
	for rows.Next() {
		item, scanErr := scanCasefile(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCasefile(scan rowScanner) (*Casefile, error) {
	var (
		item      Casefile
		createdAt string
		updatedAt string
		closedAt  sql.NullString
	)
	err := scan.Scan(
		&item.ID, &item.WorkspaceID, &item.OwnerID, &item.Title, &item.Description,
		&item.Priority, &item.Status, &createdAt, &updatedAt, &closedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCasefileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("casefile: scan: %w", err)
	}

	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if closedAt.Valid {
		t, parseErr := time.Parse(time.RFC3339, closedAt.String)
		if parseErr == nil {
			item.ClosedAt = &t
		}
	}
	return &item, nil
}
