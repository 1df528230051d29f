// Package session stores per-user sessions for the dispatch orchestrator.
// Sessions are shared mutable records; the store offers single-record
// operations only and assumes last-writer-wins (no optimistic versioning).
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one user session record.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"` // active | closed
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session's expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Active reports whether the session is open and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s.Status == "active" && !s.Expired(now)
}

// Store is a SQLite-backed session store.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore returns a session store; ttl bounds new sessions' lifetime.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{db: db, ttl: ttl}
}

// Create opens a new active session for userID.
func (s *Store) Create(ctx context.Context, userID string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       "active",
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(s.ttl),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, user_id, status, created_at, last_active_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.Status,
		sess.CreatedAt.Format(time.RFC3339), sess.LastActiveAt.Format(time.RFC3339), sess.ExpiresAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return sess, nil
}

// Get returns a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at, last_active_at, expires_at
		FROM session WHERE id = ? LIMIT 1
	`, id)
	return scanSession(row)
}

// ActiveForUser returns the most recent active session for userID, or
// ErrSessionNotFound. Expired rows are returned as-is; expiry handling is
// the orchestrator's session_lifecycle concern.
func (s *Store) ActiveForUser(ctx context.Context, userID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at, last_active_at, expires_at
		FROM session
		WHERE user_id = ? AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	return scanSession(row)
}

// Touch records activity, extending the session expiry by the store TTL.
func (s *Store) Touch(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE session SET last_active_at = ?, expires_at = ? WHERE id = ? AND status = 'active'
	`, now.Format(time.RFC3339), now.Add(s.ttl).Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return requireRow(res, id)
}

// Close marks a session closed. Closing an already-closed session is a no-op.
func (s *Store) Close(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE session SET status = 'closed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		sess       Session
		createdAt  string
		lastActive string
		expiresAt  string
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Status, &createdAt, &lastActive, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: scan: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.LastActiveAt, _ = time.Parse(time.RFC3339, lastActive)
	sess.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &sess, nil
}
