// Package auth implements register and login: workspace creation, user
// creation, password hashing, and JWT issuance.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nlatta/caseforge/internal/domain/audit"
	pkgauth "github.com/nlatta/caseforge/pkg/auth"
)

// ErrInvalidCredentials covers both unknown email and wrong password, so a
// response never reveals whether an email is registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailAlreadyExists is returned by Register when the email is taken.
var ErrEmailAlreadyExists = errors.New("email already registered")

// DefaultPermissions are granted to the first user of a new workspace.
var DefaultPermissions = []string{"casefile:read", "casefile:write"}

// RegisterInput creates a workspace and its first user.
type RegisterInput struct {
	Email         string
	Password      string
	DisplayName   string
	WorkspaceName string
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Result is returned after a successful register or login. Token carries
// user, workspace and permission claims.
type Result struct {
	Token       string
	UserID      string
	WorkspaceID string
	Permissions []string
}

// Service is the SQLite-backed authentication service.
type Service struct {
	db      *sql.DB
	auditor *audit.Service
}

// NewService returns an auth service; auditor may be nil to skip audit
// logging (tests).
func NewService(db *sql.DB, auditor *audit.Service) *Service {
	return &Service{db: db, auditor: auditor}
}

// Register creates a workspace and user atomically, then mints a JWT.
// The plaintext password is never stored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	workspaceID := uuid.NewString()
	userID := uuid.NewString()
	if err := s.insertWorkspaceAndUser(ctx, workspaceID, userID, in, hash); err != nil {
		return nil, err
	}

	token, err := pkgauth.GenerateJWT(userID, workspaceID, DefaultPermissions)
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	s.logOutcome(ctx, workspaceID, userID, "auth.register", audit.OutcomeSuccess)
	return &Result{
		Token:       token,
		UserID:      userID,
		WorkspaceID: workspaceID,
		Permissions: DefaultPermissions,
	}, nil
}

// Login verifies the credentials and mints a JWT carrying the user's
// stored permissions.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, password_hash, permissions
		FROM user_account WHERE email = ? LIMIT 1
	`, in.Email)

	var userID, workspaceID, hash, permsJSON string
	err := row.Scan(&userID, &workspaceID, &hash, &permsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	if !pkgauth.VerifyPassword(hash, in.Password) {
		s.logOutcome(ctx, workspaceID, userID, "auth.login", audit.OutcomeDenied)
		return nil, ErrInvalidCredentials
	}

	var perms []string
	if err := json.Unmarshal([]byte(permsJSON), &perms); err != nil {
		return nil, fmt.Errorf("auth: decode permissions: %w", err)
	}

	token, err := pkgauth.GenerateJWT(userID, workspaceID, perms)
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	s.logOutcome(ctx, workspaceID, userID, "auth.login", audit.OutcomeSuccess)
	return &Result{
		Token:       token,
		UserID:      userID,
		WorkspaceID: workspaceID,
		Permissions: perms,
	}, nil
}

func (s *Service) insertWorkspaceAndUser(ctx context.Context, workspaceID, userID string, in RegisterInput, hash string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	permsJSON, err := json.Marshal(DefaultPermissions)
	if err != nil {
		return fmt.Errorf("auth: encode permissions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("auth: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace (id, name, created_at) VALUES (?, ?, ?)
	`, workspaceID, in.WorkspaceName, now)
	if err != nil {
		return fmt.Errorf("auth: insert workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_account (id, workspace_id, email, display_name, password_hash, permissions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, workspaceID, in.Email, in.DisplayName, hash, string(permsJSON), now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("auth: insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("auth: commit: %w", err)
	}
	return nil
}

// logOutcome records the auth event; audit failures never fail the auth
// call itself.
func (s *Service) logOutcome(ctx context.Context, workspaceID, userID, action string, outcome audit.Outcome) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.LogAction(ctx, workspaceID, userID, audit.ActorTypeUser, action, outcome, nil)
}
