package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domainauth "github.com/nlatta/caseforge/internal/domain/auth"
)

// AuthHandler serves the public register and login endpoints.
type AuthHandler struct {
	auth *domainauth.Service
}

// NewAuthHandler returns a handler backed by the given auth service.
func NewAuthHandler(auth *domainauth.Service) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRequest is the body for POST /auth/register. WorkspaceName
// creates the tenant; Email is the unique login identifier.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	DisplayName   string `json:"display_name"`
	WorkspaceName string `json:"workspace_name"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned after a successful register or login.
type AuthResponse struct {
	Token       string   `json:"token"`
	UserID      string   `json:"user_id"`
	WorkspaceID string   `json:"workspace_id"`
	Permissions []string `json:"permissions"`
}

// Register handles POST /auth/register.
//
// Response codes:
//   - 201 Created: registration successful
//   - 400 Bad Request: invalid JSON or missing required fields
//   - 409 Conflict: email already registered
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.WorkspaceName == "" {
		writeError(w, http.StatusBadRequest, "email, password and workspace_name are required")
		return
	}

	result, err := h.auth.Register(r.Context(), domainauth.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		DisplayName:   req.DisplayName,
		WorkspaceName: req.WorkspaceName,
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrEmailAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse(result))
}

// Login handles POST /auth/login. Invalid credentials always answer 401
// without revealing whether the email exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.auth.Login(r.Context(), domainauth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse(result))
}

func authResponse(result *domainauth.Result) AuthResponse {
	return AuthResponse{
		Token:       result.Token,
		UserID:      result.UserID,
		WorkspaceID: result.WorkspaceID,
		Permissions: result.Permissions,
	}
}
