package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nlatta/caseforge/internal/domain/dispatch"
)

// DispatchHandler serves POST /api/v1/dispatch, the single tool-invocation
// endpoint. The response body is always the full dispatch envelope; the
// HTTP status mirrors the envelope's error code.
type DispatchHandler struct {
	orch *dispatch.Orchestrator
}

// NewDispatchHandler returns a handler backed by the orchestrator.
func NewDispatchHandler(orch *dispatch.Orchestrator) *DispatchHandler {
	return &DispatchHandler{orch: orch}
}

// DispatchRequest is the body for POST /api/v1/dispatch.
type DispatchRequest struct {
	RequestID  string                       `json:"request_id,omitempty"`
	Tool       string                       `json:"tool"`
	Input      map[string]any               `json:"input"`
	Hooks      []string                     `json:"hooks,omitempty"`
	PolicyHint string                       `json:"policy_hint,omitempty"`
	Require    dispatch.ContextRequirements `json:"context_requirements,omitempty"`
}

// Dispatch handles POST /api/v1/dispatch.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "tool is required")
		return
	}

	resp := h.orch.Dispatch(r.Context(), &dispatch.RequestEnvelope{
		RequestID:  req.RequestID,
		Tool:       req.Tool,
		Input:      req.Input,
		Hooks:      req.Hooks,
		PolicyHint: req.PolicyHint,
		Require:    req.Require,
		Principal:  principalFrom(r.Context()),
	})

	writeJSON(w, statusFor(resp), resp)
}

// statusFor maps the envelope's error code to an HTTP status. Completed
// dispatches are always 200.
func statusFor(resp *dispatch.ResponseEnvelope) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case "invalid_input":
		return http.StatusBadRequest
	case "auth_required", "session_required":
		return http.StatusUnauthorized
	case "permission_denied", "hook_blocked":
		return http.StatusForbidden
	case "not_found", "unknown_operation":
		return http.StatusNotFound
	case "invalid_state":
		return http.StatusConflict
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
