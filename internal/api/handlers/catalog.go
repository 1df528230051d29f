package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/tool"
)

// CatalogHandler serves the read-only discovery endpoints over the sealed
// operation and tool registries.
type CatalogHandler struct {
	ops   *operation.Registry
	tools *tool.Registry
}

// NewCatalogHandler returns a handler over the given registries.
func NewCatalogHandler(ops *operation.Registry, tools *tool.Registry) *CatalogHandler {
	return &CatalogHandler{ops: ops, tools: tools}
}

// OperationView is the discovery representation of one operation.
type OperationView struct {
	Name           string                          `json:"name"`
	Path           string                          `json:"path"`
	Classification operation.Classification        `json:"classification"`
	Deprecated     bool                            `json:"deprecated"`
	ReplacedBy     string                          `json:"replaced_by,omitempty"`
	Parameters     []operation.ParameterDefinition `json:"parameters"`
}

// ToolView is the discovery representation of one loaded tool.
type ToolView struct {
	Name        string                          `json:"name"`
	Description string                          `json:"description,omitempty"`
	Kind        tool.Kind                       `json:"kind"`
	Operation   string                          `json:"operation,omitempty"`
	Parameters  []operation.ParameterDefinition `json:"parameters"`
	InputSchema json.RawMessage                 `json:"input_schema,omitempty"`
}

// ListOperations handles GET /api/v1/operations.
func (h *CatalogHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	defs := h.ops.List()
	views := make([]OperationView, 0, len(defs))
	for _, def := range defs {
		views = append(views, operationView(def))
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": views, "total": len(views)})
}

// GetOperation handles GET /api/v1/operations/{name}.
func (h *CatalogHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	def, err := h.ops.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "operation not found")
		return
	}
	writeJSON(w, http.StatusOK, operationView(def))
}

// ListTools handles GET /api/v1/tools.
func (h *CatalogHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	defs := h.tools.List()
	views := make([]ToolView, 0, len(defs))
	for _, def := range defs {
		views = append(views, toolView(def, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": views, "total": len(views)})
}

// GetTool handles GET /api/v1/tools/{name}. The detail view includes the
// derived JSON schema; the list view omits it.
func (h *CatalogHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	def, err := h.tools.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "tool not found")
		return
	}
	writeJSON(w, http.StatusOK, toolView(def, true))
}

func operationView(def *operation.Definition) OperationView {
	return OperationView{
		Name:           def.Name,
		Path:           def.Classification.Path(),
		Classification: def.Classification,
		Deprecated:     def.Deprecated(),
		ReplacedBy:     def.ReplacedBy,
		Parameters:     def.Parameters(),
	}
}

func toolView(def *tool.Definition, withSchema bool) ToolView {
	view := ToolView{
		Name:        def.Name,
		Description: def.Description,
		Kind:        def.Kind,
		Operation:   def.Operation,
		Parameters:  def.Parameters,
	}
	if withSchema {
		if schema, err := def.InputSchema(); err == nil {
			view.InputSchema = schema
		}
	}
	return view
}
