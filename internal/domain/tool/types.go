// Package tool holds the runtime registry of generated tool definitions and
// the executors that run them. Definitions are produced by forgegen from
// declarative specs; nothing in this package hand-authors a parameter list.
package tool

import (
	"errors"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
)

var (
	ErrToolNotFound    = errors.New("tool: not found")
	ErrDuplicateTool   = errors.New("tool: duplicate name")
	ErrRegistrySealed  = errors.New("tool: registry sealed")
	ErrUnknownKind     = errors.New("tool: unknown implementation kind")
	ErrMissingParam    = errors.New("tool: missing required parameter")
	ErrInvalidParam    = errors.New("tool: invalid parameter")
	ErrUnknownTransform = errors.New("tool: unknown transform")
	ErrStepFailed      = errors.New("tool: composite step failed")
)

// Kind selects the execution strategy of a tool.
type Kind string

const (
	KindSimple        Kind = "simple"
	KindAPICall       Kind = "api_call"
	KindDataTransform Kind = "data_transform"
	KindComposite     Kind = "composite"
)

// CompositeStep is one resolved step of a composite tool. Input values are
// either literal "$.input.<field>" / "$.steps.<id>.<field>" references; the
// executor substitutes them at run time.
type CompositeStep struct {
	ID         string            `json:"id"`
	Operation  string            `json:"operation"`
	Input      map[string]string `json:"input,omitempty"`
	Output     map[string]string `json:"output,omitempty"`
	OnError    string            `json:"on_error,omitempty"`
	RetryLimit int               `json:"retry_limit,omitempty"`
	Rollback   *CompositeStep    `json:"rollback,omitempty"`
}

// Definition is one loaded tool. Parameters are the effective caller-facing
// list: inherited verbatim from the wrapped operation, or the step union for
// composites. Loaded once at bootstrap and treated as read-only afterward.
type Definition struct {
	Name           string                          `json:"name"`
	Description    string                          `json:"description,omitempty"`
	Kind           Kind                            `json:"kind"`
	Operation      string                          `json:"operation,omitempty"`
	Transform      string                          `json:"transform,omitempty"`
	Steps          []CompositeStep                 `json:"steps,omitempty"`
	Classification operation.Classification        `json:"classification"`
	Policy         policy.Overlay                  `json:"policy"`
	Parameters     []operation.ParameterDefinition `json:"parameters"`

	// Extensions are parameters a composite declared on top of the inherited
	// union. Appended by EffectiveParameters; empty for operation-backed tools.
	Extensions []operation.ParameterDefinition `json:"extensions,omitempty"`

	Source string `json:"source,omitempty"`
}

// OperationRefs lists every operation the tool touches, rollbacks included.
func (d *Definition) OperationRefs() []string {
	if d.Kind != KindComposite {
		if d.Operation == "" {
			return nil
		}
		return []string{d.Operation}
	}
	var refs []string
	for _, step := range d.Steps {
		refs = append(refs, step.Operation)
		if step.Rollback != nil {
			refs = append(refs, step.Rollback.Operation)
		}
	}
	return refs
}
