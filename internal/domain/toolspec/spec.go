// Package toolspec parses the declarative tool specifications consumed by
// the generator. Specs are YAML files: a classification block, an
// implementation selector, optional policy overlays, and example seed data.
// Parameters are deliberately absent for operation-referencing tools — they
// are inherited, never redeclared.
package toolspec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
)

var ErrSpecInvalid = errors.New("tool spec invalid")

// Implementation kinds: the closed set of tool strategies.
const (
	KindSimple        = "simple"
	KindAPICall       = "api_call"
	KindDataTransform = "data_transform"
	KindComposite     = "composite"
)

var validKinds = map[string]bool{
	KindSimple: true, KindAPICall: true, KindDataTransform: true, KindComposite: true,
}

// Step failure dispositions. Abort is the default.
const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
	OnErrorRetry    = "retry"
)

// Prefixes for composite input mapping references.
const (
	InputRefPrefix = "$.input."
	StepRefPrefix  = "$.steps."
)

// Step is one composite step. Input mappings may reference the original
// input or outputs of strictly earlier steps; the loader rejects forward
// and self references, so step graphs are acyclic by construction.
type Step struct {
	ID         string            `yaml:"id"`
	Operation  string            `yaml:"operation"`
	Input      map[string]string `yaml:"input,omitempty"`
	Output     map[string]string `yaml:"output,omitempty"`
	OnError    string            `yaml:"on_error,omitempty"` // abort | continue | retry; default abort
	RetryLimit int               `yaml:"retry_limit,omitempty"`
	Rollback   *Step             `yaml:"rollback,omitempty"`
}

// Implementation selects the tool strategy and its target(s).
type Implementation struct {
	Kind      string `yaml:"kind"`
	Operation string `yaml:"operation,omitempty"` // simple | api_call | data_transform
	Transform string `yaml:"transform,omitempty"` // data_transform only
	Steps     []Step `yaml:"steps,omitempty"`     // composite only
}

// Example is seed data used by the generated test scaffold.
type Example struct {
	Name    string         `yaml:"name"`
	Payload map[string]any `yaml:"payload"`
}

// ParamDecl is an extension parameter a composite tool may add on top of the
// inherited union. Operation-referencing tools must not declare any.
type ParamDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
	Doc      string `yaml:"doc,omitempty"`
}

// Spec is one parsed declarative tool specification.
type Spec struct {
	Name           string                   `yaml:"name"`
	Description    string                   `yaml:"description,omitempty"`
	Classification operation.Classification `yaml:"classification"`
	Implementation Implementation           `yaml:"implementation"`
	Policy         *policy.Overlay          `yaml:"policy,omitempty"`
	Parameters     []ParamDecl              `yaml:"parameters,omitempty"`
	Examples       []Example                `yaml:"examples,omitempty"`

	// Source names the file the spec came from, for findings.
	Source string `yaml:"-"`
}

// OperationRefs lists every operation the spec references, steps and
// rollbacks included, in declaration order.
func (s *Spec) OperationRefs() []string {
	switch s.Implementation.Kind {
	case KindComposite:
		var refs []string
		for _, step := range s.Implementation.Steps {
			refs = append(refs, step.Operation)
			if step.Rollback != nil {
				refs = append(refs, step.Rollback.Operation)
			}
		}
		return refs
	default:
		if s.Implementation.Operation == "" {
			return nil
		}
		return []string{s.Implementation.Operation}
	}
}

// Validate performs structural validation: required sections, a known
// implementation kind, and well-formed composite step graphs. Reference
// resolution against the operation registry is the generator's job.
func (s *Spec) Validate() error {
	var problems []string

	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "name is required")
	}
	if missing := s.Classification.Missing(); len(missing) > 0 {
		problems = append(problems, fmt.Sprintf("classification incomplete: %v", missing))
	}
	if !validKinds[s.Implementation.Kind] {
		problems = append(problems, fmt.Sprintf("unknown implementation kind %q", s.Implementation.Kind))
	}

	switch s.Implementation.Kind {
	case KindSimple, KindAPICall, KindDataTransform:
		if s.Implementation.Operation == "" {
			problems = append(problems, "implementation.operation is required for "+s.Implementation.Kind)
		}
		if len(s.Parameters) > 0 {
			problems = append(problems, "operation-referencing tools must not declare parameters")
		}
		if len(s.Implementation.Steps) > 0 {
			problems = append(problems, "steps are only valid for composite tools")
		}
	case KindComposite:
		problems = append(problems, validateSteps(s.Implementation.Steps)...)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrSpecInvalid, s.Name, strings.Join(problems, "; "))
	}
	return nil
}

func validateSteps(steps []Step) []string {
	if len(steps) == 0 {
		return []string{"composite tools need at least one step"}
	}

	var problems []string
	seen := make(map[string]bool, len(steps))
	for i, step := range steps {
		if step.ID == "" {
			problems = append(problems, fmt.Sprintf("step %d: id is required", i))
			continue
		}
		if seen[step.ID] {
			problems = append(problems, fmt.Sprintf("step %s: duplicate id", step.ID))
		}
		if step.Operation == "" {
			problems = append(problems, fmt.Sprintf("step %s: operation is required", step.ID))
		}
		switch step.OnError {
		case "", OnErrorAbort, OnErrorContinue, OnErrorRetry:
		default:
			problems = append(problems, fmt.Sprintf("step %s: invalid on_error %q", step.ID, step.OnError))
		}
		if step.OnError == OnErrorRetry && step.RetryLimit <= 0 {
			problems = append(problems, fmt.Sprintf("step %s: retry requires retry_limit > 0", step.ID))
		}
		problems = append(problems, validateStepInputs(step, seen)...)
		seen[step.ID] = true
	}
	return problems
}

// validateStepInputs enforces the acyclicity invariant: references resolve to
// the original input or to a strictly earlier step only.
func validateStepInputs(step Step, earlier map[string]bool) []string {
	var problems []string
	for param, ref := range step.Input {
		switch {
		case strings.HasPrefix(ref, InputRefPrefix):
		case strings.HasPrefix(ref, StepRefPrefix):
			rest := strings.TrimPrefix(ref, StepRefPrefix)
			stepID, _, ok := strings.Cut(rest, ".")
			if !ok || stepID == "" {
				problems = append(problems, fmt.Sprintf("step %s: malformed reference %q for %s", step.ID, ref, param))
				continue
			}
			if stepID == step.ID {
				problems = append(problems, fmt.Sprintf("step %s: self reference %q", step.ID, ref))
			} else if !earlier[stepID] {
				problems = append(problems, fmt.Sprintf("step %s: forward or unknown step reference %q", step.ID, ref))
			}
		default:
			problems = append(problems, fmt.Sprintf("step %s: reference %q must start with %q or %q", step.ID, ref, InputRefPrefix, StepRefPrefix))
		}
	}
	return problems
}
