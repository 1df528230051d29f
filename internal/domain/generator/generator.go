// Package generator turns declarative tool specs into checked-in Go
// artifacts and parameter manifests. It is the only producer of tool
// definitions; the runtime loads its output and never parses specs itself.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/schema"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/domain/toolspec"
)

var ErrUnresolved = errors.New("generator: unresolved references")

// Problem is one non-fatal resolution finding. Resolution collects every
// problem across all specs before failing, so a report names the whole
// breakage at once instead of the first line of it.
type Problem struct {
	Spec   string // source file
	Ref    string // the offending reference
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.Spec, p.Ref, p.Detail)
}

// Generator resolves specs against the canonical operation registry.
type Generator struct {
	ops *operation.Registry
}

// New returns a generator bound to a populated operation registry.
func New(ops *operation.Registry) *Generator {
	return &Generator{ops: ops}
}

// Resolve maps one structurally valid spec to a runtime definition. It
// verifies every operation reference exists, checks composite step output
// references against the referenced operations' response schemas, and
// computes the effective parameter list. Problems are collected, not
// short-circuited; a nil definition means the spec did not resolve.
func (g *Generator) Resolve(spec *toolspec.Spec) (*tool.Definition, []Problem) {
	var problems []Problem
	for _, ref := range spec.OperationRefs() {
		if _, err := g.ops.Lookup(ref); err != nil {
			problems = append(problems, Problem{
				Spec:   spec.Source,
				Ref:    ref,
				Detail: "operation is not registered",
			})
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}

	def := &tool.Definition{
		Name:           spec.Name,
		Description:    spec.Description,
		Kind:           tool.Kind(spec.Implementation.Kind),
		Operation:      spec.Implementation.Operation,
		Transform:      spec.Implementation.Transform,
		Steps:          convertSteps(spec.Implementation.Steps),
		Classification: spec.Classification,
		Source:         spec.Source,
	}
	if spec.Policy != nil {
		def.Policy = *spec.Policy
	}
	for _, decl := range spec.Parameters {
		def.Extensions = append(def.Extensions, operation.ParameterDefinition{
			Name:        decl.Name,
			Type:        schema.TypeDescriptor{Kind: schema.Kind(decl.Type)},
			Required:    decl.Required,
			Doc:         decl.Doc,
			SourceField: "declared",
		})
	}

	problems = append(problems, g.checkStepOutputRefs(spec)...)

	params, err := tool.EffectiveParameters(def, g.ops)
	if err != nil {
		problems = append(problems, Problem{
			Spec:   spec.Source,
			Ref:    spec.Name,
			Detail: err.Error(),
		})
	}
	if len(problems) > 0 {
		return nil, problems
	}
	def.Parameters = params
	return def, nil
}

// checkStepOutputRefs verifies each "$.steps.<id>.<field>" reference (input
// mappings and output renames) names a real field of the referenced step
// operation's response schema.
func (g *Generator) checkStepOutputRefs(spec *toolspec.Spec) []Problem {
	var problems []Problem
	opsByStep := map[string]*operation.Definition{}
	for _, step := range spec.Implementation.Steps {
		op, err := g.ops.Lookup(step.Operation)
		if err != nil {
			continue // already reported
		}
		opsByStep[step.ID] = op

		inputs := step.Input
		if step.Rollback != nil {
			inputs = make(map[string]string, len(step.Input)+len(step.Rollback.Input))
			for k, v := range step.Input {
				inputs[k] = v
			}
			for k, v := range step.Rollback.Input {
				inputs[k] = v
			}
		}
		for _, ref := range inputs {
			rest, ok := strings.CutPrefix(ref, toolspec.StepRefPrefix)
			if !ok {
				continue
			}
			srcID, field, _ := strings.Cut(rest, ".")
			src, known := opsByStep[srcID]
			if !known {
				continue // structural validation already rejected forward refs
			}
			if !responseHasField(src, field) {
				problems = append(problems, Problem{
					Spec:   spec.Source,
					Ref:    ref,
					Detail: fmt.Sprintf("operation %s response has no field %s", src.Name, field),
				})
			}
		}
		for field := range step.Output {
			if !responseHasField(op, field) {
				problems = append(problems, Problem{
					Spec:   spec.Source,
					Ref:    fmt.Sprintf("%s.%s", toolspec.StepRefPrefix+step.ID, field),
					Detail: fmt.Sprintf("operation %s response has no field %s", op.Name, field),
				})
			}
		}
	}
	return problems
}

func responseHasField(op *operation.Definition, field string) bool {
	if op.ResponseSchema == nil {
		return false
	}
	fields, err := schema.Describe(op.ResponseSchema)
	if err != nil {
		return false
	}
	for _, fd := range fields {
		if fd.Name == field {
			return true
		}
	}
	return false
}

func convertSteps(steps []toolspec.Step) []tool.CompositeStep {
	if len(steps) == 0 {
		return nil
	}
	out := make([]tool.CompositeStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, convertStep(s))
	}
	return out
}

func convertStep(s toolspec.Step) tool.CompositeStep {
	step := tool.CompositeStep{
		ID:         s.ID,
		Operation:  s.Operation,
		Input:      s.Input,
		Output:     s.Output,
		OnError:    s.OnError,
		RetryLimit: s.RetryLimit,
	}
	if s.Rollback != nil {
		rb := convertStep(*s.Rollback)
		step.Rollback = &rb
	}
	return step
}
