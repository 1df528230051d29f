package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/schema"
	"github.com/nlatta/caseforge/internal/domain/toolspec"
)

// EffectiveParameters computes the caller-facing parameter list of a tool.
// Operation-backed tools inherit the wrapped operation's derived list
// verbatim. Composite tools expose the union of the "$.input.<name>" fields
// their steps consume, typed by the step parameter each one feeds; a name
// claimed by two steps with different types is an error. Declared extension
// parameters are appended after the inherited union.
//
// forgegen and the runtime loader both call this, so the generated manifest
// and the live registry can never disagree by construction; the alignment
// validator still diffs them to catch stale artifacts.
func EffectiveParameters(def *Definition, ops *operation.Registry) ([]operation.ParameterDefinition, error) {
	if def.Kind != KindComposite {
		op, err := ops.Lookup(def.Operation)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", def.Name, err)
		}
		return op.Parameters(), nil
	}

	var (
		params []operation.ParameterDefinition
		index  = map[string]int{}
	)
	for _, step := range def.Steps {
		op, err := ops.Lookup(step.Operation)
		if err != nil {
			return nil, fmt.Errorf("tool %s step %s: %w", def.Name, step.ID, err)
		}
		stepParams := map[string]operation.ParameterDefinition{}
		for _, p := range op.Parameters() {
			stepParams[p.Name] = p
		}
		for _, target := range sortedKeys(step.Input) {
			ref := step.Input[target]
			name, ok := strings.CutPrefix(ref, toolspec.InputRefPrefix)
			if !ok {
				continue // step output reference, not caller-facing
			}
			src, ok := stepParams[target]
			if !ok {
				return nil, fmt.Errorf("tool %s step %s: %w: operation %s has no parameter %s",
					def.Name, step.ID, ErrInvalidParam, step.Operation, target)
			}
			inherited := src
			inherited.Name = name
			inherited.SourceField = fmt.Sprintf("%s.%s", step.ID, src.SourceField)
			if i, seen := index[name]; seen {
				if params[i].Type != inherited.Type {
					return nil, fmt.Errorf("tool %s: %w: input %s mapped as %s and %s",
						def.Name, ErrInvalidParam, name, params[i].Type, inherited.Type)
				}
				// First mapping wins provenance; a later optional use never
				// loosens a required one.
				if inherited.Required {
					params[i].Required = true
				}
				continue
			}
			index[name] = len(params)
			params = append(params, inherited)
		}
	}
	for _, decl := range def.Extensions {
		if _, seen := index[decl.Name]; seen {
			return nil, fmt.Errorf("tool %s: %w: declared parameter %s shadows an inherited one",
				def.Name, ErrInvalidParam, decl.Name)
		}
		index[decl.Name] = len(params)
		params = append(params, decl)
	}
	return params, nil
}

// ValidateInput checks caller-supplied parameters against the effective
// list: required fields present, enum membership, and basic kind agreement.
// Defaults are filled into a copy; the caller's map is never mutated.
func ValidateInput(def *Definition, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	for _, p := range def.Parameters {
		v, present := out[p.Name]
		if !present {
			if p.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingParam, p.Name)
			}
			if p.HasDefault {
				out[p.Name] = p.Default
			}
			continue
		}
		if err := checkKind(p, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkKind(p operation.ParameterDefinition, v any) error {
	switch p.Type.Kind {
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s: expected string", ErrInvalidParam, p.Name)
		}
		if len(p.Constraints.Enum) > 0 && !slices.Contains(p.Constraints.Enum, s) {
			return fmt.Errorf("%w: %s: %q not in %v", ErrInvalidParam, p.Name, s, p.Constraints.Enum)
		}
		if p.Constraints.MinLength != nil && len(s) < *p.Constraints.MinLength {
			return fmt.Errorf("%w: %s: shorter than %d", ErrInvalidParam, p.Name, *p.Constraints.MinLength)
		}
		if p.Constraints.MaxLength != nil && len(s) > *p.Constraints.MaxLength {
			return fmt.Errorf("%w: %s: longer than %d", ErrInvalidParam, p.Name, *p.Constraints.MaxLength)
		}
	case schema.KindInt, schema.KindFloat:
		n, ok := asNumber(v)
		if !ok {
			return fmt.Errorf("%w: %s: expected number", ErrInvalidParam, p.Name)
		}
		if p.Constraints.Minimum != nil && n < *p.Constraints.Minimum {
			return fmt.Errorf("%w: %s: below minimum %v", ErrInvalidParam, p.Name, *p.Constraints.Minimum)
		}
		if p.Constraints.Maximum != nil && n > *p.Constraints.Maximum {
			return fmt.Errorf("%w: %s: above maximum %v", ErrInvalidParam, p.Name, *p.Constraints.Maximum)
		}
	case schema.KindBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %s: expected boolean", ErrInvalidParam, p.Name)
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
