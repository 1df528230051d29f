package operation

import (
	"fmt"

	"github.com/nlatta/caseforge/internal/domain/schema"
)

// DeriveParameters walks a request schema's field descriptors in declaration
// order and flattens them into parameter definitions. Optional wrappers
// (pointers, omitempty) become required=false; slices become array
// parameters. The same schema always yields the same ordered list.
func DeriveParameters(requestSchema any) ([]ParameterDefinition, error) {
	if requestSchema == nil {
		return nil, nil
	}
	fields, err := schema.Describe(requestSchema)
	if err != nil {
		return nil, fmt.Errorf("derive parameters: %w", err)
	}

	params := make([]ParameterDefinition, 0, len(fields))
	for _, fd := range fields {
		params = append(params, ParameterDefinition{
			Name:        fd.Name,
			Type:        fd.Type,
			Required:    fd.Required,
			Default:     fd.Default,
			HasDefault:  fd.HasDefault,
			Doc:         fd.Doc,
			Constraints: fd.Constraints,
			SourceField: fd.SourceField,
		})
	}
	return params, nil
}

// ParametersEqual compares two ordered parameter lists for identity of
// names, types and order.
func ParametersEqual(a, b []ParameterDefinition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
