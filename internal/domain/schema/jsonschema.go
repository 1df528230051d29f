package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// JSONSchema renders a descriptor list as a JSON Schema object. The tool
// registry persists this form, and the MCP transport serves it as each
// tool's input schema.
func JSONSchema(fields []FieldDescriptor) *jsonschema.Schema {
	root := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(fields)),
	}
	for _, fd := range fields {
		prop := &jsonschema.Schema{
			Type:        string(fd.Type.Kind),
			Description: fd.Doc,
			Pattern:     fd.Constraints.Pattern,
			MinLength:   fd.Constraints.MinLength,
			MaxLength:   fd.Constraints.MaxLength,
			Minimum:     fd.Constraints.Minimum,
			Maximum:     fd.Constraints.Maximum,
		}
		if fd.Type.Kind == KindArray && fd.Type.Elem != "" {
			prop.Items = &jsonschema.Schema{Type: string(fd.Type.Elem)}
		}
		for _, e := range fd.Constraints.Enum {
			prop.Enum = append(prop.Enum, e)
		}
		if fd.HasDefault {
			if raw, err := json.Marshal(fd.Default); err == nil {
				prop.Default = raw
			}
		}
		root.Properties[fd.Name] = prop
		if fd.Required {
			root.Required = append(root.Required, fd.Name)
		}
	}
	return root
}

// JSONSchemaBytes marshals the rendered schema, for storage in
// tool_definition rows.
func JSONSchemaBytes(fields []FieldDescriptor) (json.RawMessage, error) {
	return json.Marshal(JSONSchema(fields))
}
