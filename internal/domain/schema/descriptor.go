// Package schema gives structured record types a uniform field-description
// capability. Operation request/response schemas are plain Go structs; the
// registry derives their parameter lists from the descriptors returned here
// instead of reading struct internals ad hoc at every call site.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var ErrNotAStruct = errors.New("schema: value is not a struct")

// Kind is the wire-level type of a described field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "integer"
	KindFloat  Kind = "number"
	KindBool   Kind = "boolean"
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// TypeDescriptor names a field's kind; Elem is set for arrays.
type TypeDescriptor struct {
	Kind Kind `json:"kind"`
	Elem Kind `json:"elem,omitempty"`
}

func (t TypeDescriptor) String() string {
	if t.Kind == KindArray && t.Elem != "" {
		return fmt.Sprintf("array<%s>", t.Elem)
	}
	return string(t.Kind)
}

// Constraints carries the validation limits declared on a field.
type Constraints struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Enum      []string `json:"enum,omitempty"`
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.MinLength == nil && c.MaxLength == nil && c.Minimum == nil &&
		c.Maximum == nil && c.Pattern == "" && len(c.Enum) == 0
}

// FieldDescriptor describes one field of a structured record type.
type FieldDescriptor struct {
	Name        string         `json:"name"` // wire name (json tag)
	Type        TypeDescriptor `json:"type"`
	Required    bool           `json:"required"`
	Default     string         `json:"default,omitempty"` // literal form; "" means no default
	HasDefault  bool           `json:"has_default,omitempty"`
	Doc         string         `json:"doc,omitempty"`
	Constraints Constraints    `json:"constraints,omitempty"`
	SourceField string         `json:"source_field"` // Go field name provenance
}

// Describer is the capability a schema type implements to publish its fields.
// Types that do not implement it fall back to DescribeStruct.
type Describer interface {
	DescribeFields() []FieldDescriptor
}

// Describe returns the field descriptors for v, preferring an explicit
// Describer implementation over tag reflection.
func Describe(v any) ([]FieldDescriptor, error) {
	if d, ok := v.(Describer); ok {
		return d.DescribeFields(), nil
	}
	return DescribeStruct(v)
}

// DescribeStruct derives field descriptors from struct tags, walking fields
// in declaration order so the result is deterministic for a given type.
//
// Recognized tags:
//
//	json:"name[,omitempty]"  — wire name; omitempty or a pointer type marks the field optional
//	doc:"..."                — human documentation
//	default:"..."            — default literal for optional fields
//	minlen / maxlen          — string length bounds
//	min / max                — numeric bounds
//	pattern:"..."            — regexp constraint
//	enum:"a,b,c"             — allowed values
func DescribeStruct(v any) ([]FieldDescriptor, error) {
	typ := reflect.TypeOf(v)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotAStruct, v)
	}

	out := make([]FieldDescriptor, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		name, opts, _ := strings.Cut(jsonTag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		ft := field.Type
		optional := strings.Contains(opts, "omitempty")
		if ft.Kind() == reflect.Pointer {
			optional = true
			ft = ft.Elem()
		}

		td, err := typeDescriptorFor(ft)
		if err != nil {
			return nil, fmt.Errorf("schema: field %s.%s: %w", typ.Name(), field.Name, err)
		}

		fd := FieldDescriptor{
			Name:        name,
			Type:        td,
			Required:    !optional,
			Doc:         field.Tag.Get("doc"),
			Constraints: constraintsFromTag(field.Tag),
			SourceField: field.Name,
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			fd.Default = def
			fd.HasDefault = true
			fd.Required = false
		}
		out = append(out, fd)
	}
	return out, nil
}

func typeDescriptorFor(t reflect.Type) (TypeDescriptor, error) {
	kind, err := kindFor(t)
	if err != nil {
		return TypeDescriptor{}, err
	}
	td := TypeDescriptor{Kind: kind}
	if kind == KindArray {
		elem, err := kindFor(t.Elem())
		if err != nil {
			return TypeDescriptor{}, err
		}
		td.Elem = elem
	}
	return td, nil
}

func kindFor(t reflect.Type) (Kind, error) {
	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.Struct, reflect.Map:
		return KindObject, nil
	case reflect.Slice, reflect.Array:
		return KindArray, nil
	case reflect.Pointer:
		return kindFor(t.Elem())
	default:
		return "", fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

func constraintsFromTag(tag reflect.StructTag) Constraints {
	var c Constraints
	if v, ok := tag.Lookup("minlen"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinLength = &n
		}
	}
	if v, ok := tag.Lookup("maxlen"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLength = &n
		}
	}
	if v, ok := tag.Lookup("min"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Minimum = &f
		}
	}
	if v, ok := tag.Lookup("max"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Maximum = &f
		}
	}
	c.Pattern = tag.Get("pattern")
	if v, ok := tag.Lookup("enum"); ok && v != "" {
		c.Enum = strings.Split(v, ",")
	}
	return c
}
