// Package operation holds the canonical registry of business operations.
// Every caller-facing tool is derived from one of these definitions; the
// parameter lists tools inherit are derived here, once, at registration.
package operation

import (
	"fmt"
	"reflect"
	"time"

	"github.com/nlatta/caseforge/internal/domain/schema"
)

// Classification is the mandatory 6-field taxonomy. All fields are required;
// Register rejects definitions with any of them missing or invalid.
type Classification struct {
	Domain          string `json:"domain" yaml:"domain"`
	Subdomain       string `json:"subdomain" yaml:"subdomain"`
	Capability      string `json:"capability" yaml:"capability"`
	Complexity      string `json:"complexity" yaml:"complexity"`             // atomic | composite
	Maturity        string `json:"maturity" yaml:"maturity"`                 // experimental | stable | deprecated
	IntegrationTier string `json:"integration_tier" yaml:"integration_tier"` // internal | partner | public
}

var (
	validComplexity      = map[string]bool{"atomic": true, "composite": true}
	validMaturity        = map[string]bool{"experimental": true, "stable": true, "deprecated": true}
	validIntegrationTier = map[string]bool{"internal": true, "partner": true, "public": true}
)

// Missing returns the names of classification fields that are absent or
// carry an invalid enum value, in field declaration order.
func (c Classification) Missing() []string {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "domain")
	}
	if c.Subdomain == "" {
		missing = append(missing, "subdomain")
	}
	if c.Capability == "" {
		missing = append(missing, "capability")
	}
	if !validComplexity[c.Complexity] {
		missing = append(missing, "complexity")
	}
	if !validMaturity[c.Maturity] {
		missing = append(missing, "maturity")
	}
	if !validIntegrationTier[c.IntegrationTier] {
		missing = append(missing, "integration_tier")
	}
	return missing
}

// Path is the discovery path: domain.subdomain.capability.
func (c Classification) Path() string {
	return fmt.Sprintf("%s.%s.%s", c.Domain, c.Subdomain, c.Capability)
}

// BusinessRules are the policy-relevant properties of an operation.
type BusinessRules struct {
	AuthRequired        bool
	RequiredPermissions []string
	RequiresCasefile    bool
	Timeout             time.Duration
}

// ParameterDefinition is a derived value object: one tool-facing parameter
// of an operation. Never hand-authored for operation-referencing tools.
type ParameterDefinition struct {
	Name        string                `json:"name"`
	Type        schema.TypeDescriptor `json:"type"`
	Required    bool                  `json:"required"`
	Default     string                `json:"default,omitempty"`
	HasDefault  bool                  `json:"has_default,omitempty"`
	Doc         string                `json:"doc,omitempty"`
	Constraints schema.Constraints    `json:"constraints,omitempty"`
	SourceField string                `json:"source_field"`
}

// Equal reports whether two parameter definitions agree on name, type,
// requiredness and default. Doc strings are excluded: they produce INFO
// findings in the validator, never mismatches.
func (p ParameterDefinition) Equal(other ParameterDefinition) bool {
	return p.Name == other.Name &&
		p.Type == other.Type &&
		p.Required == other.Required &&
		p.Default == other.Default &&
		p.HasDefault == other.HasDefault
}

// Definition is one canonical operation. Immutable once registered; the
// registry owns the only copies and hands out read-only views.
type Definition struct {
	Name           string
	Classification Classification
	RequestSchema  any // struct prototype; parameter source of truth
	ResponseSchema any
	Rules          BusinessRules

	// ReplacedBy names the successor for deprecated operations. Empty on a
	// deprecated operation raises a validator WARNING.
	ReplacedBy string

	parameters []ParameterDefinition // derived at registration, cached
}

// Parameters returns the derived parameter list. The backing array is shared;
// callers must treat it as read-only.
func (d *Definition) Parameters() []ParameterDefinition {
	return d.parameters
}

// RequestSchemaRef is the stable name of the request schema type.
func (d *Definition) RequestSchemaRef() string { return schemaRef(d.RequestSchema) }

// ResponseSchemaRef is the stable name of the response schema type.
func (d *Definition) ResponseSchemaRef() string { return schemaRef(d.ResponseSchema) }

// Deprecated reports whether the operation is classified as deprecated.
func (d *Definition) Deprecated() bool { return d.Classification.Maturity == "deprecated" }

func schemaRef(v any) string {
	if v == nil {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
