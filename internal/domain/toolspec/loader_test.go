package toolspec

import (
	"errors"
	"testing"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
)

func TestLoadEmbedded_AllSpecsParse(t *testing.T) {
	t.Parallel()

	specs, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	if len(specs) != 8 {
		t.Fatalf("expected 8 embedded specs, got %d", len(specs))
	}

	byName := map[string]Spec{}
	for _, s := range specs {
		byName[s.Name] = s
	}
	for _, name := range []string{
		"create_casefile_tool", "get_casefile_tool", "update_casefile_tool",
		"close_casefile_tool", "add_note_tool", "casefile_summary_tool",
		"escalate_casefile_tool", "legacy_archive_tool",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("missing embedded spec %s", name)
		}
	}
}

func TestParse_DefaultPolicyOverlayMerged(t *testing.T) {
	t.Parallel()

	spec, err := Parse([]byte(`
name: t1
classification:
  domain: workspace
  subdomain: casefile
  capability: read
  complexity: atomic
  maturity: stable
  integration_tier: internal
implementation:
  kind: api_call
  operation: get_casefile
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if spec.Policy == nil || spec.Policy.Template != policy.DefaultTemplate {
		t.Fatalf("default policy not merged: %+v", spec.Policy)
	}
}

func TestParse_MissingSectionsRejected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
	}{
		{"no name", `
classification:
  domain: workspace
  subdomain: casefile
  capability: read
  complexity: atomic
  maturity: stable
  integration_tier: internal
implementation:
  kind: api_call
  operation: get_casefile
`},
		{"incomplete classification", `
name: t1
classification:
  domain: workspace
  subdomain: casefile
  capability: read
  complexity: atomic
  maturity: stable
implementation:
  kind: api_call
  operation: get_casefile
`},
		{"unknown kind", `
name: t1
classification:
  domain: workspace
  subdomain: casefile
  capability: read
  complexity: atomic
  maturity: stable
  integration_tier: internal
implementation:
  kind: magic
  operation: get_casefile
`},
		{"declared parameters on api_call", `
name: t1
classification:
  domain: workspace
  subdomain: casefile
  capability: read
  complexity: atomic
  maturity: stable
  integration_tier: internal
implementation:
  kind: api_call
  operation: get_casefile
parameters:
  - name: extra
    type: string
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); !errors.Is(err, ErrSpecInvalid) {
				t.Fatalf("expected ErrSpecInvalid, got %v", err)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("name: [unterminated")); !errors.Is(err, ErrSpecParse) {
		t.Fatalf("expected ErrSpecParse, got %v", err)
	}
}

func TestValidate_CompositeStepGraph(t *testing.T) {
	t.Parallel()

	valid := Spec{
		Name: "composite_t",
		Classification: operation.Classification{
			Domain:          "workspace",
			Subdomain:       "casefile",
			Capability:      "escalate",
			Complexity:      "composite",
			Maturity:        "stable",
			IntegrationTier: "internal",
		},
		Implementation: Implementation{Kind: KindComposite, Steps: []Step{
			{ID: "a", Operation: "update_casefile", Input: map[string]string{"casefile_id": "$.input.casefile_id"}},
			{ID: "b", Operation: "add_casefile_note", Input: map[string]string{"casefile_id": "$.steps.a.casefile_id"}},
		}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid composite rejected: %v", err)
	}

	forward := valid
	forward.Implementation.Steps = []Step{
		{ID: "a", Operation: "update_casefile", Input: map[string]string{"x": "$.steps.b.y"}},
		{ID: "b", Operation: "add_casefile_note"},
	}
	if err := forward.Validate(); !errors.Is(err, ErrSpecInvalid) {
		t.Fatalf("forward reference accepted: %v", err)
	}

	selfRef := valid
	selfRef.Implementation.Steps = []Step{
		{ID: "a", Operation: "update_casefile", Input: map[string]string{"x": "$.steps.a.y"}},
	}
	if err := selfRef.Validate(); !errors.Is(err, ErrSpecInvalid) {
		t.Fatalf("self reference accepted: %v", err)
	}

	dupID := valid
	dupID.Implementation.Steps = []Step{
		{ID: "a", Operation: "update_casefile"},
		{ID: "a", Operation: "add_casefile_note"},
	}
	if err := dupID.Validate(); !errors.Is(err, ErrSpecInvalid) {
		t.Fatalf("duplicate step id accepted: %v", err)
	}

	badRetry := valid
	badRetry.Implementation.Steps = []Step{
		{ID: "a", Operation: "update_casefile", OnError: "retry"},
	}
	if err := badRetry.Validate(); !errors.Is(err, ErrSpecInvalid) {
		t.Fatalf("retry without limit accepted: %v", err)
	}
}
