package operation

import (
	"errors"
	"reflect"
	"testing"
)

func validClassification() Classification {
	return Classification{
		Domain: "workspace", Subdomain: "casefile", Capability: "create",
		Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
	}
}

func TestRegister_DeriveParameters_Scenario(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	err := reg.Register(Definition{
		Name:           "create_casefile",
		Classification: validClassification(),
		RequestSchema:  CreateCasefileRequest{},
		ResponseSchema: CreateCasefileResponse{},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	def, err := reg.Lookup("create_casefile")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	params := def.Parameters()
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d: %v", len(params), params)
	}
	if params[0].Name != "title" || !params[0].Required {
		t.Errorf("params[0] = %+v, want title/required", params[0])
	}
	if params[1].Name != "description" || params[1].Required {
		t.Errorf("params[1] = %+v, want description/optional", params[1])
	}
	if !params[1].HasDefault || params[1].Default != "" {
		t.Errorf("description default = (%q,%v), want empty-string default", params[1].Default, params[1].HasDefault)
	}
}

func TestRegister_ClassificationIncomplete_LeavesRegistryUnchanged(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	cls := validClassification()
	cls.IntegrationTier = "" // 5 of 6 fields

	err := reg.Register(Definition{
		Name:           "create_casefile",
		Classification: cls,
		RequestSchema:  CreateCasefileRequest{},
	})
	if !errors.Is(err, ErrClassificationIncomplete) {
		t.Fatalf("expected ErrClassificationIncomplete, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry size changed after failed register: %d", reg.Len())
	}
}

func TestRegister_InvalidEnumValueRejected(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	cls := validClassification()
	cls.Maturity = "brand-new"

	err := reg.Register(Definition{Name: "x", Classification: cls, RequestSchema: GetCasefileRequest{}})
	if !errors.Is(err, ErrClassificationIncomplete) {
		t.Fatalf("expected ErrClassificationIncomplete, got %v", err)
	}
}

func TestRegister_DuplicateWithDifferentSignature(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	base := Definition{
		Name:           "create_casefile",
		Classification: validClassification(),
		RequestSchema:  CreateCasefileRequest{},
		ResponseSchema: CreateCasefileResponse{},
	}
	if err := reg.Register(base); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	// Identical re-registration is a no-op.
	if err := reg.Register(base); err != nil {
		t.Fatalf("idempotent re-register failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry size = %d, want 1", reg.Len())
	}

	conflicting := base
	conflicting.RequestSchema = UpdateCasefileRequest{}
	err := reg.Register(conflicting)
	if !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestDeriveParameters_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := DeriveParameters(UpdateCasefileRequest{})
	if err != nil {
		t.Fatalf("DeriveParameters failed: %v", err)
	}
	b, err := DeriveParameters(UpdateCasefileRequest{})
	if err != nil {
		t.Fatalf("DeriveParameters failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two derivations of the same schema differ")
	}
	if !ParametersEqual(a, b) {
		t.Fatal("ParametersEqual disagrees with DeepEqual")
	}
}

func TestBootstrapInventory_DiscoveryAPI(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := BootstrapInventory(reg); err != nil {
		t.Fatalf("BootstrapInventory failed: %v", err)
	}

	path, err := reg.HierarchicalPath("create_casefile")
	if err != nil {
		t.Fatalf("HierarchicalPath failed: %v", err)
	}
	if path != "workspace.casefile.create" {
		t.Errorf("path = %q, want workspace.casefile.create", path)
	}

	if got := len(reg.ByDomain("workspace")); got != reg.Len() {
		t.Errorf("ByDomain(workspace) = %d defs, want %d", got, reg.Len())
	}
	creators := reg.ByCapability("create")
	names := make([]string, 0, len(creators))
	for _, d := range creators {
		names = append(names, d.Name)
	}
	if !reflect.DeepEqual(names, []string{"create_casefile", "add_casefile_note"}) {
		t.Errorf("ByCapability(create) = %v", names)
	}

	if _, err := reg.Lookup("no_such_op"); !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}

	// Bootstrap is idempotent: definitions are identical on re-run.
	if err := BootstrapInventory(reg); err != nil {
		t.Fatalf("second BootstrapInventory failed: %v", err)
	}
}
