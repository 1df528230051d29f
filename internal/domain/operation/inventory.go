package operation

import "time"

const defaultTimeout = 5 * time.Second

// BootstrapInventory registers the canonical workspace operations in a fixed
// order. Called exactly once at process start, before any tool is loaded;
// registration is never triggered by import side effects.
func BootstrapInventory(reg *Registry) error {
	defs := []Definition{
		{
			Name: "create_casefile",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "create",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  CreateCasefileRequest{},
			ResponseSchema: CreateCasefileResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:write"},
				Timeout:             defaultTimeout,
			},
		},
		{
			Name: "get_casefile",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "read",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  GetCasefileRequest{},
			ResponseSchema: GetCasefileResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:read"},
				RequiresCasefile:    true,
				Timeout:             defaultTimeout,
			},
		},
		{
			Name: "update_casefile",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "update",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  UpdateCasefileRequest{},
			ResponseSchema: UpdateCasefileResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:write"},
				RequiresCasefile:    true,
				Timeout:             defaultTimeout,
			},
		},
		{
			Name: "close_casefile",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "close",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  CloseCasefileRequest{},
			ResponseSchema: CloseCasefileResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:write"},
				RequiresCasefile:    true,
				Timeout:             defaultTimeout,
			},
		},
		{
			Name: "list_casefiles",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "list",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  ListCasefilesRequest{},
			ResponseSchema: ListCasefilesResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:read"},
				Timeout:             defaultTimeout,
			},
		},
		{
			Name: "add_casefile_note",
			Classification: Classification{
				Domain: "workspace", Subdomain: "note", Capability: "create",
				Complexity: "atomic", Maturity: "stable", IntegrationTier: "internal",
			},
			RequestSchema:  AddCasefileNoteRequest{},
			ResponseSchema: AddCasefileNoteResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:write"},
				RequiresCasefile:    true,
				Timeout:             defaultTimeout,
			},
		},
		{
			// Kept until external callers migrate off it. No replacement
			// is named: archival has no successor operation.
			Name: "archive_casefile",
			Classification: Classification{
				Domain: "workspace", Subdomain: "casefile", Capability: "archive",
				Complexity: "atomic", Maturity: "deprecated", IntegrationTier: "internal",
			},
			RequestSchema:  ArchiveCasefileRequest{},
			ResponseSchema: ArchiveCasefileResponse{},
			Rules: BusinessRules{
				AuthRequired:        true,
				RequiredPermissions: []string{"casefile:write"},
				RequiresCasefile:    true,
				Timeout:             defaultTimeout,
			},
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
