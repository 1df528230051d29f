package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/schema"
)

// Registry holds the loaded tool definitions. Load runs once at bootstrap;
// after sealing, the registry is read-only and lookups need no lock
// discipline from callers.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Definition
	order  []string
	sealed bool
}

// NewRegistry returns an empty, unsealed tool registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Definition)}
}

// Load resolves each definition's effective parameters against the operation
// registry, persists a snapshot row per tool, and seals the registry. A
// resolution failure aborts the whole load: a partially loaded tool surface
// is worse than a failed boot.
func (r *Registry) Load(ctx context.Context, db *sql.DB, ops *operation.Registry, defs []*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}

	for _, def := range defs {
		params, err := EffectiveParameters(def, ops)
		if err != nil {
			return err
		}
		def.Parameters = params
		if _, dup := r.byName[def.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
		}
		r.byName[def.Name] = def
		r.order = append(r.order, def.Name)
	}

	if db != nil {
		for _, name := range r.order {
			if err := snapshot(ctx, db, r.byName[name]); err != nil {
				return err
			}
		}
	}
	r.sealed = true
	return nil
}

// Lookup returns the definition for name or ErrToolNotFound.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return def, nil
}

// List returns all definitions in load order.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports the number of loaded tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Fields renders the tool's effective parameters as schema descriptors.
func (d *Definition) Fields() []schema.FieldDescriptor {
	fields := make([]schema.FieldDescriptor, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		fields = append(fields, schema.FieldDescriptor{
			Name:        p.Name,
			Type:        p.Type,
			Required:    p.Required,
			Default:     p.Default,
			HasDefault:  p.HasDefault,
			Doc:         p.Doc,
			Constraints: p.Constraints,
			SourceField: p.SourceField,
		})
	}
	return fields
}

// InputSchema renders the tool's effective parameters as a JSON schema.
func (d *Definition) InputSchema() ([]byte, error) {
	return schema.JSONSchemaBytes(d.Fields())
}

// snapshot upserts the tool's definition row. The table is an operational
// record of what this process serves, not a source of truth; definitions are
// always reloaded from generated code on boot.
func snapshot(ctx context.Context, db *sql.DB, def *Definition) error {
	inputSchema, err := def.InputSchema()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", def.Name, err)
	}
	classification, err := json.Marshal(def.Classification)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", def.Name, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO tool_definition (name, operation_ref, input_schema, classification, implementation, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			operation_ref = excluded.operation_ref,
			input_schema = excluded.input_schema,
			classification = excluded.classification,
			implementation = excluded.implementation,
			loaded_at = excluded.loaded_at`,
		def.Name, def.Operation, string(inputSchema), string(classification),
		string(def.Kind), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", def.Name, err)
	}
	return nil
}
