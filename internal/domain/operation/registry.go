package operation

import (
	"fmt"
	"sync"
)

// Registry stores canonical operation definitions. It is populated once by
// the bootstrap inventory (explicit, fixed order — never from init()) and is
// read-only afterward; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]*Definition
	order []string // registration order, for deterministic listings
}

// NewRegistry returns an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Definition)}
}

// Register validates and stores def, deriving its parameter list from the
// request schema. Re-registering an identical definition is a no-op; a name
// collision with a different signature fails with ErrDuplicateOperation.
// A failed registration leaves the registry unchanged.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: operation name is empty", ErrClassificationIncomplete)
	}
	if missing := def.Classification.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrClassificationIncomplete, def.Name, missing)
	}

	params, err := DeriveParameters(def.RequestSchema)
	if err != nil {
		return fmt.Errorf("register %s: %w", def.Name, err)
	}
	def.parameters = params

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[def.Name]; ok {
		if sameSignature(existing, &def) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, def.Name)
	}

	stored := def
	r.byName[def.Name] = &stored
	r.order = append(r.order, def.Name)
	return nil
}

// Lookup returns the definition for name or ErrOperationNotFound.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, name)
	}
	return def, nil
}

// ByDomain returns all operations in a classification domain, in
// registration order.
func (r *Registry) ByDomain(domain string) []*Definition {
	return r.filter(func(d *Definition) bool { return d.Classification.Domain == domain })
}

// ByCapability returns all operations with the given capability, in
// registration order.
func (r *Registry) ByCapability(capability string) []*Definition {
	return r.filter(func(d *Definition) bool { return d.Classification.Capability == capability })
}

// HierarchicalPath returns the discovery path for an operation, e.g.
// "workspace.casefile.create".
func (r *Registry) HierarchicalPath(name string) (string, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return def.Classification.Path(), nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []*Definition {
	return r.filter(func(*Definition) bool { return true })
}

// Len reports the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) filter(keep func(*Definition) bool) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		if def := r.byName[name]; keep(def) {
			out = append(out, def)
		}
	}
	return out
}

// sameSignature reports whether two definitions agree on everything a caller
// can observe: classification, schema refs, and the derived parameter list.
func sameSignature(a, b *Definition) bool {
	return a.Classification == b.Classification &&
		a.RequestSchemaRef() == b.RequestSchemaRef() &&
		a.ResponseSchemaRef() == b.ResponseSchemaRef() &&
		ParametersEqual(a.parameters, b.parameters)
}
