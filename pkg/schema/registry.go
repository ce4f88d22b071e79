package schema

import (
	"sort"
	"strings"
)

// Registry maps entity names to descriptors. It is built once and read
// concurrently without locking.
type Registry struct {
	descriptors map[string]*EntityDescriptor
}

var defaultRegistry = NewRegistry(builtinEntities...)

// DefaultRegistry returns the registry of built-in CRM entities.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry creates a registry from descriptors. Later descriptors with
// the same name replace earlier ones.
func NewRegistry(descriptors ...*EntityDescriptor) *Registry {
	r := &Registry{descriptors: make(map[string]*EntityDescriptor, len(descriptors))}
	for _, d := range descriptors {
		r.descriptors[strings.ToLower(d.Name())] = d
	}
	return r
}

// Lookup returns the descriptor for entity, matched case-insensitively.
// Custom objects without a table get an empty descriptor, so their keys
// resolve by lower-casing only.
func (r *Registry) Lookup(entity string) *EntityDescriptor {
	if d, ok := r.descriptors[strings.ToLower(entity)]; ok {
		return d
	}
	return NewEntityDescriptor(entity, nil, nil, "")
}

// Has reports whether entity has a static table.
func (r *Registry) Has(entity string) bool {
	_, ok := r.descriptors[strings.ToLower(entity)]
	return ok
}

// Entities returns the registered entity names in sorted order.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d.Name())
	}
	sort.Strings(out)
	return out
}
