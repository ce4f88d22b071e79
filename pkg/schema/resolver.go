package schema

// Resolver resolves input keys against the registry's entity tables.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver; a nil registry means DefaultRegistry.
func NewResolver(registry *Registry) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Resolver{registry: registry}
}

// Resolve maps key to the canonical property of entity.
// See EntityDescriptor.Resolve for the rule order.
func (r *Resolver) Resolve(entity, key string) string {
	return r.registry.Lookup(entity).Resolve(key)
}

// Descriptor returns the descriptor used for entity.
func (r *Resolver) Descriptor(entity string) *EntityDescriptor {
	return r.registry.Lookup(entity)
}
