package agent

import (
	"fmt"
	"sort"
	"sync"
)

// GeneratorFactory builds a collaborator on first use.
type GeneratorFactory func() (Generator, error)

// Registry maps collaborator roles to their factories and caches the
// generators it builds, so a role keeps one conversation per registry.
type Registry struct {
	mu        sync.Mutex
	factories map[Role]GeneratorFactory
	built     map[Role]Generator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Role]GeneratorFactory),
		built:     make(map[Role]Generator),
	}
}

// Register installs the factory for role, replacing any earlier one.
func (r *Registry) Register(role Role, f GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[role] = f
	delete(r.built, role)
}

// Has reports whether a factory is registered for role.
func (r *Registry) Has(role Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[role]
	return ok
}

// Generator returns the collaborator for role, building it on first use.
func (r *Registry) Generator(role Role) (Generator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.built[role]; ok {
		return g, nil
	}
	factory, ok := r.factories[role]
	if !ok {
		return nil, fmt.Errorf("agent: no collaborator registered for role %q", role)
	}
	g, err := factory()
	if err != nil {
		return nil, fmt.Errorf("agent: build %s collaborator: %w", role, err)
	}
	r.built[role] = g
	return g, nil
}

// Roles returns the registered roles in sorted order.
func (r *Registry) Roles() []Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	roles := make([]Role, 0, len(r.factories))
	for role := range r.factories {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// ResetConversations starts a fresh dialogue with every built generator
// that tracks one.
func (r *Registry) ResetConversations() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.built {
		if c, ok := g.(interface{ Conversation() *Conversation }); ok {
			c.Conversation().Reset()
		}
	}
}
