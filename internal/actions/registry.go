package actions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/robot"
)

// Factory constructs a behavior bound to the robot with the provided params.
type Factory func(*robot.Robot, Params) (command.Behavior, error)

// Registry maintains known action factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs an action factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("actions: id is required")
	}
	if factory == nil {
		return fmt.Errorf("actions: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("actions: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// Resolve constructs a behavior by ID.
func (r *Registry) Resolve(id string, rb *robot.Robot, params Params) (command.Behavior, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("actions: unknown id %s", id)
	}
	behavior, err := factory(rb, params)
	if err != nil {
		return nil, fmt.Errorf("actions: %s: %w", id, err)
	}
	if behavior == nil {
		return nil, fmt.Errorf("actions: %s returned a nil behavior", id)
	}
	return behavior, nil
}

// IDs returns a sorted list of registered action identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
