package modules

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the modules available to the workflow layer, keyed
// by namespace and name. All operations are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Module
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]map[string]Module)}
}

// Register adds a module. Duplicate namespace/name pairs and reserved
// port names are rejected.
func (r *Registry) Register(m Module) error {
	for _, p := range m.InputPorts() {
		if err := checkPort(p); err != nil {
			return fmt.Errorf("module %s.%s: %w", m.Namespace(), m.Name(), err)
		}
	}
	for _, p := range m.OutputPorts() {
		if err := checkPort(p); err != nil {
			return fmt.Errorf("module %s.%s: %w", m.Namespace(), m.Name(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ns := r.namespaces[m.Namespace()]
	if ns == nil {
		ns = make(map[string]Module)
		r.namespaces[m.Namespace()] = ns
	}
	if _, exists := ns[m.Name()]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicate, m.Namespace(), m.Name())
	}
	ns[m.Name()] = m
	return nil
}

// Get retrieves a module by namespace and name.
func (r *Registry) Get(namespace, name string) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.namespaces[namespace][name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrNotFound, namespace, name)
}

// Namespaces returns the registered namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// List returns the module names in a namespace, sorted.
func (r *Registry) List(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns := r.namespaces[namespace]
	out := make([]string, 0, len(ns))
	for name := range ns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Size returns the total number of registered modules.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, ns := range r.namespaces {
		total += len(ns)
	}
	return total
}
