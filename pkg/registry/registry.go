// Package registry holds the task definitions of one project and the edges between them.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/pubflow/pkg/domain"
)

// Registry manages the registered tasks.
//
// It is mutable during configuration. After Freeze it is read-only and
// may be shared by concurrent readers.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*domain.Task
	frozen bool
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		tasks: make(map[string]*domain.Task),
	}
}

// Register adds a task definition. The registry keeps its own copy.
// Returns a DuplicateTaskError if the name is taken; the registry is unchanged on failure.
func (r *Registry) Register(task *domain.Task) error {
	if task == nil || task.Name == "" {
		return errors.New("task name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen
	}
	if _, exists := r.tasks[task.Name]; exists {
		return &domain.DuplicateTaskError{Name: task.Name}
	}
	r.tasks[task.Name] = task.Clone()
	return nil
}

// DependsOn records that task must run after dependency and only if it succeeded.
func (r *Registry) DependsOn(task, dependency string) error {
	return r.addEdge(task, dependency, domain.RelationDependsOn)
}

// MustRunAfter records that task runs after other when both are scheduled.
// It does not schedule other.
func (r *Registry) MustRunAfter(task, other string) error {
	return r.addEdge(task, other, domain.RelationMustRunAfter)
}

// FinalizedBy records that finalizer runs after task whenever task is scheduled.
func (r *Registry) FinalizedBy(task, finalizer string) error {
	return r.addEdge(task, finalizer, domain.RelationFinalizedBy)
}

func (r *Registry) addEdge(from, to, relation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen
	}
	t, ok := r.tasks[from]
	if !ok {
		return &domain.UnknownTaskError{Name: from}
	}
	if _, ok := r.tasks[to]; !ok {
		return &domain.UnknownTaskError{Name: to, Referrer: from, Relation: relation}
	}

	edges := edgeList(t, relation)
	if !slices.Contains(*edges, to) {
		*edges = append(*edges, to)
	}
	return nil
}

func edgeList(t *domain.Task, relation string) *[]string {
	switch relation {
	case domain.RelationMustRunAfter:
		return &t.MustRunAfter
	case domain.RelationFinalizedBy:
		return &t.FinalizedBy
	default:
		return &t.DependsOn
	}
}

// Configure mutates an existing definition. fn works on a copy that replaces
// the stored task only when fn returns nil. Renaming is not allowed.
func (r *Registry) Configure(name string, fn func(*domain.Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen
	}
	t, ok := r.tasks[name]
	if !ok {
		return &domain.UnknownTaskError{Name: name}
	}

	c := t.Clone()
	if err := fn(c); err != nil {
		return fmt.Errorf("configure %q: %w", name, err)
	}
	if c.Name != name {
		return fmt.Errorf("configure %q: task cannot be renamed to %q", name, c.Name)
	}
	r.tasks[name] = c
	return nil
}

// Get returns a copy of the named task.
func (r *Registry) Get(name string) (*domain.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Has reports whether a task with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns a copy of every definition keyed by name.
func (r *Registry) Tasks() map[string]*domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Task, len(r.tasks))
	for name, t := range r.tasks {
		out[name] = t.Clone()
	}
	return out
}

// Snapshot returns a copy of every definition sorted by name.
func (r *Registry) Snapshot() []*domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Task, 0, len(r.tasks))
	for _, name := range r.namesLocked() {
		out = append(out, r.tasks[name].Clone())
	}
	return out
}

// Validate checks that every edge points at a registered task.
// The first dangling reference, in name order, is returned as an UnknownTaskError.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validateLocked()
}

func (r *Registry) validateLocked() error {
	for _, name := range r.namesLocked() {
		t := r.tasks[name]
		for _, rel := range []string{domain.RelationDependsOn, domain.RelationMustRunAfter, domain.RelationFinalizedBy} {
			for _, target := range *edgeList(t, rel) {
				if _, ok := r.tasks[target]; !ok {
					return &domain.UnknownTaskError{Name: target, Referrer: name, Relation: rel}
				}
			}
		}
	}
	return nil
}

// Freeze validates the registry and then forbids further mutation.
// Freezing an already frozen registry is a no-op.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil
	}
	if err := r.validateLocked(); err != nil {
		return err
	}
	r.frozen = true
	return nil
}

// Frozen reports whether Freeze has succeeded.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
