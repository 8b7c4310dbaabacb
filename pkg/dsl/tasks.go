package dsl

import (
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/registry"
)

// Tasks is the configuration facade over a registry.
type Tasks struct {
	reg *registry.Registry
}

// NewTasks wraps a registry.
func NewTasks(reg *registry.Registry) *Tasks {
	return &Tasks{reg: reg}
}

// Register declares a new task configured by fn.
// Nothing is registered if the configuration is invalid or the name is taken.
func (t *Tasks) Register(name string, fn func(*TaskBuilder)) error {
	b := NewTask(name)
	if fn != nil {
		fn(b)
	}
	task, err := b.Build()
	if err != nil {
		return err
	}
	return t.reg.Register(task)
}

// Configure changes an already registered task.
// The stored definition is replaced only if the new configuration is valid.
func (t *Tasks) Configure(name string, fn func(*TaskBuilder)) error {
	return t.reg.Configure(name, func(task *domain.Task) error {
		b := from(task)
		fn(b)
		built, err := b.Build()
		if err != nil {
			return err
		}
		*task = *built
		return nil
	})
}

// Get returns a copy of a registered task.
func (t *Tasks) Get(name string) (*domain.Task, bool) {
	return t.reg.Get(name)
}

// Names returns the registered task names in sorted order.
func (t *Tasks) Names() []string {
	return t.reg.Names()
}

// Registry exposes the underlying registry.
func (t *Tasks) Registry() *registry.Registry {
	return t.reg
}
