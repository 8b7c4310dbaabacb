package dsl

import (
	"fmt"

	"github.com/aretw0/pubflow/pkg/registry"
)

// Builder collects task declarations and compiles them into a registry.
type Builder struct {
	order []string
	tasks map[string]*TaskBuilder
}

// New creates a new task graph builder.
func New() *Builder {
	return &Builder{
		tasks: make(map[string]*TaskBuilder),
	}
}

// Add declares a task.
// If the task already exists, it returns the existing builder.
func (b *Builder) Add(name string) *TaskBuilder {
	if tb, ok := b.tasks[name]; ok {
		return tb
	}
	tb := NewTask(name)
	b.tasks[name] = tb
	b.order = append(b.order, name)
	return tb
}

// Build compiles the declarations into a validated registry.
func (b *Builder) Build() (*registry.Registry, error) {
	reg := registry.New()
	for _, name := range b.order {
		task, err := b.tasks[name].Build()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(task); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}
	return reg, nil
}
