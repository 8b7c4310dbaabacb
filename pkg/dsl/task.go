package dsl

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/pubflow/pkg/domain"
)

// TaskBuilder provides a fluent API for configuring a task.
// The first invalid call is remembered and reported by Build.
type TaskBuilder struct {
	task *domain.Task
	err  error
}

// NewTask starts a builder for an enabled task with the given name.
func NewTask(name string) *TaskBuilder {
	return &TaskBuilder{task: domain.NewTask(name)}
}

func from(task *domain.Task) *TaskBuilder {
	return &TaskBuilder{task: task.Clone()}
}

func (b *TaskBuilder) fail(err error) *TaskBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Group sets the display group.
func (b *TaskBuilder) Group(group string) *TaskBuilder {
	b.task.Group = group
	return b
}

// Describe sets the human readable description.
func (b *TaskBuilder) Describe(description string) *TaskBuilder {
	b.task.Description = description
	return b
}

// Command sets the external process to run. It replaces any previous command.
func (b *TaskBuilder) Command(name string, args ...string) *TaskBuilder {
	if name == "" {
		return b.fail(errors.New("command must not be empty"))
	}
	b.task.Command = append([]string{name}, args...)
	return b
}

// Dir sets the working directory of the command.
func (b *TaskBuilder) Dir(dir string) *TaskBuilder {
	b.task.WorkingDir = dir
	return b
}

// Stdin sets the text written to the command's standard input.
func (b *TaskBuilder) Stdin(input string) *TaskBuilder {
	b.task.Stdin = input
	return b
}

// Inputs declares files whose modification makes the task out of date.
func (b *TaskBuilder) Inputs(paths ...string) *TaskBuilder {
	b.task.Inputs = append(b.task.Inputs, paths...)
	return b
}

// Outputs declares files the task produces.
func (b *TaskBuilder) Outputs(paths ...string) *TaskBuilder {
	b.task.Outputs = append(b.task.Outputs, paths...)
	return b
}

// DependsOn adds hard dependencies.
func (b *TaskBuilder) DependsOn(names ...string) *TaskBuilder {
	b.task.DependsOn = appendUnique(b.task.DependsOn, names)
	return b
}

// MustRunAfter adds soft ordering constraints.
func (b *TaskBuilder) MustRunAfter(names ...string) *TaskBuilder {
	b.task.MustRunAfter = appendUnique(b.task.MustRunAfter, names)
	return b
}

// FinalizedBy adds tasks scheduled to run after this one.
func (b *TaskBuilder) FinalizedBy(names ...string) *TaskBuilder {
	b.task.FinalizedBy = appendUnique(b.task.FinalizedBy, names)
	return b
}

// Disabled marks the task as skipped. Dependents still run.
func (b *TaskBuilder) Disabled() *TaskBuilder {
	b.task.Enabled = false
	return b
}

// Enabled re-enables a disabled task.
func (b *TaskBuilder) Enabled() *TaskBuilder {
	b.task.Enabled = true
	return b
}

// Delete makes the task remove the given files.
func (b *TaskBuilder) Delete(paths ...string) *TaskBuilder {
	if len(paths) == 0 {
		return b.fail(errors.New("delete action needs at least one path"))
	}
	b.task.Action = &domain.Action{Kind: domain.ActionDelete, Paths: slices.Clone(paths)}
	return b
}

// Copy makes the task stage files according to spec.
func (b *TaskBuilder) Copy(spec domain.CopySpec) *TaskBuilder {
	if spec.From == "" || spec.Into == "" {
		return b.fail(errors.New("copy action needs both a source and a destination"))
	}
	b.task.Action = &domain.Action{Kind: domain.ActionCopy, Copy: &spec}
	return b
}

// Build returns a copy of the configured task or the first configuration error.
func (b *TaskBuilder) Build() (*domain.Task, error) {
	if b.err != nil {
		return nil, fmt.Errorf("task %q: %w", b.task.Name, b.err)
	}
	if len(b.task.Command) > 0 && b.task.Action != nil {
		return nil, fmt.Errorf("task %q: a task runs either a command or an action, not both", b.task.Name)
	}
	for _, rel := range [][]string{b.task.DependsOn, b.task.MustRunAfter, b.task.FinalizedBy} {
		if slices.Contains(rel, b.task.Name) {
			return nil, &domain.CyclicDependencyError{Cycle: []string{b.task.Name, b.task.Name}}
		}
	}
	return b.task.Clone(), nil
}

func appendUnique(dst, names []string) []string {
	for _, n := range names {
		if !slices.Contains(dst, n) {
			dst = append(dst, n)
		}
	}
	return dst
}
