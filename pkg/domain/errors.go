package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below matches its kind with errors.Is.
var (
	ErrDuplicateTask    = errors.New("duplicate task")
	ErrUnknownTask      = errors.New("unknown task")
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrExternalCommand  = errors.New("external command failed")
	ErrFileSystem       = errors.New("file system operation failed")
	ErrRegistryFrozen   = errors.New("task registry is frozen")
)

// ErrReportNotFound is returned when a run report cannot be found in the store.
var ErrReportNotFound = errors.New("report not found")

// ErrLockAcquire is returned when the project run lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire run lock")

// DuplicateTaskError is returned when registering a name that already exists.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s: %q is already registered", ErrDuplicateTask, e.Name)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrDuplicateTask }

// UnknownTaskError is returned when a name does not resolve to a registered task.
// Referrer and Relation are set when the name was found on an edge.
type UnknownTaskError struct {
	Name     string
	Referrer string
	Relation string
}

func (e *UnknownTaskError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("%s: %q", ErrUnknownTask, e.Name)
	}
	return fmt.Sprintf("%s: %q (referenced by %q via %s)", ErrUnknownTask, e.Name, e.Referrer, e.Relation)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// CyclicDependencyError names one cycle in the combined task graph.
// The first and last elements of Cycle are the same task.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCyclicDependency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Cycle, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// ExternalCommandError is recorded when a task's process exits non-zero.
type ExternalCommandError struct {
	Task     string
	ExitCode int
	Output   string
}

func (e *ExternalCommandError) Error() string {
	return fmt.Sprintf("task %q: %s with exit code %d", e.Task, ErrExternalCommand, e.ExitCode)
}

func (e *ExternalCommandError) Unwrap() error { return ErrExternalCommand }

// FileSystemError is recorded when an in-process file action fails.
type FileSystemError struct {
	Task string
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("task %q: %s %s: %v", e.Task, e.Op, e.Path, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *FileSystemError) Unwrap() []error { return []error{ErrFileSystem, e.Err} }
