package pubflow

import (
	"context"
	"sync"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/environment"
	"github.com/aretw0/pubflow/pkg/executor"
	"github.com/aretw0/pubflow/pkg/pipeline"
	"github.com/aretw0/pubflow/pkg/registry"
)

// Scope is the build configuration of one project.
type Scope struct {
	ws      *Workspace
	project ProjectDescriptor
	layout  pipeline.Layout

	mu  sync.Mutex
	env domain.Environment
	reg *registry.Registry
}

// Project returns the resolved project descriptor.
func (s *Scope) Project() ProjectDescriptor {
	return s.project
}

// Layout locates the project for the pipeline task groups.
func (s *Scope) Layout() pipeline.Layout {
	return s.layout
}

// Environment applies overrides, last write wins per field, and returns the
// resulting environment.
//
// Overrides must come before the tasks that read them are registered: tasks
// capture environment values at registration, so a later override does not
// reach them. This is not enforced; such an override is applied and logged.
func (s *Scope) Environment(overrides ...environment.Overrides) domain.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := environment.Apply(s.env, overrides...)
	if next != s.env && s.reg.Len() > 0 {
		s.ws.logger.Warn("environment overridden after tasks were registered",
			"project", s.project.Name,
			"tasks", s.reg.Len(),
		)
	}
	s.env = next
	return s.env
}

func (s *Scope) environment() domain.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env
}

// Tasks returns the DSL facade over the scope registry.
func (s *Scope) Tasks() *dsl.Tasks {
	return dsl.NewTasks(s.reg)
}

// Registry exposes the task registry.
func (s *Scope) Registry() *registry.Registry {
	return s.reg
}

// Snapshot returns a sorted copy of every task definition.
func (s *Scope) Snapshot() []*domain.Task {
	return s.reg.Snapshot()
}

// Build registers the lifecycle tasks and the build group.
func (s *Scope) Build() error {
	if err := pipeline.EnsureLifecycle(s.reg); err != nil {
		return err
	}
	return pipeline.RegisterBuild(s.reg, s.environment(), s.layout)
}

// Publish registers the publish group.
func (s *Scope) Publish() error {
	if err := pipeline.EnsureLifecycle(s.reg); err != nil {
		return err
	}
	return pipeline.RegisterPublish(s.reg, s.environment(), s.layout)
}

// Apply registers the task groups selected by opts.
func (s *Scope) Apply(opts pipeline.Options) error {
	return pipeline.Apply(s.reg, s.environment(), s.layout, opts)
}

// Validate checks referential integrity and looks for cycles in the whole graph.
func (s *Scope) Validate() error {
	if err := s.reg.Validate(); err != nil {
		return err
	}
	return executor.ValidateGraph(s.reg)
}

// Run freezes the registry and executes the named tasks under the project
// build lock. Configuration errors are returned before any task starts.
func (s *Scope) Run(ctx context.Context, names ...string) (*domain.ExecutionReport, error) {
	if err := s.reg.Freeze(); err != nil {
		return nil, err
	}

	ws := s.ws
	exec := executor.New(ws.runner,
		executor.WithParallelism(ws.parallelism),
		executor.WithIncremental(ws.incremental),
		executor.WithReportStore(ws.manager.Store()),
		executor.WithHooks(ws.hooks),
		executor.WithLogger(ws.logger.With("project", s.project.Name)),
		executor.WithProject(s.project.Name),
	)

	return ws.manager.Run(ctx, s.project.Dir, func(ctx context.Context) (*domain.ExecutionReport, error) {
		return exec.Run(ctx, s.reg, names)
	})
}
