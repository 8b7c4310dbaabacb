package pipeline

import (
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/registry"
)

// Options selects the task groups registered by Apply.
type Options struct {
	Build           bool
	Publish         bool
	Docs            *DocsOptions
	IntegrationTest *IntegrationTestOptions
	Codegen         *CodegenOptions
	// Disabled names tasks to disable once every group is registered.
	Disabled []string
}

// DefaultOptions registers the build and publish groups.
func DefaultOptions() Options {
	return Options{Build: true, Publish: true}
}

// Apply registers the selected groups in their fixed order.
// Publishing and the optional groups need the build group.
func Apply(reg *registry.Registry, env domain.Environment, layout Layout, opts Options) error {
	if err := EnsureLifecycle(reg); err != nil {
		return err
	}
	if opts.Build {
		if err := RegisterBuild(reg, env, layout); err != nil {
			return err
		}
	}
	if opts.Publish {
		if err := RegisterPublish(reg, env, layout); err != nil {
			return err
		}
	}
	if opts.Codegen != nil {
		if err := RegisterCodegen(reg, layout, *opts.Codegen); err != nil {
			return err
		}
	}
	if opts.Docs != nil {
		if err := RegisterDocs(reg, layout, *opts.Docs); err != nil {
			return err
		}
	}
	if opts.IntegrationTest != nil {
		if err := RegisterIntegrationTest(reg, env, layout, *opts.IntegrationTest); err != nil {
			return err
		}
	}
	for _, name := range opts.Disabled {
		if err := DisableTask(reg, name); err != nil {
			return err
		}
	}
	return nil
}
