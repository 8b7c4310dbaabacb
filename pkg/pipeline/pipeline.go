package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/registry"
)

// Layout locates a project on disk.
type Layout struct {
	// ProjectDir contains the pubspec.yaml of the package.
	ProjectDir string
	// RootDir is the repository root; its LICENSE is shipped with the package.
	RootDir string
	// License overrides the license file shipped with the package.
	License string
}

func (l Layout) rootDir() string {
	if l.RootDir == "" {
		return l.ProjectDir
	}
	return l.RootDir
}

func (l Layout) license() string {
	if l.License != "" {
		return l.License
	}
	return filepath.Join(l.rootDir(), "LICENSE")
}

// Publication globs applied when staging the package.
var (
	PublicationInclude = []string{"**/*.dart", "pubspec.yaml", "**/*.md"}
	PublicationExclude = []string{"proto/**", "generated/**", "build/**", "**/.*", "**/.*/**"}
)

var lifecycleDescriptions = map[string]string{
	domain.TaskClean:    "Deletes the build outputs.",
	domain.TaskAssemble: "Assembles the outputs of this project.",
	domain.TaskCheck:    "Runs all checks.",
	domain.TaskPublish:  "Publishes all publications produced by this project.",
}

// EnsureLifecycle registers the aggregate lifecycle tasks that are not registered yet.
func EnsureLifecycle(reg *registry.Registry) error {
	for _, name := range domain.LifecycleTasks {
		if reg.Has(name) {
			continue
		}
		task := domain.NewTask(name)
		task.Group = domain.GroupLifecycle
		task.Description = lifecycleDescriptions[name]
		if err := reg.Register(task); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBuild registers cleanPackageIndex, resolveDependencies and runTests.
func RegisterBuild(reg *registry.Registry, env domain.Environment, layout Layout) error {
	pub := env.PackageManagerExecutable

	steps := []step{
		{domain.TaskCleanPackageIndex, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupBuild).
				Describe("Deletes the resolved `.packages` and `package_config.json` files.").
				Delete(env.LockFiles()...)
		}},
		{domain.TaskResolveDependencies, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupBuild).
				Describe("Fetches dependencies declared via `pubspec.yaml`.").
				Command(pub, "get").
				Dir(layout.ProjectDir).
				Inputs(env.Manifest).
				Outputs(env.PackageIndex).
				MustRunAfter(domain.TaskCleanPackageIndex)
		}},
		{domain.TaskRunTests, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupBuild).
				Describe("Runs Dart tests declared in the `./test` directory.").
				Command(pub, "run", "test").
				Dir(layout.ProjectDir).
				DependsOn(domain.TaskResolveDependencies)
		}},
	}
	return registerGroup(reg, steps,
		edge{domain.TaskClean, domain.TaskCleanPackageIndex},
		edge{domain.TaskAssemble, domain.TaskResolveDependencies},
		edge{domain.TaskCheck, domain.TaskRunTests},
	)
}

// RegisterPublish registers stagePublication, publishToRegistry and activateLocally.
func RegisterPublish(reg *registry.Registry, env domain.Environment, layout Layout) error {
	pub := env.PackageManagerExecutable
	dir := env.PublicationDirectory

	steps := []step{
		{domain.TaskStagePublication, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupPublish).
				Describe("Prepares the Dart package for Pub publication.").
				Copy(domain.CopySpec{
					From:    layout.ProjectDir,
					Include: PublicationInclude,
					Exclude: PublicationExclude,
					Extra:   []string{layout.license()},
					Into:    dir,
				}).
				DependsOn(domain.TaskAssemble)
		}},
		{domain.TaskPublishToRegistry, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupPublish).
				Describe("Publishes this package to Pub.").
				Command(pub, "publish", "--trace").
				Dir(dir).
				Stdin("y\n").
				DependsOn(domain.TaskStagePublication)
		}},
		{domain.TaskActivateLocally, func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupPublish).
				Describe("Activates this package locally.").
				Command(pub, "global", "activate", "--source", "path", dir, "--trace").
				Dir(dir).
				DependsOn(domain.TaskStagePublication)
		}},
	}
	return registerGroup(reg, steps, edge{domain.TaskPublish, domain.TaskPublishToRegistry})
}

// DisableTask marks a registered task as disabled. It is reported Skipped
// and its dependents still run.
func DisableTask(reg *registry.Registry, name string) error {
	return reg.Configure(name, func(t *domain.Task) error {
		t.Enabled = false
		return nil
	})
}

type step struct {
	name string
	fn   func(*dsl.TaskBuilder)
}

type edge struct{ from, to string }

// registerGroup registers every step and wires the edges, or changes nothing:
// step names must be free and edge sources outside the group must exist.
func registerGroup(reg *registry.Registry, steps []step, edges ...edge) error {
	group := make(map[string]bool, len(steps))
	for _, s := range steps {
		if reg.Has(s.name) {
			return &domain.DuplicateTaskError{Name: s.name}
		}
		group[s.name] = true
	}
	for _, e := range edges {
		if !group[e.from] && !reg.Has(e.from) {
			return &domain.UnknownTaskError{Name: e.from}
		}
	}

	tasks := dsl.NewTasks(reg)
	for _, s := range steps {
		if err := tasks.Register(s.name, s.fn); err != nil {
			return err
		}
	}
	return wire(reg, edges...)
}

func wire(reg *registry.Registry, edges ...edge) error {
	var errs []error
	for _, e := range edges {
		if err := reg.DependsOn(e.from, e.to); err != nil {
			errs = append(errs, fmt.Errorf("wire %s -> %s: %w", e.from, e.to, err))
		}
	}
	return errors.Join(errs...)
}
