package pubflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/pubflow"
	"github.com/aretw0/pubflow/internal/testutils"
	"github.com/aretw0/pubflow/pkg/adapters/memory"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records every command and fails the tasks listed in exit.
type recordingRunner struct {
	mu   sync.Mutex
	cmds []domain.Command
	exit map[string]int
}

func (r *recordingRunner) Run(_ context.Context, cmd domain.Command) (domain.CommandResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return domain.CommandResult{ExitCode: r.exit[cmd.Task]}, nil
}

func (r *recordingRunner) tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.cmds {
		out = append(out, c.Task)
	}
	return out
}

func (r *recordingRunner) command(task string) (domain.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cmds {
		if c.Task == task {
			return c, true
		}
	}
	return domain.Command{}, false
}

func standardScope(t *testing.T, ws *pubflow.Workspace, dir string) *pubflow.Scope {
	t.Helper()
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir, Host: domain.HostLinux}, func(s *pubflow.Scope) error {
		if err := s.Build(); err != nil {
			return err
		}
		return s.Publish()
	})
	require.NoError(t, err)
	return scope
}

func TestWorkspace_WithScopeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ws := pubflow.NewWorkspace(pubflow.WithRunner(&recordingRunner{}))

	first, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir}, nil)
	require.NoError(t, err)

	// Same directory through a different spelling.
	second, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: filepath.Join(dir, ".")}, nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first.Registry(), second.Registry())
	assert.Len(t, ws.Scopes(), 1)

	other, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Len(t, ws.Scopes(), 2)
}

func TestWorkspace_WithScopeConfiguresExistingScope(t *testing.T) {
	runner := &recordingRunner{}
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner))
	dir := t.TempDir()
	desc := pubflow.ProjectDescriptor{Dir: dir, Host: domain.HostLinux}

	first, err := ws.WithScope(desc, func(s *pubflow.Scope) error { return s.Build() })
	require.NoError(t, err)

	second, err := ws.WithScope(desc, func(s *pubflow.Scope) error {
		if err := s.Tasks().Register("lint", func(t *dsl.TaskBuilder) {
			t.Command("dart", "analyze").Dir(dir).DependsOn(domain.TaskResolveDependencies)
		}); err != nil {
			return err
		}
		return s.Tasks().Configure(domain.TaskCheck, func(t *dsl.TaskBuilder) {
			t.DependsOn("lint")
		})
	})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.True(t, first.Registry().Has("lint"))
	assert.True(t, first.Registry().Has(domain.TaskRunTests))

	report, err := first.Run(t.Context(), domain.TaskCheck)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Contains(t, runner.tasks(), "lint")
}

func TestWorkspace_WithScopeKeepsExistingScopeOnBodyError(t *testing.T) {
	ws := pubflow.NewWorkspace()
	dir := t.TempDir()
	first, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir}, func(s *pubflow.Scope) error { return s.Build() })
	require.NoError(t, err)

	// A second Build collides with the tasks of the first.
	again, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir}, func(s *pubflow.Scope) error { return s.Build() })
	assert.ErrorIs(t, err, domain.ErrDuplicateTask)
	assert.Same(t, first, again)
	assert.Len(t, ws.Scopes(), 1)
}

func TestWorkspace_WithScopeRequiresDir(t *testing.T) {
	ws := pubflow.NewWorkspace()
	_, err := ws.WithScope(pubflow.ProjectDescriptor{}, nil)
	assert.Error(t, err)
}

func TestWorkspace_WithScopePropagatesBodyError(t *testing.T) {
	ws := pubflow.NewWorkspace()
	boom := errors.New("boom")
	dir := t.TempDir()
	_, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir}, func(*pubflow.Scope) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ws.Scopes())

	// The failed configuration is not kept.
	_, err = ws.WithScope(pubflow.ProjectDescriptor{Dir: dir}, nil)
	require.NoError(t, err)
	assert.Len(t, ws.Scopes(), 1)
}

func TestScope_ProjectDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dart_sdk")
	ws := pubflow.NewWorkspace()
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir, Host: domain.HostWindows}, nil)
	require.NoError(t, err)

	p := scope.Project()
	assert.Equal(t, "dart_sdk", p.Name)
	assert.Equal(t, dir, p.RootDir)
	assert.Equal(t, filepath.Join(dir, "build"), p.BuildDir)

	env := scope.Environment()
	assert.Equal(t, "pub.bat", env.PackageManagerExecutable)
	assert.Equal(t, filepath.Join(dir, "build", "pub", "publication", "dart_sdk"), env.PublicationDirectory)
}

func TestScope_EnvironmentOverrideLastWriteWins(t *testing.T) {
	ws := pubflow.NewWorkspace()
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: t.TempDir(), Host: domain.HostLinux}, nil)
	require.NoError(t, err)

	scope.Environment(environment.Overrides{PublicationDirectory: environment.String("/first")})
	env := scope.Environment(environment.Overrides{PublicationDirectory: environment.String("/tmp/pub")})
	assert.Equal(t, "/tmp/pub", env.PublicationDirectory)

	require.NoError(t, scope.Publish())

	stage, ok := scope.Registry().Get(domain.TaskStagePublication)
	require.True(t, ok)
	assert.Equal(t, "/tmp/pub", stage.Action.Copy.Into)

	// A late override is applied but does not reach registered tasks.
	env = scope.Environment(environment.Overrides{PublicationDirectory: environment.String("/elsewhere")})
	assert.Equal(t, "/elsewhere", env.PublicationDirectory)
	assert.Equal(t, "/elsewhere", scope.Environment().PublicationDirectory)
	assert.Equal(t, "/tmp/pub", stage.Action.Copy.Into)
}

func TestScope_RunCheck(t *testing.T) {
	runner := &recordingRunner{}
	store := memory.NewStore()
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner), pubflow.WithReportStore(store))
	dir := t.TempDir()
	scope := standardScope(t, ws, dir)

	report, err := scope.Run(t.Context(), domain.TaskCheck)
	require.NoError(t, err)

	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, []string{domain.TaskResolveDependencies, domain.TaskRunTests}, runner.tasks())
	assert.Equal(t, filepath.Base(dir), report.Project)

	cmd, ok := runner.command(domain.TaskResolveDependencies)
	require.True(t, ok)
	assert.Equal(t, []string{"pub", "get"}, cmd.Args)
	assert.Equal(t, dir, cmd.Dir)

	stored, err := ws.Reports().Load(t.Context(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Order, stored.Order)
}

func TestScope_RunFailureIsReportedNotReturned(t *testing.T) {
	runner := &recordingRunner{exit: map[string]int{domain.TaskRunTests: 1}}
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner))
	scope := standardScope(t, ws, t.TempDir())

	report, err := scope.Run(t.Context(), domain.TaskCheck)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ExitCode())
	st, _ := report.Status(domain.TaskRunTests)
	assert.Equal(t, domain.StatusFailed, st)
	st, _ = report.Status(domain.TaskCheck)
	assert.Equal(t, domain.StatusNotRun, st)

	var cmdErr *domain.ExternalCommandError
	require.ErrorAs(t, report.Results[domain.TaskRunTests].Err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
}

func TestScope_PublishFailureLeavesSiblingRunning(t *testing.T) {
	dir := testutils.SetupProject(t, map[string]string{
		"LICENSE":      "MIT",
		"pubspec.yaml": "name: pkg",
	})
	runner := &recordingRunner{exit: map[string]int{domain.TaskPublishToRegistry: 1}}
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner))
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir, RootDir: dir, Host: domain.HostLinux}, func(s *pubflow.Scope) error {
		if err := s.Build(); err != nil {
			return err
		}
		if err := s.Publish(); err != nil {
			return err
		}
		return s.Tasks().Register("notifyUsers", func(t *dsl.TaskBuilder) {
			t.Command("notify", "--release").Dir(dir).DependsOn(domain.TaskPublishToRegistry)
		})
	})
	require.NoError(t, err)

	report, err := scope.Run(t.Context(), domain.TaskPublish, domain.TaskActivateLocally, "notifyUsers")
	require.NoError(t, err)

	want := map[string]domain.TaskStatus{
		domain.TaskPublishToRegistry: domain.StatusFailed,
		domain.TaskActivateLocally:   domain.StatusSucceeded,
		"notifyUsers":                domain.StatusNotRun,
		domain.TaskPublish:           domain.StatusNotRun,
	}
	for name, status := range want {
		st, ok := report.Status(name)
		require.True(t, ok, "task %q not scheduled", name)
		assert.Equal(t, status, st, name)
	}
	assert.Equal(t, 1, report.ExitCode())
	assert.Contains(t, runner.tasks(), domain.TaskActivateLocally)
	assert.NotContains(t, runner.tasks(), "notifyUsers")
}

func TestScope_RunUnknownTask(t *testing.T) {
	runner := &recordingRunner{}
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner))
	scope := standardScope(t, ws, t.TempDir())

	report, err := scope.Run(t.Context(), "deploy")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrUnknownTask)
	assert.Empty(t, runner.tasks())
}

func TestScope_RunFreezesRegistry(t *testing.T) {
	ws := pubflow.NewWorkspace(pubflow.WithRunner(&recordingRunner{}))
	scope := standardScope(t, ws, t.TempDir())

	_, err := scope.Run(t.Context(), domain.TaskClean)
	require.NoError(t, err)

	err = scope.Tasks().Register("late", nil)
	assert.ErrorIs(t, err, domain.ErrRegistryFrozen)
}

func TestScope_CustomTaskThroughDSL(t *testing.T) {
	runner := &recordingRunner{}
	ws := pubflow.NewWorkspace(pubflow.WithRunner(runner))
	dir := t.TempDir()
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir, Host: domain.HostLinux}, func(s *pubflow.Scope) error {
		if err := s.Build(); err != nil {
			return err
		}
		if err := s.Tasks().Register("lint", func(t *dsl.TaskBuilder) {
			t.Group(domain.GroupBuild).Command("dart", "analyze").Dir(dir).DependsOn(domain.TaskResolveDependencies)
		}); err != nil {
			return err
		}
		return s.Tasks().Configure(domain.TaskCheck, func(t *dsl.TaskBuilder) {
			t.DependsOn("lint")
		})
	})
	require.NoError(t, err)
	require.NoError(t, scope.Validate())

	report, err := scope.Run(t.Context(), domain.TaskCheck)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Contains(t, runner.tasks(), "lint")
}

func TestScope_ValidateFindsCycles(t *testing.T) {
	ws := pubflow.NewWorkspace()
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: t.TempDir()}, func(s *pubflow.Scope) error {
		if err := s.Tasks().Register("a", func(t *dsl.TaskBuilder) { t.DependsOn("b") }); err != nil {
			return err
		}
		return s.Tasks().Register("b", func(t *dsl.TaskBuilder) { t.MustRunAfter("a") })
	})
	require.NoError(t, err)

	err = scope.Validate()
	var cycle *domain.CyclicDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, cycle.Cycle[0], cycle.Cycle[len(cycle.Cycle)-1])
}

func TestScope_StagePublication(t *testing.T) {
	root := testutils.SetupProject(t, map[string]string{
		"LICENSE":             "MIT",
		"pkg/pubspec.yaml":    "name: pkg",
		"pkg/README.md":       "# pkg",
		"pkg/lib/pkg.dart":    "library pkg;",
		"pkg/proto/api.proto": "syntax = \"proto3\";",
		"pkg/lib/notes.txt":   "ignored",
		"pkg/proto/gen.md":    "excluded",
	})
	dir := filepath.Join(root, "pkg")

	ws := pubflow.NewWorkspace(pubflow.WithRunner(&recordingRunner{}))
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: dir, RootDir: root, Host: domain.HostLinux}, func(s *pubflow.Scope) error {
		if err := s.Build(); err != nil {
			return err
		}
		return s.Publish()
	})
	require.NoError(t, err)

	report, err := scope.Run(t.Context(), domain.TaskStagePublication)
	require.NoError(t, err)
	require.True(t, report.Succeeded(), "%+v", report.Results)

	env := scope.Environment()
	pub := env.PublicationDirectory
	assert.FileExists(t, filepath.Join(pub, "LICENSE"))
	assert.FileExists(t, filepath.Join(pub, "pubspec.yaml"))
	assert.FileExists(t, filepath.Join(pub, "README.md"))
	assert.FileExists(t, filepath.Join(pub, "lib", "pkg.dart"))
	assert.NoFileExists(t, filepath.Join(pub, "lib", "notes.txt"))
	assert.NoDirExists(t, filepath.Join(pub, "proto"))
}
