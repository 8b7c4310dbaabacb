package pubflow

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/pubflow/internal/logging"
	"github.com/aretw0/pubflow/pkg/adapters/process"
	"github.com/aretw0/pubflow/pkg/coordinator"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/environment"
	"github.com/aretw0/pubflow/pkg/pipeline"
	"github.com/aretw0/pubflow/pkg/ports"
	"github.com/aretw0/pubflow/pkg/registry"
)

// Workspace holds the configuration scopes of every project in a build.
// It is safe for concurrent use.
type Workspace struct {
	mu     sync.Mutex
	scopes map[string]*Scope

	logger      *slog.Logger
	runner      ports.CommandRunner
	store       ports.ReportStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	hooks       domain.LifecycleHooks
	parallelism int
	incremental bool

	manager *coordinator.Manager
}

// Option defines a functional option for configuring the Workspace.
type Option func(*Workspace)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithRunner replaces the process runner used for task commands.
func WithRunner(runner ports.CommandRunner) Option {
	return func(w *Workspace) {
		w.runner = runner
	}
}

// WithReportStore persists run reports. Reports are kept in memory by default.
func WithReportStore(store ports.ReportStore) Option {
	return func(w *Workspace) {
		w.store = store
	}
}

// WithHooks registers lifecycle callbacks for every run.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workspace) {
		w.hooks = hooks
	}
}

// WithParallelism bounds how many tasks of a run execute at once.
func WithParallelism(n int) Option {
	return func(w *Workspace) {
		w.parallelism = n
	}
}

// WithIncremental toggles the up-to-date check. It is on by default.
func WithIncremental(enabled bool) Option {
	return func(w *Workspace) {
		w.incremental = enabled
	}
}

// WithLocker serializes runs of the same project across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Workspace) {
		w.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed build locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(w *Workspace) {
		w.lockTTL = ttl
	}
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts ...Option) *Workspace {
	w := &Workspace{
		scopes:      make(map[string]*Scope),
		parallelism: 1,
		incremental: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.runner == nil {
		w.runner = process.NewRunner()
	}

	mgrOpts := []coordinator.Option{coordinator.WithLogger(w.logger)}
	if w.locker != nil {
		mgrOpts = append(mgrOpts, coordinator.WithLocker(w.locker))
	}
	if w.lockTTL > 0 {
		mgrOpts = append(mgrOpts, coordinator.WithLockTTL(w.lockTTL))
	}
	w.manager = coordinator.NewManager(w.store, mgrOpts...)
	return w
}

// Reports gives access to the stored run reports.
func (w *Workspace) Reports() *coordinator.Manager {
	return w.manager
}

// ProjectDescriptor identifies a project. Dir is required; the other fields
// default from it.
type ProjectDescriptor struct {
	// Name defaults to the base name of Dir.
	Name string
	// Dir contains pubspec.yaml. It is the identity of the project.
	Dir string
	// RootDir is the repository root holding the LICENSE. Defaults to Dir.
	RootDir string
	// BuildDir defaults to Dir/build.
	BuildDir string
	// License overrides RootDir/LICENSE.
	License string
	// Host defaults to the running OS.
	Host domain.HostOS
}

func (p ProjectDescriptor) resolve() (ProjectDescriptor, error) {
	if p.Dir == "" {
		return p, fmt.Errorf("project dir is required")
	}
	abs, err := filepath.Abs(p.Dir)
	if err != nil {
		return p, fmt.Errorf("invalid project dir: %w", err)
	}
	p.Dir = abs
	if p.Name == "" {
		p.Name = filepath.Base(abs)
	}
	if p.RootDir == "" {
		p.RootDir = abs
	}
	if p.BuildDir == "" {
		p.BuildDir = filepath.Join(abs, "build")
	}
	if p.Host == "" {
		p.Host = domain.CurrentHost()
	}
	return p, nil
}

// WithScope returns the scope of project and configures it with body.
// The first call for a project directory creates the scope; later calls hand
// the same environment and registry to body. A body that fails on the first
// call discards the new scope.
func (w *Workspace) WithScope(project ProjectDescriptor, body func(*Scope) error) (*Scope, error) {
	resolved, err := project.resolve()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	existing, ok := w.scopes[resolved.Dir]
	w.mu.Unlock()
	if ok {
		if body != nil {
			if err := body(existing); err != nil {
				return existing, err
			}
		}
		return existing, nil
	}

	s := newScope(w, resolved)
	if body != nil {
		if err := body(s); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// A concurrent call created the same project first; its scope wins.
	if existing, ok := w.scopes[resolved.Dir]; ok {
		return existing, nil
	}
	w.scopes[resolved.Dir] = s
	w.logger.Debug("scope created", "project", resolved.Name, "dir", resolved.Dir)
	return s, nil
}

// Scopes returns every scope created so far, ordered by project directory.
func (w *Workspace) Scopes() []*Scope {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Scope, 0, len(w.scopes))
	for _, s := range w.scopes {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Scope) int { return strings.Compare(a.project.Dir, b.project.Dir) })
	return out
}

func newScope(w *Workspace, p ProjectDescriptor) *Scope {
	return &Scope{
		ws:      w,
		project: p,
		env:     environment.Resolve(p.Host, p.Dir, p.BuildDir, p.Name),
		reg:     registry.New(),
		layout: pipeline.Layout{
			ProjectDir: p.Dir,
			RootDir:    p.RootDir,
			License:    p.License,
		},
	}
}
