package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/pubflow"
	"github.com/aretw0/pubflow/internal/config"
	"github.com/aretw0/pubflow/internal/logging"
	"github.com/aretw0/pubflow/pkg/adapters/file"
	"github.com/aretw0/pubflow/pkg/adapters/process"
	redisAdapter "github.com/aretw0/pubflow/pkg/adapters/redis"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/environment"
	"github.com/aretw0/pubflow/pkg/persistence/middleware"
	"github.com/aretw0/pubflow/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
)

// Options are the command line settings that shape a project.
type Options struct {
	Dir    string
	Logger *slog.Logger
	// Parallelism overrides the build file when positive.
	Parallelism   int
	NoIncremental bool
	// RedisAddr overrides the build file redis address.
	RedisAddr      string
	PublicationDir string
	Hooks          domain.LifecycleHooks
	// Runner replaces the process runner, for tests.
	Runner ports.CommandRunner
}

// Project is a configured workspace scope plus the resources it holds.
type Project struct {
	Config    *config.Config
	Workspace *pubflow.Workspace
	Scope     *pubflow.Scope
	Store     ports.ReportStore

	closers []func() error
}

// Open loads the build file of opts.Dir and registers every task it asks for.
func Open(opts Options) (*Project, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug("build file loaded", "path", cfg.Path)
	}

	p := &Project{Config: cfg}

	wsOpts := []pubflow.Option{
		pubflow.WithLogger(logger),
		pubflow.WithHooks(opts.Hooks),
		pubflow.WithIncremental(cfg.IncrementalEnabled() && !opts.NoIncremental),
	}

	parallelism := cfg.Parallelism
	if opts.Parallelism > 0 {
		parallelism = opts.Parallelism
	}
	if parallelism > 0 {
		wsOpts = append(wsOpts, pubflow.WithParallelism(parallelism))
	}

	runner := opts.Runner
	if runner == nil {
		runner = process.NewRunner(
			process.WithRegistry(cfg.ToolMap()),
			process.WithBaseDir(cfg.Dir),
		)
	}
	wsOpts = append(wsOpts, pubflow.WithRunner(runner))

	redisAddr := cfg.Redis.Addr
	if opts.RedisAddr != "" {
		redisAddr = opts.RedisAddr
	}
	if redisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     redisAddr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		p.closers = append(p.closers, client.Close)

		var storeOpts []redisAdapter.Option
		if cfg.Redis.Prefix != "" {
			storeOpts = append(storeOpts, redisAdapter.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			storeOpts = append(storeOpts, redisAdapter.WithTTL(cfg.Redis.TTL))
		}
		p.Store = redisAdapter.NewFromClient(client, storeOpts...)
		wsOpts = append(wsOpts, pubflow.WithLocker(redisAdapter.NewLocker(client, cfg.Redis.Prefix)))
		if cfg.Redis.LockTTL > 0 {
			wsOpts = append(wsOpts, pubflow.WithLockTTL(cfg.Redis.LockTTL))
		}
		logger.Debug("using redis report store", "addr", redisAddr)
	} else {
		p.Store = file.New(filepath.Join(cfg.BuildRoot(), "pubflow", "reports"))
	}
	if len(cfg.Redact) > 0 {
		redact, err := middleware.NewRedactionMiddleware(cfg.Redact)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Store = middleware.Chain(p.Store, redact)
	}
	wsOpts = append(wsOpts, pubflow.WithReportStore(p.Store))

	p.Workspace = pubflow.NewWorkspace(wsOpts...)

	overrides, err := cfg.Overrides()
	if err != nil {
		p.Close()
		return nil, err
	}
	if opts.PublicationDir != "" {
		abs, err := filepath.Abs(opts.PublicationDir)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("invalid publication dir: %w", err)
		}
		overrides.PublicationDirectory = environment.String(abs)
	}

	project := pubflow.ProjectDescriptor{
		Name:     cfg.Project,
		Dir:      cfg.Dir,
		RootDir:  cfg.RootDir(),
		BuildDir: cfg.BuildRoot(),
		License:  cfg.Layout().License,
	}
	p.Scope, err = p.Workspace.WithScope(project, func(s *pubflow.Scope) error {
		s.Environment(overrides)
		if err := s.Apply(cfg.PipelineOptions()); err != nil {
			return err
		}
		return cfg.RegisterTasks(s.Registry())
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the connections held by the project.
func (p *Project) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	p.closers = nil
	return errors.Join(errs...)
}
