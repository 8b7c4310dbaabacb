package executor

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/aretw0/pubflow/internal/logging"
	"github.com/aretw0/pubflow/pkg/adapters/fsops"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Executor runs plans against a command runner.
type Executor struct {
	runner      ports.CommandRunner
	store       ports.ReportStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	parallelism int64
	incremental bool
	project     string
	newID       func() string
}

// Option configures the Executor.
type Option func(*Executor)

// WithParallelism bounds how many tasks run at once. Values below 1 mean 1.
func WithParallelism(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.parallelism = int64(n)
	}
}

// WithIncremental toggles the up-to-date check for tasks that declare inputs and outputs.
func WithIncremental(enabled bool) Option {
	return func(e *Executor) {
		e.incremental = enabled
	}
}

// WithReportStore persists every report once the run is over.
func WithReportStore(store ports.ReportStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithProject sets the project recorded in reports.
func WithProject(project string) Option {
	return func(e *Executor) {
		e.project = project
	}
}

// WithIDGenerator overrides how run IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) {
		e.newID = fn
	}
}

// New creates an Executor. Tasks with a command need a non-nil runner.
func New(runner ports.CommandRunner, opts ...Option) *Executor {
	e := &Executor{
		runner:      runner,
		logger:      logging.NewNop(),
		parallelism: 1,
		incremental: true,
		newID:       newRunID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newRunID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Run executes requested and its dependencies.
//
// Planning errors are returned before anything runs. Task failures are recorded
// in the report and do not produce an error. If ctx ends during the run, the
// report is still returned, together with the context error.
func (e *Executor) Run(ctx context.Context, g Graph, requested []string) (*domain.ExecutionReport, error) {
	plan, err := NewPlan(g, requested)
	if err != nil {
		return nil, err
	}

	report := domain.NewExecutionReport(e.newID(), e.project, requested)
	report.Order = plan.Order
	report.StartedAt = time.Now()

	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: report.StartedAt, Type: domain.EventRunStart, RunID: report.ID},
			Project:   e.project,
			Requested: requested,
		})
	}
	e.logger.Info("run started", "run_id", report.ID, "requested", requested, "scheduled", plan.Len())

	r := &run{e: e, plan: plan, report: report}
	r.execute(ctx)

	report.FinishedAt = time.Now()
	e.logger.Info("run finished",
		"run_id", report.ID,
		"succeeded", report.Succeeded(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	if e.hooks.OnRunFinish != nil {
		e.hooks.OnRunFinish(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: report.FinishedAt, Type: domain.EventRunFinish, RunID: report.ID},
			Project:   e.project,
			Requested: requested,
			Report:    report,
		})
	}

	if e.store != nil {
		if err := e.store.Save(context.WithoutCancel(ctx), report); err != nil {
			e.logger.Warn("failed to save report", "run_id", report.ID, "err", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

type completion struct {
	name   string
	result *domain.TaskResult
}

// run holds the mutable state of one execution. Only the scheduling loop
// touches it; task goroutines report back through the done channel.
type run struct {
	e      *Executor
	plan   *Plan
	report *domain.ExecutionReport

	indeg     map[string]int
	ready     *nameHeap
	completed int
}

func (r *run) execute(ctx context.Context) {
	r.indeg = r.plan.indegrees()
	r.ready = &nameHeap{}
	for name, d := range r.indeg {
		if d == 0 {
			heap.Push(r.ready, name)
		}
	}

	sem := semaphore.NewWeighted(r.e.parallelism)
	done := make(chan completion, r.plan.Len())
	inflight := 0
	total := r.plan.Len()

	for r.completed < total {
		for r.ready.Len() > 0 {
			name := (*r.ready)[0]
			task := r.plan.Tasks[name]

			if res := r.decide(ctx, task); res != nil {
				heap.Pop(r.ready)
				r.finish(ctx, res)
				continue
			}
			if !sem.TryAcquire(1) {
				break
			}
			heap.Pop(r.ready)
			inflight++
			r.e.emitTaskStart(ctx, r.report.ID, task)

			go func(task *domain.Task) {
				defer sem.Release(1)
				done <- completion{name: task.Name, result: r.e.runTask(ctx, task)}
			}(task)
		}

		if r.completed == total {
			break
		}
		if inflight == 0 {
			// Unreachable for an acyclic plan.
			r.e.logger.Error("scheduler stalled", "run_id", r.report.ID, "completed", r.completed, "total", total)
			return
		}
		c := <-done
		inflight--
		r.finish(ctx, c.result)
	}
}

// decide returns a terminal result for tasks that must not be executed,
// or nil when the task should run.
func (r *run) decide(ctx context.Context, task *domain.Task) *domain.TaskResult {
	if ctx.Err() != nil {
		return &domain.TaskResult{Name: task.Name, Status: domain.StatusNotRun, Error: "run canceled"}
	}

	for _, dep := range r.plan.hard[task.Name] {
		if st, _ := r.report.Status(dep); !st.Satisfied() {
			return &domain.TaskResult{
				Name:   task.Name,
				Status: domain.StatusNotRun,
				Error:  fmt.Sprintf("dependency %q did not succeed", dep),
			}
		}
	}

	if owners, ok := r.plan.owners[task.Name]; ok {
		ran := false
		for _, o := range owners {
			if st, _ := r.report.Status(o); st != domain.StatusNotRun {
				ran = true
				break
			}
		}
		if !ran {
			return &domain.TaskResult{Name: task.Name, Status: domain.StatusNotRun, Error: "no finalized task ran"}
		}
	}

	if !task.Enabled {
		return &domain.TaskResult{Name: task.Name, Status: domain.StatusSkipped}
	}

	if r.e.incremental && len(task.Inputs) > 0 && len(task.Outputs) > 0 {
		ok, err := fsops.UpToDate(task.Inputs, task.Outputs)
		if err != nil {
			r.e.logger.Warn("up-to-date check failed", "task", task.Name, "err", err)
		}
		if ok {
			return &domain.TaskResult{Name: task.Name, Status: domain.StatusUpToDate}
		}
	}
	return nil
}

func (r *run) finish(ctx context.Context, res *domain.TaskResult) {
	if res.Err != nil && res.Error == "" {
		res.Error = res.Err.Error()
	}
	r.report.Results[res.Name] = res
	r.completed++

	r.e.logTask(res)
	r.e.emitTaskFinish(ctx, r.report.ID, r.plan.Tasks[res.Name], res)

	for _, m := range r.plan.succs[res.Name] {
		r.indeg[m]--
		if r.indeg[m] == 0 {
			heap.Push(r.ready, m)
		}
	}
}

// runTask executes a single task. It is called from worker goroutines.
func (e *Executor) runTask(ctx context.Context, task *domain.Task) *domain.TaskResult {
	res := &domain.TaskResult{Name: task.Name, StartedAt: time.Now()}
	defer func() { res.FinishedAt = time.Now() }()

	switch {
	case task.Action != nil && task.Action.Kind != domain.ActionNone:
		res.Err = e.runAction(task)
	case len(task.Command) > 0:
		res.Err = e.runCommand(ctx, task, res)
	}

	if res.Err != nil {
		res.Status = domain.StatusFailed
	} else {
		res.Status = domain.StatusSucceeded
	}
	return res
}

func (e *Executor) runCommand(ctx context.Context, task *domain.Task, res *domain.TaskResult) error {
	if e.runner == nil {
		return fmt.Errorf("task %q: no command runner configured", task.Name)
	}
	out, err := e.runner.Run(ctx, domain.Command{
		Task:  task.Name,
		Args:  task.Command,
		Dir:   task.WorkingDir,
		Stdin: task.Stdin,
	})
	res.ExitCode = out.ExitCode
	res.Output = out.Output
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return &domain.ExternalCommandError{Task: task.Name, ExitCode: out.ExitCode, Output: out.Output}
	}
	return nil
}

func (e *Executor) runAction(task *domain.Task) error {
	var err error
	switch task.Action.Kind {
	case domain.ActionDelete:
		err = fsops.Delete(task.Action.Paths...)
	case domain.ActionCopy:
		if task.Action.Copy == nil {
			return &domain.FileSystemError{Task: task.Name, Op: "copy", Err: errors.New("missing copy spec")}
		}
		var n int
		n, err = fsops.Stage(*task.Action.Copy)
		if err == nil {
			e.logger.Debug("staged files", "task", task.Name, "files", n, "into", task.Action.Copy.Into)
		}
	default:
		return &domain.FileSystemError{Task: task.Name, Op: string(task.Action.Kind), Err: errors.New("unsupported action")}
	}
	if err == nil {
		return nil
	}

	fsErr := &domain.FileSystemError{Task: task.Name, Op: string(task.Action.Kind), Err: err}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		fsErr.Op, fsErr.Path, fsErr.Err = pe.Op, pe.Path, pe.Err
	}
	return fsErr
}

func (e *Executor) logTask(res *domain.TaskResult) {
	attrs := []any{"task", res.Name, "status", res.Status}
	if d := res.Duration(); d > 0 {
		attrs = append(attrs, "duration", d)
	}
	switch res.Status {
	case domain.StatusFailed:
		attrs = append(attrs, "exit_code", res.ExitCode, "err", res.Err)
		e.logger.Error("task failed", attrs...)
	case domain.StatusNotRun:
		attrs = append(attrs, "reason", res.Error)
		e.logger.Debug("task not run", attrs...)
	default:
		e.logger.Debug("task finished", attrs...)
	}
}

func (e *Executor) emitTaskStart(ctx context.Context, runID string, task *domain.Task) {
	if e.hooks.OnTaskStart == nil {
		return
	}
	e.hooks.OnTaskStart(ctx, &domain.TaskEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTaskStart, RunID: runID},
		Task:      task.Name,
		Group:     task.Group,
	})
}

func (e *Executor) emitTaskFinish(ctx context.Context, runID string, task *domain.Task, res *domain.TaskResult) {
	if e.hooks.OnTaskFinish == nil {
		return
	}
	e.hooks.OnTaskFinish(ctx, &domain.TaskEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTaskFinish, RunID: runID},
		Task:      task.Name,
		Group:     task.Group,
		Status:    res.Status,
		Duration:  res.Duration(),
		Err:       res.Err,
	})
}
