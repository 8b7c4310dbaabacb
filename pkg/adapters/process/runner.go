package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/pubflow/pkg/domain"
)

// DefaultOutputLimit bounds the combined output kept per command.
const DefaultOutputLimit = 64 << 10

// Runner implements ports.CommandRunner by executing local processes.
// Commands can be aliased through a registry of named tools; in strict mode
// only registered names may run (Allow-Listing).
type Runner struct {
	registry    map[string]RegisteredProcess
	strict      bool
	baseDir     string
	env         []string
	outputLimit int
	waitDelay   time.Duration
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string // Prepended to the task's arguments
	Env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the tool registry from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = RegisteredProcess{
				Command: tool.Command,
				Args:    tool.Args,
				Env:     tool.Environment,
			}
		}
	}
}

// WithStrict rejects commands that are not in the registry.
func WithStrict(strict bool) RunnerOption {
	return func(r *Runner) {
		r.strict = strict
	}
}

// WithBaseDir sets the working directory for commands that do not set their own.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to every process environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithOutputLimit sets how many bytes of combined output are kept.
func WithOutputLimit(n int) RunnerOption {
	return func(r *Runner) {
		r.outputLimit = n
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    make(map[string]RegisteredProcess),
		outputLimit: DefaultOutputLimit,
		waitDelay:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the registry under name.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Run executes the command and waits for it.
//
// A non-zero exit is returned as a result with a nil error. An error is returned
// when the process cannot be started or the context ends before it exits.
func (r *Runner) Run(ctx context.Context, c domain.Command) (domain.CommandResult, error) {
	if len(c.Args) == 0 {
		return domain.CommandResult{}, fmt.Errorf("task %q: empty command", c.Task)
	}

	name, args := c.Args[0], c.Args[1:]
	var extraEnv []string
	if proc, ok := r.registry[name]; ok {
		name = proc.Command
		args = append(append([]string{}, proc.Args...), args...)
		for k, v := range proc.Env {
			extraEnv = append(extraEnv, k+"="+v)
		}
	} else if r.strict {
		return domain.CommandResult{}, fmt.Errorf("task %q: command %q is not registered", c.Task, name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.baseDir
	}
	if len(r.env) > 0 || len(extraEnv) > 0 {
		cmd.Env = append(append(cmd.Environ(), r.env...), extraEnv...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	cmd.WaitDelay = r.waitDelay

	out := &boundedBuffer{limit: r.outputLimit}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	result := domain.CommandResult{Output: out.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("task %q interrupted: %w", c.Task, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		return result, fmt.Errorf("task %q: failed to start %q: %w", c.Task, name, err)
	}
}

// boundedBuffer keeps the first limit bytes written to it and counts the rest.
type boundedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	switch {
	case b.limit <= 0:
		b.buf.Write(p)
	case room >= len(p):
		b.buf.Write(p)
	case room > 0:
		b.buf.Write(p[:room])
		b.dropped += len(p) - room
	default:
		b.dropped += len(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dropped == 0 {
		return b.buf.String()
	}
	return fmt.Sprintf("%s\n... (%d bytes truncated)", b.buf.String(), b.dropped)
}
