package domain

import (
	"sort"
	"time"
)

// TaskStatus is the terminal status of a task in a run.
type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
	StatusNotRun    TaskStatus = "not_run"
	StatusUpToDate  TaskStatus = "up_to_date"
)

// Satisfied reports whether dependents may proceed after a task ended with s.
func (s TaskStatus) Satisfied() bool {
	return s == StatusSucceeded || s == StatusUpToDate || s == StatusSkipped
}

// TaskResult captures what happened to one scheduled task.
type TaskResult struct {
	Name       string     `json:"name"`
	Status     TaskStatus `json:"status"`
	ExitCode   int        `json:"exit_code,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	Err        error      `json:"-"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
}

// Duration returns how long the task ran, zero if it never started.
func (r *TaskResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExecutionReport lists the terminal status of every task scheduled by a run.
type ExecutionReport struct {
	ID         string                 `json:"id"`
	Project    string                 `json:"project"`
	Requested  []string               `json:"requested"`
	Order      []string               `json:"order"`
	Results    map[string]*TaskResult `json:"results"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// NewExecutionReport creates an empty report for the given run.
func NewExecutionReport(id, project string, requested []string) *ExecutionReport {
	return &ExecutionReport{
		ID:        id,
		Project:   project,
		Requested: requested,
		Results:   make(map[string]*TaskResult),
	}
}

// Status returns the status recorded for a task and whether it was scheduled.
func (r *ExecutionReport) Status(name string) (TaskStatus, bool) {
	res, ok := r.Results[name]
	if !ok {
		return "", false
	}
	return res.Status, true
}

// Succeeded reports whether every scheduled task ended in a satisfied status.
func (r *ExecutionReport) Succeeded() bool {
	for _, res := range r.Results {
		if !res.Status.Satisfied() {
			return false
		}
	}
	return true
}

// ExitCode is the process exit code for the run: 0 on success, 1 otherwise.
func (r *ExecutionReport) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}

// Count returns how many tasks ended with each status.
func (r *ExecutionReport) Count() map[TaskStatus]int {
	out := make(map[TaskStatus]int)
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// Names returns the scheduled task names, execution order first, then the rest sorted.
func (r *ExecutionReport) Names() []string {
	seen := make(map[string]bool, len(r.Results))
	names := make([]string, 0, len(r.Results))
	for _, n := range r.Order {
		if _, ok := r.Results[n]; ok && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var rest []string
	for n := range r.Results {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Clone returns a deep copy of the report.
func (r *ExecutionReport) Clone() *ExecutionReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Requested = append([]string(nil), r.Requested...)
	c.Order = append([]string(nil), r.Order...)
	c.Results = make(map[string]*TaskResult, len(r.Results))
	for name, res := range r.Results {
		cp := *res
		c.Results[name] = &cp
	}
	return &c
}

// SortNewestFirst orders reports by start time, newest first, then by ID.
func SortNewestFirst(reports []*ExecutionReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.ID > b.ID
	})
}
