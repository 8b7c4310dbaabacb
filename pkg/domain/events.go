package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunFinish  EventType = "run_finish"
	EventTaskStart  EventType = "task_start"
	EventTaskFinish EventType = "task_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// RunEvent marks the start or end of an executor run.
type RunEvent struct {
	EventBase
	Project   string           `json:"project"`
	Requested []string         `json:"requested"`
	Report    *ExecutionReport `json:"report,omitempty"`
}

// TaskEvent marks the start or end of a single task.
type TaskEvent struct {
	EventBase
	Task     string        `json:"task"`
	Group    string        `json:"group,omitempty"`
	Status   TaskStatus    `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for executor observability.
// Hooks may be called concurrently when the executor runs tasks in parallel.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunFinish  func(context.Context, *RunEvent)
	OnTaskStart  func(context.Context, *TaskEvent)
	OnTaskFinish func(context.Context, *TaskEvent)
}
