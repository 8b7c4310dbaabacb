package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/pubflow/pkg/domain"
)

// RunSnapshot is the live view of the latest run.
type RunSnapshot struct {
	RunID     string                       `json:"run_id"`
	Project   string                       `json:"project"`
	Requested []string                     `json:"requested"`
	Running   bool                         `json:"running"`
	StartedAt time.Time                    `json:"started_at"`
	Active    []string                     `json:"active"`
	Finished  map[string]domain.TaskStatus `json:"finished"`
}

// Tracker follows the run in progress through lifecycle hooks.
// Safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	run    *RunSnapshot
	active map[string]bool
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Hooks returns lifecycle hooks that update the tracker.
func (t *Tracker) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.run = &RunSnapshot{
				RunID:     e.RunID,
				Project:   e.Project,
				Requested: e.Requested,
				Running:   true,
				StartedAt: e.Timestamp,
				Finished:  make(map[string]domain.TaskStatus),
			}
			t.active = make(map[string]bool)
		},
		OnTaskStart: func(_ context.Context, e *domain.TaskEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.run != nil && t.run.RunID == e.RunID {
				t.active[e.Task] = true
			}
		},
		OnTaskFinish: func(_ context.Context, e *domain.TaskEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.run != nil && t.run.RunID == e.RunID {
				delete(t.active, e.Task)
				t.run.Finished[e.Task] = e.Status
			}
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.run != nil && t.run.RunID == e.RunID {
				t.run.Running = false
				t.active = make(map[string]bool)
			}
		},
	}
}

// Snapshot returns a copy of the latest run state, or nil before the first run.
func (t *Tracker) Snapshot() *RunSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.run == nil {
		return nil
	}

	s := *t.run
	s.Finished = make(map[string]domain.TaskStatus, len(t.run.Finished))
	for k, v := range t.run.Finished {
		s.Finished[k] = v
	}
	s.Active = make([]string, 0, len(t.active))
	for name := range t.active {
		s.Active = append(s.Active, name)
	}
	return &s
}
