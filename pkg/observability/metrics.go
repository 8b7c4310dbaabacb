package observability

import (
	"context"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by executor hooks.
type Metrics struct {
	TaskDuration *prometheus.HistogramVec
	TaskStatus   *prometheus.CounterVec
	Runs         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pubflow_task_duration_seconds",
				Help:    "Duration of executed tasks",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"task", "status"},
		),
		TaskStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubflow_task_status_total",
				Help: "Number of tasks by terminal status",
			},
			[]string{"task", "status"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubflow_runs_total",
				Help: "Number of executor runs by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.TaskDuration, m.TaskStatus, m.Runs} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskFinish: func(_ context.Context, e *domain.TaskEvent) {
			status := string(e.Status)
			m.TaskStatus.WithLabelValues(e.Task, status).Inc()
			if e.Duration > 0 {
				m.TaskDuration.WithLabelValues(e.Task, status).Observe(e.Duration.Seconds())
			}
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			outcome := "success"
			if e.Report != nil && !e.Report.Succeeded() {
				outcome = "failure"
			}
			m.Runs.WithLabelValues(outcome).Inc()
		},
	}
}
