package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/pubflow/pkg/domain"
)

// CombineHooks chains several hook sets; each callback fires in argument order.
func CombineHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			for _, s := range sets {
				if s.OnRunStart != nil {
					s.OnRunStart(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			for _, s := range sets {
				if s.OnRunFinish != nil {
					s.OnRunFinish(ctx, e)
				}
			}
		},
		OnTaskStart: func(ctx context.Context, e *domain.TaskEvent) {
			for _, s := range sets {
				if s.OnTaskStart != nil {
					s.OnTaskStart(ctx, e)
				}
			}
		},
		OnTaskFinish: func(ctx context.Context, e *domain.TaskEvent) {
			for _, s := range sets {
				if s.OnTaskFinish != nil {
					s.OnTaskFinish(ctx, e)
				}
			}
		},
	}
}

// LoggingHooks logs task progress at info level and failures at error level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskStart: func(ctx context.Context, e *domain.TaskEvent) {
			logger.InfoContext(ctx, "task started", "run_id", e.RunID, "task", e.Task)
		},
		OnTaskFinish: func(ctx context.Context, e *domain.TaskEvent) {
			if e.Status == domain.StatusFailed {
				logger.ErrorContext(ctx, "task failed", "run_id", e.RunID, "task", e.Task, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "task finished", "run_id", e.RunID, "task", e.Task, "status", e.Status, "duration", e.Duration)
		},
	}
}
