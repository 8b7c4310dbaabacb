package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/pubflow/pkg/adapters/memory"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesRunsPerProject(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, "client", func(ctx context.Context) error {
				n := active.Add(1)
				defer active.Add(-1)
				if n > maxActive.Load() {
					maxActive.Store(n)
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestManager_DifferentProjectsRunConcurrently(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	inA := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.WithLock(ctx, "a", func(ctx context.Context) error {
			close(inA)
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}()
	<-inA

	start := time.Now()
	require.NoError(t, m.WithLock(ctx, "b", func(context.Context) error { return nil }))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	require.NoError(t, <-done)
}

func TestManager_LockLifecycle(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_ = m.WithLock(ctx, fmt.Sprintf("project-%d", i), func(context.Context) error { return nil })
	}
	assert.Empty(t, m.locks, "lock entries must be released after use")
}

type stubLocker struct {
	err      error
	locked   []string
	unlocked int
}

func (s *stubLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.locked = append(s.locked, key)
	return func(context.Context) error {
		s.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &stubLocker{}
	m := NewManager(nil, WithLocker(locker), WithLockTTL(time.Minute))

	called := false
	err := m.WithLock(context.Background(), "client", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{"client"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)

	failing := NewManager(nil, WithLocker(&stubLocker{err: domain.ErrLockAcquire}))
	err = failing.WithLock(context.Background(), "client", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrLockAcquire)
}

func TestManager_RunAndReports(t *testing.T) {
	store := memory.NewStore()
	m := NewManager(store)
	ctx := context.Background()

	first := domain.NewExecutionReport("r1", "client", nil)
	first.StartedAt = time.Now().Add(-time.Minute)
	first.Results["a"] = &domain.TaskResult{Name: "a", Status: domain.StatusSucceeded}
	require.NoError(t, m.Save(ctx, first))

	report, err := m.Run(ctx, "client", func(ctx context.Context) (*domain.ExecutionReport, error) {
		r := domain.NewExecutionReport("r2", "client", nil)
		r.StartedAt = time.Now()
		r.Results["a"] = &domain.TaskResult{Name: "a", Status: domain.StatusFailed}
		return r, m.Save(ctx, r)
	})
	require.NoError(t, err)
	assert.Equal(t, "r2", report.ID)

	latest, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)

	diff, err := m.Diff(ctx, "r1", "r2")
	require.NoError(t, err)
	require.Len(t, diff.Regressions(), 1)
	assert.Equal(t, "a", diff.Regressions()[0].Task)

	_, err = m.Diff(ctx, "r1", "missing")
	assert.True(t, errors.Is(err, domain.ErrReportNotFound))

	require.NoError(t, m.Delete(ctx, "r1"))
	require.NoError(t, m.Delete(ctx, "r2"))
	_, err = m.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}
