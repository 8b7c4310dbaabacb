package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pubflow/internal/logging"
	"github.com/aretw0/pubflow/pkg/adapters/memory"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a project.
const DefaultLockTTL = 30 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager coordinates runs and report access.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.ReportStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given report store.
// A nil store is replaced by an in-memory one.
func NewManager(store ports.ReportStore, opts ...Option) *Manager {
	if store == nil {
		store = memory.NewStore()
	}
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(projectID) after unlocking.
func (m *Manager) acquire(projectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[projectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, projectID)
	}
}

// WithLock executes fn while holding the build lock of the project.
func (m *Manager) WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error {
	entry := m.acquire(projectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(projectID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, projectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("project %q: %w", projectID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"project", projectID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Run executes fn under the project lock and returns its report.
func (m *Manager) Run(ctx context.Context, projectID string, fn func(context.Context) (*domain.ExecutionReport, error)) (*domain.ExecutionReport, error) {
	var report *domain.ExecutionReport
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		report, err = fn(ctx)
		return err
	})
	return report, err
}

// Save persists a report.
func (m *Manager) Save(ctx context.Context, report *domain.ExecutionReport) error {
	return m.store.Save(ctx, report)
}

// Load retrieves a stored report.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.ExecutionReport, error) {
	return m.store.Load(ctx, runID)
}

// Delete removes a stored report.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.store.Delete(ctx, runID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Latest returns the most recent report, or ErrReportNotFound if there is none.
func (m *Manager) Latest(ctx context.Context) (*domain.ExecutionReport, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, domain.ErrReportNotFound
	}
	return m.store.Load(ctx, ids[0])
}

// Diff compares two stored reports.
func (m *Manager) Diff(ctx context.Context, fromID, toID string) (*domain.ReportDiff, error) {
	from, err := m.store.Load(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", fromID, err)
	}
	to, err := m.store.Load(ctx, toID)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", toID, err)
	}
	return domain.Diff(from, to), nil
}

// Store returns the underlying report store.
func (m *Manager) Store() ports.ReportStore {
	return m.store
}
