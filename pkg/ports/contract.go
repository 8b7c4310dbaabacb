package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractReport(id string, started time.Time) *domain.ExecutionReport {
	r := domain.NewExecutionReport(id, "contract", []string{domain.TaskAssemble})
	r.Order = []string{domain.TaskResolveDependencies, domain.TaskAssemble}
	r.StartedAt = started
	r.FinishedAt = started.Add(time.Second)
	r.Results[domain.TaskResolveDependencies] = &domain.TaskResult{
		Name:     domain.TaskResolveDependencies,
		Status:   domain.StatusFailed,
		ExitCode: 65,
		Output:   "pubspec.yaml not found",
		Error:    "external command failed",
	}
	r.Results[domain.TaskAssemble] = &domain.TaskResult{Name: domain.TaskAssemble, Status: domain.StatusNotRun}
	return r
}

// RunReportStoreContract runs a suite of tests to verify that a ReportStore implementation
// adheres to the defined interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Save and Load", func(t *testing.T) {
		report := contractReport(runID, now)

		err := store.Save(ctx, report)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, report.ID, loaded.ID)
		assert.Equal(t, report.Order, loaded.Order)
		require.Contains(t, loaded.Results, domain.TaskResolveDependencies)
		res := loaded.Results[domain.TaskResolveDependencies]
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, 65, res.ExitCode)
		assert.Equal(t, 1, loaded.ExitCode())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, contractReport(runID, now))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrReportNotFound, "Load after Delete should return ErrReportNotFound")
	})

	t.Run("List Newest First", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, contractReport(id1, now.Add(-time.Minute))))
		require.NoError(t, store.Save(ctx, contractReport(id2, now)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		require.Contains(t, ids, id1)
		require.Contains(t, ids, id2)

		pos := func(id string) int {
			for i, v := range ids {
				if v == id {
					return i
				}
			}
			return -1
		}
		assert.Less(t, pos(id2), pos(id1), "newer report should be listed first")
	})
}
