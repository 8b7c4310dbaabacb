package ports

import (
	"context"

	"github.com/aretw0/pubflow/pkg/domain"
)

// ReportStore defines the interface for persisting execution reports.
// Reports back the 'report' CLI commands, the HTTP status server and report diffs.
type ReportStore interface {
	// Save persists the report under its ID.
	Save(ctx context.Context, report *domain.ExecutionReport) error

	// Load retrieves the report for a given run ID.
	// Returns domain.ErrReportNotFound if the report does not exist.
	Load(ctx context.Context, runID string) (*domain.ExecutionReport, error)

	// Delete removes the report for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored reports, newest first.
	List(ctx context.Context) ([]string, error)
}
