package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/pubflow/internal/presentation/tui"
	"github.com/aretw0/pubflow/pkg/domain"
)

// ExitInterrupted is the exit code of a run cancelled by a signal.
const ExitInterrupted = 130

// Output controls how a finished run is presented.
type Output struct {
	W     io.Writer
	JSON  bool
	Color bool
}

// RunTasks executes names in the project scope and prints the report.
// A failed run is returned as an ExitError carrying the report exit code.
func RunTasks(ctx context.Context, p *Project, names []string, out Output) (*domain.ExecutionReport, error) {
	report, err := p.Scope.Run(ctx, names...)
	if report == nil {
		return nil, err
	}

	if perr := PrintReport(report, out); perr != nil {
		return report, perr
	}
	if err != nil {
		return report, &ExitError{Code: ExitInterrupted, Err: err}
	}
	if code := report.ExitCode(); code != 0 {
		return report, &ExitError{Code: code}
	}
	return report, nil
}

// PrintReport writes report as indented JSON or as a rendered Markdown summary.
func PrintReport(report *domain.ExecutionReport, out Output) error {
	if out.JSON {
		enc := json.NewEncoder(out.W)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	render, err := tui.NewRenderer(out.Color)
	if err != nil {
		return err
	}
	text, err := tui.RenderSummary(report, render)
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	_, err = fmt.Fprint(out.W, text)
	return err
}

// PrintInterrupted tells the user which signal stopped the run.
func PrintInterrupted(w io.Writer, sc *SignalContext) {
	if sig := sc.Signal(); sig != nil {
		printSystemMessage(w, "Run interrupted by %v.", sig)
	}
}
