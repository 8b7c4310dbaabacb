package tui_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/pubflow/internal/presentation/tui"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *domain.ExecutionReport {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := domain.NewExecutionReport("run-1", "demo", []string{"check"})
	r.Order = []string{"resolveDependencies", "runTests", "check"}
	r.StartedAt = start
	r.FinishedAt = start.Add(3 * time.Second)
	r.Results["resolveDependencies"] = &domain.TaskResult{
		Name: "resolveDependencies", Status: domain.StatusSucceeded,
		StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
	}
	r.Results["runTests"] = &domain.TaskResult{
		Name: "runTests", Status: domain.StatusFailed, ExitCode: 1,
		Error: "task runTests: command exited with code 1", Output: "00:01 +0 -1: Some tests failed.",
	}
	r.Results["check"] = &domain.TaskResult{Name: "check", Status: domain.StatusNotRun}
	return r
}

func TestSummaryMarkdown(t *testing.T) {
	md := tui.SummaryMarkdown(sampleReport())

	assert.Contains(t, md, "# Run failed")
	assert.Contains(t, md, "- **Project:** demo")
	assert.Contains(t, md, "| resolveDependencies | succeeded | 1.5s |")
	assert.Contains(t, md, "| runTests | failed | - |")
	assert.Contains(t, md, "## runTests failed")
	assert.Contains(t, md, "Some tests failed.")

	// Rows follow execution order.
	assert.Less(t, strings.Index(md, "| resolveDependencies"), strings.Index(md, "| runTests"))
	assert.Less(t, strings.Index(md, "| runTests"), strings.Index(md, "| check"))
}

func TestSummaryMarkdown_TailsLongOutput(t *testing.T) {
	r := sampleReport()
	var lines []string
	for i := range 100 {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	r.Results["runTests"].Output = strings.Join(lines, "\n")

	md := tui.SummaryMarkdown(r)
	assert.Contains(t, md, "line 99")
	assert.NotContains(t, md, "line 10\n")
}

func TestRenderSummary_Plain(t *testing.T) {
	render, err := tui.NewRenderer(false)
	require.NoError(t, err)

	out, err := tui.RenderSummary(sampleReport(), render)
	require.NoError(t, err)
	assert.Contains(t, out, "resolveDependencies")
	assert.Contains(t, out, "runTests")

	raw, err := tui.RenderSummary(sampleReport(), nil)
	require.NoError(t, err)
	assert.Equal(t, tui.SummaryMarkdown(sampleReport()), raw)
}

func TestStatusPrinter_Hooks(t *testing.T) {
	var buf bytes.Buffer
	p := tui.NewStatusPrinter(&buf, false)
	hooks := p.Hooks()

	ctx := t.Context()
	hooks.OnTaskStart(ctx, &domain.TaskEvent{Task: "runTests"})
	hooks.OnTaskFinish(ctx, &domain.TaskEvent{Task: "runTests", Status: domain.StatusFailed, Duration: 1200 * time.Millisecond})
	hooks.OnTaskFinish(ctx, &domain.TaskEvent{Task: "check", Status: domain.StatusNotRun})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "▶ runTests", lines[0])
	assert.Equal(t, "✘ runTests failed 1.2s", lines[1])
	assert.Equal(t, "· check not_run", lines[2])
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3", false)
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.NotContains(t, buf.String(), "\x1b[")
}
