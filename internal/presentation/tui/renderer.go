package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// With color false the "notty" style is used so output stays plain text.
func NewRenderer(color bool) (func(string) (string, error), error) {
	style := glamour.WithAutoStyle()
	if !color {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// SummaryMarkdown describes a run report as a Markdown document.
func SummaryMarkdown(report *domain.ExecutionReport) string {
	var sb strings.Builder

	outcome := "succeeded"
	if !report.Succeeded() {
		outcome = "failed"
	}
	fmt.Fprintf(&sb, "# Run %s\n\n", outcome)
	if report.Project != "" {
		fmt.Fprintf(&sb, "- **Project:** %s\n", report.Project)
	}
	fmt.Fprintf(&sb, "- **Run:** `%s`\n", report.ID)
	fmt.Fprintf(&sb, "- **Requested:** %s\n", strings.Join(report.Requested, ", "))
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	sb.WriteString("\n| Task | Status | Duration |\n|---|---|---|\n")
	for _, name := range report.Names() {
		res := report.Results[name]
		d := "-"
		if res.Duration() > 0 {
			d = res.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, res.Status, d)
	}

	var failures []*domain.TaskResult
	for _, name := range report.Names() {
		if res := report.Results[name]; res.Status == domain.StatusFailed {
			failures = append(failures, res)
		}
	}
	for _, res := range failures {
		fmt.Fprintf(&sb, "\n## %s failed\n\n", res.Name)
		if res.Error != "" {
			fmt.Fprintf(&sb, "%s\n", res.Error)
		}
		if out := strings.TrimSpace(res.Output); out != "" {
			fmt.Fprintf(&sb, "\n```\n%s\n```\n", tail(out, 40))
		}
	}

	return sb.String()
}

// RenderSummary renders the report summary through render.
func RenderSummary(report *domain.ExecutionReport, render func(string) (string, error)) (string, error) {
	md := SummaryMarkdown(report)
	if render == nil {
		return md, nil
	}
	return render(md)
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
