package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/muesli/termenv"
)

// StatusPrinter writes one colored line per task transition.
type StatusPrinter struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

// NewStatusPrinter creates a printer. With color false the output is plain ASCII.
func NewStatusPrinter(w io.Writer, color bool) *StatusPrinter {
	return &StatusPrinter{w: w, out: newOutput(w, color)}
}

var statusGlyphs = map[domain.TaskStatus]struct{ glyph, hex string }{
	domain.StatusSucceeded: {"✔", "#22c55e"},
	domain.StatusUpToDate:  {"=", "#38bdf8"},
	domain.StatusSkipped:   {"-", "#a1a1aa"},
	domain.StatusNotRun:    {"·", "#eab308"},
	domain.StatusFailed:    {"✘", "#ef4444"},
}

// TaskStarted prints the start line of a task.
func (p *StatusPrinter) TaskStarted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", p.out.String("▶").Foreground(p.out.Color("#818cf8")), name)
}

// TaskFinished prints the outcome line of a task.
func (p *StatusPrinter) TaskFinished(name string, status domain.TaskStatus, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := statusGlyphs[status]
	if !ok {
		g = statusGlyphs[domain.StatusNotRun]
	}
	mark := p.out.String(g.glyph).Foreground(p.out.Color(g.hex))
	label := p.out.String(string(status)).Foreground(p.out.Color(g.hex))
	if status == domain.StatusFailed {
		label = label.Bold()
	}
	if d > 0 {
		fmt.Fprintf(p.w, "%s %s %s %s\n", mark, name, label, p.out.String(d.Round(time.Millisecond).String()).Faint())
		return
	}
	fmt.Fprintf(p.w, "%s %s %s\n", mark, name, label)
}

// Hooks adapts the printer to executor lifecycle hooks.
// Tasks that never start (skipped, not run, up to date) only get a finish line.
func (p *StatusPrinter) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskStart: func(_ context.Context, e *domain.TaskEvent) {
			p.TaskStarted(e.Task)
		},
		OnTaskFinish: func(_ context.Context, e *domain.TaskEvent) {
			p.TaskFinished(e.Task, e.Status, e.Duration)
		},
	}
}
