package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/pubflow/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart from a set of task definitions.
// It applies semantic styling:
// - Aggregate (lifecycle) task: ((Circle))
// - Command task: [[Subroutine]]
// - Action task: [Rectangle]
// - Disabled task: dashed border
//
// Edges point from a task to the tasks that must run before it:
// dependsOn is solid, mustRunAfter dotted, finalizedBy thick (owner to finalizer).
// When overlay is non-nil, each task is colored by its status in that report.
func GenerateMermaid(tasks []*domain.Task, overlay *domain.ExecutionReport) string {
	sorted := slices.Clone(tasks)
	slices.SortFunc(sorted, func(a, b *domain.Task) int { return strings.Compare(a.Name, b.Name) })

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var disabled []string
	for _, task := range sorted {
		safeID := sanitizeMermaidID(task.Name)

		opener, closer := "[", "]"
		switch {
		case len(task.Command) > 0:
			opener, closer = "[[", "]]"
		case task.IsAggregate():
			opener, closer = "((", "))"
		}

		label := task.Name
		if task.Group != "" {
			label = fmt.Sprintf("%s <br/> %s", task.Name, task.Group)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer))
		if !task.Enabled {
			disabled = append(disabled, safeID)
		}

		for _, dep := range task.DependsOn {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(dep)))
		}
		for _, after := range task.MustRunAfter {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, sanitizeMermaidID(after)))
		}
		for _, fin := range task.FinalizedBy {
			sb.WriteString(fmt.Sprintf("    %s ==> %s\n", safeID, sanitizeMermaidID(fin)))
		}
	}

	if len(disabled) > 0 {
		sb.WriteString("\n    classDef disabled stroke-dasharray: 5 5,color:#888;\n")
		for _, id := range disabled {
			sb.WriteString(fmt.Sprintf("    class %s disabled;\n", id))
		}
	}

	if overlay != nil {
		writeOverlay(&sb, sorted, overlay)
	}

	return sb.String()
}

// statusStyles maps a task status to its Mermaid class definition.
// Black text keeps labels readable on light fills in both themes.
var statusStyles = []struct {
	status domain.TaskStatus
	def    string
}{
	{domain.StatusSucceeded, "fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000"},
	{domain.StatusUpToDate, "fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000"},
	{domain.StatusFailed, "fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000"},
	{domain.StatusSkipped, "fill:#eeeeee,stroke:#9e9e9e,color:#000"},
	{domain.StatusNotRun, "fill:#fff9c4,stroke:#fbc02d,color:#000"},
}

func writeOverlay(sb *strings.Builder, tasks []*domain.Task, report *domain.ExecutionReport) {
	sb.WriteString("\n    %% Overlay Styles\n")
	for _, s := range statusStyles {
		sb.WriteString(fmt.Sprintf("    classDef %s %s;\n", className(s.status), s.def))
	}
	for _, task := range tasks {
		result, ok := report.Results[task.Name]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(task.Name), className(result.Status)))
	}
}

func className(status domain.TaskStatus) string {
	return "status_" + sanitizeMermaidID(string(status))
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
