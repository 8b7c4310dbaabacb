package domain

import (
	"reflect"
	"testing"
)

func report(id string, statuses map[string]TaskStatus) *ExecutionReport {
	r := NewExecutionReport(id, "demo", nil)
	for name, st := range statuses {
		r.Results[name] = &TaskResult{Name: name, Status: st}
	}
	return r
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *ExecutionReport
		new      *ExecutionReport
		wantDiff *ReportDiff
	}{
		{
			name: "Initial Run (Old is Nil)",
			old:  nil,
			new:  report("r1", map[string]TaskStatus{"b": StatusSucceeded, "a": StatusFailed}),
			wantDiff: &ReportDiff{
				ToID: "r1",
				Added: []StatusChange{
					{Task: "a", To: StatusFailed},
					{Task: "b", To: StatusSucceeded},
				},
			},
		},
		{
			name:     "No Changes",
			old:      report("r1", map[string]TaskStatus{"a": StatusSucceeded}),
			new:      report("r2", map[string]TaskStatus{"a": StatusSucceeded}),
			wantDiff: &ReportDiff{FromID: "r1", ToID: "r2"},
		},
		{
			name: "Status Changed And Task Removed",
			old:  report("r1", map[string]TaskStatus{"a": StatusSucceeded, "gone": StatusSkipped}),
			new:  report("r2", map[string]TaskStatus{"a": StatusFailed}),
			wantDiff: &ReportDiff{
				FromID:  "r1",
				ToID:    "r2",
				Changed: []StatusChange{{Task: "a", From: StatusSucceeded, To: StatusFailed}},
				Removed: []StatusChange{{Task: "gone", From: StatusSkipped}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.wantDiff) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.wantDiff)
			}
		})
	}
}

func TestReportDiff_Regressions(t *testing.T) {
	d := Diff(
		report("r1", map[string]TaskStatus{"a": StatusSucceeded, "b": StatusFailed, "c": StatusUpToDate}),
		report("r2", map[string]TaskStatus{"a": StatusNotRun, "b": StatusSucceeded, "c": StatusSucceeded}),
	)

	regs := d.Regressions()
	if len(regs) != 1 || regs[0].Task != "a" {
		t.Fatalf("expected only 'a' to regress, got %+v", regs)
	}
	if d.Empty() {
		t.Error("expected a non-empty diff")
	}
}

func TestExecutionReport_ExitCode(t *testing.T) {
	ok := report("r", map[string]TaskStatus{"a": StatusSucceeded, "b": StatusSkipped, "c": StatusUpToDate})
	if ok.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", ok.ExitCode())
	}

	bad := report("r", map[string]TaskStatus{"a": StatusSucceeded, "b": StatusNotRun})
	if bad.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", bad.ExitCode())
	}
}
