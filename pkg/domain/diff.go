package domain

import "sort"

// StatusChange records how one task's status differs between two runs.
type StatusChange struct {
	Task string     `json:"task"`
	From TaskStatus `json:"from,omitempty"`
	To   TaskStatus `json:"to,omitempty"`
}

// ReportDiff represents the changes between two execution reports.
type ReportDiff struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`

	// Changed lists tasks scheduled by both runs whose status differs.
	Changed []StatusChange `json:"changed,omitempty"`
	// Added lists tasks only the newer run scheduled.
	Added []StatusChange `json:"added,omitempty"`
	// Removed lists tasks only the older run scheduled.
	Removed []StatusChange `json:"removed,omitempty"`
}

// Empty reports whether the two runs ended identically.
func (d *ReportDiff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Regressions returns the changed tasks that went from satisfied to unsatisfied.
func (d *ReportDiff) Regressions() []StatusChange {
	var out []StatusChange
	for _, c := range d.Changed {
		if c.From.Satisfied() && !c.To.Satisfied() {
			out = append(out, c)
		}
	}
	return out
}

// Diff calculates the difference between an older and a newer report.
// If older is nil, every task of newer is reported as added.
func Diff(older, newer *ExecutionReport) *ReportDiff {
	if newer == nil {
		return nil
	}
	d := &ReportDiff{ToID: newer.ID}
	var oldResults map[string]*TaskResult
	if older != nil {
		d.FromID = older.ID
		oldResults = older.Results
	}

	for _, name := range sortedKeys(newer.Results) {
		to := newer.Results[name].Status
		prev, ok := oldResults[name]
		switch {
		case !ok:
			d.Added = append(d.Added, StatusChange{Task: name, To: to})
		case prev.Status != to:
			d.Changed = append(d.Changed, StatusChange{Task: name, From: prev.Status, To: to})
		}
	}
	for _, name := range sortedKeys(oldResults) {
		if _, ok := newer.Results[name]; !ok {
			d.Removed = append(d.Removed, StatusChange{Task: name, From: oldResults[name].Status})
		}
	}
	return d
}

func sortedKeys(m map[string]*TaskResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
