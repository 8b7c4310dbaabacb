package domain

import "slices"

// ActionKind selects an in-process action executed instead of an external command.
type ActionKind string

const (
	ActionNone   ActionKind = ""
	ActionDelete ActionKind = "delete"
	ActionCopy   ActionKind = "copy"
)

// CopySpec describes a glob-filtered copy into a destination directory.
type CopySpec struct {
	From    string   `json:"from" yaml:"from" mapstructure:"from"`
	Include []string `json:"include,omitempty" yaml:"include,omitempty" mapstructure:"include"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" mapstructure:"exclude"`
	// Extra files copied into the destination root regardless of the globs.
	Extra []string `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
	Into  string   `json:"into" yaml:"into" mapstructure:"into"`
}

// Action is an in-process file operation owned by a task.
type Action struct {
	Kind  ActionKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Paths []string   `json:"paths,omitempty" yaml:"paths,omitempty" mapstructure:"paths"`
	Copy  *CopySpec  `json:"copy,omitempty" yaml:"copy,omitempty" mapstructure:"copy"`
}

// Task is a named unit of work in the build graph.
//
// A task runs either an external Command or an in-process Action. A task with
// neither is an aggregate: it succeeds as soon as its dependencies do.
type Task struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Group       string `json:"group,omitempty" yaml:"group,omitempty" mapstructure:"group"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	Command    []string `json:"command,omitempty" yaml:"command,omitempty" mapstructure:"command"`
	WorkingDir string   `json:"working_dir,omitempty" yaml:"working_dir,omitempty" mapstructure:"working_dir"`
	// Stdin is fed to the command, e.g. to confirm interactive prompts.
	Stdin  string  `json:"stdin,omitempty" yaml:"stdin,omitempty" mapstructure:"stdin"`
	Action *Action `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`

	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty" mapstructure:"outputs"`

	DependsOn    []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty" mapstructure:"depends_on"`
	MustRunAfter []string `json:"must_run_after,omitempty" yaml:"must_run_after,omitempty" mapstructure:"must_run_after"`
	FinalizedBy  []string `json:"finalized_by,omitempty" yaml:"finalized_by,omitempty" mapstructure:"finalized_by"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// NewTask returns an enabled task with the given name.
func NewTask(name string) *Task {
	return &Task{Name: name, Enabled: true}
}

// IsAggregate reports whether the task only groups its dependencies.
func (t *Task) IsAggregate() bool {
	return len(t.Command) == 0 && (t.Action == nil || t.Action.Kind == ActionNone)
}

// Clone returns a deep copy so that callers can never alias registry state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Command = slices.Clone(t.Command)
	c.Inputs = slices.Clone(t.Inputs)
	c.Outputs = slices.Clone(t.Outputs)
	c.DependsOn = slices.Clone(t.DependsOn)
	c.MustRunAfter = slices.Clone(t.MustRunAfter)
	c.FinalizedBy = slices.Clone(t.FinalizedBy)
	if t.Action != nil {
		a := *t.Action
		a.Paths = slices.Clone(t.Action.Paths)
		if t.Action.Copy != nil {
			cp := *t.Action.Copy
			cp.Include = slices.Clone(t.Action.Copy.Include)
			cp.Exclude = slices.Clone(t.Action.Copy.Exclude)
			cp.Extra = slices.Clone(t.Action.Copy.Extra)
			a.Copy = &cp
		}
		c.Action = &a
	}
	return &c
}

// Command is a request to run an external process on behalf of a task.
type Command struct {
	Task string   `json:"task"`
	Args []string `json:"args"`
	Dir  string   `json:"dir,omitempty"`
	// Stdin is written to the process standard input.
	Stdin string `json:"stdin,omitempty"`
}

// CommandResult is the outcome of an external process.
// A non-zero ExitCode is a result, not an error.
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output,omitempty"`
}
