// Package config loads the pubflow build file of a project.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/pubflow/pkg/adapters/process"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/environment"
	"github.com/aretw0/pubflow/pkg/pipeline"
	"github.com/aretw0/pubflow/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FileNames are the build file names looked up in a project directory, in order.
var FileNames = []string{"pubflow.yaml", "pubflow.yml", "pubflow.json"}

// DefaultBuildDir is the build directory relative to the project.
const DefaultBuildDir = "build"

// Config is the content of a pubflow build file.
type Config struct {
	Project  string `mapstructure:"project" yaml:"project,omitempty"`
	Root     string `mapstructure:"root" yaml:"root,omitempty"`
	BuildDir string `mapstructure:"build_dir" yaml:"build_dir,omitempty"`
	License  string `mapstructure:"license" yaml:"license,omitempty"`

	Parallelism int   `mapstructure:"parallelism" yaml:"parallelism,omitempty"`
	Incremental *bool `mapstructure:"incremental" yaml:"incremental,omitempty"`

	Environment map[string]any `mapstructure:"environment" yaml:"environment,omitempty"`
	Pipeline    Pipeline       `mapstructure:"pipeline" yaml:"pipeline,omitempty"`
	Disabled    []string       `mapstructure:"disabled" yaml:"disabled,omitempty"`
	Tasks       []TaskConfig   `mapstructure:"tasks" yaml:"tasks,omitempty"`

	Tools []process.ProcessConfig `mapstructure:"tools" yaml:"tools,omitempty"`
	Redis Redis                   `mapstructure:"redis" yaml:"redis,omitempty"`
	Serve Serve                   `mapstructure:"serve" yaml:"serve,omitempty"`

	// Redact lists regular expressions masked in stored task output.
	Redact []string `mapstructure:"redact" yaml:"redact,omitempty"`

	// Dir is the absolute project directory.
	Dir string `mapstructure:"-" yaml:"-"`
	// Path is the file the configuration was read from, empty for defaults.
	Path string `mapstructure:"-" yaml:"-"`
}

// Pipeline toggles the standard task groups.
type Pipeline struct {
	Build           *bool            `mapstructure:"build" yaml:"build,omitempty"`
	Publish         *bool            `mapstructure:"publish" yaml:"publish,omitempty"`
	Docs            *Docs            `mapstructure:"docs" yaml:"docs,omitempty"`
	IntegrationTest *IntegrationTest `mapstructure:"integration_test" yaml:"integration_test,omitempty"`
	Codegen         *Codegen         `mapstructure:"codegen" yaml:"codegen,omitempty"`
}

// Docs enables generateDocs when present.
type Docs struct {
	Enabled              *bool `mapstructure:"enabled"`
	pipeline.DocsOptions `mapstructure:",squash"`
}

// IntegrationTest enables integrationTest when present.
type IntegrationTest struct {
	Enabled                         *bool `mapstructure:"enabled"`
	pipeline.IntegrationTestOptions `mapstructure:",squash"`
}

// Codegen enables generateCode when present.
type Codegen struct {
	Enabled                 *bool `mapstructure:"enabled"`
	pipeline.CodegenOptions `mapstructure:",squash"`
}

// TaskConfig declares a project specific task.
type TaskConfig struct {
	Name         string           `mapstructure:"name"`
	Group        string           `mapstructure:"group"`
	Description  string           `mapstructure:"description"`
	Command      []string         `mapstructure:"command"`
	Dir          string           `mapstructure:"dir"`
	Stdin        string           `mapstructure:"stdin"`
	Inputs       []string         `mapstructure:"inputs"`
	Outputs      []string         `mapstructure:"outputs"`
	DependsOn    []string         `mapstructure:"depends_on"`
	MustRunAfter []string         `mapstructure:"must_run_after"`
	FinalizedBy  []string         `mapstructure:"finalized_by"`
	Enabled      *bool            `mapstructure:"enabled"`
	Delete       []string         `mapstructure:"delete"`
	Copy         *domain.CopySpec `mapstructure:"copy"`
	// AttachTo lists existing tasks that depend on this one, e.g. "check".
	AttachTo []string `mapstructure:"attach_to"`
}

// Redis configures the shared report store and build lock.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Serve configures the status server.
type Serve struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when a project has no build file.
func Default(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	c := &Config{Dir: abs}
	c.fill()
	return c, nil
}

// Load reads the first build file found in dir. A project without one gets
// the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return Default(dir)
}

// LoadFile reads a YAML or JSON build file. The project directory is the
// directory of the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build file: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	c, err := Default(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	if err := decode(raw, c); err != nil {
		return nil, fmt.Errorf("invalid build file %s: %w", path, err)
	}
	c.Path = path
	c.fill()
	return c, nil
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (c *Config) fill() {
	if c.Project == "" {
		c.Project = filepath.Base(c.Dir)
	}
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
}

func (c *Config) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// RootDir is the repository root, the project directory by default.
func (c *Config) RootDir() string {
	if c.Root == "" {
		return c.Dir
	}
	return c.abs(c.Root)
}

// BuildRoot is the absolute build directory.
func (c *Config) BuildRoot() string {
	return c.abs(c.BuildDir)
}

// Layout locates the project for the pipeline task groups.
func (c *Config) Layout() pipeline.Layout {
	return pipeline.Layout{
		ProjectDir: c.Dir,
		RootDir:    c.RootDir(),
		License:    c.abs(c.License),
	}
}

// Overrides decodes the environment section.
func (c *Config) Overrides() (environment.Overrides, error) {
	return environment.OverridesFromMap(c.Environment)
}

// PipelineOptions selects the task groups to register.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	if c.Pipeline.Build != nil {
		opts.Build = *c.Pipeline.Build
	}
	if c.Pipeline.Publish != nil {
		opts.Publish = *c.Pipeline.Publish
	}
	if d := c.Pipeline.Docs; d != nil && enabled(d.Enabled) {
		o := d.DocsOptions
		if o.OutputDir == "" {
			o.OutputDir = filepath.Join(c.BuildRoot(), "docs")
		}
		opts.Docs = &o
	}
	if it := c.Pipeline.IntegrationTest; it != nil && enabled(it.Enabled) {
		o := it.IntegrationTestOptions
		opts.IntegrationTest = &o
	}
	if cg := c.Pipeline.Codegen; cg != nil && enabled(cg.Enabled) {
		o := cg.CodegenOptions
		opts.Codegen = &o
	}
	opts.Disabled = c.Disabled
	return opts
}

// IncrementalEnabled reports whether up-to-date checks are on, the default.
func (c *Config) IncrementalEnabled() bool {
	return enabled(c.Incremental)
}

func enabled(b *bool) bool {
	return b == nil || *b
}

// ToolMap indexes the declared tools by name.
func (c *Config) ToolMap() map[string]process.ProcessConfig {
	return process.ToolMap(c.Tools)
}

// RegisterTasks registers the custom tasks and attaches them to their
// targets. Targets must already be registered.
func (c *Config) RegisterTasks(reg *registry.Registry) error {
	facade := dsl.NewTasks(reg)
	for _, tc := range c.Tasks {
		if err := facade.Register(tc.Name, c.builder(tc)); err != nil {
			return fmt.Errorf("task %q: %w", tc.Name, err)
		}
	}
	for _, tc := range c.Tasks {
		for _, target := range tc.AttachTo {
			if err := reg.DependsOn(target, tc.Name); err != nil {
				return fmt.Errorf("task %q: attach to %q: %w", tc.Name, target, err)
			}
		}
	}
	return nil
}

func (c *Config) builder(tc TaskConfig) func(*dsl.TaskBuilder) {
	return func(t *dsl.TaskBuilder) {
		t.Group(tc.Group).
			Describe(tc.Description).
			Stdin(tc.Stdin).
			Inputs(c.absAll(tc.Inputs)...).
			Outputs(c.absAll(tc.Outputs)...).
			DependsOn(tc.DependsOn...).
			MustRunAfter(tc.MustRunAfter...).
			FinalizedBy(tc.FinalizedBy...)
		if len(tc.Command) > 0 {
			t.Command(tc.Command[0], tc.Command[1:]...)
			dir := tc.Dir
			if dir == "" {
				dir = "."
			}
			t.Dir(c.abs(dir))
		}
		if len(tc.Delete) > 0 {
			t.Delete(c.absAll(tc.Delete)...)
		}
		if tc.Copy != nil {
			spec := *tc.Copy
			spec.From = c.abs(spec.From)
			spec.Into = c.abs(spec.Into)
			spec.Extra = c.absAll(spec.Extra)
			t.Copy(spec)
		}
		if tc.Enabled != nil && !*tc.Enabled {
			t.Disabled()
		}
	}
}

func (c *Config) absAll(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = c.abs(p)
	}
	return out
}
