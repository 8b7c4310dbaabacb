// Package environment computes the platform-dependent paths a Pub package
// pipeline reads and writes, and applies user overrides on top of them.
package environment

import (
	"fmt"
	"path/filepath"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const (
	packageManager = "pub"
	windowsSuffix  = ".bat"
)

// Resolve derives the default environment for a project. It performs no I/O.
func Resolve(host domain.HostOS, projectRoot, buildRoot, projectName string) domain.Environment {
	exe := packageManager
	if host.IsWindows() {
		exe += windowsSuffix
	}
	return domain.Environment{
		PackageManagerExecutable: exe,
		Manifest:                 filepath.Join(projectRoot, "pubspec.yaml"),
		PackageIndex:             filepath.Join(projectRoot, ".packages"),
		PackageConfig:            filepath.Join(projectRoot, ".dart_tool", "package_config.json"),
		PublicationDirectory:     filepath.Join(buildRoot, "pub", "publication", projectName),
	}
}

// Overrides is a partial Environment. Nil fields keep the current value.
type Overrides struct {
	PackageManagerExecutable *string `mapstructure:"package_manager" yaml:"package_manager,omitempty" json:"package_manager,omitempty"`
	Manifest                 *string `mapstructure:"manifest" yaml:"manifest,omitempty" json:"manifest,omitempty"`
	PackageIndex             *string `mapstructure:"package_index" yaml:"package_index,omitempty" json:"package_index,omitempty"`
	PackageConfig            *string `mapstructure:"package_config" yaml:"package_config,omitempty" json:"package_config,omitempty"`
	PublicationDirectory     *string `mapstructure:"publication_directory" yaml:"publication_directory,omitempty" json:"publication_directory,omitempty"`
}

// IsZero reports whether the overrides change nothing.
func (o Overrides) IsZero() bool {
	return o.PackageManagerExecutable == nil &&
		o.Manifest == nil &&
		o.PackageIndex == nil &&
		o.PackageConfig == nil &&
		o.PublicationDirectory == nil
}

// Apply returns env with each set override field replaced, in argument order.
func Apply(env domain.Environment, overrides ...Overrides) domain.Environment {
	for _, o := range overrides {
		set(&env.PackageManagerExecutable, o.PackageManagerExecutable)
		set(&env.Manifest, o.Manifest)
		set(&env.PackageIndex, o.PackageIndex)
		set(&env.PackageConfig, o.PackageConfig)
		set(&env.PublicationDirectory, o.PublicationDirectory)
	}
	return env
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// OverridesFromMap decodes a loosely typed map, as read from pubflow.yaml or flags.
// Unknown keys are rejected.
func OverridesFromMap(m map[string]any) (Overrides, error) {
	var o Overrides
	if len(m) == 0 {
		return o, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &o,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(m); err != nil {
		return o, fmt.Errorf("invalid environment overrides: %w", err)
	}
	return o, nil
}

// String returns a pointer to s, for building Overrides literals.
func String(s string) *string { return &s }
