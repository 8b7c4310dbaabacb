package domain

import "runtime"

// HostOS identifies the operating system family of the build host.
type HostOS string

const (
	HostLinux   HostOS = "linux"
	HostDarwin  HostOS = "darwin"
	HostWindows HostOS = "windows"
)

// CurrentHost returns the OS family of the running process.
func CurrentHost() HostOS {
	return HostOS(runtime.GOOS)
}

// IsWindows reports whether executables need the Windows batch suffix.
func (h HostOS) IsWindows() bool {
	return h == HostWindows
}

// Environment describes the package-manager tooling of one project and the
// files it reads and writes.
//
// It is resolved once per scope and treated as read-only afterwards.
type Environment struct {
	// PackageManagerExecutable is the command used to invoke the package manager.
	PackageManagerExecutable string `json:"package_manager" yaml:"package_manager" mapstructure:"package_manager"`

	// Manifest is the path to the manifest declaring dependencies (pubspec.yaml).
	Manifest string `json:"manifest" yaml:"manifest" mapstructure:"manifest"`

	// PackageIndex is the deprecated resolved-dependency index (.packages).
	PackageIndex string `json:"package_index" yaml:"package_index" mapstructure:"package_index"`

	// PackageConfig is the resolved-dependency index (.dart_tool/package_config.json).
	PackageConfig string `json:"package_config" yaml:"package_config" mapstructure:"package_config"`

	// PublicationDirectory holds exactly the files to be shipped to the registry.
	PublicationDirectory string `json:"publication_directory" yaml:"publication_directory" mapstructure:"publication_directory"`
}

// LockFiles returns both lockfile paths. The package manager still updates the
// deprecated index, so cleaning must delete both.
func (e Environment) LockFiles() []string {
	return []string{e.PackageIndex, e.PackageConfig}
}
