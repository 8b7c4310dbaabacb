package environment

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Defaults(t *testing.T) {
	root := filepath.Join("work", "lib")
	build := filepath.Join("work", "lib", "build")

	env := Resolve(domain.HostLinux, root, build, "billing_client")

	assert.Equal(t, "pub", env.PackageManagerExecutable)
	assert.Equal(t, filepath.Join(root, "pubspec.yaml"), env.Manifest)
	assert.Equal(t, filepath.Join(root, ".packages"), env.PackageIndex)
	assert.Equal(t, filepath.Join(root, ".dart_tool", "package_config.json"), env.PackageConfig)
	assert.Equal(t, filepath.Join(build, "pub", "publication", "billing_client"), env.PublicationDirectory)
	assert.Equal(t, []string{env.PackageIndex, env.PackageConfig}, env.LockFiles())
}

func TestResolve_WindowsSuffix(t *testing.T) {
	env := Resolve(domain.HostWindows, "p", "b", "x")
	assert.Equal(t, "pub.bat", env.PackageManagerExecutable)

	env = Resolve(domain.HostDarwin, "p", "b", "x")
	assert.Equal(t, "pub", env.PackageManagerExecutable)
}

func TestApply_LastWriteWinsPerField(t *testing.T) {
	base := Resolve(domain.HostLinux, "p", "b", "x")

	got := Apply(base,
		Overrides{PublicationDirectory: String("/out/one"), Manifest: String("alt.yaml")},
		Overrides{PublicationDirectory: String("/out/two")},
	)

	assert.Equal(t, "/out/two", got.PublicationDirectory)
	assert.Equal(t, "alt.yaml", got.Manifest)
	assert.Equal(t, base.PackageIndex, got.PackageIndex, "unset fields keep their default")
	assert.Equal(t, filepath.Join("b", "pub", "publication", "x"), base.PublicationDirectory, "input must not be mutated")
}

func TestApply_NoOverrides(t *testing.T) {
	base := Resolve(domain.HostLinux, "p", "b", "x")
	assert.Equal(t, base, Apply(base))
	assert.Equal(t, base, Apply(base, Overrides{}))
	assert.True(t, Overrides{}.IsZero())
}

func TestOverridesFromMap(t *testing.T) {
	o, err := OverridesFromMap(map[string]any{
		"publication_directory": "/tmp/stage",
		"package_manager":       "dart pub",
	})
	require.NoError(t, err)
	require.NotNil(t, o.PublicationDirectory)
	assert.Equal(t, "/tmp/stage", *o.PublicationDirectory)
	assert.Equal(t, "dart pub", *o.PackageManagerExecutable)
	assert.Nil(t, o.Manifest)

	_, err = OverridesFromMap(map[string]any{"publication_dir": "/tmp"})
	assert.Error(t, err, "unknown keys are rejected")

	empty, err := OverridesFromMap(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
