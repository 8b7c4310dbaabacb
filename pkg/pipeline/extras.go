package pipeline

import (
	"path/filepath"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/dsl"
	"github.com/aretw0/pubflow/pkg/registry"
)

// DocsOptions configures API documentation generation.
type DocsOptions struct {
	// Executable defaults to "dartdoc".
	Executable string `mapstructure:"executable"`
	// OutputDir receives the generated site.
	OutputDir string `mapstructure:"output_dir"`
}

// RegisterDocs registers generateDocs and makes publish depend on it.
func RegisterDocs(reg *registry.Registry, layout Layout, opts DocsOptions) error {
	exe := opts.Executable
	if exe == "" {
		exe = "dartdoc"
	}
	lib := filepath.Join(layout.ProjectDir, "lib")

	return registerGroup(reg, []step{{domain.TaskGenerateDocs, func(t *dsl.TaskBuilder) {
		t.Group(domain.GroupPublish).
			Describe("Generates API documentation for the package.").
			Command(exe, "--output", opts.OutputDir, lib+string(filepath.Separator)).
			Dir(layout.ProjectDir).
			DependsOn(domain.TaskResolveDependencies)
	}}}, edge{domain.TaskPublish, domain.TaskGenerateDocs})
}

// IntegrationTestOptions configures the integration test task.
type IntegrationTestOptions struct {
	// Dir holds the integration tests, relative to the project. Defaults to "./integration-test".
	Dir string `mapstructure:"dir"`
	// Platform is passed to the test runner with -p. Defaults to "chrome".
	Platform string `mapstructure:"platform"`
	// Setup tasks must succeed before the tests run, e.g. starting a test server.
	Setup []string `mapstructure:"setup"`
	// Teardown runs after the tests, even when they fail.
	Teardown string `mapstructure:"teardown"`
}

// RegisterIntegrationTest registers integrationTest.
// Setup and teardown tasks must already be registered.
func RegisterIntegrationTest(reg *registry.Registry, env domain.Environment, layout Layout, opts IntegrationTestOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "./integration-test"
	}
	platform := opts.Platform
	if platform == "" {
		platform = "chrome"
	}

	return dsl.NewTasks(reg).Register(domain.TaskIntegrationTest, func(t *dsl.TaskBuilder) {
		t.Group(domain.GroupBuild).
			Describe("Runs integration tests against a live test application.").
			Command(env.PackageManagerExecutable, "run", "test", dir, "-p", platform).
			Dir(layout.ProjectDir).
			DependsOn(domain.TaskResolveDependencies).
			DependsOn(opts.Setup...)
		if opts.Teardown != "" {
			t.FinalizedBy(opts.Teardown)
		}
	})
}

// CodegenOptions configures Dart code generation from proto definitions.
type CodegenOptions struct {
	// Compiler defaults to "protoc".
	Compiler string   `mapstructure:"compiler"`
	ProtoDir string   `mapstructure:"proto_dir"`
	OutDir   string   `mapstructure:"out_dir"`
	Files    []string `mapstructure:"files"`
}

// RegisterCodegen registers generateCode and runs it before assemble and runTests.
func RegisterCodegen(reg *registry.Registry, layout Layout, opts CodegenOptions) error {
	compiler := opts.Compiler
	if compiler == "" {
		compiler = "protoc"
	}
	args := []string{"--dart_out=" + opts.OutDir, "-I" + opts.ProtoDir}
	inputs := make([]string, 0, len(opts.Files))
	for _, f := range opts.Files {
		args = append(args, f)
		inputs = append(inputs, filepath.Join(opts.ProtoDir, f))
	}

	return registerGroup(reg, []step{{domain.TaskGenerateCode, func(t *dsl.TaskBuilder) {
		t.Group(domain.GroupBuild).
			Describe("Generates Dart sources from Protobuf definitions.").
			Command(compiler, args...).
			Dir(layout.ProjectDir).
			Inputs(inputs...).
			Outputs(opts.OutDir)
	}}},
		edge{domain.TaskAssemble, domain.TaskGenerateCode},
		edge{domain.TaskRunTests, domain.TaskGenerateCode},
	)
}
