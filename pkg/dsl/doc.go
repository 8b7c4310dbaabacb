/*
Package dsl provides a fluent Go DSL for declaring pubflow tasks.

It replaces closure-based build-script configuration with a type-safe builder.
Definitions are validated when committed, so a half-configured task never
reaches the registry.

Example usage:

	tasks := dsl.NewTasks(registry.New())

	err := tasks.Register("lintDart", func(t *dsl.TaskBuilder) {
		t.Group(domain.GroupBuild).
			Describe("Runs the Dart analyzer.").
			Command("dart", "analyze").
			DependsOn(domain.TaskResolveDependencies)
	})

	// Disable a task declared elsewhere.
	err = tasks.Configure(domain.TaskRunTests, func(t *dsl.TaskBuilder) {
		t.Disabled()
	})
*/
package dsl
