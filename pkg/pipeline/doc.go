/*
Package pipeline registers the Dart/Pub package tasks and wires them into the
host lifecycle tasks.

Groups are registered in a fixed order: lifecycle first, then build, then
publish. Optional groups (docs, integration tests, code generation) attach to
the tasks created by the mandatory ones, so they must come after them.

	clean     -> cleanPackageIndex
	assemble  -> resolveDependencies (mustRunAfter cleanPackageIndex)
	check     -> runTests -> resolveDependencies
	publish   -> publishToRegistry -> stagePublication -> assemble
*/
package pipeline
