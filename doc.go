/*
Package pubflow orchestrates the build and publication tasks of a Dart package.

A Workspace holds one Scope per project. A Scope owns the resolved build
Environment and a task registry. Tasks are declared through the fluent DSL,
wired to the host lifecycle tasks (clean, assemble, check, publish) and run by
an executor that honors hard (dependsOn) and soft (mustRunAfter) ordering.

# Usage

	ws := pubflow.NewWorkspace(pubflow.WithParallelism(2))
	scope, err := ws.WithScope(pubflow.ProjectDescriptor{Dir: "./sdk/dart"}, func(s *pubflow.Scope) error {
		// Overrides must come before the tasks that read them are registered.
		s.Environment(environment.Overrides{
			PublicationDirectory: environment.String("/tmp/publication"),
		})
		if err := s.Build(); err != nil {
			return err
		}
		return s.Publish()
	})
	if err != nil {
		log.Fatal(err)
	}

	report, err := scope.Run(ctx, "check")
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(report.ExitCode())

Configuration errors (duplicate or unknown tasks, cycles) are returned by the
call that caused them. Task failures never produce an error: they are
recorded in the ExecutionReport.
*/
package pubflow
