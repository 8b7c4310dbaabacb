/*
Package ports defines the driven ports (interfaces) for the pubflow executor.

These interfaces decouple task scheduling from external implementations, allowing
the executor to work with various process launchers, report backends and lock services.

# Key Interfaces

  - CommandRunner: Launches the external process behind a command task.
  - ReportStore: Persists and loads ExecutionReports across runs.
  - DistributedLocker: Provides distributed locking so one project builds once at a time.
*/
package ports
