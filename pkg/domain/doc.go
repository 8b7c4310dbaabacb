/*
Package domain contains the core models of the pubflow build orchestrator.

It defines the fundamental entities of the task graph, such as Tasks, the
resolved Environment and the Execution Report. This package is kept pure and
free of I/O or persistence concerns so that registries, executors and adapters
can share it without import cycles.

# Key Entities

  - Environment: platform-dependent paths and executables for one project.
  - Task: a named unit of work (external command, in-process action, or aggregate).
  - ExecutionReport: the terminal status of every task scheduled by a run.
  - LifecycleHooks: callbacks fired by the executor for observability.
*/
package domain
