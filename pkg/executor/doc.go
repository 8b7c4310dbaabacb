/*
Package executor plans and runs a requested subset of the task graph.

Planning computes the transitive closure of the requested tasks over
dependsOn and finalizedBy edges, then orders the scheduled tasks with Kahn's
algorithm over hard, soft and finalizer edges. Ties are broken by task name,
so the same graph always yields the same order. A cycle is reported with one
witness path before any task starts.

Execution starts a task once every scheduled predecessor is terminal. A task
whose hard dependency did not succeed is NotRun. Independent branches keep
running after a failure. At most WithParallelism tasks run at once.
*/
package executor
