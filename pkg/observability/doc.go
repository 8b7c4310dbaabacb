/*
Package observability provides tools for monitoring the pubflow executor.

Everything here plugs into the executor through domain.LifecycleHooks:
Prometheus metrics, structured task logging and a live tracker of the run
in progress. CombineHooks chains several hook sets into one.
*/
package observability
