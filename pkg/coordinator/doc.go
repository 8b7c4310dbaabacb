/*
Package coordinator ensures a single logical build per project and gives
access to stored run reports.

Runs for the same project are serialized with reference-counted in-process
mutexes. When a ports.DistributedLocker is configured, the lock is also held
across processes, so two CLI invocations or two status servers sharing a
Redis instance never build the same project at once.
*/
package coordinator
