/*
Package session coordinates concurrent access to form instances.

A Manager serializes mutations of one instance (or one form/user start) with a
reference-counted local mutex, optionally backed by a DistributedLocker so that
replicas sharing a database do not interleave submissions. It also fronts the
versioned SessionCache: reads hit only when the cached entry was computed at the
instance's current version, and cache failures are logged rather than returned.
*/
package session
