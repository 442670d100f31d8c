/*
Package observability provides monitoring for the formflow engine.

Metrics exposes Prometheus collectors fed by the engine's lifecycle hooks and by the
HTTP adapter. LoggingHooks writes the same lifecycle events to a structured logger, and
Chain combines several hook sets into one.
*/
package observability
