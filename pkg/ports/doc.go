/*
Package ports defines the driven ports (interfaces) for the formflow engine.

These interfaces decouple the transition and navigation logic from storage,
caching and locking implementations.

# Key Interfaces

  - FormReader: read-only access to forms, steps, fields and guarded transitions.
  - FormWriter: authoring-time writes, used by the authoring service and seeding.
  - InstanceStore, Ledger, AnswerStore: runtime state of one instance.
  - Store: all of the above plus Atomic for all-or-nothing multi-step writes.
  - SessionCache: versioned cache of computed navigation per instance.
  - DistributedLocker: mutual exclusion across replicas.
*/
package ports
