package ports

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
)

// SessionCache stores the last computed SessionState per instance.
// Entries are versioned with the instance Version; the cache is never a source of truth.
type SessionCache interface {
	// Get returns the cached entry or domain.ErrSessionNotFound.
	Get(ctx context.Context, instanceID int64) (*domain.SessionState, error)

	// Put stores state unless an entry with a newer Version is already cached.
	// It reports whether the entry was written.
	Put(ctx context.Context, state *domain.SessionState) (bool, error)

	Delete(ctx context.Context, instanceID int64) error

	// List returns the ids of cached instances.
	List(ctx context.Context) ([]int64, error)
}
