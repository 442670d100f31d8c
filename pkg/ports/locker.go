package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to one instance across replicas.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done.
	// The returned UnlockFunc MUST be called to release the lock; ttl bounds how long
	// an abandoned lock survives.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
