package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/formflow/pkg/domain"
)

// Cache implements ports.SessionCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[int64]*domain.SessionState
	mu   sync.RWMutex
}

// NewCache creates a new in-memory session cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[int64]*domain.SessionState),
	}
}

// Put stores a copy of state unless a newer version is already cached.
func (c *Cache) Put(ctx context.Context, state *domain.SessionState) (bool, error) {
	copied := clone(state)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.data[state.InstanceID]; ok && cur.Version > state.Version {
		return false, nil
	}
	c.data[state.InstanceID] = copied
	return true, nil
}

// Get returns a copy of the cached state so callers can't mutate the cache by pointer.
func (c *Cache) Get(ctx context.Context, instanceID int64) (*domain.SessionState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.data[instanceID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(state), nil
}

// Delete removes the cached state.
func (c *Cache) Delete(ctx context.Context, instanceID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, instanceID)
	return nil
}

// List returns the cached instance ids.
func (c *Cache) List(ctx context.Context) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.data))
	for id := range c.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func clone(s *domain.SessionState) *domain.SessionState {
	out := *s
	if s.CurrentStepID != nil {
		id := *s.CurrentStepID
		out.CurrentStepID = &id
	}
	if s.Navigation.CurrentStepCode != nil {
		code := *s.Navigation.CurrentStepCode
		out.Navigation.CurrentStepCode = &code
	}
	out.Navigation.Completed = slices.Clone(s.Navigation.Completed)
	out.Navigation.Available = slices.Clone(s.Navigation.Available)
	return &out
}
