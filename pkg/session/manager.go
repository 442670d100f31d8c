package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

// DefaultLockTTL bounds how long an abandoned distributed lock survives.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes mutations per key and fronts the versioned session cache.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	cache ports.SessionCache // nil disables caching

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given cache. A nil cache disables caching;
// locking still applies.
func NewManager(cache ports.SessionCache, opts ...Option) *Manager {
	m := &Manager{
		cache:   cache,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstanceKey is the lock key for mutations of one instance.
func InstanceKey(instanceID int64) string {
	return fmt.Sprintf("instance:%d", instanceID)
}

// StartKey is the lock key for starting an instance of a form for a user.
func StartKey(formID int64, userID string) string {
	return fmt.Sprintf("start:%d:%s", formID, userID)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes fn while holding the local and (if configured) distributed lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's ctx may already be cancelled; the release must still go out.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Lookup returns the cached state only when it was computed at the given instance version.
func (m *Manager) Lookup(ctx context.Context, instanceID, version int64) (*domain.SessionState, bool) {
	if m.cache == nil {
		return nil, false
	}
	state, err := m.cache.Get(ctx, instanceID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			m.logger.Warn("session cache read failed", "instance_id", instanceID, "err", err)
		}
		return nil, false
	}
	if state.Version != version {
		m.logger.Debug("session cache stale", "instance_id", instanceID,
			"cached_version", state.Version, "version", version)
		return nil, false
	}
	return state, true
}

// Publish writes a freshly computed state. Failures are logged, never returned.
func (m *Manager) Publish(ctx context.Context, state *domain.SessionState) {
	if m.cache == nil || state == nil {
		return
	}
	written, err := m.cache.Put(ctx, state)
	if err != nil {
		m.logger.Warn("session cache write failed", "instance_id", state.InstanceID, "err", err)
		return
	}
	if !written {
		m.logger.Debug("session cache kept newer entry", "instance_id", state.InstanceID, "version", state.Version)
	}
}
