package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Locking(t *testing.T) {
	manager := session.NewManager(nil)
	ctx := context.Background()
	key := session.InstanceKey(1)

	// An unguarded read-modify-write with a sleep in between loses updates.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = manager.WithLock(ctx, key, func(context.Context) error {
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "instance:42", session.InstanceKey(42))
	assert.Equal(t, "start:3:alice", session.StartKey(3, "alice"))
}

func TestManager_Cache(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	manager := session.NewManager(cache)

	manager.Publish(ctx, &domain.SessionState{InstanceID: 1, Version: 2, FormCode: "survey"})

	t.Run("Current Version Hits", func(t *testing.T) {
		state, ok := manager.Lookup(ctx, 1, 2)
		require.True(t, ok)
		assert.Equal(t, "survey", state.FormCode)
	})

	t.Run("Other Version Misses", func(t *testing.T) {
		_, ok := manager.Lookup(ctx, 1, 3)
		assert.False(t, ok)
		_, ok = manager.Lookup(ctx, 1, 1)
		assert.False(t, ok)
	})

	t.Run("Older Publish Ignored", func(t *testing.T) {
		manager.Publish(ctx, &domain.SessionState{InstanceID: 1, Version: 1, FormCode: "stale"})
		state, ok := manager.Lookup(ctx, 1, 2)
		require.True(t, ok)
		assert.Equal(t, "survey", state.FormCode)
	})
}

func TestManager_NoCache(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(nil)

	manager.Publish(ctx, &domain.SessionState{InstanceID: 1, Version: 1})
	_, ok := manager.Lookup(ctx, 1, 1)
	assert.False(t, ok)
}

type failingCache struct{ ports.SessionCache }

func (failingCache) Get(context.Context, int64) (*domain.SessionState, error) {
	return nil, errors.New("connection refused")
}

func (failingCache) Put(context.Context, *domain.SessionState) (bool, error) {
	return false, errors.New("connection refused")
}

func TestManager_CacheFailuresAreSoft(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(failingCache{})

	assert.NotPanics(t, func() {
		manager.Publish(ctx, &domain.SessionState{InstanceID: 1, Version: 1})
	})
	_, ok := manager.Lookup(ctx, 1, 1)
	assert.False(t, ok)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked = append(l.unlocked, key)
		return ctx.Err()
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(nil, session.WithLocker(locker), session.WithLockTTL(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	err := manager.WithLock(ctx, session.InstanceKey(9), func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)

	// The release goes out even though the caller's context was cancelled.
	assert.Equal(t, []string{"instance:9"}, locker.locked)
	assert.Equal(t, []string{"instance:9"}, locker.unlocked)
}
