package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionCacheContract runs a suite of tests to verify that a SessionCache implementation
// adheres to the defined interface contract.
func RunSessionCacheContract(t *testing.T, cache SessionCache) {
	ctx := context.Background()
	base := time.Now().UnixNano() % 1_000_000

	state := func(id, version int64, current string) *domain.SessionState {
		step := int64(10)
		return &domain.SessionState{
			InstanceID:    id,
			Version:       version,
			FormID:        1,
			FormCode:      "dev_survey",
			CurrentStepID: &step,
			Navigation: domain.Navigation{
				Completed:       []string{"intro"},
				Available:       []string{"intro", current},
				CurrentStepCode: &current,
			},
		}
	}

	t.Run("Put and Get", func(t *testing.T) {
		id := base + 1
		written, err := cache.Put(ctx, state(id, 1, "dev"))
		require.NoError(t, err, "Put should not return error")
		assert.True(t, written)

		got, err := cache.Get(ctx, id)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "dev_survey", got.FormCode)
		require.NotNil(t, got.Navigation.CurrentStepCode)
		assert.Equal(t, "dev", *got.Navigation.CurrentStepCode)
		assert.Equal(t, []string{"intro", "dev"}, got.Navigation.Available)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := cache.Get(ctx, base+2)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Newer Version Wins", func(t *testing.T) {
		id := base + 3
		_, err := cache.Put(ctx, state(id, 5, "review"))
		require.NoError(t, err)

		written, err := cache.Put(ctx, state(id, 4, "stale"))
		require.NoError(t, err)
		assert.False(t, written, "older version must not replace a newer entry")

		got, err := cache.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Version)
		assert.Equal(t, "review", *got.Navigation.CurrentStepCode)

		written, err = cache.Put(ctx, state(id, 6, "done"))
		require.NoError(t, err)
		assert.True(t, written)
	})

	t.Run("Same Version Overwrites", func(t *testing.T) {
		id := base + 4
		_, err := cache.Put(ctx, state(id, 2, "a"))
		require.NoError(t, err)
		written, err := cache.Put(ctx, state(id, 2, "b"))
		require.NoError(t, err)
		assert.True(t, written)
	})

	t.Run("Delete", func(t *testing.T) {
		id := base + 5
		_, err := cache.Put(ctx, state(id, 1, "dev"))
		require.NoError(t, err)

		require.NoError(t, cache.Delete(ctx, id), "Delete should not return error")

		_, err = cache.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")

		written, err := cache.Put(ctx, state(id, 1, "dev"))
		require.NoError(t, err)
		assert.True(t, written, "a deleted entry must not block later writes")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := base+6, base+7
		_, _ = cache.Put(ctx, state(id1, 1, "dev"))
		_, _ = cache.Put(ctx, state(id2, 1, "dev"))
		defer func() {
			_ = cache.Delete(ctx, id1)
			_ = cache.Delete(ctx, id2)
		}()

		ids, err := cache.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
