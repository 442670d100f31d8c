package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Contract(t *testing.T) {
	cache := memory.NewCache()
	ports.RunSessionCacheContract(t, cache)
}

func TestMemoryCache_Isolation(t *testing.T) {
	cache := memory.NewCache()
	ctx := context.Background()

	state := &domain.SessionState{
		InstanceID: 1,
		Version:    1,
		Navigation: domain.Navigation{Completed: []string{"a"}},
	}
	_, err := cache.Put(ctx, state)
	require.NoError(t, err)

	state.Navigation.Completed[0] = "mutated"

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Navigation.Completed)

	got.Navigation.Completed[0] = "mutated"
	again, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Navigation.Completed)
}
