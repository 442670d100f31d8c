package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/formflow/pkg/adapters/sqlite"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/require"
)

// SetupStore creates a migrated SQLite store in a temporary directory.
// The store is closed when the test ends. It fails the test immediately on error.
func SetupStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "formflow.db")}, opts...)
	require.NoError(t, err, "Failed to open sqlite store")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()), "Failed to migrate sqlite store")
	return store
}

// ApplyBlueprint creates the blueprint through the authoring service and returns its
// first form.
func ApplyBlueprint(t *testing.T, store *sqlite.Store, bp *authoring.Blueprint) domain.Form {
	t.Helper()

	forms, err := authoring.NewService(store).Apply(context.Background(), bp)
	require.NoError(t, err, "Failed to apply blueprint")
	require.NotEmpty(t, forms, "Blueprint created no forms")
	return forms[0]
}
