package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"OsintGraph/internal/domain"
)

type namedProvider string

func (p namedProvider) Name() string { return string(p) }

func (p namedProvider) FetchCandidates(context.Context) ([]domain.Candidate, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(namedProvider("Google Alert"))

	provider, err := registry.Resolve("Google Alert")
	require.NoError(t, err)
	require.Equal(t, "Google Alert", provider.Name())

	_, err = registry.Resolve("RSS: Missing")
	require.Error(t, err)
}

func TestRegistrySelect(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(namedProvider("Google Alert"))
	registry.Register(namedProvider("RSS: Krebs on Security"))
	registry.Register(namedProvider("RSS: Dark Reading"))

	all, err := registry.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Google Alert", all[0].Name(), "registration order preserved")

	subset, err := registry.Select([]string{"RSS: Dark Reading"})
	require.NoError(t, err)
	require.Len(t, subset, 1)
	require.Equal(t, "RSS: Dark Reading", subset[0].Name())

	_, err = registry.Select([]string{"RSS: Unknown"})
	require.Error(t, err)
}
