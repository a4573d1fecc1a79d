package kernel

import (
	"context"
	"testing"

	"github.com/mycelia/kernel/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookStorageBuildsThroughRealBuilder(t *testing.T) {
	contracts := NewContractRegistry()
	require.NoError(t, registerBuiltinContracts(contracts))
	require.NoError(t, registerStorageContract(contracts))
	builder := NewBuilder(contracts)

	sub := NewSubsystem("svc", map[string]any{"storage": map[string]any{"backend": "memory"}})
	for _, h := range DefaultHooks(16, 8, Reject, nil) {
		sub.Use(h)
	}
	sub.Use(HookStorage())

	require.NoError(t, builder.Build(sub))

	facet, ok := sub.Facets().Get(ContractStorage)
	require.True(t, ok)

	backend, ok := facet.Value.(storage.Backend)
	require.True(t, ok, "facet.Value must satisfy storage.Backend immediately, even before the connection opens")

	require.NoError(t, backend.Put(context.Background(), "k", []byte("v")))
	value, found, err := backend.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, sub.Dispose())
}

func TestHookStorageBadBackendFailsBuildWithoutPanicking(t *testing.T) {
	contracts := NewContractRegistry()
	require.NoError(t, registerBuiltinContracts(contracts))
	require.NoError(t, registerStorageContract(contracts))
	builder := NewBuilder(contracts)

	sub := NewSubsystem("svc", map[string]any{"storage": map[string]any{"backend": "nope"}})
	for _, h := range DefaultHooks(16, 8, Reject, nil) {
		sub.Use(h)
	}
	sub.Use(HookStorage())

	err := builder.Build(sub)
	require.Error(t, err)
	assert.Equal(t, KindDependency, KindOf(err))
}
