package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSubsystem(t *testing.T, k *Kernel, name string) *Subsystem {
	t.Helper()
	sub := NewSubsystem(name, nil)
	for _, h := range DefaultHooks(64, 8, Reject, k.Errors.RecordError) {
		sub.Use(h)
	}
	require.NoError(t, k.Builder.Build(sub))
	return sub
}

func TestNewKernelBootsWithChildrenRegistered(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	require.NotNil(t, k.kernelSub)
	childNames := map[string]bool{}
	for _, c := range k.kernelSub.Children() {
		childNames[c.Name] = true
	}
	assert.True(t, childNames["access-control"])
	assert.True(t, childNames["profile-registry"])
	assert.True(t, childNames["error-manager"])
	assert.True(t, childNames["response-manager"])
}

func TestKernelSendRoutesToRegisteredSubsystem(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	sub := buildTestSubsystem(t, k, "echo")
	routerFacet, ok := sub.Facets().Get(ContractRouter)
	require.True(t, ok)
	router := routerFacet.Value.(*Router)
	router.RegisterRoute("ping", func(msg *Message, opts SendOptions) (any, error) {
		return "pong", nil
	}, nil)

	_, err = k.RegisterSubsystem(sub, EntityTopLevel)
	require.NoError(t, err)

	msg := NewMessage("echo://ping", nil, nil)
	result := k.Send(&msg, SendOptions{ProcessImmediately: true})

	require.True(t, result.Success)
	assert.Equal(t, "pong", result.Value)
}

func TestKernelSendUnknownSchemeFails(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	msg := NewMessage("nosuchsvc://ping", nil, nil)
	result := k.Send(&msg, SendOptions{})
	assert.False(t, result.Success)
	assert.Equal(t, KindRouting, KindOf(result.Error))
}

func TestKernelRecordsAndQueriesErrorsThroughKernelRoutes(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	record := NewMessage("kernel://error/record/auth_failed", nil, nil)
	result := k.Send(&record, SendOptions{ProcessImmediately: true})
	require.True(t, result.Success)

	query := NewMessage("kernel://error/query/summary", nil, nil)
	result = k.Send(&query, SendOptions{ProcessImmediately: true})
	require.True(t, result.Success)

	summary, ok := result.Value.(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, summary["auth_failed"])
}

func TestKernelRegisterSubsystemGrantsParentChildSend(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	parent := buildTestSubsystem(t, k, "parent")
	child := buildTestSubsystem(t, k, "parent-child")
	parent.AddChild(child)

	parentIdentity, err := k.RegisterSubsystem(parent, EntityTopLevel)
	require.NoError(t, err)
	require.NotNil(t, child.Identity)

	assert.True(t, k.Access.hasRight(parentIdentity.PKR, child.Identity.PKR, RightSend))
}

func TestIdentitySendProtectedFailsWithoutGrant(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	fromSub := buildTestSubsystem(t, k, "from")
	toSub := buildTestSubsystem(t, k, "to")
	toRouterFacet, ok := toSub.Facets().Get(ContractRouter)
	require.True(t, ok)
	toRouterFacet.Value.(*Router).RegisterRoute("ping", func(msg *Message, opts SendOptions) (any, error) {
		return "pong", nil
	}, nil)

	fromIdentity, err := k.RegisterSubsystem(fromSub, EntityTopLevel)
	require.NoError(t, err)
	_, err = k.RegisterSubsystem(toSub, EntityTopLevel)
	require.NoError(t, err)

	msg := NewMessage("to://ping", nil, nil)
	result, err := fromIdentity.SendProtected("to", &msg, SendOptions{ProcessImmediately: true})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestIdentitySendProtectedDispatchesAfterGrant(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	fromSub := buildTestSubsystem(t, k, "from")
	toSub := buildTestSubsystem(t, k, "to")
	toRouterFacet, ok := toSub.Facets().Get(ContractRouter)
	require.True(t, ok)
	toRouterFacet.Value.(*Router).RegisterRoute("ping", func(msg *Message, opts SendOptions) (any, error) {
		return "pong", nil
	}, nil)

	fromIdentity, err := k.RegisterSubsystem(fromSub, EntityTopLevel)
	require.NoError(t, err)
	toIdentity, err := k.RegisterSubsystem(toSub, EntityTopLevel)
	require.NoError(t, err)

	k.Access.Grant(fromIdentity.PKR, toIdentity.PKR, RightSend)

	msg := NewMessage("to://ping", nil, nil)
	result, err := fromIdentity.SendProtected("to", &msg, SendOptions{ProcessImmediately: true})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pong", result.Value)
}

func TestKernelUnregisterSubsystemRevokesIdentity(t *testing.T) {
	k, err := NewKernel()
	require.NoError(t, err)
	defer k.Dispose()

	sub := buildTestSubsystem(t, k, "ephemeral")
	identity, err := k.RegisterSubsystem(sub, EntityTopLevel)
	require.NoError(t, err)

	k.UnregisterSubsystem(sub)

	msg := NewMessage("ephemeral://ping", nil, nil)
	result := k.Send(&msg, SendOptions{})
	assert.False(t, result.Success, "router no longer knows this subsystem")

	_, ok := k.Access.resolveLocked(identity.Path)
	assert.False(t, ok, "principal removed on unregister")
}
