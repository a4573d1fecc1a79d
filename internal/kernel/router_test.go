package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterMatchPrefersMoreLiteralSegments(t *testing.T) {
	r := NewRouter()
	r.RegisterRoute("users/{id}", func(msg *Message, opts SendOptions) (any, error) {
		return "generic", nil
	}, nil)
	r.RegisterRoute("users/active", func(msg *Message, opts SendOptions) (any, error) {
		return "literal", nil
	}, nil)

	entry, params, ok := r.Match("svc://users/active")
	require.True(t, ok)
	assert.Equal(t, "users/active", entry.Pattern)
	assert.Empty(t, params)
}

func TestRouterMatchCapturesParams(t *testing.T) {
	r := NewRouter()
	r.RegisterRoute("users/{id}", nil, nil)

	entry, params, ok := r.Match("svc://users/42")
	require.True(t, ok)
	assert.Equal(t, "users/{id}", entry.Pattern)
	assert.Equal(t, "42", params["id"])
}

func TestRouterMatchNoRouteReturnsFalse(t *testing.T) {
	r := NewRouter()
	r.RegisterRoute("users/{id}", nil, nil)

	_, _, ok := r.Match("svc://orders/42")
	assert.False(t, ok)
}

func TestRouterRouteMergesParamsIntoOptions(t *testing.T) {
	r := NewRouter()
	var seen SendOptions
	r.RegisterRoute("hello/{name}", func(msg *Message, opts SendOptions) (any, error) {
		seen = opts
		return "ok", nil
	}, nil)

	msg := NewMessage("svc://hello/world", nil, nil)
	msg.Meta.SetMutableField("unused", true)
	_, err := r.Route(&msg, SendOptions{Params: map[string]string{"carried": "yes"}})

	require.NoError(t, err)
	assert.Equal(t, "world", seen.Params["name"])
	assert.Equal(t, "yes", seen.Params["carried"])
}

func TestRouterRouteNoMatchReturnsNilNil(t *testing.T) {
	r := NewRouter()
	msg := NewMessage("svc://missing", nil, nil)
	value, err := r.Route(&msg, SendOptions{})

	assert.Nil(t, value)
	assert.NoError(t, err)
}

func TestRouterUnregisterRoute(t *testing.T) {
	r := NewRouter()
	r.RegisterRoute("ping", nil, nil)
	require.True(t, r.HasRoute("ping"))

	removed := r.UnregisterRoute("ping")
	assert.True(t, removed)
	assert.False(t, r.HasRoute("ping"))
	assert.False(t, r.UnregisterRoute("ping"))
}

func TestPathAfterSchemeStripsScheme(t *testing.T) {
	assert.Equal(t, "users/42", pathAfterScheme("svc://users/42"))
	assert.Equal(t, "users/42", pathAfterScheme("users/42"))
}
