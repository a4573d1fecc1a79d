package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	mu    sync.Mutex
	calls []Message
}

func (s *capturingSender) send(owner PKR, targetPath string, msg *Message, opts SendOptions) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, *msg)
	return Result{Success: true, MessageID: msg.ID}, nil
}

func (s *capturingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestResponseManagerHandleResponseResolvesPending(t *testing.T) {
	sender := &capturingSender{}
	rm := NewResponseManager(sender.send)

	msg := NewMessage("svc://command", nil, nil)
	require.NoError(t, rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 10_000}))

	reply := NewMessage("svc://reply", map[string]any{"inReplyTo": msg.ID}, nil)
	result := rm.HandleResponse(&reply, "")

	assert.True(t, result.OK)
	require.NotNil(t, result.Pending)
	assert.Equal(t, msg.ID, result.Pending.CorrelationID)
	assert.Equal(t, 0, sender.count(), "a resolved response never triggers the timeout sender")
}

func TestResponseManagerHandleResponseUnknownCorrelationID(t *testing.T) {
	rm := NewResponseManager(nil)
	reply := NewMessage("svc://reply", map[string]any{"inReplyTo": "nope"}, nil)

	result := rm.HandleResponse(&reply, "")
	assert.False(t, result.OK)
	assert.Equal(t, "unknown-correlation-id", result.Reason)
}

func TestResponseManagerHandleResponseNoCorrelationID(t *testing.T) {
	rm := NewResponseManager(nil)
	reply := NewMessage("svc://reply", nil, nil)

	result := rm.HandleResponse(&reply, "")
	assert.False(t, result.OK)
	assert.Equal(t, "no-correlation-id", result.Reason)
}

func TestResponseManagerDuplicateRegistrationFails(t *testing.T) {
	rm := NewResponseManager(nil)
	msg := NewMessage("svc://command", nil, nil)
	require.NoError(t, rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 10_000}))

	err := rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 10_000})
	require.Error(t, err)
}

func TestResponseManagerTimeoutSendsSyntheticResponse(t *testing.T) {
	sender := &capturingSender{}
	rm := NewResponseManager(sender.send)

	msg := NewMessage("svc://command", nil, nil)
	require.NoError(t, rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 5}))

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)

	reply := NewMessage("svc://reply", map[string]any{"inReplyTo": msg.ID}, nil)
	result := rm.HandleResponse(&reply, "")
	assert.False(t, result.OK, "a late response loses the race against its own timeout")
}

func TestResponseManagerCancelPreventsTimeout(t *testing.T) {
	sender := &capturingSender{}
	rm := NewResponseManager(sender.send)

	msg := NewMessage("svc://command", nil, nil)
	require.NoError(t, rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 10}))
	assert.True(t, rm.Cancel(msg.ID))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, sender.count())
}

func TestResponseManagerDisposeStopsAllTimers(t *testing.T) {
	sender := &capturingSender{}
	rm := NewResponseManager(sender.send)

	msg := NewMessage("svc://command", nil, nil)
	require.NoError(t, rm.RegisterResponseRequiredFor(NilPKR, &msg, ResponseRequirement{ReplyTo: "svc://reply", TimeoutMs: 5}))

	rm.Dispose()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, sender.count())
}
