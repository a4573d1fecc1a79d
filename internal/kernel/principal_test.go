package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	calls []string
}

func (d *recordingDispatcher) dispatch(msg *Message, opts SendOptions) (Result, error) {
	d.calls = append(d.calls, msg.Path)
	return Result{Success: true, MessageID: msg.ID}, nil
}

func TestAccessControlRegisterGrantsParentChildSend(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())

	parent := ac.Register("parent", EntityTopLevel, NilPKR)
	child := ac.Register("parent/child", EntityChild, parent.PKR)

	assert.True(t, ac.hasRight(parent.PKR, child.PKR, RightSend))
	assert.True(t, ac.hasRight(child.PKR, parent.PKR, RightSend))
}

func TestAccessControlUnrelatedPrincipalsHaveNoRights(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())

	a := ac.Register("a", EntityTopLevel, NilPKR)
	b := ac.Register("b", EntityTopLevel, NilPKR)

	assert.False(t, ac.hasRight(a.PKR, b.PKR, RightSend))
}

func TestSendProtectedFailsForUnknownTarget(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())
	from := ac.Register("from", EntityTopLevel, NilPKR)

	msg := NewMessage("missing://path", nil, nil)
	result, err := ac.sendProtected(from.PKR, "missing", &msg, SendOptions{})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, disp.calls)
}

func TestSendProtectedFailsWithoutGrant(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())
	from := ac.Register("from", EntityTopLevel, NilPKR)
	_ = ac.Register("to", EntityTopLevel, NilPKR)

	msg := NewMessage("to://ping", nil, nil)
	result, err := ac.sendProtected(from.PKR, "to", &msg, SendOptions{})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, disp.calls)
}

func TestSendProtectedDispatchesWithGrant(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())
	from := ac.Register("from", EntityTopLevel, NilPKR)
	to := ac.Register("to", EntityTopLevel, NilPKR)
	ac.Grant(from.PKR, to.PKR, RightSend)

	msg := NewMessage("to://ping", nil, nil)
	result, err := ac.sendProtected(from.PKR, "to", &msg, SendOptions{})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"to://ping"}, disp.calls)
}

func TestRevokeRemovesGrantsInBothDirections(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())
	a := ac.Register("a", EntityTopLevel, NilPKR)
	b := ac.Register("b", EntityTopLevel, NilPKR)
	ac.Grant(a.PKR, b.PKR, RightSend)
	ac.Grant(b.PKR, a.PKR, RightSend)

	ac.Revoke(a.PKR)

	assert.False(t, ac.hasRight(a.PKR, b.PKR, RightSend))
	assert.False(t, ac.hasRight(b.PKR, a.PKR, RightSend))
	_, found := ac.resolveLocked("a")
	assert.False(t, found)
}

func TestResolveLockedPrefersLongestRegisteredPrefix(t *testing.T) {
	disp := &recordingDispatcher{}
	ac := NewAccessControl(disp, NewProfileRegistry())
	outer := ac.Register("svc", EntityTopLevel, NilPKR)
	inner := ac.Register("svc/inner", EntityChild, outer.PKR)

	pkr, ok := ac.resolveLocked("svc/inner/leaf")
	require.True(t, ok)
	assert.Equal(t, inner.PKR, pkr)

	pkr, ok = ac.resolveLocked("svc/other")
	require.True(t, ok)
	assert.Equal(t, outer.PKR, pkr)
}

func TestPKRNilIsNeverIssued(t *testing.T) {
	assert.True(t, NilPKR.IsNil())
	issued := newPKR()
	assert.False(t, issued.IsNil())
	assert.NotEqual(t, NilPKR, issued)
}
