package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorManagerRecordAndQueryByType(t *testing.T) {
	em, err := NewErrorManager(10)
	require.NoError(t, err)

	msg := NewMessage("svc://ping", nil, nil)
	em.RecordError("auth", errors.New("auth-failed"), &msg)
	em.RecordError("routing", nil, nil)
	em.RecordError("auth", errors.New("auth-failed-again"), &msg)

	authRecords := em.QueryByType("auth")
	require.Len(t, authRecords, 2)
	assert.Equal(t, "auth-failed", authRecords[0].Message)
	assert.Equal(t, msg.ID, authRecords[0].MessageID)

	summary := em.QuerySummary()
	assert.Equal(t, 2, summary["auth"])
	assert.Equal(t, 1, summary["routing"])
}

func TestErrorManagerQueryRecentLimitsToN(t *testing.T) {
	em, err := NewErrorManager(10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		em.RecordError("x", nil, nil)
	}

	recent := em.QueryRecent(2)
	assert.Len(t, recent, 2)
}

func TestErrorManagerDropsOldestPastCapacity(t *testing.T) {
	em, err := NewErrorManager(2)
	require.NoError(t, err)

	em.RecordError("first", nil, nil)
	em.RecordError("second", nil, nil)
	em.RecordError("third", nil, nil)

	all := em.QueryRecent(0)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Type)
	assert.Equal(t, "third", all[1].Type)
}
