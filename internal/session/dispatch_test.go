package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
)

func TestDispatch_PendingToStreamingToCompleted(t *testing.T) {
	s := &session.Session{Status: session.StatusPending}
	now := time.Unix(1000, 0)

	tr, err := session.Dispatch(s, lifecycle.Event{Kind: lifecycle.EvEnqueued}, now)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStreaming, tr.To)
	assert.Equal(t, session.StatusStreaming, s.Status)
	require.NotNil(t, s.StartedAt)
	assert.Equal(t, now, *s.StartedAt)
	assert.Nil(t, s.FinishedAt)

	finish := now.Add(5 * time.Second)
	tr, err = session.Dispatch(s, lifecycle.Event{Kind: lifecycle.EvCompleted}, finish)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, tr.To)
	require.NotNil(t, s.FinishedAt)
	assert.Equal(t, finish, *s.FinishedAt)
	assert.Empty(t, s.FailureReason)
}

func TestDispatch_StreamingToFailedRecordsReason(t *testing.T) {
	s := &session.Session{Status: session.StatusStreaming}
	now := time.Unix(2000, 0)

	_, err := session.Dispatch(s, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "provider_mid_stream"}, now)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFailed, s.Status)
	assert.Equal(t, "provider_mid_stream", s.FailureReason)
}

func TestDispatch_PendingCancelDirectly(t *testing.T) {
	s := &session.Session{Status: session.StatusPending}
	now := time.Unix(3000, 0)

	_, err := session.Dispatch(s, lifecycle.Event{Kind: lifecycle.EvCancelled}, now)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCancelled, s.Status)
	require.NotNil(t, s.FinishedAt)
}

func TestDispatch_StreamingCancel(t *testing.T) {
	s := &session.Session{Status: session.StatusStreaming}
	_, err := session.Dispatch(s, lifecycle.Event{Kind: lifecycle.EvCancelled}, time.Unix(4000, 0))
	require.NoError(t, err)
	assert.Equal(t, session.StatusCancelled, s.Status)
}

func TestDispatch_IllegalEdgesRejected(t *testing.T) {
	cases := []struct {
		name string
		from session.Status
		ev   lifecycle.EventKind
	}{
		{"pending_completed", session.StatusPending, lifecycle.EvCompleted},
		{"pending_failed", session.StatusPending, lifecycle.EvFailed},
		{"completed_anything", session.StatusCompleted, lifecycle.EvEnqueued},
		{"failed_anything", session.StatusFailed, lifecycle.EvEnqueued},
		{"cancelled_anything", session.StatusCancelled, lifecycle.EvEnqueued},
		{"streaming_enqueued_again", session.StatusStreaming, lifecycle.EvEnqueued},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &session.Session{Status: tc.from}
			_, err := session.Dispatch(s, lifecycle.Event{Kind: tc.ev}, time.Unix(5000, 0))
			assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)
			assert.Equal(t, tc.from, s.Status, "state must be left untouched on a rejected transition")
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, session.StatusPending.IsTerminal())
	assert.False(t, session.StatusStreaming.IsTerminal())
	assert.True(t, session.StatusCompleted.IsTerminal())
	assert.True(t, session.StatusFailed.IsTerminal())
	assert.True(t, session.StatusCancelled.IsTerminal())
}
