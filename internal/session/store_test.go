package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
)

func TestStore_InsertGetRoundTrip(t *testing.T) {
	st := session.NewStore(0, 0)
	s := &session.Session{ID: "s1", Status: session.StatusPending}
	st.Insert(s)

	got, err := st.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, got.Status)
	assert.Equal(t, 1, st.Len())
}

func TestStore_GetUnknownReturnsErrNotFound(t *testing.T) {
	st := session.NewStore(0, 0)
	_, err := st.Get("missing")
	var nf session.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestStore_GetReturnsIndependentSnapshot(t *testing.T) {
	st := session.NewStore(0, 0)
	s := &session.Session{ID: "s1", Status: session.StatusPending}
	st.Insert(s)

	snap, err := st.Get("s1")
	require.NoError(t, err)

	_, err = st.UpdateStatus("s1", lifecycle.Event{Kind: lifecycle.EvEnqueued}, snap.CreatedAt)
	require.NoError(t, err)

	// The earlier snapshot must not have observed the later mutation.
	assert.Equal(t, session.StatusPending, snap.Status)

	after, err := st.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusStreaming, after.Status)
}

func TestStore_UpdateStatusRejectsIllegalTransition(t *testing.T) {
	st := session.NewStore(0, 0)
	st.Insert(&session.Session{ID: "s1", Status: session.StatusPending})

	_, err := st.UpdateStatus("s1", lifecycle.Event{Kind: lifecycle.EvCompleted}, session.Session{}.CreatedAt)
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	got, err := st.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, got.Status, "rejected transition must not mutate the stored record")
}

func TestStore_UpdateStatusUnknownID(t *testing.T) {
	st := session.NewStore(0, 0)
	_, err := st.UpdateStatus("missing", lifecycle.Event{Kind: lifecycle.EvEnqueued}, session.Session{}.CreatedAt)
	var nf session.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestStore_Delete(t *testing.T) {
	st := session.NewStore(0, 0)
	st.Insert(&session.Session{ID: "s1", Status: session.StatusPending})
	require.Equal(t, 1, st.Len())

	st.Delete("s1")
	assert.Equal(t, 0, st.Len())
	_, err := st.Get("s1")
	assert.Error(t, err)
}

func TestStore_StartRetentionSweeperNoopWhenUnconfigured(t *testing.T) {
	st := session.NewStore(0, 0)
	// With neither a TTL nor a record cap, StartRetentionSweeper starts
	// nothing; it and the following Stop must not panic or block.
	st.StartRetentionSweeper(context.Background(), time.Millisecond)
	st.Stop()
}
