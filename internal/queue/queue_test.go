package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lee-jian-hui/tts-system/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue_EnqueueDispatchesToHandler(t *testing.T) {
	var processed sync.WaitGroup
	processed.Add(1)

	var gotID string
	q := queue.New(4, 1, func(ctx context.Context, item queue.WorkItem) {
		gotID = item.SessionID
		processed.Done()
	})
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "s1"}))

	waitTimeout(t, &processed, time.Second)
	assert.Equal(t, "s1", gotID)
}

func TestQueue_EnqueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)

	q := queue.New(1, 1, func(ctx context.Context, item queue.WorkItem) {
		started <- struct{}{}
		<-block
	})
	q.Start()
	defer func() {
		close(block)
		q.Stop()
	}()

	// First item occupies the single worker; second fills the 1-slot buffer.
	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "s1"}))
	<-started
	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "s2"}))

	err := q.Enqueue(queue.WorkItem{SessionID: "s3"})
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}

func TestQueue_WorkerPanicIsRecoveredAndWorkerKeepsRunning(t *testing.T) {
	var calls int32
	var done sync.WaitGroup
	done.Add(2)

	q := queue.New(4, 1, func(ctx context.Context, item queue.WorkItem) {
		defer done.Done()
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			panic("boom")
		}
	})
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "panics"}))
	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "survives"}))

	waitTimeout(t, &done, time.Second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueue_StopWaitsForInFlightWorkers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	q := queue.New(4, 1, func(ctx context.Context, item queue.WorkItem) {
		close(started)
		<-release
	})
	q.Start()
	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "s1"}))
	<-started

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight handler finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after handler completed")
	}
}

func TestQueue_BusyTracksActiveWorkers(t *testing.T) {
	release := make(chan struct{})
	inHandler := make(chan struct{})

	q := queue.New(4, 2, func(ctx context.Context, item queue.WorkItem) {
		inHandler <- struct{}{}
		<-release
	})
	q.Start()

	require.NoError(t, q.Enqueue(queue.WorkItem{SessionID: "s1"}))
	<-inHandler
	assert.Equal(t, 1, q.Busy())

	close(release)
	q.Stop()
	assert.Equal(t, 0, q.Busy())
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for condition")
	}
}
