package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		assert.Equal(t, "j1", job.ID)
		close(done)
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "solve"}))
	waitFor(t, done, "job was never handled")
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return fmt.Errorf("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxAttempts: 5, BackoffBase: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1"}))
	waitFor(t, done, "job never succeeded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueExhaustsAttempts(t *testing.T) {
	var attempts int32
	exhausted := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return fmt.Errorf("permanent")
	}, QueueConfig{
		Workers:     1,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		OnExhausted: func(job Job, err error) {
			exhausted <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "j1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never exhausted attempts")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRemoveSkipsWaitingJob(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	handled := make(map[string]bool)
	drained := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.ID == "blocker" {
			<-gate
		}
		mu.Lock()
		handled[job.ID] = true
		mu.Unlock()
		if job.ID == "last" {
			close(drained)
		}
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "blocker"}))
	require.NoError(t, q.Enqueue(Job{ID: "victim"}))
	require.NoError(t, q.Enqueue(Job{ID: "last"}))
	assert.True(t, q.Remove("victim"))
	close(gate)

	waitFor(t, drained, "queue never drained")
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, handled["blocker"])
	assert.True(t, handled["last"])
	assert.False(t, handled["victim"])
}

func TestQueueRemoveRejectsClaimedJob(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		close(started)
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	waitFor(t, started, "job never started")
	assert.False(t, q.Remove("busy"), "a claimed job must not be removable")
	close(release)
}

func TestQueueStopWaitsForWorkers(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "j1"}))
	waitFor(t, started, "job never started")
	q.Stop()

	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the in-flight job finished")
	}
}
