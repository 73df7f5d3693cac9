package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	queue.Start(context.Background())
	defer queue.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(Job{ID: "job", Type: "notification"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueRetriesThenDeadLetters(t *testing.T) {
	var attempts int32
	dead := make(chan Job, 1)
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("delivery failed")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		DeadLetter: func(ctx context.Context, job Job, err error) { dead <- job },
	})

	queue.Start(context.Background())
	defer queue.Stop()
	require.NoError(t, queue.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-dead:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never dead-lettered")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	queue := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, queue.Enqueue(Job{ID: "job"}))
	assert.Equal(t, 0, queue.Pending())
}

func TestQueueBackoffDoublesAndCaps(t *testing.T) {
	queue := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{RetryDelay: 10 * time.Second})

	assert.Equal(t, 10*time.Second, queue.backoff(1))
	assert.Equal(t, 20*time.Second, queue.backoff(2))
	assert.Equal(t, 40*time.Second, queue.backoff(3))
	assert.Equal(t, maxBackoff, queue.backoff(4))
	assert.Equal(t, maxBackoff, queue.backoff(10))
}
