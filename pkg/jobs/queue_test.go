package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var handled []string
	done := make(chan struct{}, 2)

	q := NewQueue(func(ctx context.Context, job Job) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "j-2"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"j-1", "j-2"}, handled)
}

func TestQueueRetriesWithIncrementedAttempt(t *testing.T) {
	attempts := make(chan int, 4)

	q := NewQueue(func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt < 1 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1"}))

	first := <-attempts
	assert.Equal(t, 0, first)
	select {
	case second := <-attempts:
		assert.Equal(t, 1, second)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue(func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "j-1"})
	require.Error(t, err)
}
