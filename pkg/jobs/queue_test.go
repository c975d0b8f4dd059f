package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})

	require.ErrorIs(t, q.Enqueue(Job{ID: "early"}), ErrQueueClosed)

	q.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	q.Stop()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	require.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueClosed)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	exhausted := make(chan Job, 1)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("smtp down")
	}, QueueConfig{
		MaxRetries:  2,
		RetryDelay:  5 * time.Millisecond,
		OnExhausted: func(job Job, err error) { exhausted <- job },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "mail-1"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "mail-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not exhausted")
	}
	q.Stop()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueRetrySucceeds(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	q := NewQueue("flaky", func(ctx context.Context, job Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("temporary")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "mail-2"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not run")
	}
	q.Stop()
	assert.Equal(t, int32(2), attempts.Load())
}

func TestQueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	require.Eventually(t, func() bool { return q.Depth() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "2"}))
	require.Error(t, q.Enqueue(Job{ID: "3"}))

	close(block)
	q.Stop()
}
