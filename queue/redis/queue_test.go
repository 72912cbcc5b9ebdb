package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/queue"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client), mr
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()

	t.Run("dequeue returns enqueued id and moves it to in-flight", func(t *testing.T) {
		q, _ := newTestQueue(t)

		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now()))

		ids, err := q.Dequeue(ctx, "worker-1", 1, time.Minute)
		require.NoError(t, err)
		require.Equal(t, []string{"doc-1"}, ids)

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.PendingCount)
		assert.Equal(t, 1, stats.InFlightCount)
	})

	t.Run("two workers never receive the same id", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "X", time.Now()))
		require.NoError(t, q.Enqueue(ctx, "Y", time.Now()))

		a, err := q.Dequeue(ctx, "worker-a", 1, time.Minute)
		require.NoError(t, err)
		b, err := q.Dequeue(ctx, "worker-b", 1, time.Minute)
		require.NoError(t, err)

		require.Len(t, a, 1)
		require.Len(t, b, 1)
		assert.NotEqual(t, a[0], b[0])
	})

	t.Run("priority order is earliest scheduled time first", func(t *testing.T) {
		q, _ := newTestQueue(t)
		now := time.Now()
		require.NoError(t, q.Enqueue(ctx, "later", now.Add(time.Hour)))
		require.NoError(t, q.Enqueue(ctx, "sooner", now))

		ids, err := q.Dequeue(ctx, "worker-1", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, []string{"sooner", "later"}, ids)
	})

	t.Run("idempotent enqueue does not duplicate", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now()))
		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now().Add(time.Minute)))

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PendingCount)
	})
}

func TestMarkCompletedAndFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("mark completed clears in-flight", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now()))
		_, err := q.Dequeue(ctx, "worker-1", 1, time.Minute)
		require.NoError(t, err)

		require.NoError(t, q.MarkCompleted(ctx, "doc-1"))

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.InFlightCount)
	})

	t.Run("retryable failure re-enqueues with backoff", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now()))
		_, err := q.Dequeue(ctx, "worker-1", 1, time.Minute)
		require.NoError(t, err)

		require.NoError(t, q.MarkFailed(ctx, "doc-1", "boom", true, 3))

		count, err := q.RetryCount(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		msg, ok, err := q.LastError(ctx, "doc-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "boom", msg)

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PendingCount)
		assert.Equal(t, 0, stats.FailedCount)
	})

	t.Run("retry exhaustion moves to dead-letter", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "doc-1", time.Now()))

		for i := 0; i < 3; i++ {
			_, err := q.Dequeue(ctx, "worker-1", 1, time.Minute)
			require.NoError(t, err)
			require.NoError(t, q.MarkFailed(ctx, "doc-1", "still broken", true, 2))
		}

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.FailedCount)
		assert.Equal(t, 0, stats.PendingCount)
	})
}

func TestRecoverStale(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers in-flight entries whose worker vanished", func(t *testing.T) {
		q, mr := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "Z", time.Now()))

		_, err := q.Dequeue(ctx, "W1", 1, -time.Second) // already-expired deadline
		require.NoError(t, err)

		mr.FastForward(time.Millisecond)

		recovered, err := q.RecoverStale(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		msg, ok, err := q.LastError(ctx, "Z")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, msg, "worker W1 timed out")

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PendingCount)
	})

	t.Run("does not recover entries whose worker is still heartbeating", func(t *testing.T) {
		q, _ := newTestQueue(t)
		require.NoError(t, q.Enqueue(ctx, "Z", time.Now()))
		require.NoError(t, q.Heartbeat(ctx, "W1", time.Minute))

		_, err := q.Dequeue(ctx, "W1", 1, -time.Second)
		require.NoError(t, err)

		recovered, err := q.RecoverStale(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)
	})
}

func TestFilePathRoundTrip(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	require.NoError(t, q.SetFilePath(ctx, "doc-1", "/tmp/doc-1.bin"))

	path, ok, err := q.FilePath(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/tmp/doc-1.bin", path)

	_, ok, err = q.FilePath(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackoffSchedule(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 10 * time.Second},
		{1, 20 * time.Second},
		{2, 40 * time.Second},
		{5, 300 * time.Second},
		{10, 300 * time.Second},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, queue.Backoff(c.retry))
	}
}
