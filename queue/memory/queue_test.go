package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("priority order and single-processing", func(t *testing.T) {
		q := New()
		now := time.Now()
		require.NoError(t, q.Enqueue(ctx, "late", now.Add(time.Hour)))
		require.NoError(t, q.Enqueue(ctx, "early", now))

		ids, err := q.Dequeue(ctx, "w1", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "late"}, ids)

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.PendingCount)
		assert.Equal(t, 2, stats.InFlightCount)
	})

	t.Run("retry exhaustion reaches dead-letter", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Enqueue(ctx, "doc", time.Now()))

		for i := 0; i < 3; i++ {
			_, err := q.Dequeue(ctx, "w1", 1, time.Minute)
			require.NoError(t, err)
			require.NoError(t, q.MarkFailed(ctx, "doc", "bad input", true, 2))
		}

		stats, err := q.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.FailedCount)
		assert.Equal(t, 0, stats.PendingCount)
	})

	t.Run("stale recovery requeues when worker heartbeat absent", func(t *testing.T) {
		q := New()
		require.NoError(t, q.Enqueue(ctx, "doc", time.Now()))
		_, err := q.Dequeue(ctx, "w1", 1, -time.Second)
		require.NoError(t, err)

		recovered, err := q.RecoverStale(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		lastErr, ok, err := q.LastError(ctx, "doc")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, lastErr, "worker w1 timed out")
	})
}
