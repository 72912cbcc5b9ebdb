// Package queue defines the distributed work-queue contract (spec §4.2): a
// priority-ordered pending partition, an in-flight partition, a dead-letter
// partition, and a worker liveness registry. The interface is
// backend-agnostic; queue/redis and queue/memory provide the two adapters.
package queue

import (
	"context"
	"time"
)

// Default timing constants (spec §4.2, confirmed against the original
// implementation's redis_queue_service.py constants).
const (
	DefaultProcessingTimeout  = 300 * time.Second
	DefaultHeartbeatInterval  = 30 * time.Second
	DefaultStaleWorkerTimeout = 120 * time.Second
	DefaultMaxRetries         = 3
)

// Backoff implements spec §4.2's retry schedule: backoff(n) = min(300s, 10*2^n).
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := 10 * time.Second
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= DefaultProcessingTimeout {
			return DefaultProcessingTimeout
		}
	}
	if d > DefaultProcessingTimeout {
		return DefaultProcessingTimeout
	}
	return d
}

// InFlightEntry is the value half of the in_flight hash (spec §3.3).
type InFlightEntry struct {
	WorkerID  string
	StartedAt time.Time
	TimeoutAt time.Time
}

// Stats is the Queue.stats() contract (spec §4.2).
type Stats struct {
	PendingCount   int
	InFlightCount  int
	FailedCount    int
	LiveWorkers    int
	PerWorkerCount map[string]int
}

// Queue is the contract every backend must satisfy (spec §4.2).
type Queue interface {
	// Enqueue adds id to pending with the given priority (scheduled time;
	// zero value means "now"). Idempotent on id.
	Enqueue(ctx context.Context, id string, priority time.Time) error

	// Dequeue atomically pops up to n ids from pending, moving each into
	// in_flight under workerID with a deadline of now+processingTimeout.
	// Orphan handling (documents that fail to load) is the caller's
	// responsibility; Dequeue only deals in ids, keeping the Queue
	// independent of the Document Store.
	Dequeue(ctx context.Context, workerID string, n int, processingTimeout time.Duration) ([]string, error)

	// MarkCompleted removes id from in_flight and records completion time.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed removes id from in_flight, records lastErr, increments the
	// retry counter. If retry is true and the new retry count is within
	// maxRetries, id is re-enqueued with priority = now + Backoff(retryCount).
	// Otherwise id moves to the dead-letter partition.
	MarkFailed(ctx context.Context, id string, lastErr string, retry bool, maxRetries int) error

	// RecoverStale moves any in_flight entry whose deadline has passed and
	// whose worker registry entry is gone back to pending, recording a
	// "worker <id> timed out" last-error. Returns the count recovered.
	RecoverStale(ctx context.Context) (int, error)

	// Stats returns partition lengths and worker liveness.
	Stats(ctx context.Context) (Stats, error)

	// Heartbeat refreshes workerID's liveness TTL key.
	Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error

	// RetryCount returns the current retry count side-record for id.
	RetryCount(ctx context.Context, id string) (int, error)

	// LastError returns the last recorded error for id, if any.
	LastError(ctx context.Context, id string) (string, bool, error)

	// SetFilePath records the ephemeral temp-file handle for id (spec §6.3,
	// TTL 1h), so whichever goroutine owns cleanup can find it.
	SetFilePath(ctx context.Context, id, path string) error

	// FilePath retrieves and clears the temp-file handle for id.
	FilePath(ctx context.Context, id string) (string, bool, error)
}
