// Package memory is the in-process Queue adapter (spec §6.5: backend ∈
// {redis, memory}), useful for single-process deployments and tests. It
// implements the same partition semantics as queue/redis without an external
// dependency, guarded by a single mutex since there is no cross-process
// concurrency to arbitrate.
package memory

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docpipe/docpipe/queue"
)

type pendingItem struct {
	id       string
	priority time.Time
	index    int
}

type pendingHeap []*pendingItem

func (h pendingHeap) Len() int            { return len(h) }
func (h pendingHeap) Less(i, j int) bool  { return h[i].priority.Before(h[j].priority) }
func (h pendingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *pendingHeap) Push(x interface{}) {
	item := x.(*pendingItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue implements queue.Queue entirely in process memory.
type Queue struct {
	mu sync.Mutex

	pending    pendingHeap
	pendingIdx map[string]*pendingItem
	inFlight   map[string]queue.InFlightEntry
	failed     map[string]time.Time

	retryCount map[string]int
	lastError  map[string]string
	filePath   map[string]string

	workers map[string]time.Time // worker id -> expiry
}

var _ queue.Queue = (*Queue)(nil)

// New creates an empty in-memory queue.
func New() *Queue {
	return &Queue{
		pendingIdx: make(map[string]*pendingItem),
		inFlight:   make(map[string]queue.InFlightEntry),
		failed:     make(map[string]time.Time),
		retryCount: make(map[string]int),
		lastError:  make(map[string]string),
		filePath:   make(map[string]string),
		workers:    make(map[string]time.Time),
	}
}

func (q *Queue) Enqueue(_ context.Context, id string, priority time.Time) error {
	if priority.IsZero() {
		priority = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.pendingIdx[id]; ok {
		item.priority = priority
		heap.Fix(&q.pending, item.index)
		return nil
	}

	item := &pendingItem{id: id, priority: priority}
	heap.Push(&q.pending, item)
	q.pendingIdx[id] = item
	return nil
}

func (q *Queue) Dequeue(_ context.Context, workerID string, n int, processingTimeout time.Duration) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	if processingTimeout <= 0 {
		processingTimeout = queue.DefaultProcessingTimeout
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	ids := make([]string, 0, n)
	for i := 0; i < n && q.pending.Len() > 0; i++ {
		item := heap.Pop(&q.pending).(*pendingItem)
		delete(q.pendingIdx, item.id)
		q.inFlight[item.id] = queue.InFlightEntry{
			WorkerID:  workerID,
			StartedAt: now,
			TimeoutAt: now.Add(processingTimeout),
		}
		ids = append(ids, item.id)
	}
	return ids, nil
}

func (q *Queue) MarkCompleted(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, id)
	return nil
}

func (q *Queue) MarkFailed(_ context.Context, id string, lastErr string, retry bool, maxRetries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inFlight, id)
	q.lastError[id] = lastErr
	q.retryCount[id]++
	retryCount := q.retryCount[id]

	if retry && retryCount <= maxRetries {
		priority := time.Now().Add(queue.Backoff(retryCount))
		item := &pendingItem{id: id, priority: priority}
		heap.Push(&q.pending, item)
		q.pendingIdx[id] = item
		return nil
	}

	q.failed[id] = time.Now()
	return nil
}

func (q *Queue) RecoverStale(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	recovered := 0
	for id, entry := range q.inFlight {
		if now.Before(entry.TimeoutAt) {
			continue
		}
		if expiry, ok := q.workers[entry.WorkerID]; ok && now.Before(expiry) {
			continue
		}

		delete(q.inFlight, id)
		q.lastError[id] = fmt.Sprintf("worker %s timed out", entry.WorkerID)
		q.retryCount[id]++
		item := &pendingItem{id: id, priority: now}
		heap.Push(&q.pending, item)
		q.pendingIdx[id] = item
		recovered++
	}
	return recovered, nil
}

func (q *Queue) Stats(_ context.Context) (queue.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	perWorker := make(map[string]int)
	liveWorkers := make(map[string]bool)
	for _, entry := range q.inFlight {
		perWorker[entry.WorkerID]++
		if expiry, ok := q.workers[entry.WorkerID]; ok && now.Before(expiry) {
			liveWorkers[entry.WorkerID] = true
		}
	}

	return queue.Stats{
		PendingCount:   q.pending.Len(),
		InFlightCount:  len(q.inFlight),
		FailedCount:    len(q.failed),
		LiveWorkers:    len(liveWorkers),
		PerWorkerCount: perWorker,
	}, nil
}

func (q *Queue) Heartbeat(_ context.Context, workerID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = queue.DefaultStaleWorkerTimeout
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers[workerID] = time.Now().Add(ttl)
	return nil
}

func (q *Queue) RetryCount(_ context.Context, id string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.retryCount[id], nil
}

func (q *Queue) LastError(_ context.Context, id string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, ok := q.lastError[id]
	return msg, ok, nil
}

func (q *Queue) SetFilePath(_ context.Context, id, path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.filePath[id] = path
	return nil
}

func (q *Queue) FilePath(_ context.Context, id string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	path, ok := q.filePath[id]
	delete(q.filePath, id)
	return path, ok, nil
}
