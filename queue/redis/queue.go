// Package redis implements queue.Queue against Redis, grounded on the
// teacher's queue/redis.Queue (RPush/BLPop job queue) but generalized to the
// priority-partition design of spec §4.2: a scheduled-time sorted set for
// pending, a hash for in-flight entries, a sorted set for dead-letter, and
// TTL-bearing side keys for retry bookkeeping and worker liveness, matching
// the key layout of spec §6.3 (itself confirmed against the original
// redis_queue_service.py constants).
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docpipe/docpipe/queue"
)

const (
	keyPending  = "docpipe:queue:pending"
	keyInFlight = "docpipe:queue:in_flight"
	keyFailed   = "docpipe:queue:failed"

	sideKeyTTL     = 24 * time.Hour
	filePathTTL    = time.Hour
	workerKeyFmt   = "docpipe:workers:%s"
	retryKeyFmt    = "docpipe:retry_count:%s"
	lastErrKeyFmt  = "docpipe:last_error:%s"
	startedKeyFmt  = "docpipe:processing_started:%s"
	completeKeyFmt = "docpipe:processing_completed:%s"
	filePathKeyFmt = "docpipe:file_path:%s"
)

// inFlightValue is the JSON shape stored in the in_flight hash (spec §3.3).
type inFlightValue struct {
	WorkerID  string    `json:"worker_id"`
	StartedAt time.Time `json:"started_at"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// Queue implements queue.Queue against Redis.
type Queue struct {
	client goredis.UniversalClient
}

var _ queue.Queue = (*Queue)(nil)

// New wraps an existing Redis client.
func New(client goredis.UniversalClient) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Enqueue(ctx context.Context, id string, priority time.Time) error {
	if priority.IsZero() {
		priority = time.Now()
	}
	err := q.client.ZAdd(ctx, keyPending, goredis.Z{Score: float64(priority.UnixNano()), Member: id}).Err()
	if err != nil {
		return fmt.Errorf("%w: enqueue %s: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, workerID string, n int, processingTimeout time.Duration) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	if processingTimeout <= 0 {
		processingTimeout = queue.DefaultProcessingTimeout
	}

	popped, err := q.client.ZPopMin(ctx, keyPending, int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: dequeue: %v", queue.ErrUnavailable, err)
	}

	ids := make([]string, 0, len(popped))
	now := time.Now()
	for _, z := range popped {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entry := inFlightValue{WorkerID: workerID, StartedAt: now, TimeoutAt: now.Add(processingTimeout)}
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		pipe := q.client.TxPipeline()
		pipe.HSet(ctx, keyInFlight, id, data)
		pipe.Set(ctx, fmt.Sprintf(startedKeyFmt, id), now.Format(time.RFC3339Nano), sideKeyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			// id is already off pending and never reached in_flight;
			// put it back on pending rather than losing it silently.
			q.client.ZAdd(ctx, keyPending, z)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (q *Queue) MarkCompleted(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, keyInFlight, id)
	pipe.Set(ctx, fmt.Sprintf(completeKeyFmt, id), time.Now().Format(time.RFC3339Nano), sideKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: mark completed %s: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

func (q *Queue) MarkFailed(ctx context.Context, id string, lastErr string, retry bool, maxRetries int) error {
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, keyInFlight, id)
	pipe.Set(ctx, fmt.Sprintf(lastErrKeyFmt, id), lastErr, sideKeyTTL)
	retryCmd := pipe.Incr(ctx, fmt.Sprintf(retryKeyFmt, id))
	pipe.Expire(ctx, fmt.Sprintf(retryKeyFmt, id), sideKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: mark failed %s: %v", queue.ErrUnavailable, id, err)
	}

	retryCount := int(retryCmd.Val())

	if retry && retryCount <= maxRetries {
		priority := time.Now().Add(queue.Backoff(retryCount))
		return q.Enqueue(ctx, id, priority)
	}

	if err := q.client.ZAdd(ctx, keyFailed, goredis.Z{Score: float64(time.Now().UnixNano()), Member: id}).Err(); err != nil {
		return fmt.Errorf("%w: dead-letter %s: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	entries, err := q.client.HGetAll(ctx, keyInFlight).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: recover stale: %v", queue.ErrUnavailable, err)
	}

	now := time.Now()
	recovered := 0
	for id, raw := range entries {
		var v inFlightValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		if now.Before(v.TimeoutAt) {
			continue
		}

		alive, err := q.workerAlive(ctx, v.WorkerID)
		if err != nil {
			continue
		}
		if alive {
			continue
		}

		pipe := q.client.TxPipeline()
		pipe.HDel(ctx, keyInFlight, id)
		pipe.ZAdd(ctx, keyPending, goredis.Z{Score: float64(now.UnixNano()), Member: id})
		pipe.Set(ctx, fmt.Sprintf(lastErrKeyFmt, id), fmt.Sprintf("worker %s timed out", v.WorkerID), sideKeyTTL)
		pipe.Incr(ctx, fmt.Sprintf(retryKeyFmt, id))
		pipe.Expire(ctx, fmt.Sprintf(retryKeyFmt, id), sideKeyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			continue
		}
		recovered++
	}
	return recovered, nil
}

func (q *Queue) workerAlive(ctx context.Context, workerID string) (bool, error) {
	n, err := q.client.Exists(ctx, fmt.Sprintf(workerKeyFmt, workerID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queue) Stats(ctx context.Context) (queue.Stats, error) {
	pipe := q.client.TxPipeline()
	pendingCmd := pipe.ZCard(ctx, keyPending)
	inFlightCmd := pipe.HGetAll(ctx, keyInFlight)
	failedCmd := pipe.ZCard(ctx, keyFailed)
	if _, err := pipe.Exec(ctx); err != nil {
		return queue.Stats{}, fmt.Errorf("%w: stats: %v", queue.ErrUnavailable, err)
	}

	perWorker := make(map[string]int)
	liveWorkers := make(map[string]bool)
	for _, raw := range inFlightCmd.Val() {
		var v inFlightValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		perWorker[v.WorkerID]++
		if alive, _ := q.workerAlive(ctx, v.WorkerID); alive {
			liveWorkers[v.WorkerID] = true
		}
	}

	return queue.Stats{
		PendingCount:   int(pendingCmd.Val()),
		InFlightCount:  len(inFlightCmd.Val()),
		FailedCount:    int(failedCmd.Val()),
		LiveWorkers:    len(liveWorkers),
		PerWorkerCount: perWorker,
	}, nil
}

func (q *Queue) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = queue.DefaultStaleWorkerTimeout
	}
	err := q.client.Set(ctx, fmt.Sprintf(workerKeyFmt, workerID), time.Now().Format(time.RFC3339Nano), ttl).Err()
	if err != nil {
		return fmt.Errorf("%w: heartbeat %s: %v", queue.ErrUnavailable, workerID, err)
	}
	return nil
}

func (q *Queue) RetryCount(ctx context.Context, id string) (int, error) {
	val, err := q.client.Get(ctx, fmt.Sprintf(retryKeyFmt, id)).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: retry count %s: %v", queue.ErrUnavailable, id, err)
	}
	return val, nil
}

func (q *Queue) LastError(ctx context.Context, id string) (string, bool, error) {
	val, err := q.client.Get(ctx, fmt.Sprintf(lastErrKeyFmt, id)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: last error %s: %v", queue.ErrUnavailable, id, err)
	}
	return val, true, nil
}

func (q *Queue) SetFilePath(ctx context.Context, id, path string) error {
	err := q.client.Set(ctx, fmt.Sprintf(filePathKeyFmt, id), path, filePathTTL).Err()
	if err != nil {
		return fmt.Errorf("%w: set file path %s: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

func (q *Queue) FilePath(ctx context.Context, id string) (string, bool, error) {
	key := fmt.Sprintf(filePathKeyFmt, id)
	val, err := q.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: file path %s: %v", queue.ErrUnavailable, id, err)
	}
	q.client.Del(ctx, key)
	return val, true, nil
}
