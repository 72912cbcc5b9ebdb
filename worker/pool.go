// Package worker implements the Worker Pool (spec §4.7): bounded
// concurrency over Queue→Processor, a heartbeat loop, a stale-recovery
// loop, and graceful shutdown. Grounded on the teacher's worker/pool.go
// (Pool/Worker split, per-queue worker counts in Config), generalized from
// the teacher's generic Queue/JobProcessor interfaces to this module's
// concrete queue.Queue and processor.Processor, and from log.Printf to the
// ContextLogger pattern.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/logging"
	"github.com/docpipe/docpipe/processor"
	"github.com/docpipe/docpipe/queue"
)

// Config configures the worker pool (spec §4.7, §6.5).
type Config struct {
	MaxConcurrentWorkers  int
	ProcessingTimeout     time.Duration
	HeartbeatInterval     time.Duration
	StaleWorkerTimeout    time.Duration
	StaleJobCheckInterval time.Duration
	MaxRetries            int
	ShutdownGracePeriod   time.Duration
	// PollInterval bounds how long an idle worker sleeps between empty
	// dequeue attempts (spec §4.7: "sleep briefly (≤1 s) and retry").
	PollInterval time.Duration
}

// DefaultConfig matches spec §4.7/§4.2's named defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentWorkers:  3,
		ProcessingTimeout:     queue.DefaultProcessingTimeout,
		HeartbeatInterval:     queue.DefaultHeartbeatInterval,
		StaleWorkerTimeout:    queue.DefaultStaleWorkerTimeout,
		StaleJobCheckInterval: 60 * time.Second,
		MaxRetries:            queue.DefaultMaxRetries,
		ShutdownGracePeriod:   30 * time.Second,
		PollInterval:          time.Second,
	}
}

// SourceResolver turns a loaded document into the extractors.Source its kind
// needs (a local file path for upload-derived kinds, a URL for
// webpage/media kinds). Composition roots supply this since the mapping
// from a document's Origin to a concrete path/URL is deployment-specific
// (e.g. where uploaded bytes are staged on disk).
type SourceResolver func(ctx context.Context, doc *document.Document) (extractors.Source, error)

// Pool runs cfg.MaxConcurrentWorkers goroutines draining q via store-backed
// loads and Processor invocations, plus the heartbeat and stale-recovery
// background loops.
type Pool struct {
	cfg       Config
	queue     queue.Queue
	store     document.Store
	processor *processor.Processor
	resolve   SourceResolver
	log       *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Pool. resolve may be nil, in which case Source.Path is
// assumed to equal the document's Origin.Reference.
func New(cfg Config, q queue.Queue, store document.Store, proc *processor.Processor, resolve SourceResolver, log *logging.Logger) *Pool {
	if cfg.MaxConcurrentWorkers <= 0 {
		cfg.MaxConcurrentWorkers = DefaultConfig().MaxConcurrentWorkers
	}
	if log == nil {
		log = logging.NewLogger(nil, map[string]interface{}{"component": "worker"})
	}
	if resolve == nil {
		resolve = func(_ context.Context, doc *document.Document) (extractors.Source, error) {
			return extractors.Source{Path: doc.Origin.Reference, URL: doc.Origin.Reference, Kind: doc.Kind}, nil
		}
	}
	return &Pool{cfg: cfg, queue: q, store: store, processor: proc, resolve: resolve, log: log}
}

// Start launches the worker goroutines and the two background loops. It
// returns immediately; call Stop to shut down.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	// Each worker and its heartbeat share the same id, since RecoverStale
	// checks worker liveness by the id a job was dequeued under (spec §3.6,
	// §4.7): a heartbeat under any other id would never keep that worker's
	// in-flight jobs from being recovered out from under it.
	running := p.cfg.MaxConcurrentWorkers*2 + 1 // (worker + its heartbeat) + stale-recovery
	finished := make(chan struct{})

	go func() {
		for i := 0; i < p.cfg.MaxConcurrentWorkers; i++ {
			workerID := uuid.NewString()
			go func(id string) {
				defer func() { finished <- struct{}{} }()
				p.workerLoop(ctx, id)
			}(workerID)
			go func(id string) {
				defer func() { finished <- struct{}{} }()
				p.heartbeatLoop(ctx, id)
			}(workerID)
		}
		go func() {
			defer func() { finished <- struct{}{} }()
			p.staleRecoveryLoop(ctx)
		}()

		for i := 0; i < running; i++ {
			<-finished
		}
		close(p.done)
	}()
}

// Stop signals shutdown, waits up to cfg.ShutdownGracePeriod for in-flight
// work to finish, and returns once the pool is drained (spec §4.7: "let
// in-flight jobs finish under a grace period").
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	select {
	case <-p.done:
	case <-time.After(p.cfg.ShutdownGracePeriod):
		p.log.Warn("worker pool shutdown grace period elapsed with workers still running")
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerID string) {
	log := p.log.WithField("worker_id", workerID)
	log.Info("worker started")
	defer log.Info("worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ids, err := p.queue.Dequeue(ctx, workerID, 1, p.cfg.ProcessingTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrUnavailable) {
				log.WithError(err).Warn("queue unavailable, pausing")
			}
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}
		if len(ids) == 0 {
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}

		for _, id := range ids {
			p.runJob(ctx, workerID, id, log)
		}
	}
}

// runJob loads the document, runs it through the Processor under a
// deadline 5s shorter than the processing timeout (spec §4.7: "so that the
// worker can mark-failed itself before stale-recovery would re-enqueue"),
// and disposes of the job via the Queue.
func (p *Pool) runJob(ctx context.Context, workerID, id string, log *logging.Logger) {
	jobLog := log.WithField("document_id", id)

	doc, err := p.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			// Orphan id with no document behind it: drop it from in-flight.
			jobLog.Warn("dequeued id has no document; discarding")
			if err := p.queue.MarkCompleted(ctx, id); err != nil {
				jobLog.WithError(err).Error("failed to discard orphan job")
			}
			return
		}
		p.fail(ctx, id, fmt.Sprintf("load document: %v", err), jobLog)
		return
	}

	src, err := p.resolve(ctx, doc)
	if err != nil {
		p.fail(ctx, id, fmt.Sprintf("resolve source: %v", err), jobLog)
		return
	}

	softDeadline := p.cfg.ProcessingTimeout - 5*time.Second
	if softDeadline <= 0 {
		softDeadline = p.cfg.ProcessingTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, softDeadline)
	defer cancel()

	if err := p.processor.Process(jobCtx, doc, src); err != nil {
		p.fail(ctx, id, err.Error(), jobLog)
		p.cleanupTempFile(ctx, id, jobLog)
		return
	}

	if err := p.queue.MarkCompleted(ctx, id); err != nil {
		jobLog.WithError(err).Error("failed to mark job completed")
	}
	p.cleanupTempFile(ctx, id, jobLog)
}

func (p *Pool) fail(ctx context.Context, id, lastErr string, log *logging.Logger) {
	if err := p.queue.MarkFailed(ctx, id, lastErr, true, p.cfg.MaxRetries); err != nil {
		log.WithError(err).Error("failed to mark job failed")
		return
	}
	if n, err := p.queue.RetryCount(ctx, id); err != nil || n <= p.cfg.MaxRetries {
		return
	}
	doc, err := p.store.Load(ctx, id)
	if err != nil {
		log.WithError(err).Warn("failed to load dead-lettered document")
		return
	}
	doc.Stage, doc.UpdatedAt = document.StageFailed, time.Now()
	doc.Version++
	if err := p.store.Save(ctx, doc); err != nil {
		log.WithError(err).Error("failed to record FAILED state")
	}
}

// cleanupTempFile removes the temp file associated with a job, if any
// (spec §4.7: "Cleanup: remove any temp file associated with the job").
func (p *Pool) cleanupTempFile(ctx context.Context, id string, log *logging.Logger) {
	path, ok, err := p.queue.FilePath(ctx, id)
	if err != nil || !ok || path == "" {
		return
	}
	if err := removeFile(path); err != nil {
		log.WithError(err).Warn("failed to remove temp file")
	}
}

func (p *Pool) heartbeatLoop(ctx context.Context, workerID string) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		if err := p.queue.Heartbeat(ctx, workerID, p.cfg.StaleWorkerTimeout); err != nil {
			p.log.WithError(err).Warn("heartbeat failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool) staleRecoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.StaleJobCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.RecoverStale(ctx)
			if err != nil {
				p.log.WithError(err).Warn("stale recovery pass failed")
				continue
			}
			if n > 0 {
				p.log.WithField("recovered", n).Info("recovered stale jobs")
			}
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
