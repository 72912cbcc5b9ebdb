package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/events/localbus"
	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/processor"
	"github.com/docpipe/docpipe/queue/memory"
	"github.com/docpipe/docpipe/worker"
)

type memStore struct{ docs map[string]*document.Document }

func newMemStore() *memStore { return &memStore{docs: make(map[string]*document.Document)} }

func (s *memStore) Save(_ context.Context, doc *document.Document) error {
	s.docs[doc.ID] = doc.Clone()
	return nil
}
func (s *memStore) Load(_ context.Context, id string) (*document.Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return d.Clone(), nil
}
func (s *memStore) Delete(context.Context, string, bool, string) error { return nil }
func (s *memStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.docs[id]
	return ok, nil
}
func (s *memStore) List(context.Context, document.ListFilter) ([]document.Projection, error) {
	return nil, nil
}
func (s *memStore) SaveVersion(context.Context, document.Version) error { return nil }
func (s *memStore) GetVersions(context.Context, string) ([]document.Version, error) {
	return nil, nil
}
func (s *memStore) RevertTo(context.Context, string, int, string) (*document.Document, error) {
	return nil, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, extractors.Source) (extractors.Result, error) {
	return extractors.Result{RawText: "hello", FormattedMarkdown: "hello"}, nil
}

func TestPoolProcessesEnqueuedDocumentToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemStore()
	q := memory.New()
	bus := localbus.New(nil)
	table := extractors.Table{document.KindText: stubExtractor{}}
	proc := processor.New(store, bus, table, nil, nil, nil)

	doc := &document.Document{ID: "D1", Kind: document.KindText, Stage: document.StagePending, Version: 1}
	require.NoError(t, store.Save(ctx, doc))
	require.NoError(t, q.Enqueue(ctx, "D1", time.Now()))

	cfg := worker.DefaultConfig()
	cfg.MaxConcurrentWorkers = 1
	cfg.StaleJobCheckInterval = time.Hour
	cfg.HeartbeatInterval = time.Hour
	cfg.PollInterval = 10 * time.Millisecond

	pool := worker.New(cfg, q, store, proc, nil, nil)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		d, err := store.Load(ctx, "D1")
		return err == nil && d.Stage == document.StageCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestPoolMarksFailedOnMissingExtractor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemStore()
	q := memory.New()
	bus := localbus.New(nil)
	table := extractors.Table{} // no extractor registered for pdf
	proc := processor.New(store, bus, table, nil, nil, nil)

	doc := &document.Document{ID: "D2", Kind: document.KindPDF, Stage: document.StagePending, Version: 1}
	require.NoError(t, store.Save(ctx, doc))
	require.NoError(t, q.Enqueue(ctx, "D2", time.Now()))

	cfg := worker.DefaultConfig()
	cfg.MaxConcurrentWorkers = 1
	cfg.StaleJobCheckInterval = time.Hour
	cfg.HeartbeatInterval = time.Hour
	cfg.MaxRetries = 0
	cfg.PollInterval = 10 * time.Millisecond

	pool := worker.New(cfg, q, store, proc, nil, nil)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.FailedCount == 1
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return mustLoad(t, store, "D2").Stage == document.StageFailed
	}, time.Second, 10*time.Millisecond)
}

func mustLoad(t *testing.T, store *memStore, id string) *document.Document {
	t.Helper()
	d, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	return d
}
