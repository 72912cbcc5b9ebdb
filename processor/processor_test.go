package processor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/events/localbus"
	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/gateway/providers"
	"github.com/docpipe/docpipe/processor"
	"github.com/docpipe/docpipe/tools"
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
	return extractors.Result{RawText: "Hello world. Second line.", FormattedMarkdown: "Hello world.\n\nSecond line.\n"}, nil
}

func TestProcessMarksDocumentCompletedAndPublishesUpdated(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	bus := localbus.New(nil)
	table := extractors.Table{document.KindText: stubExtractor{}}

	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(providers.NewHeuristic("h1")))
	gw := gateway.New(reg, gateway.StrategyBalanced, nil, "", nil)
	toolRegistry := tools.NewRegistry(tools.NewSummarize(), tools.NewDetectLanguage())

	p := processor.New(store, bus, table, gw, toolRegistry, nil)

	_, updatedCh, err := bus.Subscribe(ctx, events.Filter{DocumentID: "D1"})
	require.NoError(t, err)

	doc := &document.Document{ID: "D1", Kind: document.KindText, Stage: document.StagePending, Version: 1}
	require.NoError(t, store.Save(ctx, doc))

	err = p.Process(ctx, doc, extractors.Source{Path: "note.txt", Kind: document.KindText})
	require.NoError(t, err)

	saved, err := store.Load(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, document.StageCompleted, saved.Stage)
	assert.NotEmpty(t, saved.Summary)
	assert.Contains(t, saved.FormattedContent, "Hello world.")

	var sawTerminal bool
	for i := 0; i < 10; i++ {
		select {
		case evt := <-updatedCh:
			if evt.Type == events.TopicDocumentUpdated {
				sawTerminal = true
			}
		default:
			i = 10
		}
	}
	assert.True(t, sawTerminal)
}

func TestProcessFailsWhenExtractorUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	bus := localbus.New(nil)
	table := extractors.Table{} // nothing registered

	p := processor.New(store, bus, table, nil, nil, nil)
	doc := &document.Document{ID: "D2", Kind: document.KindPDF, Version: 1}
	require.NoError(t, store.Save(ctx, doc))

	err := p.Process(ctx, doc, extractors.Source{Path: "x.pdf", Kind: document.KindPDF})
	assert.ErrorIs(t, err, extractors.ErrUnavailable)
}
