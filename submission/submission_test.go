package submission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/events/localbus"
	"github.com/docpipe/docpipe/queue/memory"
	"github.com/docpipe/docpipe/submission"
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

func TestSubmitInlineJSONSkipsQueue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	q := memory.New()
	bus := localbus.New(nil)
	svc := submission.New(store, q, bus)

	res, err := svc.Submit(ctx, submission.Request{
		Name:    "a.json",
		Method:  submission.MethodInline,
		Content: `{"a":1,"b":2,"c":3}`,
		OwnerID: "u1",
	})
	require.NoError(t, err)
	assert.False(t, res.Queued)

	doc, err := store.Load(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StageCompleted, doc.Stage)
	assert.Equal(t, "JSON object with 3 root keys: a, b, c", doc.Summary)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingCount)
}

func TestSubmitTextEnqueuesAndStaysPending(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	q := memory.New()
	bus := localbus.New(nil)
	svc := submission.New(store, q, bus)

	res, err := svc.Submit(ctx, submission.Request{
		Name:    "note.txt",
		Method:  submission.MethodUpload,
		Content: "Hello world.\nSecond line.",
		OwnerID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, res.Queued)

	doc, err := store.Load(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StagePending, doc.Stage)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
}

func TestSubmitUnknownExtensionFails(t *testing.T) {
	ctx := context.Background()
	svc := submission.New(newMemStore(), memory.New(), localbus.New(nil))
	_, err := svc.Submit(ctx, submission.Request{Name: "file.unknown", Method: submission.MethodUpload})
	assert.ErrorIs(t, err, submission.ErrUnsupportedExtension)
}
