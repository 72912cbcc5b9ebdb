// Package search resolves spec §9 Open Question 3 ("the exact semantics of
// search_documents... a real implementation should clarify whether it is a
// placeholder for a future indexing subsystem"): this is that indexing
// subsystem, a bleve full-text index rather than a naive substring scan.
// Callers keep it current through Index and Remove; the Document Store
// adapters do not call it.
package search

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/docpipe/docpipe/document"
)

// indexedDocument is the flattened shape bleve indexes: only the fields a
// search query should match, never the full binary/structured payload.
type indexedDocument struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Kind    string `json:"kind"`
	Raw     string `json:"raw"`
	Summary string `json:"summary"`
}

// Index wraps an in-memory bleve index over document content.
type Index struct {
	mu  sync.Mutex
	idx bleve.Index
}

// OpenMemory creates a new in-memory bleve index using the default mapping,
// suitable for a single-process deployment or tests.
func OpenMemory() (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Index adds or replaces the indexed form of doc.
func (i *Index) Index(doc *document.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Index(doc.ID, indexedDocument{
		ID:      doc.ID,
		OwnerID: doc.OwnerID,
		Kind:    string(doc.Kind),
		Raw:     doc.RawContent,
		Summary: doc.Summary,
	})
}

// Remove deletes id from the index.
func (i *Index) Remove(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Delete(id)
}

// Result is one ranked hit.
type Result struct {
	DocumentID string
	Score      float64
}

// Search runs a free-text query, optionally scoped to an owner, and returns
// ids ranked by relevance.
func (i *Index) Search(text, ownerID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	var q query.Query
	mq := bleve.NewMatchQuery(text)
	if ownerID != "" {
		owner := bleve.NewTermQuery(ownerID)
		owner.SetField("owner_id")
		q = bleve.NewConjunctionQuery(mq, owner)
	} else {
		q = mq
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit

	i.mu.Lock()
	res, err := i.idx.Search(req)
	i.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{DocumentID: hit.ID, Score: hit.Score})
	}
	return results, nil
}
