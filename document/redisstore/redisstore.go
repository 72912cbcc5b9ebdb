// Package redisstore is the Redis-backed Document Store adapter (spec §4.1).
// Grounded on the teacher's db/repository/redis.go (cache/lock/pubsub/counter
// repository) for the go-redis client usage pattern, generalized from a
// generic cache to a versioned document store with read-refreshed TTLs so
// active documents are never evicted out from under a running pipeline.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docpipe/docpipe/document"
)

const (
	defaultTTL = 24 * time.Hour
)

func docKey(id string) string            { return "docpipe:doc:" + id }
func versionKey(id string, n int) string { return fmt.Sprintf("docpipe:doc:%s:version:%d", id, n) }
func versionIndexKey(id string) string   { return "docpipe:doc:" + id + ":versions" }

const indexKey = "docpipe:doc:index"

// Store implements document.Store against Redis.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ document.Store = (*Store)(nil)

// New wraps an existing redis client. ttl is the expiry for document and
// version keys; Load refreshes it on the document key only. Pass 0 for the
// default of 24h.
func New(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, doc *document.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id required", document.ErrInvalidInput)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", document.ErrStore, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, docKey(doc.ID), data, s.ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(doc.UpdatedAt.Unix()), Member: doc.ID})

	if doc.Version == 1 {
		v := document.Version{Number: 1, Document: *doc.Clone(), Timestamp: doc.CreatedAt, UserID: doc.OwnerID, Change: "created"}
		vdata, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: marshal version: %v", document.ErrStore, err)
		}
		pipe.Set(ctx, versionKey(doc.ID, 1), vdata, s.ttl)
		pipe.ZAdd(ctx, versionIndexKey(doc.ID), redis.Z{Score: 1, Member: "1"})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: save document: %v", document.ErrStore, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*document.Document, error) {
	data, err := s.client.Get(ctx, docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load document: %v", document.ErrStore, err)
	}

	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: unmarshal document: %v", document.ErrStore, err)
	}

	// TTL refresh on read: an actively-viewed or actively-processed document
	// must not be evicted out from under the pipeline (spec §4.1).
	s.client.Expire(ctx, docKey(id), s.ttl)

	return &doc, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, docKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists check: %v", document.ErrStore, err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, id string, soft bool, deletedBy string) error {
	if !soft {
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, docKey(id))
		pipe.ZRem(ctx, indexKey, id)
		versionNumbers, err := s.client.ZRange(ctx, versionIndexKey(id), 0, -1).Result()
		if err == nil {
			for _, n := range versionNumbers {
				pipe.Del(ctx, "docpipe:doc:"+id+":version:"+n)
			}
		}
		pipe.Del(ctx, versionIndexKey(id))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: hard delete: %v", document.ErrStore, err)
		}
		return nil
	}

	doc, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	doc.DeletedAt = &now
	doc.DeletedBy = deletedBy
	doc.Version++
	doc.UpdatedAt = now
	if err := s.Save(ctx, doc); err != nil {
		return err
	}
	v := document.Version{Number: doc.Version, Document: *doc.Clone(), Timestamp: now, UserID: deletedBy, Change: "soft delete"}
	return s.SaveVersion(ctx, v)
}

func (s *Store) List(ctx context.Context, filter document.ListFilter) ([]document.Projection, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list index: %v", document.ErrStore, err)
	}

	var projections []document.Projection
	for _, id := range ids {
		doc, err := s.Load(ctx, id)
		if err == document.ErrNotFound {
			// index entry outlived the document's TTL; prune lazily.
			s.client.ZRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !filter.IncludeDeleted && doc.Deleted() {
			continue
		}
		if filter.OwnerID != "" && doc.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		projections = append(projections, doc.ToProjection())
	}

	sort.SliceStable(projections, func(i, j int) bool {
		return projections[i].UpdatedAt.After(projections[j].UpdatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(projections) {
			return nil, nil
		}
		projections = projections[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(projections) {
		projections = projections[:filter.Limit]
	}
	return projections, nil
}

func (s *Store) SaveVersion(ctx context.Context, v document.Version) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal version: %v", document.ErrStore, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, versionKey(v.Document.ID, v.Number), data, s.ttl)
	pipe.ZAdd(ctx, versionIndexKey(v.Document.ID), redis.Z{Score: float64(v.Number), Member: fmt.Sprintf("%d", v.Number)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: save version: %v", document.ErrStore, err)
	}
	return nil
}

func (s *Store) GetVersions(ctx context.Context, id string) ([]document.Version, error) {
	numbers, err := s.client.ZRange(ctx, versionIndexKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", document.ErrStore, err)
	}

	versions := make([]document.Version, 0, len(numbers))
	for _, n := range numbers {
		data, err := s.client.Get(ctx, "docpipe:doc:"+id+":version:"+n).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: load version: %v", document.ErrStore, err)
		}
		var v document.Version
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: unmarshal version: %v", document.ErrStore, err)
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

func (s *Store) RevertTo(ctx context.Context, id string, n int, userID string) (*document.Document, error) {
	versions, err := s.GetVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	var target *document.Version
	for i := range versions {
		if versions[i].Number == n {
			target = &versions[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: version %d not found for %s", document.ErrNotFound, n, id)
	}

	current, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	reverted := target.Document.Clone()
	reverted.Version = current.Version + 1
	reverted.UpdatedAt = time.Now()

	if err := s.Save(ctx, reverted); err != nil {
		return nil, err
	}
	v := document.Version{
		Number:    reverted.Version,
		Document:  *reverted.Clone(),
		Timestamp: reverted.UpdatedAt,
		UserID:    userID,
		Change:    fmt.Sprintf("revert to version %d", n),
	}
	if err := s.SaveVersion(ctx, v); err != nil {
		return nil, err
	}
	return reverted, nil
}
