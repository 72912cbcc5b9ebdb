// Package filestore is the in-memory/file Document Store adapter (spec §4.1),
// grounded on the teacher's db/bolt.DB helper: an embedded bbolt database with
// JSON-marshalled values per bucket.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/docpipe/docpipe/document"
)

const (
	bucketDocuments = "documents"
	bucketVersions  = "versions"
)

// DB wraps *bolt.DB with the JSON put/get helpers the teacher's db/bolt
// package exposes, kept local to this adapter rather than imported from the
// larger repo so the Document Store has no dependency on unrelated storage
// code.
type DB struct {
	*bolt.DB
}

func openBolt(path string) (*DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt: %v", document.ErrStore, err)
	}
	return &DB{db}, nil
}

func (db *DB) createBucket(name string) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

func (db *DB) putJSON(bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

func (db *DB) getJSON(bucket, key string, value interface{}) (bool, error) {
	var found bool
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	return found, err
}

func (db *DB) delete(bucket, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (db *DB) forEachJSON(bucket string, fn func(key string, data []byte) error) error {
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// Store implements document.Store on top of an embedded bbolt database. All
// mutation goes through a process-local mutex in addition to bbolt's own
// transaction locking so Save+SaveVersion is atomic with respect to readers,
// per spec §4.1's "no torn reads" guarantee.
type Store struct {
	mu sync.Mutex
	db *DB
}

var _ document.Store = (*Store)(nil)

// Open opens (creating if absent) a file-backed Document Store at path.
func Open(path string) (*Store, error) {
	db, err := openBolt(path)
	if err != nil {
		return nil, err
	}
	for _, bucket := range []string{bucketDocuments, bucketVersions} {
		if err := db.createBucket(bucket); err != nil {
			return nil, fmt.Errorf("%w: create bucket %s: %v", document.ErrStore, bucket, err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (s *Store) Close() error { return s.db.Close() }

func versionKey(id string, n int) string { return fmt.Sprintf("%s:%08d", id, n) }

func (s *Store) Save(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		return fmt.Errorf("%w: document id required", document.ErrInvalidInput)
	}

	if err := s.db.putJSON(bucketDocuments, doc.ID, doc); err != nil {
		return fmt.Errorf("%w: save document: %v", document.ErrStore, err)
	}
	if doc.Version == 1 {
		v := document.Version{Number: 1, Document: *doc.Clone(), Timestamp: doc.CreatedAt, UserID: doc.OwnerID, Change: "created"}
		if err := s.db.putJSON(bucketVersions, versionKey(doc.ID, 1), v); err != nil {
			return fmt.Errorf("%w: save initial version: %v", document.ErrStore, err)
		}
	}
	return nil
}

func (s *Store) Load(_ context.Context, id string) (*document.Document, error) {
	var doc document.Document
	found, err := s.db.getJSON(bucketDocuments, id, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: load document: %v", document.ErrStore, err)
	}
	if !found {
		return nil, document.ErrNotFound
	}
	return &doc, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Load(ctx, id)
	if err != nil {
		if err == document.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id string, soft bool, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(id)
	if err != nil {
		return err
	}

	if !soft {
		if err := s.db.delete(bucketDocuments, id); err != nil {
			return fmt.Errorf("%w: delete document: %v", document.ErrStore, err)
		}
		_ = s.forEachVersionKey(id, func(key string) error {
			return s.db.delete(bucketVersions, key)
		})
		return nil
	}

	now := time.Now()
	doc.DeletedAt = &now
	doc.DeletedBy = deletedBy
	doc.Version++
	doc.UpdatedAt = now
	if err := s.db.putJSON(bucketDocuments, id, doc); err != nil {
		return fmt.Errorf("%w: soft delete: %v", document.ErrStore, err)
	}
	v := document.Version{Number: doc.Version, Document: *doc.Clone(), Timestamp: now, UserID: deletedBy, Change: "soft delete"}
	return s.db.putJSON(bucketVersions, versionKey(id, doc.Version), v)
}

func (s *Store) loadLocked(id string) (*document.Document, error) {
	var doc document.Document
	found, err := s.db.getJSON(bucketDocuments, id, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: load document: %v", document.ErrStore, err)
	}
	if !found {
		return nil, document.ErrNotFound
	}
	return &doc, nil
}

func (s *Store) List(_ context.Context, filter document.ListFilter) ([]document.Projection, error) {
	var projections []document.Projection
	err := s.db.forEachJSON(bucketDocuments, func(_ string, data []byte) error {
		var doc document.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		if !filter.IncludeDeleted && doc.Deleted() {
			return nil
		}
		if filter.OwnerID != "" && doc.OwnerID != filter.OwnerID {
			return nil
		}
		if filter.Kind != "" && doc.Kind != filter.Kind {
			return nil
		}
		projections = append(projections, doc.ToProjection())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", document.ErrStore, err)
	}

	sort.Slice(projections, func(i, j int) bool {
		return projections[i].UpdatedAt.After(projections[j].UpdatedAt)
	})

	return paginate(projections, filter.Offset, filter.Limit), nil
}

func paginate(p []document.Projection, offset, limit int) []document.Projection {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(p) {
		return nil
	}
	p = p[offset:]
	if limit > 0 && limit < len(p) {
		p = p[:limit]
	}
	return p
}

func (s *Store) SaveVersion(_ context.Context, v document.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.putJSON(bucketVersions, versionKey(v.Document.ID, v.Number), v); err != nil {
		return fmt.Errorf("%w: save version: %v", document.ErrStore, err)
	}
	return nil
}

func (s *Store) GetVersions(_ context.Context, id string) ([]document.Version, error) {
	var versions []document.Version
	err := s.forEachVersionKey(id, func(key string) error {
		var v document.Version
		_, err := s.db.getJSON(bucketVersions, key, &v)
		if err != nil {
			return err
		}
		versions = append(versions, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", document.ErrStore, err)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

func (s *Store) forEachVersionKey(id string, fn func(key string) error) error {
	prefix := id + ":"
	return s.db.forEachJSON(bucketVersions, func(key string, _ []byte) error {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			return nil
		}
		return fn(key)
	})
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

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}

	reverted := target.Document.Clone()
	reverted.Version = current.Version + 1
	reverted.UpdatedAt = time.Now()

	if err := s.db.putJSON(bucketDocuments, id, reverted); err != nil {
		return nil, fmt.Errorf("%w: revert document: %v", document.ErrStore, err)
	}
	v := document.Version{
		Number:    reverted.Version,
		Document:  *reverted.Clone(),
		Timestamp: reverted.UpdatedAt,
		UserID:    userID,
		Change:    fmt.Sprintf("revert to version %d", n),
	}
	if err := s.db.putJSON(bucketVersions, versionKey(id, reverted.Version), v); err != nil {
		return nil, fmt.Errorf("%w: save revert version: %v", document.ErrStore, err)
	}
	return reverted, nil
}
