package document

import "context"

// ListFilter expresses the conjunctive predicate of spec §4.1's list
// operation: unspecified fields match all documents.
type ListFilter struct {
	OwnerID        string // "" matches all owners
	Kind           Kind   // "" matches all kinds
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// Store is the contract every Document Store adapter must satisfy (spec §4.1).
// Two adapters are specified: document/filestore (bbolt-backed) and
// document/redisstore (Redis-backed, with TTL refresh on read).
type Store interface {
	// Save writes the document and its metadata projection atomically. If
	// doc.Version == 1 it also writes the version-1 snapshot.
	Save(ctx context.Context, doc *Document) error

	// Load returns the document or ErrNotFound.
	Load(ctx context.Context, id string) (*Document, error)

	// Delete soft-deletes (sets deleted flag/by/at and bumps version) or, if
	// soft is false, purges the document, its projection, and all versions.
	Delete(ctx context.Context, id string, soft bool, deletedBy string) error

	// Exists reports whether id currently resolves to a document.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns projections ordered by UpdatedAt descending, matching filter.
	List(ctx context.Context, filter ListFilter) ([]Projection, error)

	// SaveVersion appends an immutable version snapshot.
	SaveVersion(ctx context.Context, v Version) error

	// GetVersions returns all versions of id, ordered by Number ascending.
	GetVersions(ctx context.Context, id string) ([]Version, error)

	// RevertTo loads version n and writes it back as a new version
	// (current+1), recording a change note that it was a revert.
	RevertTo(ctx context.Context, id string, n int, userID string) (*Document, error)
}
