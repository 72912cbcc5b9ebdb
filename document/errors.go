package document

import "errors"

// Sentinel errors for the Document Store contract (spec §4.1, §7). Adapters
// wrap these with fmt.Errorf("...: %w", ErrX) rather than defining their own
// error values, so callers can errors.Is regardless of backend.
var (
	// ErrStore is the taxonomy's StoreError: backend unreachable/corrupt.
	ErrStore = errors.New("document store error")

	// ErrNotFound indicates the requested document does not exist (or was
	// hard-deleted).
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict indicates a concurrent mutation raced save/update.
	ErrVersionConflict = errors.New("document version conflict")

	// ErrInvalidInput indicates a caller-supplied value failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
