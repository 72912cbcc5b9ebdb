// Package extractors implements the format-specific content extraction
// dispatch table of spec §4.4: a document.Kind maps to exactly one Extractor,
// replacing the duck-typed "has this attribute?" dispatch the Design Notes
// flag as needing re-architecture into an explicit tagged-variant Kind and
// dispatch table.
package extractors

import (
	"context"
	"fmt"

	"github.com/docpipe/docpipe/document"
)

// Result is what every extractor produces regardless of kind (spec §4.4).
type Result struct {
	RawText           string
	FormattedMarkdown string
	StructuredData    map[string]interface{}
	Summary           string
}

// Source is what every extractor consumes: a local file path for
// upload-derived kinds, or a URL for webpage/media kinds.
type Source struct {
	Path string
	URL  string
	Kind document.Kind
}

// Extractor extracts structured content from one document.Kind's source.
// Implementations must be idempotent and must not mutate shared state
// (spec §4.4).
type Extractor interface {
	Extract(ctx context.Context, src Source) (Result, error)
}

// ErrUnavailable means no extractor library is installed/configured for a
// kind; the job is not retryable (spec §7's ExtractorUnavailable).
var ErrUnavailable = fmt.Errorf("extractors: unavailable for this kind")

// ErrMalformed means the input could not be parsed as the declared kind;
// retryable once before dead-lettering (spec §7's ExtractorError).
var ErrMalformed = fmt.Errorf("extractors: malformed input")

// Table is the dispatch table from document.Kind to Extractor.
type Table map[document.Kind]Extractor

// For returns the extractor registered for kind, or ErrUnavailable.
func (t Table) For(kind document.Kind) (Extractor, error) {
	e, ok := t[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrUnavailable, kind)
	}
	return e, nil
}
