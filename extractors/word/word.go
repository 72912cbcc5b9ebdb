// Package word extracts .doc/.docx content via nguyenthenguyen/docx. Per
// spec §4.4's rule for "text, markdown, word": read as UTF-8, then hand off
// to the text→markdown tool that the Processor runs afterwards — this package only
// produces the raw text facet.
package word

import (
	"context"
	"fmt"

	"github.com/nguyenthenguyen/docx"

	"github.com/docpipe/docpipe/extractors"
)

// Extractor implements extractors.Extractor for document.KindWord.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

var _ extractors.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	if src.Path == "" {
		return extractors.Result{}, fmt.Errorf("%w: word extractor requires a file path", extractors.ErrMalformed)
	}

	r, err := docx.ReadDocxFile(src.Path)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: open docx: %v", extractors.ErrUnavailable, err)
	}
	defer r.Close()

	text := r.Editable().GetContent()
	if text == "" {
		return extractors.Result{}, fmt.Errorf("%w: docx produced no text", extractors.ErrMalformed)
	}

	return extractors.Result{
		RawText:           text,
		FormattedMarkdown: text, // refined by the text_to_markdown tool downstream
	}, nil
}
