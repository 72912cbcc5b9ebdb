// Package pdf extracts PDF content (spec §4.4): "prefer a layout-preserving
// parser... fallback flat text; if neither available, fail with
// ExtractorUnavailable." ledongthuc/pdf gives per-page plain text, which this
// package promotes to per-page H2 headings so the output still carries page
// structure even without table-layout reconstruction.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/docpipe/docpipe/extractors"
)

// Extractor implements extractors.Extractor for document.KindPDF.
type Extractor struct{}

// New builds the PDF extractor.
func New() *Extractor { return &Extractor{} }

var _ extractors.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	if src.Path == "" {
		return extractors.Result{}, fmt.Errorf("%w: pdf extractor requires a file path", extractors.ErrMalformed)
	}

	f, r, err := pdf.Open(src.Path)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: open pdf: %v", extractors.ErrUnavailable, err)
	}
	defer f.Close()

	var raw bytes.Buffer
	var formatted bytes.Buffer
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // a single damaged page degrades output, not a hard failure
		}
		raw.WriteString(text)
		raw.WriteString("\n")

		fmt.Fprintf(&formatted, "## Page %d\n\n%s\n\n", i, text)
	}

	if raw.Len() == 0 {
		return extractors.Result{}, fmt.Errorf("%w: pdf produced no extractable text", extractors.ErrMalformed)
	}

	return extractors.Result{
		RawText:           raw.String(),
		FormattedMarkdown: formatted.String(),
		StructuredData:    map[string]interface{}{"page_count": pages},
	}, nil
}
