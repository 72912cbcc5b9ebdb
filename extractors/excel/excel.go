// Package excel extracts .xls/.xlsx content via xuri/excelize/v2, rendering
// each sheet as a Markdown table and recording a structured row/column view
// per sheet.
package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/docpipe/docpipe/extractors"
)

// Extractor implements extractors.Extractor for document.KindExcel.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

var _ extractors.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	if src.Path == "" {
		return extractors.Result{}, fmt.Errorf("%w: excel extractor requires a file path", extractors.ErrMalformed)
	}

	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: open xlsx: %v", extractors.ErrUnavailable, err)
	}
	defer f.Close()

	var raw strings.Builder
	var formatted strings.Builder
	sheets := map[string][][]string{}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		sheets[name] = rows

		fmt.Fprintf(&formatted, "## %s\n\n", name)
		for i, row := range rows {
			raw.WriteString(strings.Join(row, "\t"))
			raw.WriteString("\n")

			formatted.WriteString("| " + strings.Join(row, " | ") + " |\n")
			if i == 0 {
				sep := make([]string, len(row))
				for j := range sep {
					sep[j] = "---"
				}
				formatted.WriteString("| " + strings.Join(sep, " | ") + " |\n")
			}
		}
		formatted.WriteString("\n")
	}

	if raw.Len() == 0 {
		return extractors.Result{}, fmt.Errorf("%w: workbook has no readable sheets", extractors.ErrMalformed)
	}

	structured := make(map[string]interface{}, len(sheets))
	for name, rows := range sheets {
		structured[name] = rows
	}

	return extractors.Result{
		RawText:           raw.String(),
		FormattedMarkdown: formatted.String(),
		StructuredData:    structured,
	}, nil
}
