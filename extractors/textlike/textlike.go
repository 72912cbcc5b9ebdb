// Package textlike implements the direct-content and near-direct-content
// kinds of spec §4.4: text, markdown, json, xml, csv. Each is cheap enough
// to run without any Model Gateway or chunking involvement; the
// text→markdown enrichment tool is applied by the Processor afterward for
// text/markdown/word, not by this package.
package textlike

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/docpipe/docpipe/extractors"
)

// toUTF8 replaces invalid byte sequences with the Unicode replacement
// character (spec §4.4: "Read UTF-8 (replace invalid bytes)").
func toUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: textlike extractor requires a file path", extractors.ErrMalformed)
	}
	return os.ReadFile(path)
}

// Text handles document.KindText.
type Text struct{}

func NewText() *Text { return &Text{} }

var _ extractors.Extractor = (*Text)(nil)

func (e *Text) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	b, err := readFile(src.Path)
	if err != nil {
		return extractors.Result{}, err
	}
	text := toUTF8(b)
	return extractors.Result{RawText: text, FormattedMarkdown: text}, nil
}

// Markdown handles document.KindMarkdown: already canonical, passed through.
type Markdown struct{}

func NewMarkdown() *Markdown { return &Markdown{} }

var _ extractors.Extractor = (*Markdown)(nil)

func (e *Markdown) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	b, err := readFile(src.Path)
	if err != nil {
		return extractors.Result{}, err
	}
	text := toUTF8(b)
	return extractors.Result{RawText: text, FormattedMarkdown: text}, nil
}

// JSON handles document.KindJSON (spec §4.4: "pretty-print as fenced code
// block; compute summary").
type JSON struct{}

func NewJSON() *JSON { return &JSON{} }

var _ extractors.Extractor = (*JSON)(nil)

func (e *JSON) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	b, err := readFile(src.Path)
	if err != nil {
		return extractors.Result{}, err
	}

	var parsed interface{}
	if err := json.Unmarshal(b, &parsed); err != nil {
		return extractors.Result{}, fmt.Errorf("%w: invalid json: %v", extractors.ErrMalformed, err)
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: re-marshal json: %v", extractors.ErrMalformed, err)
	}

	summary := ""
	switch v := parsed.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		summary = fmt.Sprintf("JSON object with %d root keys: %s", len(keys), strings.Join(keys, ", "))
	case []interface{}:
		summary = fmt.Sprintf("JSON array with %d items", len(v))
	}

	return extractors.Result{
		RawText:           string(pretty),
		FormattedMarkdown: "```json\n" + string(pretty) + "\n```",
		StructuredData:    map[string]interface{}{"parsed": parsed},
		Summary:           summary,
	}, nil
}

// XML handles document.KindXML (spec §4.4: "wrap in fenced code block").
type XML struct{}

func NewXML() *XML { return &XML{} }

var _ extractors.Extractor = (*XML)(nil)

func (e *XML) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	b, err := readFile(src.Path)
	if err != nil {
		return extractors.Result{}, err
	}
	text := toUTF8(b)
	return extractors.Result{
		RawText:           text,
		FormattedMarkdown: "```xml\n" + text + "\n```",
	}, nil
}

// CSV handles document.KindCSV (spec §4.4: "wrap in fenced code block;
// summary = CSV with R rows and C columns").
type CSV struct{}

func NewCSV() *CSV { return &CSV{} }

var _ extractors.Extractor = (*CSV)(nil)

func (e *CSV) Extract(_ context.Context, src extractors.Source) (extractors.Result, error) {
	b, err := readFile(src.Path)
	if err != nil {
		return extractors.Result{}, err
	}
	text := toUTF8(b)

	rows, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: invalid csv: %v", extractors.ErrMalformed, err)
	}
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}

	return extractors.Result{
		RawText:           text,
		FormattedMarkdown: "```csv\n" + text + "\n```",
		StructuredData:    map[string]interface{}{"rows": rows},
		Summary:           fmt.Sprintf("CSV with %d rows and %d columns", len(rows), cols),
	}, nil
}
