package textlike_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/extractors/textlike"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestJSONExtractorSummarizesObjectKeys(t *testing.T) {
	path := writeTemp(t, "a.json", `{"a":1,"b":2,"c":3}`)
	e := textlike.NewJSON()
	res, err := e.Extract(context.Background(), extractors.Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "JSON object with 3 root keys: a, b, c", res.Summary)
}

func TestJSONExtractorRejectsMalformedInput(t *testing.T) {
	path := writeTemp(t, "bad.json", `{not valid`)
	e := textlike.NewJSON()
	_, err := e.Extract(context.Background(), extractors.Source{Path: path})
	assert.ErrorIs(t, err, extractors.ErrMalformed)
}

func TestCSVExtractorCountsRowsAndColumns(t *testing.T) {
	path := writeTemp(t, "x.csv", "a,b,c\n1,2,3\n4,5,6\n")
	e := textlike.NewCSV()
	res, err := e.Extract(context.Background(), extractors.Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "CSV with 3 rows and 3 columns", res.Summary)
}

func TestTextExtractorReplacesInvalidUTF8(t *testing.T) {
	path := writeTemp(t, "t.txt", "hello")
	os.WriteFile(path, append([]byte("hello "), 0xff, 0xfe), 0o644)
	e := textlike.NewText()
	res, err := e.Extract(context.Background(), extractors.Source{Path: path})
	require.NoError(t, err)
	assert.Contains(t, res.RawText, "hello")
}
