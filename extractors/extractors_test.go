package extractors_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/extractors"
)

type stubExtractor struct{ result extractors.Result }

func (s stubExtractor) Extract(context.Context, extractors.Source) (extractors.Result, error) {
	return s.result, nil
}

func TestTableForReturnsUnavailableForUnregisteredKind(t *testing.T) {
	table := extractors.Table{
		document.KindText: stubExtractor{},
	}
	_, err := table.For(document.KindPDF)
	assert.ErrorIs(t, err, extractors.ErrUnavailable)
}

func TestTableForReturnsRegisteredExtractor(t *testing.T) {
	want := extractors.Result{RawText: "hi"}
	table := extractors.Table{document.KindText: stubExtractor{result: want}}

	e, err := table.For(document.KindText)
	assert.NoError(t, err)
	got, err := e.Extract(context.Background(), extractors.Source{})
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}
