package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/tools"
)

type erroringProvider struct{ id string }

func (p erroringProvider) Metadata() gateway.Metadata {
	return gateway.Metadata{
		ID: p.id, Enabled: true,
		Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost:         gateway.CostProfile{QualityScore: 0.5, AvgLatencyMS: 10},
	}
}
func (p erroringProvider) Generate(context.Context, string, gateway.GenerateOptions) (string, error) {
	return "", errors.New("boom")
}
func (p erroringProvider) GenerateStreaming(context.Context, string, gateway.GenerateOptions, chan<- string) error {
	return errors.New("boom")
}
func (p erroringProvider) Embed(context.Context, string) ([]float32, error) { return nil, errors.New("boom") }
func (p erroringProvider) Health(context.Context) error                    { return nil }

func erroringGateway() *gateway.Gateway {
	r := gateway.NewRegistry()
	_ = r.Register(erroringProvider{id: "broken"})
	return gateway.New(r, gateway.StrategyBalanced, nil, "", nil)
}

func TestChunkTextBoundsChunkLength(t *testing.T) {
	text := strings.Repeat("a", 90000)
	chunks := tools.ChunkText(text)
	require.Greater(t, len(chunks), 1)
	for i := 0; i < len(chunks)-1; i++ {
		assert.LessOrEqual(t, len(chunks[i]), 40000)
	}
}

func TestChunkTextShortInputIsSingleChunk(t *testing.T) {
	chunks := tools.ChunkText("hello world")
	assert.Equal(t, []string{"hello world"}, chunks)
}

func TestSummarizeFallsBackOnProviderError(t *testing.T) {
	s := tools.NewSummarize()
	out, err := s.Run(context.Background(), erroringGateway(), map[string]interface{}{
		"text": "First line.\nSecond line.\nThird line.\nFourth line.",
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["degraded"])
	assert.NotEmpty(t, out["summary"])
}

func TestSummarizeValidatesRequiredField(t *testing.T) {
	s := tools.NewSummarize()
	_, err := s.Run(context.Background(), erroringGateway(), map[string]interface{}{})
	assert.ErrorIs(t, err, tools.ErrInvalidInput)
}

func TestDetectLanguageFallsBackToHeuristic(t *testing.T) {
	l := tools.NewDetectLanguage()
	out, err := l.Run(context.Background(), erroringGateway(), map[string]interface{}{
		"text": "the and is in to of a that it for the the the",
	})
	require.NoError(t, err)
	assert.Equal(t, "en", out["language"])
	assert.Equal(t, true, out["degraded"])
}

func TestExtractEntitiesMergesAcrossChunks(t *testing.T) {
	e := tools.NewExtractEntities()
	out, err := e.Run(context.Background(), erroringGateway(), map[string]interface{}{
		"text": strings.Repeat("Acme Corp builds widgets. ", 3000),
	})
	require.NoError(t, err)
	entities, ok := out["entities"].([]map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, entities) // provider errors on every chunk; degrades to none, not a failure
}

func TestTranslateDegradesToSourceOnError(t *testing.T) {
	tr := tools.NewTranslate()
	out, err := tr.Run(context.Background(), erroringGateway(), map[string]interface{}{
		"text": "hello", "target_language": "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out["translated_text"])
}

func TestTextToMarkdownFallsBackToRawText(t *testing.T) {
	m := tools.NewTextToMarkdown()
	out, err := m.Run(context.Background(), erroringGateway(), map[string]interface{}{"text": "plain text"})
	require.NoError(t, err)
	assert.Equal(t, "plain text", out["markdown"])
	assert.Equal(t, true, out["degraded"])
}

func TestRegistryLooksUpByName(t *testing.T) {
	r := tools.NewRegistry(tools.NewSummarize(), tools.NewDetectLanguage())
	_, ok := r.Get("summarization")
	assert.True(t, ok)
	_, ok = r.Get("nonexistent")
	assert.False(t, ok)
}
