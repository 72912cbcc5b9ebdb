// Package providers contains example gateway.Provider implementations. Real
// deployments register vendor SDK-backed providers at the composition root;
// Heuristic is the local, dependency-free provider used for tests, offline
// development, and as the always-available fallback at the end of a
// Gateway's selection chain.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/docpipe/docpipe/gateway"
)

// Heuristic is a Provider with no external calls: it produces deterministic,
// rule-based output. It never fails Health and reports zero cost and a 5 ms
// latency, so the cost and latency strategies rank it above any priced or
// slower provider; its low quality score lets the quality strategy, and
// often the balanced one, prefer a richer provider.
type Heuristic struct {
	id      string
	quality float64
}

// NewHeuristic creates a Heuristic provider registered under id.
func NewHeuristic(id string) *Heuristic {
	if id == "" {
		id = "heuristic"
	}
	return &Heuristic{id: id, quality: 0.3}
}

var _ gateway.Provider = (*Heuristic)(nil)

func (h *Heuristic) Metadata() gateway.Metadata {
	return gateway.Metadata{
		ID:      h.id,
		ModelID: "heuristic-v1",
		Capabilities: []gateway.Capability{
			gateway.CapabilityTextGeneration,
			gateway.CapabilityStreaming,
			gateway.CapabilityEmbeddings,
		},
		Cost: gateway.CostProfile{
			CostPerKInputTokens:  0,
			CostPerKOutputTokens: 0,
			AvgLatencyMS:         5,
			QualityScore:         h.quality,
			MaxContextTokens:     8192,
		},
		Enabled: true,
	}
}

func (h *Heuristic) Generate(_ context.Context, prompt string, opts gateway.GenerateOptions) (string, error) {
	sentences := strings.Split(prompt, ".")
	limit := 2
	if len(sentences) < limit {
		limit = len(sentences)
	}
	summary := strings.TrimSpace(strings.Join(sentences[:limit], "."))
	if summary == "" {
		summary = strings.TrimSpace(prompt)
	}
	if opts.MaxOutputTokens > 0 && gateway.EstimateTokens(summary) > opts.MaxOutputTokens {
		words := strings.Fields(summary)
		if opts.MaxOutputTokens < len(words) {
			words = words[:opts.MaxOutputTokens]
		}
		summary = strings.Join(words, " ")
	}
	return summary, nil
}

func (h *Heuristic) GenerateStreaming(ctx context.Context, prompt string, opts gateway.GenerateOptions, chunks chan<- string) error {
	out, err := h.Generate(ctx, prompt, opts)
	if err != nil {
		return err
	}
	for _, word := range strings.Fields(out) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- word + " ":
		}
	}
	return nil
}

func (h *Heuristic) Embed(_ context.Context, text string) ([]float32, error) {
	const dims = 32
	vec := make([]float32, dims)
	for i, r := range text {
		vec[i%dims] += float32(r%97) / 97
	}
	return vec, nil
}

func (h *Heuristic) Health(_ context.Context) error { return nil }

// ErrUnavailable is returned by providers that wrap a remote API when that
// API cannot be reached.
var ErrUnavailable = fmt.Errorf("gateway/providers: provider unavailable")
