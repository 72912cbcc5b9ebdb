package tools

import (
	"context"
	"strings"
	"time"

	"github.com/docpipe/docpipe/gateway"
)

// DefaultToolTimeout is the model-call budget for tools with no
// tool-specific timeout named in spec §4.3.
const DefaultToolTimeout = 30 * time.Second

// Entity is one extracted named entity.
type Entity struct {
	Text       string
	Type       string
	Confidence float64
}

// ExtractEntities chunks long input into overlapping windows, extracts
// entities per chunk, and merges by deduplicating on (text.lower, type),
// keeping the highest confidence seen (spec §4.3).
type ExtractEntities struct{}

func NewExtractEntities() *ExtractEntities { return &ExtractEntities{} }

func (t *ExtractEntities) Name() string { return "entity_extraction" }

func (t *ExtractEntities) InputSchema() InputSchema {
	return InputSchema{"text": {Type: "string", Required: true}}
}

func (t *ExtractEntities) MaxInputLength() int     { return 0 } // unbounded; chunked instead
func (t *ExtractEntities) SupportsStreaming() bool { return false }

func (t *ExtractEntities) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")

	merged := make(map[string]Entity)
	for _, chunk := range ChunkText(text) {
		entities, err := t.extractChunk(ctx, gw, chunk)
		if err != nil {
			continue // per-chunk failure degrades to fewer entities, not a tool failure
		}
		for _, e := range entities {
			key := strings.ToLower(e.Text) + "\x00" + e.Type
			if existing, ok := merged[key]; !ok || e.Confidence > existing.Confidence {
				merged[key] = e
			}
		}
	}

	out := make([]map[string]interface{}, 0, len(merged))
	for _, e := range merged {
		out = append(out, map[string]interface{}{"text": e.Text, "type": e.Type, "confidence": e.Confidence})
	}
	return map[string]interface{}{"entities": out}, nil
}

func (t *ExtractEntities) extractChunk(ctx context.Context, gw *gateway.Gateway, chunk string) ([]Entity, error) {
	prompt := "List named entities (people, organizations, locations) in this text as \"text | type\" lines:\n\n" + chunk
	out, err := withTimeout(ctx, DefaultToolTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: 512})
		return s, err
	})
	if err != nil {
		return nil, err
	}

	var entities []Entity
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		entities = append(entities, Entity{
			Text:       strings.TrimSpace(parts[0]),
			Type:       strings.ToLower(strings.TrimSpace(parts[1])),
			Confidence: 0.7,
		})
	}
	return entities, nil
}
