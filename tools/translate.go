package tools

import (
	"context"
	"strings"

	"github.com/docpipe/docpipe/gateway"
)

// Translate chunks long input the same way ExtractEntities does, translates
// each chunk independently, and concatenates the results in order separated
// by a single space (spec §4.3).
type Translate struct{}

func NewTranslate() *Translate { return &Translate{} }

func (t *Translate) Name() string { return "translation" }

func (t *Translate) InputSchema() InputSchema {
	return InputSchema{
		"text":            {Type: "string", Required: true},
		"target_language": {Type: "string", Required: true},
	}
}

func (t *Translate) MaxInputLength() int     { return 0 }
func (t *Translate) SupportsStreaming() bool { return false }

func (t *Translate) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")
	target := stringField(input, "target_language")

	parts := make([]string, 0, 4)
	for _, chunk := range ChunkText(text) {
		prompt := "Translate the following text to " + target + ":\n\n" + chunk
		out, err := withTimeout(ctx, DefaultToolTimeout, func(ctx context.Context) (string, error) {
			s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
				RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
				TaskType:             t.Name(),
			}, gateway.GenerateOptions{MaxOutputTokens: gateway.EstimateTokens(chunk) + 64})
			return s, err
		})
		if err != nil {
			parts = append(parts, chunk) // degrade to untranslated source for this chunk
			continue
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return map[string]interface{}{"translated_text": strings.Join(parts, " ")}, nil
}
