package tools

import (
	"context"
	"time"

	"github.com/docpipe/docpipe/gateway"
)

// MarkdownTimeout is the model-call budget for text→markdown (spec §4.3).
const MarkdownTimeout = 30 * time.Second

// TextToMarkdown reformats raw text into canonical Markdown. On timeout or
// error it falls back to the raw input unchanged (spec §4.3, §4.4).
type TextToMarkdown struct{}

func NewTextToMarkdown() *TextToMarkdown { return &TextToMarkdown{} }

func (t *TextToMarkdown) Name() string { return "text_to_markdown" }

func (t *TextToMarkdown) InputSchema() InputSchema {
	return InputSchema{"text": {Type: "string", Required: true}}
}

func (t *TextToMarkdown) MaxInputLength() int     { return 0 }
func (t *TextToMarkdown) SupportsStreaming() bool { return true }

func (t *TextToMarkdown) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")

	prompt := "Reformat this text as clean Markdown, preserving headings, lists and paragraphs:\n\n" + text
	out, err := withTimeout(ctx, MarkdownTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: gateway.EstimateTokens(text) + 256})
		return s, err
	})
	if err != nil {
		return map[string]interface{}{"markdown": text, "degraded": true}, nil
	}
	return map[string]interface{}{"markdown": out, "degraded": false}, nil
}
