package tools

import (
	"context"
	"strconv"
	"time"

	"github.com/docpipe/docpipe/gateway"
)

// SummarizeTimeout is the model-call budget for summarization (spec §4.3).
const SummarizeTimeout = 20 * time.Second

// Summarize produces concise prose from raw text. On timeout or provider
// error it falls back to the first three non-empty lines, truncated to 100
// chars each (spec §4.3's degradation rule).
type Summarize struct{}

// NewSummarize builds the summarization tool.
func NewSummarize() *Summarize {
	return &Summarize{}
}

func (t *Summarize) Name() string { return "summarization" }

func (t *Summarize) InputSchema() InputSchema {
	return InputSchema{
		"text":       {Type: "string", Required: true},
		"style":      {Type: "string", Required: false},
		"max_length": {Type: "int", Required: false},
	}
}

func (t *Summarize) MaxInputLength() int  { return 3000 }
func (t *Summarize) SupportsStreaming() bool { return false }

func (t *Summarize) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")
	if len(text) > t.MaxInputLength() {
		text = text[:t.MaxInputLength()]
	}
	style := stringField(input, "style")
	if style == "" {
		style = "concise"
	}
	maxWords := intField(input, "max_length", 100)

	prompt := "Summarize the following text in a " + style + " style, at most " +
		strconv.Itoa(maxWords) + " words:\n\n" + text

	out, err := withTimeout(ctx, SummarizeTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: maxWords * 2})
		return s, err
	})
	if err != nil {
		return map[string]interface{}{
			"summary":  firstNonEmptyLines(text, 3, 100),
			"degraded": true,
		}, nil
	}
	return map[string]interface{}{"summary": out, "degraded": false}, nil
}
