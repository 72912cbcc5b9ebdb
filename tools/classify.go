package tools

import (
	"context"
	"strings"

	"github.com/docpipe/docpipe/gateway"
)

// Classify assigns text to one of a caller-supplied set of labels.
type Classify struct{}

func NewClassify() *Classify { return &Classify{} }

func (t *Classify) Name() string { return "classification" }

func (t *Classify) InputSchema() InputSchema {
	return InputSchema{
		"text":   {Type: "string", Required: true},
		"labels": {Type: "string", Required: true}, // comma-separated
	}
}

func (t *Classify) MaxInputLength() int     { return 4000 }
func (t *Classify) SupportsStreaming() bool { return false }

func (t *Classify) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")
	if len(text) > t.MaxInputLength() {
		text = text[:t.MaxInputLength()]
	}
	labels := stringField(input, "labels")

	prompt := "Classify this text into exactly one of [" + labels + "]. Reply with only the label:\n\n" + text
	out, err := withTimeout(ctx, DefaultToolTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: 16})
		return s, err
	})
	if err != nil {
		// degrade to the first declared label rather than failing the tool.
		first := strings.TrimSpace(strings.Split(labels, ",")[0])
		return map[string]interface{}{"label": first, "degraded": true}, nil
	}
	return map[string]interface{}{"label": strings.TrimSpace(out), "degraded": false}, nil
}
