package tools

import (
	"context"

	"github.com/docpipe/docpipe/gateway"
)

// Embedding wraps the Model Gateway's Embed call as a Tool, so callers that
// iterate a tool registry (rather than the gateway directly) can reach it
// uniformly.
type Embedding struct{}

func NewEmbedding() *Embedding { return &Embedding{} }

func (t *Embedding) Name() string { return "embedding" }

func (t *Embedding) InputSchema() InputSchema {
	return InputSchema{"text": {Type: "string", Required: true}}
}

func (t *Embedding) MaxInputLength() int     { return 0 }
func (t *Embedding) SupportsStreaming() bool { return false }

func (t *Embedding) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")
	vec, providerID, err := gw.Embed(ctx, text, gateway.TaskRequirements{TaskType: t.Name()})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"embedding": vec, "provider": providerID}, nil
}
