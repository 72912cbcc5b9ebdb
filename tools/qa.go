package tools

import (
	"context"

	"github.com/docpipe/docpipe/gateway"
)

// QuestionAnswering answers a question grounded in a supplied context
// passage.
type QuestionAnswering struct{}

func NewQuestionAnswering() *QuestionAnswering { return &QuestionAnswering{} }

func (t *QuestionAnswering) Name() string { return "question_answering" }

func (t *QuestionAnswering) InputSchema() InputSchema {
	return InputSchema{
		"context":  {Type: "string", Required: true},
		"question": {Type: "string", Required: true},
	}
}

func (t *QuestionAnswering) MaxInputLength() int     { return 0 }
func (t *QuestionAnswering) SupportsStreaming() bool { return true }

func (t *QuestionAnswering) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	passage := stringField(input, "context")
	question := stringField(input, "question")

	prompt := "Answer the question using only this context. If the answer is not present, say so.\n\nContext:\n" +
		passage + "\n\nQuestion: " + question
	out, err := withTimeout(ctx, DefaultToolTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: 256})
		return s, err
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"answer": out}, nil
}
