package gateway

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the tokenizer used for cost/context estimation across
// providers; none of the providers in this gateway expose their own
// tokenizer, so cl100k_base is used as a reasonable universal approximation.
const defaultEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(defaultEncoding)
	})
	return enc, encErr
}

// EstimateTokens approximates the token count of text, falling back to a
// char/4 heuristic if the tokenizer's vocabulary files are unavailable.
func EstimateTokens(text string) int {
	e, err := encoding()
	if err != nil || e == nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}

// EstimateCost scores the USD cost of generating a request of promptTokens
// input and maxOutputTokens output against a provider's cost profile.
func EstimateCost(profile CostProfile, promptTokens, maxOutputTokens int) float64 {
	in := float64(promptTokens) / 1000 * profile.CostPerKInputTokens
	out := float64(maxOutputTokens) / 1000 * profile.CostPerKOutputTokens
	return in + out
}
