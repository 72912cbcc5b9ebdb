package tools

import (
	"context"
	"strings"
	"time"

	"github.com/docpipe/docpipe/gateway"
)

// LanguageTimeout is the model-call budget for language detection (spec §4.3).
const LanguageTimeout = 10 * time.Second

// languageProfiles is the closed set of stopword sets the fallback heuristic
// scores against when the gateway is unavailable or times out.
var languageProfiles = map[string][]string{
	"en": {"the", "and", "is", "in", "to", "of", "a", "that", "it", "for"},
	"es": {"el", "la", "de", "que", "y", "en", "un", "es", "por", "con"},
	"fr": {"le", "la", "de", "et", "les", "des", "un", "une", "est", "pour"},
	"de": {"der", "die", "das", "und", "ist", "ein", "eine", "zu", "mit", "nicht"},
	"pt": {"o", "a", "de", "que", "e", "do", "da", "em", "um", "para"},
}

// DetectLanguage returns a two-letter ISO code for the dominant language of
// the input text. On timeout or error it falls back to a keyword-frequency
// heuristic across languageProfiles (spec §4.3).
type DetectLanguage struct{}

func NewDetectLanguage() *DetectLanguage { return &DetectLanguage{} }

func (t *DetectLanguage) Name() string { return "language_detection" }

func (t *DetectLanguage) InputSchema() InputSchema {
	return InputSchema{"text": {Type: "string", Required: true}}
}

func (t *DetectLanguage) MaxInputLength() int     { return 1000 }
func (t *DetectLanguage) SupportsStreaming() bool { return false }

func (t *DetectLanguage) Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error) {
	if err := t.InputSchema().Validate(input); err != nil {
		return nil, err
	}
	text := stringField(input, "text")
	if len(text) > t.MaxInputLength() {
		text = text[:t.MaxInputLength()]
	}

	prompt := "Identify the ISO 639-1 two-letter language code of this text and reply with only the code:\n\n" + text
	out, err := withTimeout(ctx, LanguageTimeout, func(ctx context.Context) (string, error) {
		s, _, err := gw.Generate(ctx, prompt, gateway.TaskRequirements{
			RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
			TaskType:             t.Name(),
		}, gateway.GenerateOptions{MaxOutputTokens: 4})
		return s, err
	})
	if err != nil {
		return map[string]interface{}{"language": heuristicLanguage(text), "degraded": true}, nil
	}
	code := strings.ToLower(strings.TrimSpace(out))
	if len(code) > 2 {
		code = code[:2]
	}
	if code == "" {
		code = heuristicLanguage(text)
	}
	return map[string]interface{}{"language": code, "degraded": false}, nil
}

// heuristicLanguage scores text against each profile's stopword frequency
// and returns the best match, defaulting to "en" on a total tie/empty input.
func heuristicLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "en"
	}
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[strings.Trim(w, ".,!?;:\"'()")]++
	}

	best, bestScore := "en", -1
	for lang, stopwords := range languageProfiles {
		score := 0
		for _, sw := range stopwords {
			score += counts[sw]
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best
}
