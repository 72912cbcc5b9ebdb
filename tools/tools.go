// Package tools implements the schema-bound AI capabilities layered on top of
// the Model Gateway (spec §4.3's "Tools"): summarization, entity extraction,
// translation, classification, language detection, question answering,
// markdown formatting, and embedding. Grounded on the same static-registry
// Design Note as gateway.Registry, generalized from provider registration to
// tool registration, and on semantic/actionregistry.go's Register pattern.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/logging"
)

// FieldSpec declares one expected input field.
type FieldSpec struct {
	Type     string // "string", "int", "bool"
	Required bool
}

// InputSchema is the set of fields a Tool requires before it will run.
type InputSchema map[string]FieldSpec

// Validate checks input against schema, returning the first violation found.
func (s InputSchema) Validate(input map[string]interface{}) error {
	for name, field := range s {
		v, ok := input[name]
		if !ok {
			if field.Required {
				return fmt.Errorf("%w: missing required field %q", ErrInvalidInput, name)
			}
			continue
		}
		switch field.Type {
		case "string":
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: field %q must be a string", ErrInvalidInput, name)
			}
		case "int":
			switch v.(type) {
			case int, int64, float64:
			default:
				return fmt.Errorf("%w: field %q must be numeric", ErrInvalidInput, name)
			}
		case "bool":
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("%w: field %q must be a bool", ErrInvalidInput, name)
			}
		}
	}
	return nil
}

// ErrInvalidInput is returned when a Tool's input fails schema validation.
var ErrInvalidInput = fmt.Errorf("tools: invalid input")

// Tool is a named, schema-bound unit of AI capability (GLOSSARY).
type Tool interface {
	Name() string
	InputSchema() InputSchema
	MaxInputLength() int
	SupportsStreaming() bool
	Run(ctx context.Context, gw *gateway.Gateway, input map[string]interface{}) (map[string]interface{}, error)
}

// Registry is the static, composition-root-populated set of available tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a Registry from tools, keyed by Name().
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists all registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// chunkSize and chunkOverlap implement spec §4.3's long-input chunking.
const (
	chunkSize    = 40000
	chunkOverlap = 500
)

// ChunkText splits text into overlapping windows for tools whose input may
// exceed what a single model call can hold (entity extraction, translation).
func ChunkText(text string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		start = end - chunkOverlap
	}
	return chunks
}

// withTimeout runs fn under a per-tool deadline and distinguishes a context
// deadline from any other error so callers can apply tool-specific fallback.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn(ctx)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func stringField(input map[string]interface{}, name string) string {
	if v, ok := input[name].(string); ok {
		return v
	}
	return ""
}

func intField(input map[string]interface{}, name string, def int) int {
	switch v := input[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func newLogger(component string) *logging.Logger {
	return logging.NewLogger(nil, map[string]interface{}{"component": "tools." + component})
}

func firstNonEmptyLines(text string, n int, maxLen int) string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) > maxLen {
			line = line[:maxLen]
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, " ")
}
