// Package processor orchestrates one job end to end (spec §4.6): detect
// kind, run the matching extractor, enrich with the Model Gateway, write the
// terminal state, and publish the lifecycle event. It imports events but not
// queue: the Queue and the Event Bus know nothing of each other, and this
// package only ever calls events.Bus.Publish, since job disposition stays
// the Worker's decision (spec §4.6: "Any
// exception in steps 4-6 propagates to the Worker, which invokes
// Queue.mark_failed").
package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/extractors"
	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/logging"
	"github.com/docpipe/docpipe/tools"
)

// Progress milestones (spec §4.6, step 3). Values are advisory; subscribers
// must tolerate skipped values.
const (
	ProgressStarting   = 10
	ProgressExtracting = 30
	ProgressExtracted  = 60
	ProgressEnriching  = 70
	ProgressSummarizing = 90
	ProgressComplete   = 100
)

// Budgets for the enrichment calls of spec §4.6 step 5.
const (
	languageDetectionBudget = 10 * time.Second
	summaryBudget           = 20 * time.Second
	languageDetectionChars  = 1000
	summaryChars            = 3000
)

// Processor wires the Document Store, Event Bus, Extractor dispatch table,
// and Model Gateway/Tools together for one job.
type Processor struct {
	Store        document.Store
	Bus          events.Bus
	Extractors   extractors.Table
	Gateway      *gateway.Gateway
	ToolRegistry *tools.Registry
	Log          *logging.Logger
}

// New builds a Processor. gw and toolRegistry may be nil, in which case
// enrichment (step 5) is skipped entirely, matching "if Model Gateway is
// usable" in spec §4.6.
func New(store document.Store, bus events.Bus, table extractors.Table, gw *gateway.Gateway, toolRegistry *tools.Registry, log *logging.Logger) *Processor {
	if log == nil {
		log = logging.NewLogger(nil, map[string]interface{}{"component": "processor"})
	}
	return &Processor{Store: store, Bus: bus, Extractors: table, Gateway: gw, ToolRegistry: toolRegistry, Log: log}
}

// Process runs the full pipeline for doc, whose source locates the bytes to
// extract (file path or URL). On return with a non-nil error, the caller
// (the Worker) is expected to call Queue.MarkFailed(id, err, retry=true);
// Process itself never touches the queue.
func (p *Processor) Process(ctx context.Context, doc *document.Document, src extractors.Source) error {
	log := p.Log.WithField("document_id", doc.ID)

	kind := doc.Kind
	if kind == "" {
		if inferred, ok := document.KindFromExtension(filepath.Ext(src.Path)); ok {
			kind = inferred
		}
	}
	src.Kind = kind

	p.publishProgress(ctx, doc.ID, ProgressStarting, "starting")

	extractor, err := p.Extractors.For(kind)
	if err != nil {
		return fmt.Errorf("processor: no extractor for kind %q: %w", kind, err)
	}

	p.publishProgress(ctx, doc.ID, ProgressExtracting, "extracting")
	result, err := extractor.Extract(ctx, src)
	if err != nil {
		return fmt.Errorf("processor: extraction failed: %w", err)
	}
	doc.RawContent = result.RawText
	doc.FormattedContent = result.FormattedMarkdown
	if result.StructuredData != nil {
		doc.StructuredData = result.StructuredData
	}
	if result.Summary != "" {
		doc.Summary = result.Summary
	}
	p.publishProgress(ctx, doc.ID, ProgressExtracted, "extracted")

	if p.Gateway != nil && p.ToolRegistry != nil {
		p.publishProgress(ctx, doc.ID, ProgressEnriching, "enriching")
		p.enrich(ctx, doc, kind, log)
	}
	p.publishProgress(ctx, doc.ID, ProgressSummarizing, "summarizing")

	doc.Stage = document.StageCompleted
	doc.UpdatedAt = time.Now()
	doc.Version++
	if err := p.Store.Save(ctx, doc); err != nil {
		return fmt.Errorf("processor: save terminal state: %w", err)
	}

	p.publishProgress(ctx, doc.ID, ProgressComplete, "complete")
	if err := p.Bus.Publish(ctx, events.TopicDocumentUpdated, doc.ID, events.UpdatedPayload(string(doc.Stage), doc.Summary)); err != nil {
		log.WithError(err).Warn("failed to publish document:updated")
	}
	return nil
}

// enrich runs text→markdown formatting (text, markdown and word kinds only),
// language detection and summarization, each with its own fallback inside
// the tool layer; failures here never fail the job (spec §4.6 step 5, §7:
// "ModelCallError/ModelTimeout... handled inside the tool layer, not
// escalated as job failure").
func (p *Processor) enrich(ctx context.Context, doc *document.Document, kind document.Kind, log *logging.Logger) {
	raw := doc.RawContent

	if kind == document.KindText || kind == document.KindMarkdown || kind == document.KindWord {
		if mdTool, ok := p.ToolRegistry.Get("text_to_markdown"); ok {
			out, err := mdTool.Run(ctx, p.Gateway, map[string]interface{}{"text": raw})
			if err != nil {
				log.WithError(err).Warn("markdown formatting failed")
			} else if md, ok := out["markdown"].(string); ok && md != "" {
				doc.FormattedContent = md
			}
		}
	}

	if langTool, ok := p.ToolRegistry.Get("language_detection"); ok {
		sample := raw
		if len(sample) > languageDetectionChars {
			sample = sample[:languageDetectionChars]
		}
		lctx, cancel := context.WithTimeout(ctx, languageDetectionBudget)
		out, err := langTool.Run(lctx, p.Gateway, map[string]interface{}{"text": sample})
		cancel()
		if err != nil {
			log.WithError(err).Warn("language detection failed")
		} else if lang, ok := out["language"].(string); ok {
			doc.Language = lang
		}
	}

	if summarizeTool, ok := p.ToolRegistry.Get("summarization"); ok {
		sample := raw
		if len(sample) > summaryChars {
			sample = sample[:summaryChars]
		}
		sctx, cancel := context.WithTimeout(ctx, summaryBudget)
		out, err := summarizeTool.Run(sctx, p.Gateway, map[string]interface{}{
			"text": sample, "style": "concise", "max_length": 100,
		})
		cancel()
		if err != nil {
			log.WithError(err).Warn("summary generation failed")
		} else if summary, ok := out["summary"].(string); ok {
			doc.Summary = summary
		}
	}
}

func (p *Processor) publishProgress(ctx context.Context, docID string, progress int, message string) {
	if err := p.Bus.Publish(ctx, events.TopicProcessingProgress, docID, events.ProgressPayload(progress, message)); err != nil {
		p.Log.WithField("document_id", docID).WithError(err).Warn("failed to publish progress event")
	}
}

// DetectKindFromPath is a convenience used by callers building a Source from
// a stored filename when the document record doesn't carry a kind yet.
func DetectKindFromPath(path string) (document.Kind, bool) {
	return document.KindFromExtension(strings.ToLower(filepath.Ext(path)))
}
