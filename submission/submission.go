// Package submission implements the Submission Service (spec §4.8): the
// entry point that validates a new document, writes its initial record,
// and either completes it synchronously (direct-content kinds) or enqueues
// it for the Worker Pool (async kinds).
package submission

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docpipe/docpipe/document"
	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/queue"
)

// Origin method constants (spec §3.1).
const (
	MethodUpload = "upload"
	MethodURL    = "url"
	MethodInline = "inline"
)

// Request is the input to Submit (spec §4.8's "kind, name, origin,
// bytes_or_url, user").
type Request struct {
	Kind    document.Kind // optional; derived from Name's extension if empty
	Name    string
	Method  string // MethodUpload | MethodURL | MethodInline
	Content string // inline bytes as text, or the URL itself for MethodURL
	OwnerID string
}

// Result is Submit's return value (spec §4.8: "document_id, queued?").
type Result struct {
	DocumentID string
	Queued     bool
}

// Service implements spec §4.8.
type Service struct {
	Store document.Store
	Queue queue.Queue
	Bus   events.Bus
}

// New builds a Submission Service.
func New(store document.Store, q queue.Queue, bus events.Bus) *Service {
	return &Service{Store: store, Queue: q, Bus: bus}
}

// ErrUnsupportedExtension is returned when Kind can't be derived and wasn't
// supplied (spec §6.1).
var ErrUnsupportedExtension = fmt.Errorf("submission: unsupported file extension")

// Submit validates req, writes the initial Document Store record, and
// either completes synchronously (direct-content kinds) or enqueues it.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	kind := req.Kind
	if kind == "" {
		inferred, ok := document.KindFromExtension(extOf(req.Name))
		if !ok {
			return Result{}, ErrUnsupportedExtension
		}
		kind = inferred
	}

	id := uuid.NewString()
	now := time.Now()
	doc := &document.Document{
		ID:        id,
		Kind:      kind,
		Origin:    document.Origin{Method: req.Method, Reference: req.Content},
		OwnerID:   req.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if document.DirectContentKinds[kind] {
		if err := s.completeDirectContent(doc, req.Content); err != nil {
			return Result{}, err
		}
		doc.Stage = document.StageCompleted
	} else {
		doc.Stage = document.StagePending
	}

	if err := s.Store.Save(ctx, doc); err != nil {
		return Result{}, fmt.Errorf("submission: save: %w", err)
	}
	if err := s.Store.SaveVersion(ctx, document.Version{Number: 1, Document: *doc, Timestamp: now, UserID: req.OwnerID, Change: "created"}); err != nil {
		return Result{}, fmt.Errorf("submission: save version: %w", err)
	}

	// A dropped document:created event never blocks submission (spec §7:
	// "a failed progress publish is logged and swallowed" generalizes here;
	// creation has already durably happened in the store).
	_ = s.Bus.Publish(ctx, events.TopicDocumentCreated, id, nil)

	if document.DirectContentKinds[kind] {
		_ = s.Bus.Publish(ctx, events.TopicDocumentUpdated, id, events.UpdatedPayload(string(doc.Stage), doc.Summary))
		return Result{DocumentID: id, Queued: false}, nil
	}

	if err := s.Queue.Enqueue(ctx, id, time.Time{}); err != nil {
		return Result{}, fmt.Errorf("submission: enqueue: %w", err)
	}
	return Result{DocumentID: id, Queued: true}, nil
}

// completeDirectContent implements the synchronous path of spec §4.8 for
// json/xml/csv/markdown, mirroring the minimal parse/format each kind gets
// in extractors.textlike without pulling in a queued worker.
func (s *Service) completeDirectContent(doc *document.Document, content string) error {
	switch doc.Kind {
	case document.KindJSON:
		var parsed interface{}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return fmt.Errorf("submission: invalid json: %w", err)
		}
		pretty, _ := json.MarshalIndent(parsed, "", "  ")
		doc.RawContent = string(pretty)
		doc.FormattedContent = "```json\n" + string(pretty) + "\n```"
		switch v := parsed.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			doc.Summary = fmt.Sprintf("JSON object with %d root keys: %s", len(keys), strings.Join(keys, ", "))
		case []interface{}:
			doc.Summary = fmt.Sprintf("JSON array with %d items", len(v))
		}
	case document.KindXML:
		doc.RawContent = content
		doc.FormattedContent = "```xml\n" + content + "\n```"
	case document.KindCSV:
		rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
		if err != nil {
			return fmt.Errorf("submission: invalid csv: %w", err)
		}
		cols := 0
		if len(rows) > 0 {
			cols = len(rows[0])
		}
		doc.RawContent = content
		doc.FormattedContent = "```csv\n" + content + "\n```"
		doc.StructuredData = map[string]interface{}{"rows": rows}
		doc.Summary = fmt.Sprintf("CSV with %d rows and %d columns", len(rows), cols)
	case document.KindMarkdown:
		doc.RawContent = content
		doc.FormattedContent = content
	}
	return nil
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}
