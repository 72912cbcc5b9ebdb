// Package document defines the Document data model and the Store contract
// (spec §3.1, §3.2, §4.1) shared by every backend adapter.
package document

import "time"

// Kind is the tagged variant replacing duck-typed dispatch on documents
// (Design Note: "Duck-typed 'has this attribute?' dispatch on documents").
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindWord     Kind = "word"
	KindExcel    Kind = "excel"
	KindText     Kind = "text"
	KindJSON     Kind = "json"
	KindXML      Kind = "xml"
	KindCSV      Kind = "csv"
	KindMarkdown Kind = "markdown"
	KindWebpage  Kind = "webpage"
	KindYouTube  Kind = "youtube"
	KindPodcast  Kind = "podcast"
)

// DirectContentKinds complete synchronously at submission time (spec §3.1, §4.8).
var DirectContentKinds = map[Kind]bool{
	KindJSON:     true,
	KindXML:      true,
	KindCSV:      true,
	KindMarkdown: true,
}

// KindFromExtension implements the mapping in spec §6.2.
func KindFromExtension(ext string) (Kind, bool) {
	switch ext {
	case ".pdf":
		return KindPDF, true
	case ".doc", ".docx":
		return KindWord, true
	case ".xls", ".xlsx":
		return KindExcel, true
	case ".txt":
		return KindText, true
	case ".md":
		return KindMarkdown, true
	case ".json":
		return KindJSON, true
	case ".xml":
		return KindXML, true
	case ".csv":
		return KindCSV, true
	case ".html", ".htm":
		return KindWebpage, true
	case ".mp3", ".wav":
		return KindPodcast, true
	case ".mp4":
		return KindYouTube, true
	default:
		return "", false
	}
}

// ProcessingStage is the document's position in the state machine (spec §3.1, §3.6).
type ProcessingStage string

const (
	StagePending    ProcessingStage = "PENDING"
	StageProcessing ProcessingStage = "PROCESSING"
	StageCompleted  ProcessingStage = "COMPLETED"
	StageFailed     ProcessingStage = "FAILED"
)

// Origin records how a document entered the system.
type Origin struct {
	Method    string // "upload" | "url" | "inline"
	Reference string // original URL or filename
}

// Document is the full record tracked by the Document Store (spec §3.1).
type Document struct {
	ID    string
	Kind  Kind
	Origin Origin

	OwnerID          string
	AccessGroup      string
	AccessPermission string

	Stage ProcessingStage

	RawContent       string
	FormattedContent string
	StructuredData   map[string]interface{}
	Embedding        []float32

	Summary  string
	Language string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	DeletedBy string

	Version int
}

// Deleted reports whether the document has been soft-deleted.
func (d *Document) Deleted() bool { return d.DeletedAt != nil }

// Projection is the lightweight listing view (GLOSSARY: "Projection").
type Projection struct {
	ID        string
	Kind      Kind
	OwnerID   string
	Stage     ProcessingStage
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Deleted   bool
	Version   int
}

// ToProjection extracts the listing view from a full document.
func (d *Document) ToProjection() Projection {
	return Projection{
		ID:        d.ID,
		Kind:      d.Kind,
		OwnerID:   d.OwnerID,
		Stage:     d.Stage,
		Summary:   d.Summary,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Deleted:   d.Deleted(),
		Version:   d.Version,
	}
}

// Version is an immutable snapshot of one mutation (spec §3.2).
type Version struct {
	Number      int
	Document    Document
	Timestamp   time.Time
	UserID      string
	Change      string
	CommitMsg   string
}

// Clone returns a deep-enough copy of d so adapters can hand out Documents
// without readers observing later in-place mutation.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.StructuredData != nil {
		c.StructuredData = make(map[string]interface{}, len(d.StructuredData))
		for k, v := range d.StructuredData {
			c.StructuredData[k] = v
		}
	}
	if d.Embedding != nil {
		c.Embedding = append([]float32(nil), d.Embedding...)
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
