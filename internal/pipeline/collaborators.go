package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"grantreview/internal/review"
)

// Document is the input to one run. Data holds the raw bytes; Extracted,
// when set, carries pre-extracted text and skips the extraction call.
type Document struct {
	Reference string
	Filename  string
	Data      []byte
	Extracted *Extraction
}

// OpenDocument reads a document from disk.
func OpenDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document %s: %w", path, err)
	}
	return Document{Reference: path, Filename: filepath.Base(path), Data: data}, nil
}

// Extraction is what the text extraction collaborator returns.
type Extraction struct {
	Text      string
	WordCount int
	PageCount int
}

// Extractor turns raw document bytes into text. Failure is fatal to a run.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (*Extraction, error)
}

// Passage is one knowledge-base search hit.
type Passage struct {
	SourceID string            `json:"source_id"`
	Excerpt  string            `json:"excerpt"`
	Metadata map[string]string `json:"metadata"`
}

// Well-known Passage.Metadata keys.
const (
	MetaEONumber      = "executive_order_number"
	MetaTitle         = "title"
	MetaEffectiveDate = "effective_date"
	MetaPageNumber    = "page_number"
	MetaDocumentType  = "document_type"
	MetaURL           = "url"
	MetaScore         = "score"
)

// Searcher retrieves candidate executive-order passages. An empty result
// is valid and not an error.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
}

// CompletionKind tells a completer which task a request serves.
type CompletionKind string

const (
	KindSummarize  CompletionKind = "summarize"
	KindCompliance CompletionKind = "compliance"
)

// CompletionRequest is one call to the completion service. Prompt and
// Context are the rendered instruction and grounding text; Document and
// Passages are the raw inputs they were rendered from.
type CompletionRequest struct {
	Kind     CompletionKind
	Prompt   string
	Context  string
	Document string
	Passages []Passage
}

// Completion is the completion service's answer. Fields holds structured
// output when the service provides it.
type Completion struct {
	Text   string
	Fields map[string]any
}

// Completer calls a completion service.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Message is a notification ready for delivery.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Priority review.NotificationPriority
}

// Mailer delivers notifications. A returned error is recorded on the run,
// never propagated.
type Mailer interface {
	Send(ctx context.Context, msg Message) (review.DeliveryReceipt, error)
}

// Collaborators bundles the external services a run depends on.
// Mailer may be nil when email is disabled.
type Collaborators struct {
	Extractor Extractor
	Searcher  Searcher
	Completer Completer
	Mailer    Mailer
}
