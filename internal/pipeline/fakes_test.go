package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"grantreview/internal/review"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeExtractor) Extract(_ context.Context, doc Document) (*Extraction, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	text := f.text
	if text == "" {
		text = string(doc.Data)
	}
	return &Extraction{Text: text, WordCount: len(strings.Fields(text)), PageCount: 3}, nil
}

type fakeSearcher struct {
	passages []Passage
	err      error
	queries  []string
	mu       sync.Mutex
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int) ([]Passage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.passages) > topK {
		return f.passages[:topK], nil
	}
	return f.passages, nil
}

// fakeCompleter answers by request kind.
type fakeCompleter struct {
	summary    *Completion
	compliance *Completion
	summaryErr error
	compErr    error
	block      bool
	kinds      []CompletionKind
	mu         sync.Mutex
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.mu.Lock()
	f.kinds = append(f.kinds, req.Kind)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	switch req.Kind {
	case KindSummarize:
		return f.summary, f.summaryErr
	case KindCompliance:
		return f.compliance, f.compErr
	}
	return nil, errors.New("unexpected kind")
}

type fakeMailer struct {
	sent []Message
	err  error
	mu   sync.Mutex
}

func (f *fakeMailer) Send(_ context.Context, msg Message) (review.DeliveryReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return review.DeliveryReceipt{}, f.err
	}
	f.sent = append(f.sent, msg)
	now := time.Now().UTC()
	return review.DeliveryReceipt{Status: review.DeliverySent, SentAt: &now, MessageID: "<test@grantreview>"}, nil
}

const proposalText = `Community Solar Resilience Grant Proposal

Objectives: install community solar arrays on public housing and train local workers.
Budget: total funding request of $2.4M, with cost share from the city.
Timeline: procurement in Q1, construction milestones through Q4.
The project complies with Executive Order 14008 reporting requirements and aligns with EO 14057.`

func summaryCompletion() *Completion {
	return &Completion{Fields: map[string]any{
		"executive_summary": "Community solar installation on public housing with workforce training.",
		"key_clauses": []any{
			"Grantee shall report quarterly emissions data",
			"Budget of $2.4M with municipal cost share",
			"Construction milestones through Q4",
		},
		"key_topics": []any{"Energy", "Housing", "Workforce", "Budget", "Timeline", "Objectives"},
	}}
}

func compliantCompletion() *Completion {
	return &Completion{Fields: map[string]any{
		"status":           "compliant",
		"confidence_score": 95,
		"analysis":         "The proposal complies with Executive Order 14008 and aligns with EO 14057.",
		"violations":       []any{},
		"warnings":         []any{},
	}}
}

func eoPassages() []Passage {
	return []Passage{
		{
			SourceID: "eo-14008-p1",
			Excerpt:  "  Agencies shall ensure that federal grants support climate resilience and clean energy deployment in disadvantaged communities.",
			Metadata: map[string]string{
				MetaEONumber:      "14008",
				MetaTitle:         "Tackling the Climate Crisis at Home and Abroad",
				MetaEffectiveDate: "2021-01-27",
				MetaPageNumber:    "2",
			},
		},
		{
			SourceID: "eo-14057-p1",
			Excerpt:  "Recipients must report greenhouse gas emissions from funded facilities on an annual basis.",
			Metadata: map[string]string{
				MetaEONumber: "14057",
				MetaTitle:    "Catalyzing Clean Energy Industries",
			},
		},
	}
}

func newTestController(collab Collaborators, cfg Config) *Controller {
	c, err := NewController(collab, cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func testDocument() Document {
	return Document{Reference: "/inbox/solar.txt", Filename: "solar.txt", Data: []byte(proposalText)}
}
