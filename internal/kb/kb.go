// Package kb is the local executive-order knowledge base: a directory
// loader, keyword relevance search with optional embedding rerank, and
// in-memory and sqlite-backed indexes.
package kb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"grantreview/internal/pipeline"
	"grantreview/internal/regtext"
)

// DocumentType is the document_type metadata of every kb passage.
const DocumentType = "Executive Order"

// ErrNotFound is returned by Get for an unknown EO number.
var ErrNotFound = errors.New("executive order not found")

// Index is a searchable knowledge base that can also list its contents.
type Index interface {
	pipeline.Searcher
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, eoNumber string) (Order, []Chunk, error)
}

// Order describes one executive order in the knowledge base.
type Order struct {
	EONumber      string   `json:"eo_number"`
	Title         string   `json:"title"`
	Source        string   `json:"source"`
	EffectiveDate string   `json:"effective_date,omitempty"`
	Keywords      []string `json:"keywords"`
	Areas         []string `json:"compliance_areas"`
	Pages         int      `json:"pages"`
}

// Chunk is one page of an order's text.
type Chunk struct {
	EONumber string
	Page     int
	Text     string
}

const (
	topicPoints      = 10
	termPoints       = 2
	minTopicLetters  = 4
	rerankMultiplier = 3
)

var complianceTerms = []string{
	"shall", "must", "required", "requirement", "compliance",
	"eligible", "eligibility", "condition", "standard", "regulation",
}

var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "also": true, "been": true,
	"being": true, "between": true, "both": true, "could": true, "does": true,
	"each": true, "from": true, "have": true, "into": true, "more": true,
	"most": true, "only": true, "other": true, "over": true, "same": true,
	"should": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "very": true,
	"were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "will": true, "with": true, "would": true, "your": true,
	"proposal": true, "grant": true, "project": true,
}

// Topics tokenizes a query into distinct lowercased words of at least four
// letters, minus stopwords.
func Topics(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range regtext.Words(query) {
		if len(w) < minTopicLetters || stopwords[w] || seen[w] || isNumber(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

type scoredChunk struct {
	Chunk
	score float64
}

// rank scores every chunk against the topics and returns the non-zero ones
// ordered by score, then EO number, then page.
func rank(chunks []Chunk, topics []string) []scoredChunk {
	var out []scoredChunk
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		score := 0.0
		for _, t := range topics {
			if strings.Contains(lower, t) {
				score += topicPoints
			}
		}
		for _, term := range complianceTerms {
			if strings.Contains(lower, term) {
				score += termPoints
			}
		}
		if score > 0 {
			out = append(out, scoredChunk{Chunk: c, score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].EONumber != out[j].EONumber {
			return out[i].EONumber < out[j].EONumber
		}
		return out[i].Page < out[j].Page
	})
	return out
}

// search is shared by every index: keyword ranking, then an optional
// embedding rerank over the top candidates.
func search(ctx context.Context, chunks []Chunk, orders map[string]Order, query string, topK int, emb Embedder) ([]pipeline.Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	ranked := rank(chunks, Topics(query))
	if emb != nil && len(ranked) > 1 {
		candidates := ranked[:min(len(ranked), rerankMultiplier*topK)]
		reordered, err := rerank(ctx, emb, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		ranked = reordered
	}
	ranked = ranked[:min(len(ranked), topK)]

	out := make([]pipeline.Passage, 0, len(ranked))
	for _, sc := range ranked {
		out = append(out, toPassage(sc, orders[sc.EONumber]))
	}
	return out, nil
}

func toPassage(sc scoredChunk, o Order) pipeline.Passage {
	title := o.Title
	if title == "" {
		title = "Executive Order " + sc.EONumber
	}
	md := map[string]string{
		pipeline.MetaEONumber:     sc.EONumber,
		pipeline.MetaTitle:        title,
		pipeline.MetaPageNumber:   strconv.Itoa(sc.Page),
		pipeline.MetaDocumentType: DocumentType,
		pipeline.MetaScore:        strconv.FormatFloat(sc.score, 'f', 2, 64),
	}
	if o.EffectiveDate != "" {
		md[pipeline.MetaEffectiveDate] = o.EffectiveDate
	}
	return pipeline.Passage{
		SourceID: fmt.Sprintf("eo-%s-p%d", sc.EONumber, sc.Page),
		Excerpt:  sc.Text,
		Metadata: md,
	}
}
