package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grantreview/internal/pipeline"
	"grantreview/internal/regtext"
)

// BasicConfidence is the fixed confidence of a basic compliance verdict.
const BasicConfidence = 75

const (
	minParagraphChars = 50
	summaryParagraphs = 3
	maxKeyClauses     = 5
	maxKeyTopics      = 8
)

var clauseKeywords = []string{"compliance", "requirement", "objective", "budget", "timeline", "deliverable"}

var topicVocabulary = []string{
	"compliance", "budget", "timeline", "deliverable", "requirement",
	"objective", "sustainability", "equity", "cybersecurity", "climate",
	"workforce", "education", "infrastructure", "community", "innovation",
}

// Basic is a deterministic completer that needs no external service. It
// reads Request.Document and Request.Passages, never the prompt text.
type Basic struct{}

// Complete implements pipeline.Completer.
func (Basic) Complete(ctx context.Context, req pipeline.CompletionRequest) (*pipeline.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var fields map[string]any
	switch req.Kind {
	case pipeline.KindSummarize:
		fields = basicSummary(req.Document)
	case pipeline.KindCompliance:
		fields = basicCompliance(req.Document, req.Passages)
	default:
		return nil, fmt.Errorf("basic completer: unsupported kind %q", req.Kind)
	}
	text, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("basic completer: %w", err)
	}
	return &pipeline.Completion{Text: string(text), Fields: fields}, nil
}

func basicSummary(text string) map[string]any {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); len(line) > minParagraphChars {
			paragraphs = append(paragraphs, line)
		}
	}

	summary := strings.Join(paragraphs[:min(summaryParagraphs, len(paragraphs))], "\n\n")
	if summary == "" {
		summary = strings.TrimSpace(regtext.Truncate(text, 500))
	}

	clauses := []string{}
	for _, p := range paragraphs {
		if containsAny(strings.ToLower(p), clauseKeywords) {
			clauses = append(clauses, p)
			if len(clauses) == maxKeyClauses {
				break
			}
		}
	}

	topics := []string{}
	lower := strings.ToLower(text)
	for _, kw := range topicVocabulary {
		if strings.Contains(lower, kw) {
			topics = append(topics, kw)
			if len(topics) == maxKeyTopics {
				break
			}
		}
	}

	return map[string]any{
		"executive_summary": summary,
		"key_clauses":       clauses,
		"key_topics":        topics,
	}
}

// basicCompliance checks every requirement sentence of the retrieved
// passages against the proposal. Met requirements earn full credit, partial
// ones half.
func basicCompliance(proposal string, passages []pipeline.Passage) map[string]any {
	violations := []map[string]any{}
	warnings := []string{}
	orders := []string{}
	seen := make(map[string]bool)
	earned, possible, checked := 0.0, 0.0, 0

	for _, p := range passages {
		eo := p.Metadata[pipeline.MetaEONumber]
		if eo != "" && !seen[eo] {
			seen[eo] = true
			orders = append(orders, eo)
		}
		for _, req := range regtext.ExtractRequirements(p.Excerpt) {
			checked++
			possible += 10
			finding, _ := regtext.CheckRequirement(proposal, req)
			switch finding {
			case regtext.FindingCompliant:
				earned += 10
			case regtext.FindingWarning:
				earned += 5
				warnings = append(warnings, fmt.Sprintf("EO %s: partial compliance detected, review recommended: %s", eo, req))
			default:
				violations = append(violations, map[string]any{
					"message":                   "Requirement not adequately addressed in proposal.",
					"executive_order_reference": eo,
					"requirement_excerpt":       req,
				})
			}
		}
	}

	status, analysis := "requires_review", "No executive-order requirements were available to check; manual review needed."
	if possible > 0 {
		score := earned / possible * 100
		switch {
		case score >= 80:
			status = "compliant"
		case score >= 60:
			status = "requires_review"
		default:
			status = "non_compliant"
		}
		analysis = fmt.Sprintf("Checked %d requirement(s) from executive orders %s: %.0f%% coverage, %d unaddressed, %d partially addressed.",
			checked, strings.Join(orders, ", "), score, len(violations), len(warnings))
	}

	return map[string]any{
		"status":           status,
		"confidence_score": BasicConfidence,
		"analysis":         analysis,
		"violations":       violations,
		"warnings":         warnings,
		"executive_orders": orders,
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
