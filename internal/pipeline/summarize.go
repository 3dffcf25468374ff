package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"grantreview/internal/regtext"
	"grantreview/internal/review"
)

// summarize condenses the extracted text. It always returns a section;
// a non-nil error means the section is a fallback.
func (c *Controller) summarize(ctx context.Context, st *review.WorkflowState) (*review.SummarySection, error) {
	text := st.ExtractedText()
	md := st.Metadata()
	limit := c.cfg.MaxSummaryInputTokens * charsPerToken
	input := regtext.Truncate(text, limit)

	prompt, err := fillPrompt("summarize.tmpl", summarizePromptParams{
		Filename:  md.Filename,
		WordCount: md.WordCount,
		PageCount: md.PageCount,
		Text:      input,
		Truncated: len(input) < len(text),
	})
	if err != nil {
		return fallbackSummary(text), err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	out, err := c.collab.Completer.Complete(callCtx, CompletionRequest{
		Kind:     KindSummarize,
		Prompt:   prompt,
		Document: input,
	})
	if err != nil {
		return fallbackSummary(text), &CompletionError{Stage: review.StageSummarization, Err: err}
	}

	sec, ok := parseSummary(out)
	if !ok {
		return &review.SummarySection{
			ExecutiveSummary: strings.TrimSpace(out.Text),
			KeyClauses:       []string{},
			KeyTopics:        []string{},
		}, &MalformedOutputError{Stage: review.StageSummarization, Reason: "missing executive_summary"}
	}
	return sec, nil
}

// fallbackSummary is the safe default when the completion call fails.
func fallbackSummary(text string) *review.SummarySection {
	return &review.SummarySection{
		ExecutiveSummary: strings.TrimSpace(regtext.Truncate(text, 500)),
		KeyClauses:       []string{},
		KeyTopics:        []string{},
	}
}

type summaryFields struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyClauses       []string `json:"key_clauses"`
	KeyTopics        []string `json:"key_topics"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

func parseSummary(out *Completion) (*review.SummarySection, bool) {
	var f summaryFields
	if !decodeFields(out, &f) || strings.TrimSpace(f.ExecutiveSummary) == "" {
		return nil, false
	}
	sec := &review.SummarySection{
		ExecutiveSummary: strings.TrimSpace(f.ExecutiveSummary),
		KeyClauses:       nonEmpty(f.KeyClauses),
		KeyTopics:        dedupeLower(f.KeyTopics),
		DetailedAnalysis: strings.TrimSpace(f.DetailedAnalysis),
	}
	return sec, true
}

// decodeFields fills dst from the completion's structured fields, or from
// its text when the text is a JSON object (optionally fenced).
func decodeFields(out *Completion, dst any) bool {
	if out == nil {
		return false
	}
	if len(out.Fields) > 0 {
		data, err := json.Marshal(out.Fields)
		if err == nil && json.Unmarshal(data, dst) == nil {
			return true
		}
	}
	raw := stripCodeFence(out.Text)
	if !strings.HasPrefix(raw, "{") {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupeLower(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
