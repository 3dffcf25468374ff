package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"grantreview/internal/regtext"
	"grantreview/internal/review"
	"grantreview/internal/scoring"
)

const (
	maxQueryChars      = 1000
	maxSnippetChars    = 300
	noPassageConfCap   = 50
	defaultConfidence  = 70
	documentTypeEO     = "Executive Order"
	completionSourceID = "completion"
)

// analyzeCompliance retrieves candidate passages, asks the completion
// service for a verdict, and derives the compliance score. It always
// returns a section; a non-nil error means the section is a fallback.
func (c *Controller) analyzeCompliance(ctx context.Context, st *review.WorkflowState) (*review.ComplianceSection, error) {
	text := regtext.Truncate(st.ExtractedText(), c.cfg.MaxComplianceChars)
	query := searchQuery(st.Summary(), text)

	callCtx, cancel := c.callContext(ctx)
	passages, err := c.collab.Searcher.Search(callCtx, query, c.cfg.SearchTopK)
	cancel()
	if err != nil {
		return failedCompliance(), &SearchError{Query: query, Err: err}
	}

	prompt, err := fillPrompt("compliance.tmpl", compliancePromptParams{Text: text, PassageCount: len(passages)})
	if err != nil {
		return failedCompliance(), err
	}

	callCtx, cancel = c.callContext(ctx)
	out, err := c.collab.Completer.Complete(callCtx, CompletionRequest{
		Kind:     KindCompliance,
		Prompt:   prompt,
		Context:  passageContext(passages),
		Document: text,
		Passages: passages,
	})
	cancel()
	if err != nil {
		return failedCompliance(), &CompletionError{Stage: review.StageCompliance, Err: err}
	}

	v := parseVerdict(out)
	if !v.structured && len(v.violations) == 0 {
		v.violations, v.warnings = checkRequirements(text, passages)
	}
	sec := &review.ComplianceSection{
		OverallStatus:   v.status,
		ConfidenceScore: scoring.Clamp(v.confidence),
		Violations:      v.violations,
		Warnings:        v.warnings,
		AnalysisText:    v.analysis,
	}
	sec.RelevantExecutiveOrders = relevantOrders(v.orders, passages)
	sec.Citations = v.citations
	if len(sec.Citations) == 0 {
		sec.Citations = synthesizeCitations(passages)
	}

	// No grounding passage means no basis for a compliant verdict.
	if len(passages) == 0 {
		sec.OverallStatus = review.RequiresReview
		sec.ConfidenceScore = math.Min(sec.ConfidenceScore, noPassageConfCap)
	}

	sec.ComplianceScore = scoring.ComplianceScore(sec.OverallStatus, sec.AnalysisText, len(sec.RelevantExecutiveOrders))
	return sec, nil
}

// failedCompliance is the safe default when retrieval or completion fails.
func failedCompliance() *review.ComplianceSection {
	return &review.ComplianceSection{
		OverallStatus:           review.RequiresReview,
		ConfidenceScore:         0,
		ComplianceScore:         0,
		Violations:              []review.Violation{},
		Warnings:                []string{},
		RelevantExecutiveOrders: []review.ExecutiveOrderRef{},
		Citations:               []review.Citation{},
	}
}

func searchQuery(summary *review.SummarySection, text string) string {
	var parts []string
	if summary != nil {
		parts = append(parts, summary.KeyTopics...)
		parts = append(parts, summary.ExecutiveSummary)
	}
	q := strings.Join(nonEmpty(parts), " ")
	if q == "" {
		q = text
	}
	return regtext.Truncate(q, maxQueryChars)
}

type orderMention struct {
	Number string
	Title  string
}

// UnmarshalJSON accepts either "14008" or {"eo_number": "14008", "title": "..."}.
func (o *orderMention) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Number = s
		return nil
	}
	var obj struct {
		EONumber string `json:"eo_number"`
		Number   string `json:"number"`
		Title    string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	o.Number, o.Title = obj.EONumber, obj.Title
	if o.Number == "" {
		o.Number = obj.Number
	}
	return nil
}

// flexFloat accepts 85, 85.5 or "85". Anything else, including "high" and
// non-finite numbers, leaves it unset so the rest of the verdict still decodes.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(string(data), `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

type verdictFields struct {
	Status          string             `json:"status"`
	ConfidenceScore flexFloat          `json:"confidence_score"`
	Analysis        string             `json:"analysis"`
	Violations      []review.Violation `json:"violations"`
	Warnings        []string           `json:"warnings"`
	ExecutiveOrders []orderMention     `json:"executive_orders"`
	Citations       []review.Citation  `json:"citations"`
}

type verdict struct {
	structured bool
	status     review.ComplianceStatus
	confidence float64
	analysis   string
	violations []review.Violation
	warnings   []string
	orders     []orderMention
	citations  []review.Citation
}

var confidenceRe = regexp.MustCompile(`(?i)confidence\s*score[:\s]*(\d+)`)

// parseVerdict prefers structured fields and falls back to reading the
// free text.
func parseVerdict(out *Completion) verdict {
	var f verdictFields
	structured := decodeFields(out, &f)

	v := verdict{
		structured: structured,
		violations: []review.Violation{},
		warnings:   []string{},
	}
	if structured {
		v.analysis = strings.TrimSpace(f.Analysis)
		v.violations = append(v.violations, f.Violations...)
		v.warnings = append(v.warnings, nonEmpty(f.Warnings)...)
		v.orders = f.ExecutiveOrders
		v.citations = normalizeCitations(f.Citations)
	}
	if v.analysis == "" && out != nil && !structured {
		v.analysis = strings.TrimSpace(out.Text)
	}

	switch {
	case structured && f.Status != "":
		v.status = review.ParseComplianceStatus(f.Status)
	default:
		v.status = lexicalStatus(v.analysis)
	}

	switch {
	case structured && f.ConfidenceScore.Set:
		v.confidence = f.ConfidenceScore.Value
	default:
		v.confidence = lexicalConfidence(v.analysis)
	}

	if len(v.orders) == 0 {
		for _, n := range regtext.ParseEONumbers(v.analysis) {
			v.orders = append(v.orders, orderMention{Number: n})
		}
	}
	return v
}

// checkRequirements tests the proposal against each requirement sentence
// of the retrieved passages.
func checkRequirements(proposal string, passages []Passage) ([]review.Violation, []string) {
	violations := []review.Violation{}
	warnings := []string{}
	for _, p := range passages {
		eo := p.Metadata[MetaEONumber]
		for _, req := range regtext.ExtractRequirements(p.Excerpt) {
			finding, coverage := regtext.CheckRequirement(proposal, req)
			switch finding {
			case regtext.FindingViolation:
				violations = append(violations, review.Violation{
					Message:                 fmt.Sprintf("proposal does not address requirement (%.0f%% term coverage)", coverage*100),
					ExecutiveOrderReference: eo,
					RequirementExcerpt:      req,
				})
			case regtext.FindingWarning:
				warnings = append(warnings, fmt.Sprintf("EO %s: partially addressed requirement: %s", eo, req))
			}
		}
	}
	return violations, warnings
}

func lexicalStatus(text string) review.ComplianceStatus {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "non-compliant"), strings.Contains(lower, "non_compliant"):
		return review.NonCompliant
	case strings.Contains(lower, "compliant"):
		return review.Compliant
	default:
		return review.RequiresReview
	}
}

func lexicalConfidence(text string) float64 {
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return defaultConfidence
}

// relevantOrders merges the orders the completion named with the sources of
// the retrieved passages, completion mentions first.
func relevantOrders(mentions []orderMention, passages []Passage) []review.ExecutiveOrderRef {
	byEO := make(map[string][]Passage)
	var passageOrder []string
	for _, p := range passages {
		n := p.Metadata[MetaEONumber]
		if n == "" {
			continue
		}
		if _, ok := byEO[n]; !ok {
			passageOrder = append(passageOrder, n)
		}
		byEO[n] = append(byEO[n], p)
	}

	out := []review.ExecutiveOrderRef{}
	seen := make(map[string]bool)
	add := func(number, title string) {
		if number == "" || seen[number] {
			return
		}
		seen[number] = true
		ref := review.ExecutiveOrderRef{
			EONumber:        number,
			Title:           title,
			Source:          completionSourceID,
			KeyRequirements: []string{},
		}
		if ps := byEO[number]; len(ps) > 0 {
			ref.Source = ps[0].SourceID
			if ref.Title == "" {
				ref.Title = ps[0].Metadata[MetaTitle]
			}
			var excerpts []string
			for _, p := range ps {
				excerpts = append(excerpts, p.Excerpt)
			}
			ref.KeyRequirements = append(ref.KeyRequirements, regtext.ExtractRequirements(strings.Join(excerpts, ". "))...)
		}
		if ref.Title == "" {
			ref.Title = "Executive Order " + number
		}
		out = append(out, ref)
	}

	for _, m := range mentions {
		add(strings.TrimSpace(m.Number), strings.TrimSpace(m.Title))
	}
	for _, n := range passageOrder {
		add(n, "")
	}
	return out
}

// synthesizeCitations builds one citation per passage. Annotated regions
// are offsets into the passage excerpt.
func synthesizeCitations(passages []Passage) []review.Citation {
	out := make([]review.Citation, 0, len(passages))
	for _, p := range passages {
		trimmed := strings.TrimLeft(p.Excerpt, " \t\r\n")
		start := len(p.Excerpt) - len(trimmed)
		snippet := strings.TrimRight(regtext.Truncate(trimmed, maxSnippetChars), " \t\r\n")

		title := p.Metadata[MetaTitle]
		if title == "" {
			title = "Executive Order " + p.Metadata[MetaEONumber]
		}
		page := p.Metadata[MetaPageNumber]
		if page == "" {
			page = "1"
		}
		docType := p.Metadata[MetaDocumentType]
		if docType == "" {
			docType = documentTypeEO
		}

		out = append(out, review.Citation{
			Title:   fmt.Sprintf("%s (Page %s)", title, page),
			URL:     p.Metadata[MetaURL],
			Snippet: snippet,
			AdditionalProperties: map[string]string{
				MetaEONumber:      p.Metadata[MetaEONumber],
				MetaEffectiveDate: p.Metadata[MetaEffectiveDate],
				MetaPageNumber:    page,
				MetaDocumentType:  docType,
			},
			AnnotatedRegions: []review.Region{{StartIndex: start, EndIndex: start + len(snippet)}},
		})
	}
	return out
}

func normalizeCitations(in []review.Citation) []review.Citation {
	out := make([]review.Citation, 0, len(in))
	for _, c := range in {
		if c.AdditionalProperties == nil {
			c.AdditionalProperties = map[string]string{}
		}
		if c.AnnotatedRegions == nil {
			c.AnnotatedRegions = []review.Region{}
		}
		out = append(out, c)
	}
	return out
}
