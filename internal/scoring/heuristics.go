package scoring

import (
	"fmt"
	"strings"

	"grantreview/internal/review"
)

// Issue is one finding of a document heuristic.
type Issue struct {
	Name     string
	Severity review.Severity
	Penalty  float64
	Detail   string
}

// ExpectedSections are the proposal sections the completeness heuristic looks for.
var ExpectedSections = []string{"budget", "timeline", "objectives"}

var sectionTitles = map[string]string{
	"budget":     "Budget",
	"timeline":   "Timeline",
	"objectives": "Objectives",
}

// sectionAliases lets "objective" satisfy "objectives" and so on.
var sectionAliases = map[string][]string{
	"budget":     {"budget", "cost", "funding"},
	"timeline":   {"timeline", "schedule", "milestone"},
	"objectives": {"objective", "goal"},
}

// QualityScore grades the document itself on a 0-100 scale.
func QualityScore(md *review.DocumentMetadata, summary *review.SummarySection) (float64, []Issue) {
	var issues []Issue
	words, pages := 0, 0
	if md != nil {
		words, pages = md.WordCount, md.PageCount
	}

	switch {
	case words < 500:
		issues = append(issues, Issue{"Insufficient Document Length", review.SeverityHigh, 30,
			fmt.Sprintf("document has only %d words", words)})
	case words < 1000:
		issues = append(issues, Issue{"Limited Document Length", review.SeverityMedium, 15,
			fmt.Sprintf("document has %d words", words)})
	}
	if pages < 2 {
		issues = append(issues, Issue{"Short Document", review.SeverityLow, 10,
			fmt.Sprintf("document spans %d page(s)", pages)})
	}

	var topics, clauses int
	if summary != nil {
		topics, clauses = len(summary.KeyTopics), len(summary.KeyClauses)
	}
	if topics < 3 {
		issues = append(issues, Issue{"Limited Topic Coverage", review.SeverityMedium, 20,
			fmt.Sprintf("only %d key topic(s) identified", topics)})
	}
	if clauses == 0 {
		issues = append(issues, Issue{"No Key Clauses", review.SeverityMedium, 10,
			"no key clauses or requirements identified"})
	}
	return applyPenalties(issues), issues
}

// CompletenessScore grades how fully the proposal covers expected content.
func CompletenessScore(summary *review.SummarySection, compliance *review.ComplianceSection) (float64, []Issue) {
	var issues []Issue

	clauses := 0
	if summary != nil {
		clauses = len(summary.KeyClauses)
	}
	if clauses < 3 {
		issues = append(issues, Issue{"Few Key Clauses", review.SeverityMedium, 25,
			fmt.Sprintf("only %d key clause(s) identified", clauses)})
	}

	eos := 0
	if compliance != nil {
		eos = len(compliance.RelevantExecutiveOrders)
	}
	switch eos {
	case 0:
		issues = append(issues, Issue{"No Executive Order Coverage", review.SeverityHigh, 40,
			"no relevant executive orders identified"})
	case 1:
		issues = append(issues, Issue{"Limited Executive Order Coverage", review.SeverityMedium, 20,
			"only one relevant executive order identified"})
	}

	for _, section := range ExpectedSections {
		if !hasSection(summary, section) {
			issues = append(issues, Issue{"Missing " + sectionTitles[section] + " Section", review.SeverityMedium, 10,
				fmt.Sprintf("no %s content found in key topics or clauses", section)})
		}
	}
	return applyPenalties(issues), issues
}

func hasSection(summary *review.SummarySection, section string) bool {
	if summary == nil {
		return false
	}
	aliases := sectionAliases[section]
	for _, t := range summary.KeyTopics {
		if containsAny(strings.ToLower(t), aliases) {
			return true
		}
	}
	for _, c := range summary.KeyClauses {
		if containsAny(strings.ToLower(c), aliases) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func applyPenalties(issues []Issue) float64 {
	score := 100.0
	for _, is := range issues {
		score -= is.Penalty
	}
	return Clamp(score)
}

func describeIssues(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.Detail
	}
	return strings.Join(parts, "; ")
}
