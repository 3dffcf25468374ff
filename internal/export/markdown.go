// Package export renders a stored FinalReport as Markdown, HTML or PDF.
package export

import (
	"fmt"
	"strings"

	"grantreview/internal/display"
	"grantreview/internal/format"
	"grantreview/internal/review"
)

// Markdown renders the full report for sharing in tickets or wikis.
func Markdown(r *review.FinalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Grant Proposal Review: %s\n\n", r.Filename())
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- **Overall status:** %s\n", display.Status(string(r.OverallStatus)))
	if r.CompletedAt != "" {
		fmt.Fprintf(&b, "- **Completed:** %s\n", format.FmtTimestamp(r.CompletedAt))
	}
	if md := r.DocumentMetadata; md != nil {
		fmt.Fprintf(&b, "- **Document:** %d pages, %d words\n", md.PageCount, md.WordCount)
	}
	b.WriteString("\n")

	writeRisk(&b, r.Risk)
	writeCompliance(&b, r.Compliance)
	writeSummary(&b, r.Summary)
	writeNotification(&b, r.Notification)
	writeStages(&b, r)
	return b.String()
}

func writeRisk(b *strings.Builder, rs *review.RiskSection) {
	b.WriteString("## Risk assessment\n\n")
	if rs == nil {
		b.WriteString("_Risk scoring did not complete._\n\n")
		return
	}
	fmt.Fprintf(b, "**%s** (certainty %s%%)\n\n",
		display.RiskLevelWithScore(string(rs.RiskLevel), rs.OverallScore), display.Score(rs.AssessmentCertainty))

	tb := format.NewTable(format.Markdown)
	tb.Header("Component", "Score", "Weight", "Contribution")
	for _, c := range []struct {
		name string
		cs   review.ComponentScore
	}{
		{"Compliance", rs.RiskBreakdown.ComplianceRisk},
		{"Quality", rs.RiskBreakdown.QualityRisk},
		{"Completeness", rs.RiskBreakdown.CompletenessRisk},
	} {
		tb.Row(c.name, display.Score(c.cs.Score), fmt.Sprintf("%.2f", c.cs.Weight), display.Score(c.cs.Contribution()))
	}
	tb.Footer("Overall", display.Score(rs.OverallScore), "", "")
	b.WriteString(tb.String())
	b.WriteString("\n\n")

	if len(rs.RiskFactors) > 0 {
		b.WriteString("### Risk factors\n\n")
		for _, f := range rs.RiskFactors {
			fmt.Fprintf(b, "- **%s** (%s): %s\n", f.FactorName, f.Severity, f.Description)
		}
		b.WriteString("\n")
	}
	if len(rs.Recommendations) > 0 {
		b.WriteString("### Recommendations\n\n")
		for i, rec := range rs.Recommendations {
			fmt.Fprintf(b, "%d. [%s] **%s**: %s\n", i+1, rec.Priority, rec.Action, rec.Description)
		}
		b.WriteString("\n")
	}
}

func writeCompliance(b *strings.Builder, cs *review.ComplianceSection) {
	b.WriteString("## Compliance\n\n")
	if cs == nil {
		b.WriteString("_Compliance analysis did not complete._\n\n")
		return
	}
	fmt.Fprintf(b, "%s: compliance %s/100, confidence %s/100\n\n",
		display.StatusWithCode(string(cs.OverallStatus)), display.Score(cs.ComplianceScore), display.Score(cs.ConfidenceScore))

	if len(cs.RelevantExecutiveOrders) > 0 {
		tb := format.NewTable(format.Markdown)
		tb.Header("EO", "Title", "Source")
		for _, eo := range cs.RelevantExecutiveOrders {
			tb.Row(eo.EONumber, eo.Title, eo.Source)
		}
		b.WriteString(tb.String())
		b.WriteString("\n\n")
	}
	if len(cs.Violations) > 0 {
		b.WriteString("### Violations\n\n")
		for _, v := range cs.Violations {
			ref := v.ExecutiveOrderReference
			if ref == "" {
				ref = "unspecified"
			}
			fmt.Fprintf(b, "- %s (EO %s)\n", v.Message, ref)
			if v.RequirementExcerpt != "" {
				fmt.Fprintf(b, "  > %s\n", format.Truncate(v.RequirementExcerpt, 200))
			}
		}
		b.WriteString("\n")
	}
	if len(cs.Warnings) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, w := range cs.Warnings {
			fmt.Fprintf(b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	if len(cs.Citations) > 0 {
		b.WriteString("### Citations\n\n")
		for _, c := range cs.Citations {
			fmt.Fprintf(b, "- **%s**: %s\n", c.Title, format.Truncate(c.Snippet, 160))
		}
		b.WriteString("\n")
	}
	if cs.AnalysisText != "" {
		fmt.Fprintf(b, "### Analysis\n\n%s\n\n", strings.TrimSpace(cs.AnalysisText))
	}
}

func writeSummary(b *strings.Builder, s *review.SummarySection) {
	b.WriteString("## Summary\n\n")
	if s == nil {
		b.WriteString("_Summarization did not complete._\n\n")
		return
	}
	fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(s.ExecutiveSummary))
	if len(s.KeyTopics) > 0 {
		fmt.Fprintf(b, "**Topics:** %s\n\n", strings.Join(s.KeyTopics, ", "))
	}
	if len(s.KeyClauses) > 0 {
		b.WriteString("**Key clauses:**\n\n")
		for _, c := range s.KeyClauses {
			fmt.Fprintf(b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
}

func writeNotification(b *strings.Builder, n *review.NotificationSection) {
	b.WriteString("## Notification\n\n")
	switch {
	case n == nil:
		b.WriteString("_Not evaluated._\n\n")
	case n.Subject == "":
		b.WriteString("Not required.\n\n")
	default:
		fmt.Fprintf(b, "- **Subject:** %s\n- **To:** %s\n- **Priority:** %s\n- **Sent:** %s\n",
			n.Subject, n.Recipient, display.Priority(string(n.Priority)), format.BoolMark(n.Sent))
		if n.SendResult != nil && n.SendResult.Error != "" {
			fmt.Fprintf(b, "- **Delivery error:** %s\n", n.SendResult.Error)
		}
		b.WriteString("\n")
	}
}

func writeStages(b *strings.Builder, r *review.FinalReport) {
	b.WriteString("## Stages\n\n")
	b.WriteString(stageTable(r, format.Markdown))
	b.WriteString("\n")
}

// stageTable lists every stage in pipeline order.
func stageTable(r *review.FinalReport, m format.Mode) string {
	tb := format.NewTable(m)
	tb.Header("Stage", "Status", "Duration", "Error")
	for _, st := range review.Stages {
		ss, ok := r.StageStatus[st]
		if !ok {
			continue
		}
		dur := ""
		if step, ok := r.Steps[st]; ok {
			dur = format.FmtMillis(step.DurationMS)
		}
		tb.Row(display.Stage(string(st)), string(ss.Status), dur, format.Truncate(ss.ErrorMessage, 80))
	}
	return tb.String()
}
