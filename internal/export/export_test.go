package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantreview/internal/review"
)

func escalatedReport() *review.FinalReport {
	return &review.FinalReport{
		RunID:             "run-42",
		DocumentReference: "/inbox/bridge.md",
		CompletedAt:       "2025-03-14T09:30:00Z",
		DocumentMetadata:  &review.DocumentMetadata{Filename: "bridge.md", WordCount: 640, PageCount: 2},
		Summary: &review.SummarySection{
			ExecutiveSummary: "Rehabilitate a rural bridge & approach roads.",
			KeyTopics:        []string{"infrastructure", "transportation"},
			KeyClauses:       []string{"Contractor shall certify wage rates."},
		},
		Compliance: &review.ComplianceSection{
			OverallStatus:   review.NonCompliant,
			ConfidenceScore: 80,
			ComplianceScore: 30,
			Violations: []review.Violation{{
				Message:                 "No climate resilience assessment",
				ExecutiveOrderReference: "14008",
				RequirementExcerpt:      "Agencies shall consider climate risk.",
			}},
			Warnings:                []string{"Workforce plan is thin"},
			RelevantExecutiveOrders: []review.ExecutiveOrderRef{{EONumber: "14008", Title: "Tackling the Climate Crisis", Source: "kb"}},
			Citations:               []review.Citation{{Title: "Tackling the Climate Crisis (Page 2)", Snippet: "Agencies shall consider climate risk."}},
			AnalysisText:            "The proposal omits <required> assessments.",
		},
		Risk: &review.RiskSection{
			OverallScore: 44.5,
			RiskLevel:    review.RiskHigh,
			RiskBreakdown: review.RiskBreakdown{
				ComplianceRisk:   review.ComponentScore{Score: 24, Weight: 0.60},
				QualityRisk:      review.ComponentScore{Score: 70, Weight: 0.25},
				CompletenessRisk: review.ComponentScore{Score: 80, Weight: 0.15},
			},
			RiskFactors:          []review.RiskFactor{{FactorName: "Compliance Issues", Severity: review.SeverityHigh, Description: "1 violation"}},
			Recommendations:      []review.Recommendation{{Action: "Legal review", Description: "Escalate to counsel", Priority: review.PriorityCritical}},
			RequiresNotification: true,
			AssessmentCertainty:  100,
		},
		Notification: &review.NotificationSection{
			Sent:      false,
			Recipient: "legal-review@example.gov",
			Subject:   "[URGENT] Grant Proposal Review Required - bridge.md (Risk: 44.5%)",
			Priority:  review.NotifyCritical,
			SendResult: &review.DeliveryReceipt{
				Status: review.DeliveryFailed,
				Error:  "connection refused",
			},
		},
		OverallStatus: review.RequiresLegalReview,
		StageStatus: map[review.Stage]review.StageStatus{
			review.StageExtraction:    {Status: review.StageSuccess},
			review.StageSummarization: {Status: review.StageSuccess},
			review.StageCompliance:    {Status: review.StageSuccess},
			review.StageRisk:          {Status: review.StageSuccess},
			review.StageNotification:  {Status: review.StageFailed, ErrorMessage: "delivery failed"},
		},
		Steps: map[review.Stage]review.StepResult{
			review.StageCompliance: {Status: review.StageSuccess, DurationMS: 1200},
		},
	}
}

func TestMarkdown_FullReport(t *testing.T) {
	md := Markdown(escalatedReport())

	for _, want := range []string{
		"# Grant Proposal Review: bridge.md",
		"`run-42`",
		"## Risk assessment",
		"| Component",
		"Compliance Issues",
		"[critical] **Legal review**",
		"No climate resilience assessment (EO 14008)",
		"| 14008",
		"### Warnings",
		"**Topics:** infrastructure, transportation",
		"**Delivery error:** connection refused",
		"1.2s",
		"delivery failed",
	} {
		assert.Contains(t, md, want)
	}

	// Sections appear in a fixed order.
	order := []string{"## Risk assessment", "## Compliance", "## Summary", "## Notification", "## Stages"}
	last := -1
	for _, h := range order {
		i := strings.Index(md, h)
		require.Greater(t, i, last, "section %q out of order", h)
		last = i
	}
}

func TestMarkdown_FailedRun(t *testing.T) {
	r := &review.FinalReport{
		RunID:             "run-0",
		DocumentReference: "scan.pdf",
		OverallStatus:     review.StatusFailed,
		StageStatus: map[review.Stage]review.StageStatus{
			review.StageExtraction: {Status: review.StageFailed, ErrorMessage: "unsupported file type"},
		},
	}
	md := Markdown(r)
	assert.Contains(t, md, "# Grant Proposal Review: scan.pdf")
	assert.Contains(t, md, "_Risk scoring did not complete._")
	assert.Contains(t, md, "_Compliance analysis did not complete._")
	assert.Contains(t, md, "_Not evaluated._")
	assert.Contains(t, md, "unsupported file type")
}

func TestHTML_EscapesContent(t *testing.T) {
	html, err := HTML(escalatedReport())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Grant Proposal Review: bridge.md</title>")
	assert.Contains(t, html, "&lt;required&gt;")
	assert.NotContains(t, html, "<required>")
	assert.Contains(t, html, "bridge &amp; approach")
	assert.Contains(t, html, "<table")
	assert.Contains(t, html, "Tackling the Climate Crisis")
}

func TestHTML_FailedRun(t *testing.T) {
	html, err := HTML(&review.FinalReport{RunID: "x", DocumentReference: "scan.pdf", OverallStatus: review.StatusFailed})
	require.NoError(t, err)
	assert.Contains(t, html, "Risk scoring did not complete.")
	assert.Contains(t, html, "Not evaluated.")
}
