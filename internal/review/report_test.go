package review

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleReport() *FinalReport {
	sent := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewWorkflowState("run-42", "inbox/proposal.txt")
	_ = s.SetExtraction("body", DocumentMetadata{Filename: "proposal.txt", WordCount: 1200, PageCount: 3})
	_ = s.SetSummary(&SummarySection{
		ExecutiveSummary: "Community broadband expansion.",
		KeyClauses:       []string{"The budget totals $2M."},
		KeyTopics:        []string{"budget", "infrastructure"},
	})
	_ = s.SetCompliance(&ComplianceSection{
		OverallStatus:   RequiresReview,
		ConfidenceScore: 70,
		ComplianceScore: 55,
		Violations: []Violation{{
			Message:                 "Missing workforce plan",
			ExecutiveOrderReference: "14008",
			RequirementExcerpt:      "Agencies shall ensure workforce plans",
		}},
		Warnings: []string{"Timeline is vague"},
		RelevantExecutiveOrders: []ExecutiveOrderRef{{
			EONumber: "14008", Title: "Climate Crisis", Source: "14008_Climate_Crisis.txt",
			KeyRequirements: []string{"Agencies shall ensure workforce plans"},
		}},
		Citations: []Citation{{
			Title:                "Climate Crisis (Page 1)",
			Snippet:              "Agencies shall ensure",
			AdditionalProperties: map[string]string{"executive_order_number": "14008", "page_number": "1"},
			AnnotatedRegions:     []Region{{StartIndex: 0, EndIndex: 21}},
		}},
		AnalysisText: "Requires review.",
	})
	_ = s.SetRisk(&RiskSection{
		OverallScore: 61.3,
		RiskLevel:    RiskMediumHigh,
		RiskBreakdown: RiskBreakdown{
			ComplianceRisk:   ComponentScore{Score: 38.5, Weight: 0.60},
			QualityRisk:      ComponentScore{Score: 85, Weight: 0.25},
			CompletenessRisk: ComponentScore{Score: 65, Weight: 0.15},
		},
		RiskFactors:          []RiskFactor{{FactorName: "Compliance Violations", Severity: SeverityHigh, Description: "1 violation"}},
		Recommendations:      []Recommendation{{Action: "Legal Review Recommended", Description: "x", Priority: PriorityHigh}},
		RequiresNotification: true,
		AssessmentCertainty:  56.5,
	})
	_ = s.SetNotification(&NotificationSection{
		Sent:       true,
		Recipient:  "legal@example.gov",
		Subject:    "[PRIORITY] Grant Proposal Review Required - proposal.txt (Risk: 61.3%)",
		Body:       "body",
		Priority:   NotifyHigh,
		SendResult: &DeliveryReceipt{Status: DeliverySent, SentAt: &sent, MessageID: "m-1"},
	})
	s.MarkStage(StageExtraction, StageSuccess, nil, time.Now())
	return s.Report(StatusRequiresReview)
}

func TestFinalReport_RoundTrip(t *testing.T) {
	want := sampleReport()
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalReport(data)
	if err != nil {
		t.Fatalf("UnmarshalReport: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalReport_OmitsUnwrittenSections(t *testing.T) {
	s := NewWorkflowState("run-1", "broken.pdf")
	data, err := s.Report(StatusFailed).Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{"summary_section", "compliance_section", "risk_section", "notification_section"} {
		if strings.Contains(string(data), key) {
			t.Errorf("expected %s to be omitted:\n%s", key, data)
		}
	}
}

func TestFinalReport_SummaryText(t *testing.T) {
	out := sampleReport().SummaryText()
	for _, want := range []string{
		"DOCUMENT", "proposal.txt",
		"RISK ASSESSMENT", "61.3/100", "Medium-High",
		"COMPLIANCE STATUS", "Requires Review",
		"OVERALL STATUS",
		"EMAIL NOTIFICATION", "[PRIORITY]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFinalReport_SummaryTextShowsFailedStage(t *testing.T) {
	s := NewWorkflowState("run-1", "p.txt")
	s.MarkStage(StageCompliance, StageFailed, errTest("search unavailable"), time.Now())
	out := s.Report(StatusRequiresReview).SummaryText()
	if !strings.Contains(out, "Compliance Analysis failed: search unavailable") {
		t.Errorf("expected failed stage line:\n%s", out)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
