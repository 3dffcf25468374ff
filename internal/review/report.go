package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"grantreview/internal/display"
)

// FinalReport is the serialized outcome of one pipeline run: every named
// section plus the overall status and per-stage status.
type FinalReport struct {
	RunID             string                `json:"run_id"`
	DocumentReference string                `json:"document_reference"`
	StartedAt         string                `json:"started_at"`
	CompletedAt       string                `json:"completed_at"`
	DocumentMetadata  *DocumentMetadata     `json:"document_metadata,omitempty"`
	Summary           *SummarySection       `json:"summary_section,omitempty"`
	Compliance        *ComplianceSection    `json:"compliance_section,omitempty"`
	Risk              *RiskSection          `json:"risk_section,omitempty"`
	Notification      *NotificationSection  `json:"notification_section,omitempty"`
	OverallStatus     OverallStatus         `json:"overall_status"`
	StageStatus       map[Stage]StageStatus `json:"stage_status"`
	Steps             map[Stage]StepResult  `json:"steps"`
}

// Filename returns the document filename, falling back to the reference.
func (r *FinalReport) Filename() string {
	if r.DocumentMetadata != nil && r.DocumentMetadata.Filename != "" {
		return r.DocumentMetadata.Filename
	}
	return r.DocumentReference
}

// Marshal encodes the report as indented JSON.
func (r *FinalReport) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// UnmarshalReport decodes a report produced by Marshal.
func UnmarshalReport(data []byte) (*FinalReport, error) {
	var r FinalReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// SummaryText renders a plain-text overview of the run for terminals and logs.
func (r *FinalReport) SummaryText() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\nGRANT PROPOSAL REVIEW SUMMARY\n%s\n\n", rule, rule)

	b.WriteString("DOCUMENT\n")
	fmt.Fprintf(&b, "  File:     %s\n", r.Filename())
	fmt.Fprintf(&b, "  Run:      %s\n", r.RunID)
	if md := r.DocumentMetadata; md != nil {
		fmt.Fprintf(&b, "  Pages:    %d\n", md.PageCount)
		fmt.Fprintf(&b, "  Words:    %d\n", md.WordCount)
	}
	b.WriteString("\n")

	b.WriteString("RISK ASSESSMENT\n")
	if rs := r.Risk; rs != nil {
		fmt.Fprintf(&b, "  Score:     %s/100\n", display.Score(rs.OverallScore))
		fmt.Fprintf(&b, "  Level:     %s\n", display.RiskLevel(string(rs.RiskLevel)))
		fmt.Fprintf(&b, "  Certainty: %s\n", display.Score(rs.AssessmentCertainty))
		for i, f := range rs.RiskFactors {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "  - [%s] %s: %s\n", f.Severity, f.FactorName, f.Description)
		}
	} else {
		b.WriteString("  (not available)\n")
	}
	b.WriteString("\n")

	b.WriteString("COMPLIANCE STATUS\n")
	if cs := r.Compliance; cs != nil {
		fmt.Fprintf(&b, "  Status:     %s\n", display.Status(string(cs.OverallStatus)))
		fmt.Fprintf(&b, "  Compliance: %s/100\n", display.Score(cs.ComplianceScore))
		fmt.Fprintf(&b, "  Confidence: %s/100\n", display.Score(cs.ConfidenceScore))
		fmt.Fprintf(&b, "  Executive orders: %d, violations: %d, warnings: %d\n",
			len(cs.RelevantExecutiveOrders), len(cs.Violations), len(cs.Warnings))
	} else {
		b.WriteString("  (not available)\n")
	}
	b.WriteString("\n")

	b.WriteString("OVERALL STATUS\n")
	fmt.Fprintf(&b, "  %s\n", display.Status(string(r.OverallStatus)))
	for _, st := range Stages {
		ss, ok := r.StageStatus[st]
		if !ok || ss.Status != StageFailed {
			continue
		}
		fmt.Fprintf(&b, "  %s failed: %s\n", display.Stage(string(st)), ss.ErrorMessage)
	}
	b.WriteString("\n")

	b.WriteString("EMAIL NOTIFICATION\n")
	switch n := r.Notification; {
	case n == nil:
		b.WriteString("  (not evaluated)\n")
	case n.Subject == "":
		b.WriteString("  Not required\n")
	default:
		fmt.Fprintf(&b, "  Subject:  %s\n", n.Subject)
		fmt.Fprintf(&b, "  To:       %s\n", n.Recipient)
		fmt.Fprintf(&b, "  Priority: %s\n", display.Priority(string(n.Priority)))
		fmt.Fprintf(&b, "  Sent:     %t\n", n.Sent)
		if n.SendResult != nil && n.SendResult.Error != "" {
			fmt.Fprintf(&b, "  Delivery error: %s\n", n.SendResult.Error)
		}
	}
	b.WriteString(rule + "\n")
	return b.String()
}
