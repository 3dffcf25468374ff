// Package review holds the data model threaded through a grant-proposal
// review run: the workflow state, its named sections, and the final report.
package review

import "time"

// ComplianceStatus is the verdict of the compliance analysis stage.
type ComplianceStatus string

const (
	Compliant      ComplianceStatus = "compliant"
	RequiresReview ComplianceStatus = "requires_review"
	NonCompliant   ComplianceStatus = "non_compliant"
)

// ParseComplianceStatus normalizes free-form status strings such as
// "Non-Compliant" or "requires review". Unknown values map to RequiresReview.
func ParseComplianceStatus(s string) ComplianceStatus {
	switch normalizeToken(s) {
	case "compliant":
		return Compliant
	case "non_compliant", "noncompliant":
		return NonCompliant
	default:
		return RequiresReview
	}
}

// RiskLevel is the discrete bucket of the overall risk score.
type RiskLevel string

const (
	RiskLow        RiskLevel = "low"
	RiskMedium     RiskLevel = "medium"
	RiskMediumHigh RiskLevel = "medium_high"
	RiskHigh       RiskLevel = "high"
)

// Severity grades a risk factor.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Priority grades a recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// NotificationPriority grades an outgoing notification.
type NotificationPriority string

const (
	NotifyNormal   NotificationPriority = "normal"
	NotifyHigh     NotificationPriority = "high"
	NotifyCritical NotificationPriority = "critical"
)

// OverallStatus is the top-level disposition of a run.
type OverallStatus string

const (
	ApprovedWithConditions OverallStatus = "approved_with_conditions"
	StatusRequiresReview   OverallStatus = "requires_review"
	RequiresLegalReview    OverallStatus = "requires_legal_review"
	StatusFailed           OverallStatus = "failed"
)

// DocumentMetadata is written once by the extraction step.
type DocumentMetadata struct {
	Filename  string `json:"filename"`
	WordCount int    `json:"word_count"`
	PageCount int    `json:"page_count"`
}

// SummarySection is written by the summarization stage.
type SummarySection struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyClauses       []string `json:"key_clauses"`
	KeyTopics        []string `json:"key_topics"`
	DetailedAnalysis string   `json:"detailed_analysis,omitempty"`
}

// HasTopic reports whether topic appears among the key topics (case-insensitive).
func (s *SummarySection) HasTopic(topic string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.KeyTopics {
		if normalizeToken(t) == normalizeToken(topic) {
			return true
		}
	}
	return false
}

// Violation is a single compliance finding tied to an executive order.
type Violation struct {
	Message                 string `json:"message"`
	ExecutiveOrderReference string `json:"executive_order_reference"`
	RequirementExcerpt      string `json:"requirement_excerpt"`
}

// Region is a character-offset span into a source passage.
type Region struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Citation links a finding back to an executive-order passage.
type Citation struct {
	Title                string            `json:"title"`
	URL                  string            `json:"url,omitempty"`
	Snippet              string            `json:"snippet"`
	AdditionalProperties map[string]string `json:"additional_properties"`
	AnnotatedRegions     []Region          `json:"annotated_regions"`
}

// ExecutiveOrderRef identifies an executive order relevant to a proposal.
type ExecutiveOrderRef struct {
	EONumber        string   `json:"eo_number"`
	Title           string   `json:"title"`
	Source          string   `json:"source"`
	KeyRequirements []string `json:"key_requirements"`
}

// ComplianceSection is written by the compliance analysis stage.
// ConfidenceScore measures model certainty; ComplianceScore measures
// regulatory alignment. The two are never derived from each other.
type ComplianceSection struct {
	OverallStatus           ComplianceStatus    `json:"overall_status"`
	ConfidenceScore         float64             `json:"confidence_score"`
	ComplianceScore         float64             `json:"compliance_score"`
	Violations              []Violation         `json:"violations"`
	Warnings                []string            `json:"warnings"`
	RelevantExecutiveOrders []ExecutiveOrderRef `json:"relevant_executive_orders"`
	Citations               []Citation          `json:"citations"`
	AnalysisText            string              `json:"analysis_text"`
}

// ComponentScore is one weighted input to the overall risk score.
type ComponentScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Contribution is the component's share of the overall score.
func (c ComponentScore) Contribution() float64 { return c.Score * c.Weight }

// RiskBreakdown holds the three weighted components of the overall score.
type RiskBreakdown struct {
	ComplianceRisk   ComponentScore `json:"compliance_risk"`
	QualityRisk      ComponentScore `json:"quality_risk"`
	CompletenessRisk ComponentScore `json:"completeness_risk"`
}

// Total recomputes the overall score from the breakdown.
func (b RiskBreakdown) Total() float64 {
	return b.ComplianceRisk.Contribution() + b.QualityRisk.Contribution() + b.CompletenessRisk.Contribution()
}

// RiskFactor is a named contributor to risk.
type RiskFactor struct {
	FactorName  string   `json:"factor_name"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Recommendation is a suggested reviewer action.
type Recommendation struct {
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// RiskSection is written by the risk scoring stage.
type RiskSection struct {
	OverallScore         float64          `json:"overall_score"`
	RiskLevel            RiskLevel        `json:"risk_level"`
	RiskBreakdown        RiskBreakdown    `json:"risk_breakdown"`
	RiskFactors          []RiskFactor     `json:"risk_factors"`
	Recommendations      []Recommendation `json:"recommendations"`
	RequiresNotification bool             `json:"requires_notification"`
	AssessmentCertainty  float64          `json:"assessment_certainty"`
}

// DeliveryStatus is the outcome of an email hand-off.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySimulated DeliveryStatus = "simulated"
)

// DeliveryReceipt records what the email collaborator reported.
type DeliveryReceipt struct {
	Status    DeliveryStatus `json:"status"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// NotificationSection is written by the notification decision stage,
// whether or not anything was sent.
type NotificationSection struct {
	Sent       bool                 `json:"sent"`
	Recipient  string               `json:"recipient,omitempty"`
	Subject    string               `json:"subject,omitempty"`
	Body       string               `json:"body,omitempty"`
	HTMLBody   string               `json:"html_body,omitempty"`
	Priority   NotificationPriority `json:"priority,omitempty"`
	SendResult *DeliveryReceipt     `json:"send_result,omitempty"`
}
