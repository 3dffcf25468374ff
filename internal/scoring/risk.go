package scoring

import (
	"fmt"
	"math"
	"sort"

	"grantreview/internal/review"
)

// Thresholds is the risk policy: component weights, level boundaries, and
// the sub-score below which a component is called out as a concern.
type Thresholds struct {
	ComplianceWeight   float64 // default 0.60
	QualityWeight      float64 // default 0.25
	CompletenessWeight float64 // default 0.15

	Low        float64 // overall >= Low is low risk (default 90)
	Medium     float64 // overall >= Medium is medium risk (default 75)
	MediumHigh float64 // overall >= MediumHigh is medium-high risk (default 60)

	Concern float64 // sub-score below this becomes a risk factor (default 60)
}

// DefaultThresholds returns the standard review policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ComplianceWeight:   0.60,
		QualityWeight:      0.25,
		CompletenessWeight: 0.15,
		Low:                90,
		Medium:             75,
		MediumHigh:         60,
		Concern:            60,
	}
}

// Level buckets an overall score.
func (th Thresholds) Level(score float64) review.RiskLevel {
	switch {
	case score >= th.Low:
		return review.RiskLow
	case score >= th.Medium:
		return review.RiskMedium
	case score >= th.MediumHigh:
		return review.RiskMediumHigh
	default:
		return review.RiskHigh
	}
}

// Certainty measures distance from the nearest level boundary: 50 on a
// boundary, rising 5 points per score point of clearance, capped at 100.
func (th Thresholds) Certainty(score float64) float64 {
	d := math.Inf(1)
	for _, b := range []float64{th.MediumHigh, th.Medium, th.Low} {
		d = math.Min(d, math.Abs(score-b))
	}
	return math.Min(100, 50+5*d)
}

// Combine weights the components into a breakdown. The compliance component
// is the compliance score scaled by model confidence, so an uncertain verdict
// earns less credit. The overall score is breakdown.Total().
func (th Thresholds) Combine(complianceScore, confidence, quality, completeness float64) review.RiskBreakdown {
	weighted := Clamp(complianceScore) * (Clamp(confidence) / 100)
	return review.RiskBreakdown{
		ComplianceRisk:   review.ComponentScore{Score: weighted, Weight: th.ComplianceWeight},
		QualityRisk:      review.ComponentScore{Score: Clamp(quality), Weight: th.QualityWeight},
		CompletenessRisk: review.ComponentScore{Score: Clamp(completeness), Weight: th.CompletenessWeight},
	}
}

// Input is everything the risk stage reads from the workflow state. Nil
// sections stand for failed upstream stages.
type Input struct {
	Metadata     *review.DocumentMetadata
	Summary      *review.SummarySection
	Compliance   *review.ComplianceSection
	FailedStages []review.Stage
}

// Assess computes the risk section. It performs no I/O and returns the same
// result for the same input.
func Assess(in Input, th Thresholds, pol *Policy) *review.RiskSection {
	complianceScore, confidence := 0.0, 0.0
	var violations []review.Violation
	status := review.RequiresReview
	if c := in.Compliance; c != nil {
		complianceScore, confidence = c.ComplianceScore, c.ConfidenceScore
		violations = c.Violations
		status = c.OverallStatus
	}
	quality, qualityIssues := QualityScore(in.Metadata, in.Summary)
	completeness, completenessIssues := CompletenessScore(in.Summary, in.Compliance)

	breakdown := th.Combine(complianceScore, confidence, quality, completeness)
	weighted := breakdown.ComplianceRisk.Score
	overall := breakdown.Total()
	level := th.Level(overall)

	sec := &review.RiskSection{
		OverallScore:         overall,
		RiskLevel:            level,
		RiskBreakdown:        breakdown,
		RequiresNotification: pol.RequiresNotification(overall, level),
		AssessmentCertainty:  th.Certainty(overall),
	}

	var factors []review.RiskFactor
	if len(in.FailedStages) > 0 {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Analysis Incomplete",
			Severity:    review.SeverityHigh,
			Description: fmt.Sprintf("analysis incomplete — manual review required (failed: %v)", in.FailedStages),
		})
	}
	if status == review.NonCompliant {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Non-Compliant Determination",
			Severity:    review.SeverityHigh,
			Description: "compliance analysis found the proposal non-compliant with applicable executive orders",
		})
	}
	if len(violations) > 0 {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Compliance Violations",
			Severity:    review.SeverityHigh,
			Description: fmt.Sprintf("%d compliance violation(s) identified", len(violations)),
		})
	}
	if weighted < th.Concern {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Low Compliance Score",
			Severity:    concernSeverity(weighted),
			Description: fmt.Sprintf("confidence-weighted compliance %.1f (compliance %.1f at %.0f%% confidence)", weighted, complianceScore, confidence),
		})
	}
	if quality < th.Concern {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Low Document Quality",
			Severity:    concernSeverity(quality),
			Description: describeIssues(qualityIssues),
		})
	}
	if completeness < th.Concern {
		factors = append(factors, review.RiskFactor{
			FactorName:  "Incomplete Proposal",
			Severity:    concernSeverity(completeness),
			Description: describeIssues(completenessIssues),
		})
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return severityRank[factors[i].Severity] > severityRank[factors[j].Severity]
	})
	sec.RiskFactors = factors

	sec.Recommendations = recommendations(level, violations, weighted < th.Concern, quality < th.Concern, completeness < th.Concern)
	return sec
}

var severityRank = map[review.Severity]int{
	review.SeverityLow:    0,
	review.SeverityMedium: 1,
	review.SeverityHigh:   2,
}

func concernSeverity(score float64) review.Severity {
	if score < 40 {
		return review.SeverityHigh
	}
	return review.SeverityMedium
}

func recommendations(level review.RiskLevel, violations []review.Violation, lowCompliance, lowQuality, lowCompleteness bool) []review.Recommendation {
	var recs []review.Recommendation
	switch level {
	case review.RiskHigh:
		recs = append(recs,
			review.Recommendation{
				Action:      "Immediate Legal Review Required",
				Description: "High risk proposal requires attorney review before any funding decision",
				Priority:    review.PriorityCritical,
			},
			review.Recommendation{
				Action:      "Address Compliance Issues",
				Description: "Resolve identified compliance gaps with the applicant before resubmission",
				Priority:    review.PriorityCritical,
			})
	case review.RiskMediumHigh:
		recs = append(recs, review.Recommendation{
			Action:      "Legal Review Recommended",
			Description: "Route to legal counsel for review of flagged compliance areas",
			Priority:    review.PriorityHigh,
		})
	case review.RiskMedium:
		recs = append(recs, review.Recommendation{
			Action:      "Supervisory Review",
			Description: "A supervisor should confirm the automated findings",
			Priority:    review.PriorityMedium,
		})
	}

	for _, v := range violations {
		desc := v.Message
		if v.ExecutiveOrderReference != "" {
			desc = fmt.Sprintf("%s (EO %s)", v.Message, v.ExecutiveOrderReference)
		}
		recs = append(recs, review.Recommendation{
			Action:      "Resolve Violation",
			Description: desc,
			Priority:    review.PriorityHigh,
		})
	}
	if lowCompliance {
		recs = append(recs, review.Recommendation{
			Action:      "Strengthen Compliance Alignment",
			Description: "Document how the proposal satisfies each applicable executive order requirement",
			Priority:    review.PriorityMedium,
		})
	}
	if lowQuality {
		recs = append(recs, review.Recommendation{
			Action:      "Improve Document Quality",
			Description: "Request a more detailed proposal with clearly stated requirements and topics",
			Priority:    review.PriorityMedium,
		})
	}
	if lowCompleteness {
		recs = append(recs, review.Recommendation{
			Action:      "Complete Missing Sections",
			Description: "Request the missing budget, timeline, or objectives content",
			Priority:    review.PriorityMedium,
		})
	}
	return recs
}
