package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantreview/internal/review"
)

func fullSummary() *review.SummarySection {
	return &review.SummarySection{
		ExecutiveSummary: "A workforce training program.",
		KeyClauses: []string{
			"The total budget is $1.2M over two years.",
			"The project timeline includes four quarterly milestones.",
			"Primary objective: train 500 technicians.",
		},
		KeyTopics: []string{"budget", "timeline", "workforce", "education"},
	}
}

func strongCompliance() *review.ComplianceSection {
	return &review.ComplianceSection{
		OverallStatus:   review.Compliant,
		ConfidenceScore: 95,
		ComplianceScore: 90,
		RelevantExecutiveOrders: []review.ExecutiveOrderRef{
			{EONumber: "14008"}, {EONumber: "14151"},
		},
	}
}

func TestCombine_ScenarioOne(t *testing.T) {
	th := DefaultThresholds()
	b := th.Combine(90, 95, 85, 90)
	overall := b.Total()

	assert.InDelta(t, 86.05, overall, 1e-9)
	assert.InDelta(t, 51.3, b.ComplianceRisk.Contribution(), 1e-9)
	assert.InDelta(t, 21.25, b.QualityRisk.Contribution(), 1e-9)
	assert.InDelta(t, 13.5, b.CompletenessRisk.Contribution(), 1e-9)

	level := th.Level(overall)
	assert.Equal(t, review.RiskMedium, level)
	assert.False(t, DefaultPolicy().RequiresNotification(overall, level))
}

func TestLevel_Thresholds(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score float64
		want  review.RiskLevel
	}{
		{100, review.RiskLow},
		{90, review.RiskLow},
		{89.99, review.RiskMedium},
		{75, review.RiskMedium},
		{74.99, review.RiskMediumHigh},
		{60, review.RiskMediumHigh},
		{59.99, review.RiskHigh},
		{0, review.RiskHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, th.Level(tc.score), "score %.2f", tc.score)
	}
}

func TestCertainty(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 50.0, th.Certainty(75))
	assert.Equal(t, 60.0, th.Certainty(77))
	assert.Equal(t, 100.0, th.Certainty(20))
	assert.Equal(t, 100.0, th.Certainty(100))
}

func TestAssess_BreakdownSumsToOverall(t *testing.T) {
	th := DefaultThresholds()
	pol := DefaultPolicy()
	for _, conf := range []float64{0, 25, 50, 75, 100} {
		for _, cs := range []float64{0, 30, 60, 90, 100} {
			c := strongCompliance()
			c.ComplianceScore, c.ConfidenceScore = cs, conf
			sec := Assess(Input{
				Metadata:   &review.DocumentMetadata{WordCount: 1500, PageCount: 4},
				Summary:    fullSummary(),
				Compliance: c,
			}, th, pol)
			assert.InDelta(t, sec.OverallScore, sec.RiskBreakdown.Total(), 1e-9)
			assert.Equal(t, 0.60, sec.RiskBreakdown.ComplianceRisk.Weight)
			assert.Equal(t, 0.25, sec.RiskBreakdown.QualityRisk.Weight)
			assert.Equal(t, 0.15, sec.RiskBreakdown.CompletenessRisk.Weight)
		}
	}
}

func TestAssess_MonotonicInComplianceAndConfidence(t *testing.T) {
	th := DefaultThresholds()
	pol := DefaultPolicy()
	score := func(cs, conf float64) float64 {
		c := strongCompliance()
		c.ComplianceScore, c.ConfidenceScore = cs, conf
		return Assess(Input{
			Metadata:   &review.DocumentMetadata{WordCount: 800, PageCount: 1},
			Summary:    fullSummary(),
			Compliance: c,
		}, th, pol).OverallScore
	}
	for fixed := 0.0; fixed <= 100; fixed += 10 {
		prevCS, prevConf := -1.0, -1.0
		for v := 0.0; v <= 100; v += 5 {
			byCS := score(v, fixed)
			byConf := score(fixed, v)
			assert.GreaterOrEqual(t, byCS, prevCS, "compliance %.0f at confidence %.0f", v, fixed)
			assert.GreaterOrEqual(t, byConf, prevConf, "confidence %.0f at compliance %.0f", v, fixed)
			prevCS, prevConf = byCS, byConf
		}
	}
}

func TestAssess_HighRiskAlwaysNotifies(t *testing.T) {
	th := DefaultThresholds()
	pol := DefaultPolicy()
	for q := 0.0; q <= 100; q += 10 {
		for c := 0.0; c <= 100; c += 10 {
			for w := 0.0; w <= 100; w += 10 {
				b := th.Combine(w, 100, q, c)
				overall := b.Total()
				if overall < 60 {
					require.True(t, pol.RequiresNotification(overall, th.Level(overall)),
						"score %.2f must notify", overall)
				}
			}
		}
	}
}

func TestAssess_Idempotent(t *testing.T) {
	in := Input{
		Metadata:   &review.DocumentMetadata{WordCount: 700, PageCount: 1},
		Summary:    fullSummary(),
		Compliance: strongCompliance(),
	}
	in.Compliance.Violations = []review.Violation{{Message: "Missing certification", ExecutiveOrderReference: "14151"}}
	a := Assess(in, DefaultThresholds(), DefaultPolicy())
	b := Assess(in, DefaultThresholds(), DefaultPolicy())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Assess not idempotent (-first +second):\n%s", diff)
	}
}

func TestAssess_WorstCaseDefaultsWhenUpstreamMissing(t *testing.T) {
	sec := Assess(Input{
		Metadata:     &review.DocumentMetadata{WordCount: 2000, PageCount: 5},
		FailedStages: []review.Stage{review.StageSummarization, review.StageCompliance},
	}, DefaultThresholds(), DefaultPolicy())

	assert.Equal(t, 0.0, sec.RiskBreakdown.ComplianceRisk.Score)
	assert.Equal(t, review.RiskHigh, sec.RiskLevel)
	assert.True(t, sec.RequiresNotification)
	require.NotEmpty(t, sec.RiskFactors)
	assert.Equal(t, "Analysis Incomplete", sec.RiskFactors[0].FactorName)
	assert.Contains(t, sec.RiskFactors[0].Description, "manual review required")
}

func TestAssess_RecommendationsByLevel(t *testing.T) {
	th := DefaultThresholds()
	pol := DefaultPolicy()

	high := Assess(Input{Metadata: &review.DocumentMetadata{}}, th, pol)
	require.GreaterOrEqual(t, len(high.Recommendations), 2)
	assert.Equal(t, "Immediate Legal Review Required", high.Recommendations[0].Action)
	assert.Equal(t, review.PriorityCritical, high.Recommendations[0].Priority)
	assert.Equal(t, "Address Compliance Issues", high.Recommendations[1].Action)

	c := strongCompliance()
	c.Violations = []review.Violation{
		{Message: "No workforce plan", ExecutiveOrderReference: "14008"},
		{Message: "Missing certification"},
	}
	sec := Assess(Input{
		Metadata:   &review.DocumentMetadata{WordCount: 1500, PageCount: 4},
		Summary:    fullSummary(),
		Compliance: c,
	}, th, pol)
	var resolve int
	for _, r := range sec.Recommendations {
		if r.Action == "Resolve Violation" {
			resolve++
			assert.Equal(t, review.PriorityHigh, r.Priority)
		}
	}
	assert.Equal(t, 2, resolve)
}

func TestAssess_FactorsSortedBySeverity(t *testing.T) {
	sec := Assess(Input{
		Metadata: &review.DocumentMetadata{WordCount: 100, PageCount: 1},
		Summary:  &review.SummarySection{},
		Compliance: &review.ComplianceSection{
			OverallStatus: review.NonCompliant, ComplianceScore: 20, ConfidenceScore: 90,
		},
	}, DefaultThresholds(), DefaultPolicy())
	for i := 1; i < len(sec.RiskFactors); i++ {
		assert.GreaterOrEqual(t, severityRank[sec.RiskFactors[i-1].Severity], severityRank[sec.RiskFactors[i].Severity])
	}
}
