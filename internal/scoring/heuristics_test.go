package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"grantreview/internal/review"
)

func TestQualityScore(t *testing.T) {
	cases := []struct {
		name    string
		md      *review.DocumentMetadata
		summary *review.SummarySection
		want    float64
	}{
		{"complete", &review.DocumentMetadata{WordCount: 1500, PageCount: 3}, fullSummary(), 100},
		{"short", &review.DocumentMetadata{WordCount: 300, PageCount: 1}, fullSummary(), 60},
		{"medium length", &review.DocumentMetadata{WordCount: 800, PageCount: 2}, fullSummary(), 85},
		{"no summary", &review.DocumentMetadata{WordCount: 1500, PageCount: 3}, nil, 70},
		{"everything wrong", nil, nil, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := QualityScore(tc.md, tc.summary)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompletenessScore(t *testing.T) {
	got, issues := CompletenessScore(fullSummary(), strongCompliance())
	assert.Equal(t, 100.0, got)
	assert.Empty(t, issues)

	one := strongCompliance()
	one.RelevantExecutiveOrders = one.RelevantExecutiveOrders[:1]
	got, _ = CompletenessScore(fullSummary(), one)
	assert.Equal(t, 80.0, got)

	// nil summary: -25 clauses, -30 sections; nil compliance: -40
	got, issues = CompletenessScore(nil, nil)
	assert.Equal(t, 5.0, got)
	assert.Len(t, issues, 5)
}

func TestCompletenessScore_SectionAliases(t *testing.T) {
	s := &review.SummarySection{
		KeyClauses: []string{"Funding request of $400k", "A schedule of milestones", "Our goal is access"},
	}
	c := strongCompliance()
	got, issues := CompletenessScore(s, c)
	assert.Equal(t, 100.0, got, "issues: %+v", issues)
}
