// Package scoring holds the deterministic arithmetic of a review run:
// compliance-score derivation, document heuristics, risk aggregation,
// and the escalation policy.
package scoring

import (
	"math"
	"strings"

	"grantreview/internal/review"
)

// indicator is a lexical phrase that nudges the compliance score.
type indicator struct {
	Phrase string
	Delta  float64
}

// maxIndicatorHits caps how many occurrences of one phrase are counted.
const maxIndicatorHits = 3

var baseComplianceScores = map[review.ComplianceStatus]float64{
	review.Compliant:      90,
	review.NonCompliant:   30,
	review.RequiresReview: 60,
}

var negativeIndicators = []indicator{
	{"violation", -10},
	{"non-compliant", -10},
	{"concern", -5},
	{"issue", -3},
	{"risk", -3},
	{"problem", -5},
	{"fails to", -8},
	{"does not comply", -10},
	{"missing", -5},
	{"lacks", -5},
	{"dei", -5},
	{"diversity", -3},
	{"gender ideology", -5},
}

var positiveIndicators = []indicator{
	{"compliant", 5},
	{"meets requirements", 8},
	{"aligns with", 5},
	{"satisfies", 5},
	{"complies with", 8},
	{"no concerns", 10},
	{"no issues", 8},
}

// ComplianceScore derives regulatory alignment from the verdict status,
// the analysis text, and the number of relevant executive orders. It never
// reads the model's confidence.
func ComplianceScore(status review.ComplianceStatus, analysis string, executiveOrders int) float64 {
	score, ok := baseComplianceScores[status]
	if !ok {
		score = baseComplianceScores[review.RequiresReview]
	}

	text := strings.ToLower(analysis)
	score += indicatorDelta(text, negativeIndicators)
	score += indicatorDelta(text, positiveIndicators)

	switch {
	case executiveOrders >= 2:
		score += 5
	case executiveOrders == 0:
		score -= 10
	}
	return Clamp(score)
}

func indicatorDelta(text string, table []indicator) float64 {
	var delta float64
	for _, ind := range table {
		n := strings.Count(text, ind.Phrase)
		if n > maxIndicatorHits {
			n = maxIndicatorHits
		}
		delta += float64(n) * ind.Delta
	}
	return delta
}

// Clamp bounds v to [0, 100]. NaN maps to 0.
func Clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
