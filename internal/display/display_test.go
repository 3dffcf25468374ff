package display

import "testing"

func TestRiskLevel(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"low", "Low"},
		{"medium", "Medium"},
		{"medium_high", "Medium-High"},
		{"high", "High"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := RiskLevel(tc.code); got != tc.want {
			t.Errorf("RiskLevel(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestRiskLevelWithScore(t *testing.T) {
	if got := RiskLevelWithScore("medium", 86.05); got != "Medium (86.0/100)" && got != "Medium (86.1/100)" {
		t.Errorf("got %q", got)
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"compliant", "Compliant"},
		{"non_compliant", "Non-Compliant"},
		{"requires_review", "Requires Review"},
		{"requires_legal_review", "Requires Legal Review"},
		{"approved_with_conditions", "Approved With Conditions"},
		{"failed", "Failed"},
		{"bogus", "bogus"},
	}
	for _, tc := range cases {
		if got := Status(tc.code); got != tc.want {
			t.Errorf("Status(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestStatusWithCode(t *testing.T) {
	if got := StatusWithCode("requires_review"); got != "Requires Review (requires_review)" {
		t.Errorf("got %q", got)
	}
	if got := StatusWithCode("unknown"); got != "unknown" {
		t.Errorf("got %q", got)
	}
}

func TestStage(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"extraction", "Extraction"},
		{"summarization", "Summarization"},
		{"compliance", "Compliance Analysis"},
		{"risk", "Risk Scoring"},
		{"notification", "Notification"},
		{"other", "other"},
	}
	for _, tc := range cases {
		if got := Stage(tc.code); got != tc.want {
			t.Errorf("Stage(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestStagePath(t *testing.T) {
	got := StagePath([]string{"summarization", "compliance", "risk"})
	want := "Summarization → Compliance Analysis → Risk Scoring"
	if got != want {
		t.Errorf("StagePath = %q, want %q", got, want)
	}
}

func TestPriority(t *testing.T) {
	if got := Priority("critical"); got != "Critical" {
		t.Errorf("got %q", got)
	}
	if got := Priority("normal"); got != "Normal" {
		t.Errorf("got %q", got)
	}
}

func TestScore(t *testing.T) {
	if got := Score(42); got != "42.0" {
		t.Errorf("Score(42) = %q", got)
	}
}
