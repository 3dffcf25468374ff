// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, and notifications.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import (
	"strconv"
	"strings"
)

// --- Risk Levels ---

var riskLevels = map[string]string{
	"low":         "Low",
	"medium":      "Medium",
	"medium_high": "Medium-High",
	"high":        "High",
}

// RiskLevel returns the human-readable name for a risk level code.
// Unknown codes are returned as-is.
func RiskLevel(code string) string {
	if name, ok := riskLevels[code]; ok {
		return name
	}
	return code
}

// RiskLevelWithScore returns "Medium (86.1/100)" format.
func RiskLevelWithScore(code string, score float64) string {
	return RiskLevel(code) + " (" + Score(score) + "/100)"
}

// --- Compliance and Overall Status ---

var statuses = map[string]string{
	"compliant":                "Compliant",
	"non_compliant":            "Non-Compliant",
	"requires_review":          "Requires Review",
	"requires_legal_review":    "Requires Legal Review",
	"approved_with_conditions": "Approved With Conditions",
	"failed":                   "Failed",
	"pending":                  "Pending",
	"success":                  "Success",
	"sent":                     "Sent",
	"simulated":                "Simulated",
}

// Status returns the human-readable name for a compliance, overall,
// stage, or delivery status code.
func Status(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// StatusWithCode returns "Requires Review (requires_review)" format.
func StatusWithCode(code string) string {
	if name, ok := statuses[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Pipeline Stages ---

var stages = map[string]string{
	"extraction":    "Extraction",
	"summarization": "Summarization",
	"compliance":    "Compliance Analysis",
	"risk":          "Risk Scoring",
	"notification":  "Notification",
}

// Stage returns the human-readable name for a pipeline stage code.
// "compliance" -> "Compliance Analysis".
func Stage(code string) string {
	if name, ok := stages[code]; ok {
		return name
	}
	return code
}

// StagePath converts a slice of stage codes to a human-readable path.
// ["summarization", "compliance"] -> "Summarization → Compliance Analysis"
func StagePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = Stage(c)
	}
	return strings.Join(names, " → ")
}

// --- Priorities ---

var priorities = map[string]string{
	"critical": "Critical",
	"high":     "High",
	"medium":   "Medium",
	"low":      "Low",
	"normal":   "Normal",
}

// Priority returns the human-readable name for a recommendation or
// notification priority.
func Priority(code string) string {
	if name, ok := priorities[code]; ok {
		return name
	}
	return code
}

// Score formats a 0-100 score with one decimal.
func Score(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
