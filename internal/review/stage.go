package review

import (
	"strings"
	"time"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageExtraction    Stage = "extraction"
	StageSummarization Stage = "summarization"
	StageCompliance    Stage = "compliance"
	StageRisk          Stage = "risk"
	StageNotification  Stage = "notification"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageExtraction, StageSummarization, StageCompliance, StageRisk, StageNotification}

// StageState is the lifecycle of one stage in one run.
type StageState string

const (
	StagePending StageState = "pending"
	StageSuccess StageState = "success"
	StageFailed  StageState = "failed"
)

// StageStatus is the per-stage entry in WorkflowState.StageStatus.
type StageStatus struct {
	Status       StageState `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// StepResult records one stage's execution for observability.
type StepResult struct {
	Status     StageState `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  string     `json:"started_at,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

func newStepResult(status StageState, errMsg string, started time.Time, d time.Duration) StepResult {
	return StepResult{
		Status:     status,
		Error:      errMsg,
		StartedAt:  started.UTC().Format(time.RFC3339),
		DurationMS: d.Milliseconds(),
	}
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
