package review

import (
	"errors"
	"fmt"
	"time"
)

// ErrSectionWritten is returned when a stage tries to overwrite a section.
var ErrSectionWritten = errors.New("section already written")

// WorkflowState is the record threaded through one pipeline run.
// It is created per document and is never shared between runs.
type WorkflowState struct {
	RunID             string
	DocumentReference string
	StartedAt         time.Time

	extractedText string
	metadata      *DocumentMetadata
	summary       *SummarySection
	compliance    *ComplianceSection
	risk          *RiskSection
	notification  *NotificationSection

	stageStatus map[Stage]StageStatus
	steps       map[Stage]StepResult
}

// NewWorkflowState returns a fresh state with every stage pending.
func NewWorkflowState(runID, documentRef string) *WorkflowState {
	s := &WorkflowState{
		RunID:             runID,
		DocumentReference: documentRef,
		StartedAt:         time.Now().UTC(),
		stageStatus:       make(map[Stage]StageStatus, len(Stages)),
		steps:             make(map[Stage]StepResult, len(Stages)),
	}
	for _, st := range Stages {
		s.stageStatus[st] = StageStatus{Status: StagePending}
	}
	return s
}

// SetExtraction records the extracted text and metadata.
func (s *WorkflowState) SetExtraction(text string, md DocumentMetadata) error {
	if s.metadata != nil {
		return fmt.Errorf("extraction: %w", ErrSectionWritten)
	}
	s.extractedText = text
	s.metadata = &md
	return nil
}

// SetSummary records the summary section.
func (s *WorkflowState) SetSummary(sec *SummarySection) error {
	if s.summary != nil {
		return fmt.Errorf("summary_section: %w", ErrSectionWritten)
	}
	s.summary = sec
	return nil
}

// SetCompliance records the compliance section.
func (s *WorkflowState) SetCompliance(sec *ComplianceSection) error {
	if s.compliance != nil {
		return fmt.Errorf("compliance_section: %w", ErrSectionWritten)
	}
	s.compliance = sec
	return nil
}

// SetRisk records the risk section.
func (s *WorkflowState) SetRisk(sec *RiskSection) error {
	if s.risk != nil {
		return fmt.Errorf("risk_section: %w", ErrSectionWritten)
	}
	s.risk = sec
	return nil
}

// SetNotification records the notification section.
func (s *WorkflowState) SetNotification(sec *NotificationSection) error {
	if s.notification != nil {
		return fmt.Errorf("notification_section: %w", ErrSectionWritten)
	}
	s.notification = sec
	return nil
}

// ExtractedText returns the text written by the extraction step.
func (s *WorkflowState) ExtractedText() string { return s.extractedText }

// Metadata returns the document metadata, or nil before extraction.
func (s *WorkflowState) Metadata() *DocumentMetadata { return s.metadata }

// Summary returns the summary section, or nil if not yet written.
func (s *WorkflowState) Summary() *SummarySection { return s.summary }

// Compliance returns the compliance section, or nil if not yet written.
func (s *WorkflowState) Compliance() *ComplianceSection { return s.compliance }

// Risk returns the risk section, or nil if not yet written.
func (s *WorkflowState) Risk() *RiskSection { return s.risk }

// Notification returns the notification section, or nil if not yet written.
func (s *WorkflowState) Notification() *NotificationSection { return s.notification }

// MarkStage updates a stage's status and its step record.
func (s *WorkflowState) MarkStage(st Stage, status StageState, stageErr error, started time.Time) {
	var msg string
	if stageErr != nil {
		msg = stageErr.Error()
	}
	s.stageStatus[st] = StageStatus{Status: status, ErrorMessage: msg}
	s.steps[st] = newStepResult(status, msg, started, time.Since(started))
}

// StageStatus returns the current status of a stage.
func (s *WorkflowState) StageStatus(st Stage) StageStatus {
	return s.stageStatus[st]
}

// FailedStages lists stages marked failed, in execution order.
func (s *WorkflowState) FailedStages() []Stage {
	var out []Stage
	for _, st := range Stages {
		if s.stageStatus[st].Status == StageFailed {
			out = append(out, st)
		}
	}
	return out
}

// Report snapshots the state into a FinalReport with the given overall status.
func (s *WorkflowState) Report(overall OverallStatus) *FinalReport {
	status := make(map[Stage]StageStatus, len(s.stageStatus))
	for k, v := range s.stageStatus {
		status[k] = v
	}
	steps := make(map[Stage]StepResult, len(s.steps))
	for k, v := range s.steps {
		steps[k] = v
	}
	return &FinalReport{
		RunID:             s.RunID,
		DocumentReference: s.DocumentReference,
		StartedAt:         s.StartedAt.Format(time.RFC3339),
		CompletedAt:       time.Now().UTC().Format(time.RFC3339),
		DocumentMetadata:  s.metadata,
		Summary:           s.summary,
		Compliance:        s.compliance,
		Risk:              s.risk,
		Notification:      s.notification,
		OverallStatus:     overall,
		StageStatus:       status,
		Steps:             steps,
	}
}
