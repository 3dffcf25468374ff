package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grantreview/internal/logging"
	"grantreview/internal/review"
	"grantreview/internal/scoring"
)

// Controller sequences the review stages over one WorkflowState per run.
// It holds no per-run state and is safe for concurrent use when its
// collaborators are.
type Controller struct {
	collab Collaborators
	cfg    Config
	obs    Observer
	log    *zap.SugaredLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver attaches run telemetry.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController validates the collaborators and fills config defaults.
func NewController(collab Collaborators, cfg Config, opts ...Option) (*Controller, error) {
	if collab.Searcher == nil {
		return nil, errors.New("pipeline: searcher is required")
	}
	if collab.Completer == nil {
		return nil, errors.New("pipeline: completer is required")
	}
	c := &Controller{
		collab: collab,
		cfg:    cfg.withDefaults(),
		obs:    nopObserver{},
		log:    logging.New("pipeline"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// WithSendEmail returns a controller sharing c's collaborators whose runs
// deliver (or only compose) escalation emails as requested.
func (c *Controller) WithSendEmail(send bool) *Controller {
	cp := *c
	cp.cfg.SendEmail = send
	return &cp
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.StageTimeout)
}

type stageFunc func(ctx context.Context, st *review.WorkflowState) error

// Run reviews one document. The returned report is never nil. The error is
// an *ExtractionError when no text could be obtained, or wraps ErrAborted
// when ctx ended between stages; stage failures are recorded in the report
// instead.
func (c *Controller) Run(ctx context.Context, doc Document) (*review.FinalReport, error) {
	ref := doc.Reference
	if ref == "" {
		ref = doc.Filename
	}
	st := review.NewWorkflowState(uuid.NewString(), ref)
	log := c.log.With("run_id", st.RunID, "document", ref)
	log.Infow("run started")

	if err := c.extract(ctx, st, doc, log); err != nil {
		log.Errorw("extraction failed, aborting run", "error", err)
		return c.finish(st, review.StatusFailed, log), err
	}

	stages := []struct {
		name review.Stage
		fn   stageFunc
	}{
		{review.StageSummarization, c.summaryStage},
		{review.StageCompliance, c.complianceStage},
		{review.StageRisk, c.riskStage},
		{review.StageNotification, c.notificationStage},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			log.Warnw("run aborted", "before", s.name, "error", err)
			return c.finish(st, c.overallStatus(st), log), fmt.Errorf("%w before %s: %v", ErrAborted, s.name, err)
		}
		c.runStage(ctx, st, s.name, s.fn, log)
	}
	return c.finish(st, c.overallStatus(st), log), nil
}

func (c *Controller) runStage(ctx context.Context, st *review.WorkflowState, name review.Stage, fn stageFunc, log *zap.SugaredLogger) {
	started := time.Now()
	log.Debugw("stage started", "stage", name)
	err := fn(ctx, st)
	status := review.StageSuccess
	if err != nil {
		status = review.StageFailed
	}
	st.MarkStage(name, status, err, started)
	d := time.Since(started)
	c.obs.StageFinished(name, status, d)
	if err != nil {
		log.Warnw("stage failed, continuing with fallback", "stage", name, "status", status, "duration", d, "error", err)
		return
	}
	log.Infow("stage finished", "stage", name, "status", status, "duration", d)
}

// extract is step 0. A pre-extracted document skips the collaborator.
func (c *Controller) extract(ctx context.Context, st *review.WorkflowState, doc Document, log *zap.SugaredLogger) error {
	started := time.Now()
	ex, err := c.obtainText(ctx, doc)
	if err != nil {
		err = &ExtractionError{Reference: st.DocumentReference, Err: err}
		st.MarkStage(review.StageExtraction, review.StageFailed, err, started)
		c.obs.StageFinished(review.StageExtraction, review.StageFailed, time.Since(started))
		return err
	}

	md := review.DocumentMetadata{
		Filename:  doc.Filename,
		WordCount: ex.WordCount,
		PageCount: ex.PageCount,
	}
	if md.Filename == "" {
		md.Filename = filepath.Base(st.DocumentReference)
	}
	if md.WordCount <= 0 {
		md.WordCount = len(strings.Fields(ex.Text))
	}
	if md.PageCount <= 0 {
		md.PageCount = 1
	}
	if err := st.SetExtraction(ex.Text, md); err != nil {
		return err
	}
	st.MarkStage(review.StageExtraction, review.StageSuccess, nil, started)
	d := time.Since(started)
	c.obs.StageFinished(review.StageExtraction, review.StageSuccess, d)
	log.Infow("stage finished", "stage", review.StageExtraction, "status", review.StageSuccess,
		"duration", d, "words", md.WordCount, "pages", md.PageCount)
	return nil
}

func (c *Controller) obtainText(ctx context.Context, doc Document) (*Extraction, error) {
	ex := doc.Extracted
	if ex == nil {
		if c.collab.Extractor == nil {
			return nil, errors.New("no extractor configured")
		}
		callCtx, cancel := c.callContext(ctx)
		defer cancel()
		var err error
		if ex, err = c.collab.Extractor.Extract(callCtx, doc); err != nil {
			return nil, err
		}
	}
	if ex == nil || strings.TrimSpace(ex.Text) == "" {
		return nil, errors.New("no text extracted")
	}
	return ex, nil
}

func (c *Controller) summaryStage(ctx context.Context, st *review.WorkflowState) error {
	sec, err := c.summarize(ctx, st)
	if werr := st.SetSummary(sec); werr != nil {
		return werr
	}
	return err
}

func (c *Controller) complianceStage(ctx context.Context, st *review.WorkflowState) error {
	sec, err := c.analyzeCompliance(ctx, st)
	if werr := st.SetCompliance(sec); werr != nil {
		return werr
	}
	return err
}

func (c *Controller) riskStage(_ context.Context, st *review.WorkflowState) error {
	sec := scoring.Assess(scoring.Input{
		Metadata:     st.Metadata(),
		Summary:      st.Summary(),
		Compliance:   st.Compliance(),
		FailedStages: st.FailedStages(),
	}, c.cfg.Thresholds, c.cfg.Policy)
	return st.SetRisk(sec)
}

func (c *Controller) notificationStage(ctx context.Context, st *review.WorkflowState) error {
	sec, err := c.decideNotification(ctx, st)
	if werr := st.SetNotification(sec); werr != nil {
		return werr
	}
	return err
}

// overallStatus combines the risk level with the compliance verdict. A run
// that never reached risk scoring needs a human.
func (c *Controller) overallStatus(st *review.WorkflowState) review.OverallStatus {
	risk := st.Risk()
	if risk == nil {
		return review.StatusRequiresReview
	}
	status := review.RequiresReview
	if comp := st.Compliance(); comp != nil {
		status = comp.OverallStatus
	}
	return c.cfg.Policy.OverallStatus(risk.RiskLevel, status)
}

func (c *Controller) finish(st *review.WorkflowState, overall review.OverallStatus, log *zap.SugaredLogger) *review.FinalReport {
	rep := st.Report(overall)
	c.obs.RunFinished(rep)
	fields := []any{"overall_status", overall}
	if r := rep.Risk; r != nil {
		fields = append(fields, "risk_score", r.OverallScore, "risk_level", r.RiskLevel)
	}
	log.Infow("run finished", fields...)
	return rep
}
