// Package mcp exposes the review pipeline, run history and knowledge-base
// search as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"grantreview/internal/logging"
	"grantreview/internal/pipeline"
	"grantreview/internal/review"
	"grantreview/internal/store"
)

const (
	defaultListLimit = 20
	defaultTopK      = 5
)

// Server wraps the MCP SDK server around a pipeline controller, a run store
// and a knowledge-base searcher.
type Server struct {
	MCPServer   *sdkmcp.Server
	ProjectRoot string

	ctrl   *pipeline.Controller
	store  store.Store
	search pipeline.Searcher
	log    *zap.SugaredLogger
}

// NewServer registers the grantreview tools. Relative document paths
// resolve against the current working directory.
func NewServer(ctrl *pipeline.Controller, st store.Store, search pipeline.Searcher) *Server {
	cwd, _ := os.Getwd()
	s := &Server{
		ProjectRoot: cwd,
		ctrl:        ctrl,
		store:       st,
		search:      search,
		log:         logging.New("mcp"),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "grantreview", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_pipeline",
		Description: "Review a grant proposal document: summarize, check executive-order compliance, score risk and decide escalation. Returns the run id and headline results.",
	}, s.handleRunPipeline)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the stored final report of a run as JSON plus a text summary.",
	}, s.handleGetReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List recent runs, newest first, optionally filtered by overall status or risk level.",
	}, s.handleListRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Search the executive-order knowledge base and return matching passages.",
	}, s.handleSearch)
}

// --- Tool input/output types ---

type runPipelineInput struct {
	Path      string `json:"path" jsonschema:"path of the proposal document (.txt or .md)"`
	SendEmail bool   `json:"send_email,omitempty" jsonschema:"deliver the escalation email when one is required"`
}

type runPipelineOutput struct {
	RunID            string   `json:"run_id"`
	OverallStatus    string   `json:"overall_status"`
	RiskScore        float64  `json:"risk_score,omitempty"`
	RiskLevel        string   `json:"risk_level,omitempty"`
	ComplianceStatus string   `json:"compliance_status,omitempty"`
	NotificationSent bool     `json:"notification_sent"`
	FailedStages     []string `json:"failed_stages,omitempty"`
	Summary          string   `json:"summary"`
	Error            string   `json:"error,omitempty"`
}

type getReportInput struct {
	RunID string `json:"run_id" jsonschema:"run id returned by run_pipeline or list_runs"`
}

type getReportOutput struct {
	RunID   string `json:"run_id"`
	Report  string `json:"report"`
	Summary string `json:"summary"`
}

type listRunsInput struct {
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum number of runs (default 20)"`
	OverallStatus string `json:"overall_status,omitempty" jsonschema:"only runs with this overall status"`
	RiskLevel     string `json:"risk_level,omitempty" jsonschema:"only runs with this risk level"`
}

type runRow struct {
	RunID                string  `json:"run_id"`
	Filename             string  `json:"filename"`
	OverallStatus        string  `json:"overall_status"`
	RiskScore            float64 `json:"risk_score"`
	RiskLevel            string  `json:"risk_level,omitempty"`
	ComplianceStatus     string  `json:"compliance_status,omitempty"`
	RequiresNotification bool    `json:"requires_notification"`
	CreatedAt            string  `json:"created_at"`
}

type listRunsOutput struct {
	Runs  []runRow `json:"runs"`
	Total int      `json:"total"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"free-text query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages (default 5)"`
}

type searchOutput struct {
	Passages []pipeline.Passage `json:"passages"`
	Total    int                `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleRunPipeline(ctx context.Context, _ *sdkmcp.CallToolRequest, input runPipelineInput) (*sdkmcp.CallToolResult, runPipelineOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, runPipelineOutput{}, errors.New("path is required")
	}
	path := input.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.ProjectRoot, path)
	}
	doc, err := pipeline.OpenDocument(path)
	if err != nil {
		return nil, runPipelineOutput{}, err
	}

	rep, runErr := s.ctrl.WithSendEmail(input.SendEmail).Run(ctx, doc)
	if rep == nil {
		return nil, runPipelineOutput{}, runErr
	}
	if err := s.store.SaveRun(rep); err != nil {
		s.log.Warnw("save run failed", "run_id", rep.RunID, "error", err)
		return nil, runPipelineOutput{}, fmt.Errorf("save run %s: %w", rep.RunID, err)
	}

	out := runPipelineOutput{
		RunID:         rep.RunID,
		OverallStatus: string(rep.OverallStatus),
		Summary:       rep.SummaryText(),
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	if rep.Risk != nil {
		out.RiskScore = rep.Risk.OverallScore
		out.RiskLevel = string(rep.Risk.RiskLevel)
	}
	if rep.Compliance != nil {
		out.ComplianceStatus = string(rep.Compliance.OverallStatus)
	}
	if rep.Notification != nil {
		out.NotificationSent = rep.Notification.Sent
	}
	for _, st := range review.Stages {
		if rep.StageStatus[st].Status == review.StageFailed {
			out.FailedStages = append(out.FailedStages, string(st))
		}
	}
	s.log.Infow("run_pipeline finished", "run_id", rep.RunID, "overall_status", rep.OverallStatus)
	return nil, out, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	if input.RunID == "" {
		return nil, getReportOutput{}, errors.New("run_id is required")
	}
	rep, err := s.store.GetRun(input.RunID)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	if rep == nil {
		return nil, getReportOutput{}, fmt.Errorf("run %s not found", input.RunID)
	}
	data, err := rep.Marshal()
	if err != nil {
		return nil, getReportOutput{}, err
	}
	return nil, getReportOutput{RunID: rep.RunID, Report: string(data), Summary: rep.SummaryText()}, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	runs, err := s.store.ListRuns(store.RunFilter{
		Limit:         limit,
		OverallStatus: review.OverallStatus(input.OverallStatus),
		RiskLevel:     review.RiskLevel(input.RiskLevel),
	})
	if err != nil {
		return nil, listRunsOutput{}, err
	}
	out := listRunsOutput{Runs: make([]runRow, 0, len(runs)), Total: len(runs)}
	for _, r := range runs {
		out.Runs = append(out.Runs, runRow{
			RunID:                r.RunID,
			Filename:             r.Filename,
			OverallStatus:        string(r.OverallStatus),
			RiskScore:            r.RiskScore,
			RiskLevel:            string(r.RiskLevel),
			ComplianceStatus:     string(r.ComplianceStatus),
			RequiresNotification: r.RequiresNotification,
			CreatedAt:            r.CreatedAt,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *sdkmcp.CallToolRequest, input searchInput) (*sdkmcp.CallToolResult, searchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, searchOutput{}, errors.New("query is required")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	passages, err := s.search.Search(ctx, input.Query, topK)
	if err != nil {
		return nil, searchOutput{}, err
	}
	if passages == nil {
		passages = []pipeline.Passage{}
	}
	return nil, searchOutput{Passages: passages, Total: len(passages)}, nil
}
