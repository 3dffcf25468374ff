package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"grantreview/internal/display"
	"grantreview/internal/format"
	"grantreview/internal/review"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTmpl = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"score":    display.Score,
	"status":   func(s review.OverallStatus) string { return display.Status(string(s)) },
	"cstatus":  func(s review.ComplianceStatus) string { return display.Status(string(s)) },
	"level":    func(l review.RiskLevel) string { return display.RiskLevel(string(l)) },
	"priority": func(p review.NotificationPriority) string { return display.Priority(string(p)) },
	"when":     format.FmtTimestamp,
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type reportView struct {
	*review.FinalReport
	Title  string
	Stages template.HTML
}

// HTML renders a self-contained printable page for the report.
func HTML(r *review.FinalReport) (string, error) {
	view := reportView{
		FinalReport: r,
		Title:       "Grant Proposal Review: " + r.Filename(),
		// go-pretty escapes cell content in RenderHTML.
		Stages: template.HTML(stageTable(r, format.HTML)),
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	return buf.String(), nil
}
