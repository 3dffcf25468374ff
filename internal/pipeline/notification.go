package pipeline

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"grantreview/internal/display"
	"grantreview/internal/review"
)

// topN bounds the factors and recommendations quoted in a notification.
const topN = 3

//go:embed notifications/*.tmpl
var notificationFS embed.FS

var notifyFuncs = map[string]any{
	"score": display.Score,
	"inc":   func(i int) int { return i + 1 },
}

var (
	textAlert = template.Must(template.New("alert.txt.tmpl").Funcs(notifyFuncs).ParseFS(notificationFS, "notifications/alert.txt.tmpl"))
	htmlAlert = htmltemplate.Must(htmltemplate.New("alert.html.tmpl").Funcs(notifyFuncs).ParseFS(notificationFS, "notifications/alert.html.tmpl"))
)

type alertView struct {
	RunID            string
	Filename         string
	ComplianceStatus string
	Confidence       float64
	RiskScore        float64
	RiskLevel        string
	FailedStages     string
	Factors          []review.RiskFactor
	Recommendations  []review.Recommendation
}

// decideNotification escalates when the risk section asks for it. The
// payload is always built for an escalation; it is handed to the Mailer
// only when sending is enabled.
func (c *Controller) decideNotification(ctx context.Context, st *review.WorkflowState) (*review.NotificationSection, error) {
	risk := st.Risk()
	if risk == nil || !risk.RequiresNotification {
		return &review.NotificationSection{Sent: false}, nil
	}

	msg, err := composeAlert(st, c.cfg.Recipient, c.cfg.Policy.Priority(risk.RiskLevel))
	if err != nil {
		return &review.NotificationSection{Sent: false}, err
	}
	sec := &review.NotificationSection{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.TextBody,
		HTMLBody:  msg.HTMLBody,
		Priority:  msg.Priority,
	}
	if !c.cfg.SendEmail || c.collab.Mailer == nil {
		return sec, nil
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	receipt, err := c.collab.Mailer.Send(callCtx, msg)
	if err != nil {
		sec.SendResult = &review.DeliveryReceipt{Status: review.DeliveryFailed, Error: err.Error()}
		return sec, &DeliveryError{Recipient: msg.To, Err: err}
	}
	sec.SendResult = &receipt
	sec.Sent = receipt.Status == review.DeliverySent
	return sec, nil
}

// composeAlert renders the escalation message for a scored run.
func composeAlert(st *review.WorkflowState, recipient string, prio review.NotificationPriority) (Message, error) {
	risk := st.Risk()
	view := alertView{
		RunID:            st.RunID,
		RiskScore:        risk.OverallScore,
		RiskLevel:        display.RiskLevel(string(risk.RiskLevel)),
		ComplianceStatus: display.Status(string(review.RequiresReview)),
		Factors:          risk.RiskFactors[:min(topN, len(risk.RiskFactors))],
		Recommendations:  risk.Recommendations[:min(topN, len(risk.Recommendations))],
	}
	if md := st.Metadata(); md != nil {
		view.Filename = md.Filename
	}
	if comp := st.Compliance(); comp != nil {
		view.ComplianceStatus = display.Status(string(comp.OverallStatus))
		view.Confidence = comp.ConfidenceScore
	}
	if failed := st.FailedStages(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, s := range failed {
			names[i] = display.Stage(string(s))
		}
		view.FailedStages = strings.Join(names, ", ")
	}

	var text, html bytes.Buffer
	if err := textAlert.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("render text alert: %w", err)
	}
	if err := htmlAlert.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render html alert: %w", err)
	}
	return Message{
		To:       recipient,
		Subject:  alertSubject(view.Filename, risk),
		TextBody: strings.TrimSpace(text.String()) + "\n",
		HTMLBody: html.String(),
		Priority: prio,
	}, nil
}

func alertSubject(filename string, risk *review.RiskSection) string {
	var marker string
	switch risk.RiskLevel {
	case review.RiskHigh:
		marker = "[URGENT] "
	case review.RiskMediumHigh:
		marker = "[PRIORITY] "
	}
	return fmt.Sprintf("%sGrant Proposal Review Required - %s (Risk: %.1f%%)", marker, filename, risk.OverallScore)
}
