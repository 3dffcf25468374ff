// Package notify holds the email delivery collaborators: SMTP and an outbox
// directory that stores messages as .eml files.
package notify

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"grantreview/internal/pipeline"
	"grantreview/internal/review"
)

// DefaultSender is the From address when none is configured.
const DefaultSender = "grantreview@example.gov"

var xPriority = map[review.NotificationPriority]string{
	review.NotifyCritical: "1 (Highest)",
	review.NotifyHigh:     "2 (High)",
	review.NotifyNormal:   "3 (Normal)",
}

var importance = map[review.NotificationPriority]string{
	review.NotifyCritical: "high",
	review.NotifyHigh:     "high",
	review.NotifyNormal:   "normal",
}

// newMessageID returns an RFC 5322 message id.
func newMessageID(from string) string {
	domain := "grantreview.local"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// Compose renders msg as a multipart/alternative RFC 5322 message.
func Compose(from, messageID string, msg pipeline.Message, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	prio := msg.Priority
	if prio == "" {
		prio = review.NotifyNormal
	}
	headers := []struct{ k, v string }{
		{"From", from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", date.Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"X-Priority", xPriority[prio]},
		{"Importance", importance[prio]},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	var head bytes.Buffer
	for _, h := range headers {
		if h.v == "" {
			continue
		}
		fmt.Fprintf(&head, "%s: %s\r\n", h.k, h.v)
	}
	head.WriteString("\r\n")

	parts := []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", msg.TextBody},
		{"text/html; charset=utf-8", msg.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("encode mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("encode mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return append(head.Bytes(), buf.Bytes()...), nil
}
