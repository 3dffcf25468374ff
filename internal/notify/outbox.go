package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"grantreview/internal/logging"
	"grantreview/internal/pipeline"
	"grantreview/internal/review"
)

// Outbox writes each notification as an .eml file. With no directory it
// only simulates delivery.
type Outbox struct {
	dir  string
	from string
	log  *zap.SugaredLogger
	now  func() time.Time
}

// NewOutbox returns an outbox writing into dir. An empty dir simulates.
func NewOutbox(dir, from string) *Outbox {
	if from == "" {
		from = DefaultSender
	}
	return &Outbox{dir: dir, from: from, log: logging.New("outbox"), now: time.Now}
}

// Send implements pipeline.Mailer.
func (o *Outbox) Send(ctx context.Context, msg pipeline.Message) (review.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return review.DeliveryReceipt{}, err
	}
	id := newMessageID(o.from)
	sentAt := o.now().UTC()
	if o.dir == "" {
		o.log.Infow("notification simulated", "to", msg.To, "subject", msg.Subject)
		return review.DeliveryReceipt{Status: review.DeliverySimulated, SentAt: &sentAt, MessageID: id}, nil
	}

	data, err := Compose(o.from, id, msg, sentAt)
	if err != nil {
		return review.DeliveryReceipt{}, err
	}
	if err := os.MkdirAll(o.dir, 0755); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("create outbox: %w", err)
	}
	name := fmt.Sprintf("%s-%s.eml", sentAt.Format("20060102T150405Z"), strings.Trim(id, "<>"))
	path := filepath.Join(o.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("write outbox message: %w", err)
	}
	o.log.Infow("notification written to outbox", "to", msg.To, "path", path)
	return review.DeliveryReceipt{Status: review.DeliverySent, SentAt: &sentAt, MessageID: id}, nil
}
