package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"grantreview/internal/logging"
	"grantreview/internal/pipeline"
	"grantreview/internal/review"
)

// SMTPConfig configures SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP delivers notifications through an SMTP relay. STARTTLS is used when
// the server offers it; PLAIN auth is used when a username is set.
type SMTP struct {
	cfg SMTPConfig
	log *zap.SugaredLogger
	now func() time.Time
}

// NewSMTP validates the configuration.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = DefaultSender
	}
	return &SMTP{cfg: cfg, log: logging.New("smtp"), now: time.Now}, nil
}

// Send implements pipeline.Mailer.
func (s *SMTP) Send(ctx context.Context, msg pipeline.Message) (review.DeliveryReceipt, error) {
	id := newMessageID(s.cfg.From)
	sentAt := s.now().UTC()
	data, err := Compose(s.cfg.From, id, msg, sentAt)
	if err != nil {
		return review.DeliveryReceipt{}, err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return review.DeliveryReceipt{}, fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return review.DeliveryReceipt{}, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return review.DeliveryReceipt{}, fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp rcpt %s: %w", msg.To, err)
	}
	w, err := c.Data()
	if err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return review.DeliveryReceipt{}, fmt.Errorf("smtp data close: %w", err)
	}
	if err := c.Quit(); err != nil {
		s.log.Warnw("smtp quit failed after delivery", "error", err)
	}

	s.log.Infow("notification sent", "to", msg.To, "message_id", id, "priority", msg.Priority)
	return review.DeliveryReceipt{Status: review.DeliverySent, SentAt: &sentAt, MessageID: id}, nil
}
