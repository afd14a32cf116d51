package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xinodeprinz/edstock-server/internal/config"
)

// Message is a single outbound HTML email
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer delivers one message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends through an authenticated SMTP relay
type SMTPMailer struct {
	dialer   dialer
	from     string
	fromName string
	timeout  time.Duration
}

// NewSMTPMailer creates a mailer from the mail configuration
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SMTPMailer{
		dialer:   d,
		from:     cfg.Username,
		fromName: cfg.FromName,
		timeout:  timeout,
	}
}

func (m *SMTPMailer) message(msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	gm.SetAddressHeader("To", msg.To, msg.ToName)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)
	return gm
}

// Send dials, delivers and hangs up. gomail has no context support, so the
// call is abandoned (not interrupted) once ctx or the mail timeout expires.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(m.message(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp delivery to %s failed: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp delivery to %s abandoned: %w", msg.To, ctx.Err())
	}
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Mail delivery disabled, message logged",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}

// NewMailer picks SMTP when credentials are configured
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	logger.Warn("MAIL_USERNAME/MAIL_PASSWORD not set, low-stock reports will only be logged")
	return NewLogMailer(logger)
}
