package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	KindStatusChange = "status_change"
	KindAwaiting     = "awaiting_approval"
	KindReminder     = "pending_reminder"
)

type Message struct {
	Kind      string
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log. It is used when no mail provider is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridSender struct {
	client    mailClient
	fromEmail string
	fromName  string
}

func NewSendGridSender(cfg internal.NotificationConfig) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, recipient, msg.PlainText, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// NewSender picks SendGrid when an API key is configured.
func NewSender(cfg internal.NotificationConfig, logger *slog.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		return NewLogSender(logger)
	}
	return NewSendGridSender(cfg)
}
