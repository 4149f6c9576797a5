package mail

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outbound email.
type Message struct {
	FromName string
	From     string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Sender delivers email. Implementations must return a non-nil error
// when delivery fails so callers can avoid flagging unsent invites.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	log    zerolog.Logger
}

// NewSendGridSender creates a sender using the given API key.
func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{
		apiKey: apiKey,
		log:    zerolog.New(os.Stdout).With().Timestamp().Str("component", "mail").Logger(),
	}
}

// Send delivers the message via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(msg.FromName, msg.From)
	to := sgmail.NewEmail("", msg.To)
	email := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}

	s.log.Info().Str("to", msg.To).Int("status", resp.StatusCode).Msg("Email sent")
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// Used in development when no SendGrid API key is configured.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender() *LogSender {
	return &LogSender{
		log: zerolog.New(os.Stdout).With().Timestamp().Str("component", "mail").Logger(),
	}
}

// Send logs the message and reports success.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("Email delivery skipped (no API key configured)")
	return nil
}
