// Package email renders account notifications and delivers them through
// SES, SMTP or the log.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/gomail.v2"

	"github.com/BradenHooton/tipoca/internal/config"
	"github.com/BradenHooton/tipoca/pkg/logger"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	// Kind names the notification for logs, e.g. "welcome".
	Kind string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the sender selected by cfg.Provider.
func NewSender(ctx context.Context, cfg config.EmailConfig, log *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "ses":
		return NewSESSender(ctx, cfg.AWSRegion, cfg.FromAddress, log)
	case "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromAddress), nil
	case "log":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// sesAPI is the part of the SES client we use.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client      sesAPI
	fromAddress string
	logger      *slog.Logger
}

func NewSESSender(ctx context.Context, region, fromAddress string, log *slog.Logger) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      log,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	body := &types.Body{Html: &types.Content{Data: aws.String(msg.HTML)}}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text)}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(s.fromAddress),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	s.logger.Debug("email sent via SES",
		slog.String("kind", msg.Kind),
		slog.String("email", logger.SanitizedEmail(msg.To)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send ignores ctx; gomail has no cancellation.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used in
// development and tests.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email not delivered (log provider)",
		slog.String("kind", msg.Kind),
		slog.String("email", logger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject))
	return nil
}
