package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("mail: no recipients")

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
	Tags    map[string]string
}

// Sender delivers messages through a transactional email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects the provider.
type Config struct {
	Provider     string // log, smtp, resend
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
	ResendURL    string
}

// New builds the Sender named by cfg.Provider.
func New(cfg Config, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "log":
		return NewLogSender(logger), nil
	case "smtp":
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			return nil, errors.New("mail: SMTP_HOST is required for the smtp provider")
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword), nil
	case "resend":
		if strings.TrimSpace(cfg.ResendAPIKey) == "" {
			return nil, errors.New("mail: RESEND_API_KEY is required for the resend provider")
		}
		return NewResendSender(cfg.ResendURL, cfg.ResendAPIKey, nil), nil
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", cfg.Provider)
	}
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(msg.From) == "" {
		return errors.New("mail: sender address is required")
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a Sender for local development.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.logger.Info("mail (log provider)",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.Int("text_len", len(msg.Text)),
	)
	return nil
}
