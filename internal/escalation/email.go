package escalation

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP settings. An empty Host switches the sender to
// mock mode.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// EmailSender delivers tickets as email via SMTP.
type EmailSender struct {
	cfg    EmailConfig
	logger *slog.Logger

	// send is swappable in tests; defaults to a gomail dialer.
	send func(m *gomail.Message) error
}

// NewEmailSender creates an EmailSender. A nil logger falls back to
// slog.Default.
func NewEmailSender(cfg EmailConfig, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}

	s := &EmailSender{cfg: cfg, logger: logger}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return d.DialAndSend(m)
	}
	return s
}

func (s *EmailSender) Method() string { return "email" }

// Send emails the ticket to the support inbox. Unconfigured SMTP logs the
// ticket and reports a mocked delivery so local setups work out of the box.
func (s *EmailSender) Send(ctx context.Context, t Ticket) (Delivery, error) {
	if s.cfg.Host == "" {
		s.logger.Info("smtp not configured, mock ticket email",
			"name", t.Name, "session", t.SessionID)
		return Delivery{Method: s.Method(), Mocked: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Reply-To", t.Email)
	m.SetHeader("Subject", fmt.Sprintf("Nieuw supportticket van %s", t.Name))
	m.SetBody("text/plain", ticketBody(t))

	if err := s.send(m); err != nil {
		return Delivery{}, fmt.Errorf("sending ticket email: %w", err)
	}

	s.logger.Info("ticket email sent", "session", t.SessionID)
	return Delivery{Method: s.Method()}, nil
}
