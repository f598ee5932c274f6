package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/gatherhall/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const welcomeSubject = "Welcome to GatherHall"

// Service sends transactional account emails through the configured
// provider. When email is disabled it logs and returns nil, so callers
// never need a separate no-op path.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	logger       zerolog.Logger
}

// NewService creates an email service. The sender address is validated
// up front when email is enabled, so misconfiguration fails at startup
// rather than on the first signup.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		config: cfg,
		logger: logger.With().Str("component", "email").Logger(),
	}

	if !cfg.Enabled {
		return s, nil
	}

	if err := validateEmailAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender email in config: %w", err)
	}

	switch cfg.Provider {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend provider requires RESEND_API_KEY")
		}
		s.resendClient = resend.NewClient(cfg.ResendAPIKey)
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp provider requires SMTP_HOST")
		}
	default:
		return nil, fmt.Errorf("unknown email provider: %q", cfg.Provider)
	}

	return s, nil
}

// SendWelcome sends the account welcome email to a newly registered user.
func (s *Service) SendWelcome(to string) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Msg("email service disabled, skipping welcome email")
		return nil
	}

	htmlBody := renderWelcome(to)

	var err error
	switch s.config.Provider {
	case "resend":
		err = s.sendViaResend(to, welcomeSubject, htmlBody)
	default:
		err = s.sendViaSMTP(to, welcomeSubject, htmlBody)
	}
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info().Str("to", to).Msg("welcome email sent")
	return nil
}

func renderWelcome(to string) string {
	var buf bytes.Buffer
	buf.WriteString("<html><body>")
	buf.WriteString("<h1>Welcome to GatherHall</h1>")
	fmt.Fprintf(&buf, "<p>Your account %s is ready. Browse approved events and RSVP to the ones you like.</p>", to)
	fmt.Fprintf(&buf, "<p>&copy; %d GatherHall</p>", time.Now().Year())
	buf.WriteString("</body></html>")
	return buf.String()
}

// validateEmailAddress validates an email address for format and header
// injection attempts.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}

	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}

	return nil
}

// sendViaSMTP delivers an email over SMTP with STARTTLS.
func (s *Service) sendViaSMTP(to, subject, htmlBody string) error {
	from := s.config.From
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var msg bytes.Buffer
	for k, v := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, v)
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
