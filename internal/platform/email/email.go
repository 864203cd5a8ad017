package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrpay/internal/domain/notifications"
	"hrpay/internal/platform/config"
)

var errHeaderInjection = errors.New("email recipient or subject contains a line break")

// Settings is the SMTP relay a payroll notice goes through.
type Settings struct {
	Host     string
	Port     int
	User     string
	Password string
	StartTLS bool
	Timeout  time.Duration
}

func (s Settings) addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func settingsFrom(cfg config.Config) Settings {
	return Settings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		StartTLS: cfg.SMTPUseTLS,
		Timeout:  10 * time.Second,
	}
}

// noopMailer accepts and discards mail when SMTP is not configured.
type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	return nil
}

type smtpMailer struct {
	settings Settings
	now      func() time.Time
}

func New(cfg config.Config) notifications.Mailer {
	if !Enabled(cfg) {
		return noopMailer{}
	}
	return &smtpMailer{settings: settingsFrom(cfg), now: time.Now}
}

func Enabled(cfg config.Config) bool {
	return cfg.EmailEnabled && cfg.SMTPHost != ""
}

// Send delivers one plain-text notice. An empty recipient is skipped since
// not every employee has an address on file.
func (s *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if strings.ContainsAny(from+to+subject, "\r\n") {
		return errHeaderInjection
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("sender %q: %w", from, err)
	}
	recipient, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", to, err)
	}

	dialer := net.Dialer{Timeout: s.settings.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.settings.addr())
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.settings.Host)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := s.handshake(client); err != nil {
		return err
	}
	return deliver(client, sender.Address, recipient.Address, buildMessage(sender.String(), recipient.String(), subject, body, s.now()))
}

func (s *smtpMailer) handshake(client *smtp.Client) error {
	if s.settings.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.settings.User == "" {
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", s.settings.User, s.settings.Password, s.settings.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	return nil
}

func deliver(client *smtp.Client, from, to string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string, sentAt time.Time) []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name + ": " + value + "\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", sentAt.Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@hrpay>")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
