// Package notify delivers plain-text notifications to hosts and visitors by
// SMTP, or to the log in dev mode.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Message is a single notification.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Notifier sends messages. Delivery failures are logged, never returned.
type Notifier struct {
	config  SMTPConfig
	devMode bool
	send    func(cfg SMTPConfig, to []string, msg string) error
}

// New creates a notifier. In dev mode, or without SMTP settings, messages
// are only logged.
func New(config SMTPConfig, devMode bool) *Notifier {
	return &Notifier{config: config, devMode: devMode, send: send}
}

// Notify delivers msg to every recipient that looks like an email address.
func (n *Notifier) Notify(ctx context.Context, msg Message) {
	to := emailRecipients(msg.To)

	if n.devMode || !n.config.IsConfigured() || len(to) == 0 {
		slog.InfoContext(ctx, "notification", "to", strings.Join(msg.To, ", "), "subject", msg.Subject)
		return
	}

	if err := n.send(n.config, to, buildEmail(n.config.From, to, msg.Subject, msg.Body)); err != nil {
		slog.ErrorContext(ctx, "sending notification", "to", strings.Join(to, ", "), "subject", msg.Subject, "err", err)
		return
	}
	slog.DebugContext(ctx, "notification sent", "to", strings.Join(to, ", "), "subject", msg.Subject)
}

// emailRecipients drops blanks and phone numbers, which cannot be mailed.
func emailRecipients(to []string) []string {
	var out []string
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		if strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return out
}

func buildEmail(from string, to []string, subject, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

// send delivers an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func send(cfg SMTPConfig, to []string, msg string) error {
	addr := cfg.Host + ":" + cfg.Port

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, to []string, msg string) (err error) {
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
