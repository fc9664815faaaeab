// Package mail delivers password reset notifications over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// Config captures the SMTP relay settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	Security string // starttls (default), ssl, none
	// ResetTo, when set, receives every reset mail instead of the admin's own
	// address.
	ResetTo     string
	FrontendURL string
	Timeout     time.Duration
}

// New returns an SMTPMailer, or a NoopMailer when host or sender is missing.
func New(cfg Config, log zerolog.Logger) ports.ResetMailer {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "starttls"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Host == "" || cfg.From == "" {
		log.Warn().Msg("mailer disabled: SMTP host or sender missing")
		return NoopMailer{log: log}
	}
	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("security", cfg.Security).
		Str("user", mask(cfg.User)).
		Msg("mailer enabled")
	return &SMTPMailer{cfg: cfg}
}

// NoopMailer drops reset mails; used when SMTP is not configured.
type NoopMailer struct {
	log zerolog.Logger
}

func (n NoopMailer) SendReset(_ context.Context, m ports.ResetMail) error {
	n.log.Warn().Str("username", m.Username).Msg("reset mail dropped: mailer disabled")
	return nil
}

type SMTPMailer struct {
	cfg Config
}

func (m *SMTPMailer) SendReset(ctx context.Context, rm ports.ResetMail) error {
	to := m.cfg.ResetTo
	if to == "" {
		to = rm.To
	}
	if to == "" {
		return fmt.Errorf("reset mail for %s: no recipient", rm.Username)
	}

	msg := message(m.cfg.From, to, "Password Reset Request - Admin Account",
		resetBody(rm.Username, ResetURL(m.cfg.FrontendURL, rm.Token), rm.Expires))

	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var err error
	switch m.cfg.Security {
	case "ssl", "smtps":
		err = m.sendSSL(to, msg, deadline)
	case "none":
		err = m.sendPlain(to, msg, deadline, false)
	default:
		err = m.sendPlain(to, msg, deadline, true)
	}
	if err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetURL builds the link the admin follows to choose a new password.
func ResetURL(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/admin/login?token=" + url.QueryEscape(token)
}

func resetBody(username, link string, expires time.Time) string {
	return fmt.Sprintf("A password reset was requested for the admin account %q.\n\n"+
		"Follow the link below before %s UTC to choose a new password:\n%s\n\n"+
		"If you did not request this, ignore this message; the link expires on its own.",
		username, expires.UTC().Format(time.RFC3339), link)
}

func (m *SMTPMailer) sendPlain(to string, msg []byte, deadline time.Time, startTLS bool) error {
	conn, err := net.DialTimeout("tcp", m.addr(), time.Until(deadline))
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if startTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return err
			}
		}
	}
	return m.deliver(client, to, msg)
}

func (m *SMTPMailer) sendSSL(to string, msg []byte, deadline time.Time) error {
	dialer := &net.Dialer{Deadline: deadline}
	conn, err := tls.DialWithDialer(dialer, "tcp", m.addr(), &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()
	return m.deliver(client, to, msg)
}

func (m *SMTPMailer) deliver(client *smtp.Client, to string, msg []byte) error {
	if m.cfg.User != "" && m.cfg.Pass != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
			return err
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
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
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *SMTPMailer) addr() string {
	return net.JoinHostPort(m.cfg.Host, m.cfg.Port)
}

func message(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func mask(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
