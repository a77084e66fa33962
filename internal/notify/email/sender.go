// Package email отправляет дайджест письмом через SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/maine/dou_bot/internal/digest"
	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/retry"
)

// Builder строит письмо по дайджесту.
type Builder interface {
	BuildEmail(d gazette.Digest) (digest.Email, error)
	TestEmail() digest.Email
}

// Config — SMTP-доступ и получатели.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Retry    retry.Policy
}

// sendFunc совпадает с smtp.SendMail; в тестах подменяется.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender реализует app.Notifier для почты.
type Sender struct {
	cfg     Config
	builder Builder
	send    sendFunc
	now     func() time.Time
	logger  *slog.Logger
}

// NewSender создаёт отправителя. From по умолчанию совпадает с Username.
func NewSender(cfg Config, builder Builder, logger *slog.Logger) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("sender address is required (MAIL_FROM or email.from)")
	}
	if len(cfg.To)+len(cfg.Cc)+len(cfg.Bcc) == 0 {
		return nil, fmt.Errorf("no email recipients configured")
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = retry.Policy{Attempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 8 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		cfg:     cfg,
		builder: builder,
		send:    smtp.SendMail,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Name реализует app.Notifier.
func (s *Sender) Name() string {
	return "email"
}

// Notify реализует app.Notifier.
func (s *Sender) Notify(ctx context.Context, d gazette.Digest) error {
	mail, err := s.builder.BuildEmail(d)
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}
	return s.deliver(ctx, mail)
}

// SendTest отправляет тестовое письмо. Без получателей письмо уходит отправителю.
func (s *Sender) SendTest(ctx context.Context) error {
	return s.deliver(ctx, s.builder.TestEmail())
}

func (s *Sender) deliver(ctx context.Context, mail digest.Email) error {
	msg, err := s.buildMessage(mail)
	if err != nil {
		return err
	}
	rcpt := s.recipients()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	attempt := 0
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		attempt++
		if err := s.send(addr, auth, s.cfg.From, rcpt, msg); err != nil {
			s.logger.Warn("email send failed", "attempt", attempt, "max_attempts", s.cfg.Retry.Attempts, "error", err)
			if isPermanentSMTPError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	s.logger.Info("email sent", "subject", mail.Subject, "recipients", len(rcpt))
	return nil
}

func (s *Sender) recipients() []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{s.cfg.To, s.cfg.Cc, s.cfg.Bcc} {
		for _, addr := range list {
			addr = strings.TrimSpace(addr)
			key := strings.ToLower(addr)
			if addr == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	if len(out) == 0 {
		out = []string{s.cfg.From}
	}
	return out
}

// buildMessage собирает RFC 5322 письмо с multipart/alternative телом. Bcc в заголовки не попадает.
func (s *Sender) buildMessage(mail digest.Email) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", s.cfg.From)
	if len(s.cfg.To) > 0 {
		header("To", strings.Join(s.cfg.To, ", "))
	}
	if len(s.cfg.Cc) > 0 {
		header("Cc", strings.Join(s.cfg.Cc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", mail.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", mail.Text},
		{"text/html; charset=UTF-8", mail.HTML},
	} {
		if part.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("close mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

// isPermanentSMTPError: 5xx от сервера повторять бессмысленно.
func isPermanentSMTPError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 500
	}
	return false
}
