package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

var errHeaderInjection = errors.New("header value contains a line break")

// Message is a single HTML email.
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender relays through an authenticated SMTP server, upgrading with STARTTLS when offered.
type SMTPSender struct {
	host     string
	addr     string
	user     string
	password string
	from     mail.Address
	now      func() time.Time
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host and from address are required")
	}
	from, err := mail.ParseAddress(strings.TrimSpace(cfg.FromEmail))
	if err != nil {
		return nil, fmt.Errorf("invalid smtp from address: %w", err)
	}
	from.Name = cfg.FromName
	return &SMTPSender{
		host:     strings.TrimSpace(cfg.Host),
		addr:     cfg.Address(),
		user:     cfg.User,
		password: cfg.Password,
		from:     *from,
		now:      time.Now,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	to.Name = msg.ToName
	body, err := buildMessage(s.from, *to, msg, s.now())
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.user != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := client.Mail(s.from.Address); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

// buildMessage renders RFC 5322 headers and a quoted-printable HTML body.
func buildMessage(from, to mail.Address, msg Message, now time.Time) ([]byte, error) {
	for _, v := range []string{msg.Subject, msg.ReplyTo, msg.ToName, from.Name} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, errHeaderInjection
		}
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", from.String())
	header("To", to.String())
	if msg.ReplyTo != "" {
		replyTo, err := mail.ParseAddress(msg.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
		header("Reply-To", replyTo.String())
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogSender records messages instead of delivering them. Used when SMTP is not configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
			"bytes":   len(msg.HTML),
		}), "email delivery skipped: smtp not configured")
	}
	return nil
}
