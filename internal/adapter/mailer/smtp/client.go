// Package smtp sends transactional email over plain SMTP.
//
// Server rejections bubble up as *textproto.Error carrying the SMTP reply
// code, dial and socket failures surface as net errors, and an expired
// context deadline cuts the conversation short. The classifier relies on
// all three.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/webstore4eto/messaging/internal/config"
	"github.com/webstore4eto/messaging/internal/port"
)

type Client struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func New(cfg *config.Config) *Client {
	return &Client{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	}
}

// Send delivers one message. The context deadline bounds the whole SMTP
// conversation, not just the dial, so a slow server surfaces as a net
// timeout instead of hanging the worker slot.
func (c *Client) Send(ctx context.Context, msg port.EmailMessage) error {
	if c.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	from := c.From
	if from == "" {
		from = c.Username
	}
	if from == "" {
		return fmt.Errorf("smtp from not configured")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(c.Host, c.Port))
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	cl, err := smtp.NewClient(conn, c.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer cl.Close()

	if ok, _ := cl.Extension("STARTTLS"); ok {
		if err := cl.StartTLS(&tls.Config{ServerName: c.Host}); err != nil {
			return err
		}
	}
	if c.Username != "" || c.Password != "" {
		if ok, _ := cl.Extension("AUTH"); ok {
			if err := cl.Auth(smtp.PlainAuth("", c.Username, c.Password, c.Host)); err != nil {
				return err
			}
		}
	}

	if err := cl.Mail(from); err != nil {
		return err
	}
	if err := cl.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := cl.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(from, c.Host, msg)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return cl.Quit()
}

// buildMessage assembles the wire form of one email. HTML wins over the
// plain-text part when both are set.
func buildMessage(from, host string, msg port.EmailMessage) []byte {
	headers := []string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), host),
		"MIME-Version: 1.0",
	}

	body := msg.Text
	if msg.HTML != "" {
		headers = append(headers, "Content-Type: text/html; charset=UTF-8")
		body = msg.HTML
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
	}

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

var _ port.Mailer = (*Client)(nil)
