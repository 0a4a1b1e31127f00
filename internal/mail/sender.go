package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
)

// Sender delivers a composed message. Implementations submit exactly once;
// there is no retry or queueing on this path.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// SMTPConfig holds relay connection details.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender submits messages over a single STARTTLS-upgraded connection.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send renders and submits the message. The context deadline bounds the
// whole relay conversation.
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	payload, err := message.Bytes()
	if err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	smtpAddr := net.JoinHostPort(sender.cfg.Host, strconv.Itoa(sender.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", smtpAddr)
	if err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, sender.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp send failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: sender.cfg.Host}); err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
	}
	if sender.cfg.Username != "" {
		auth := smtp.PlainAuth("", sender.cfg.Username, sender.cfg.Password, sender.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
	}

	if err := client.Mail(message.From); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if err := client.Rcpt(message.To); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return client.Quit()
}
