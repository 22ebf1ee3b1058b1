package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Mailer delivers a composed message. Delivery is fire-and-forget from the
// caller's point of view; errors are for logging, not retrying.
type Mailer interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

// SMTPMailer is the default Mailer, speaking plain SMTP. The context bounds
// the whole exchange: the dial honors cancellation and the context deadline is
// carried onto the connection, so a hung server cannot wedge the caller.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body, from string, to []string) error {
	addr := net.JoinHostPort(m.Host, m.Port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: dial failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("smtp: set deadline: %w", err)
		}
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return fmt.Errorf("smtp: handshake failed: %w", err)
	}
	defer client.Close()

	if m.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.Username, m.Password, m.Host)); err != nil {
			return fmt.Errorf("smtp: auth failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close body: %w", err)
	}

	return client.Quit()
}
