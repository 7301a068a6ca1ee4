package worker

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Mail is a plain-text message to one recipient.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

// SMTPMailer delivers mail through an SMTP relay. Authentication is used
// only when a username is configured.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	m := &SMTPMailer{addr: addr, from: from}
	if username != "" {
		host := addr
		if i := strings.LastIndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if strings.ContainsAny(mail.To, "\r\n") || strings.ContainsAny(mail.Subject, "\r\n") {
		return fmt.Errorf("mail header contains a line break")
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + mail.To,
		"Subject: " + mail.Subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		mail.Body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- sendMail(m.addr, m.auth, m.from, []string{mail.To}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
