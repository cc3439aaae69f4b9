// Package mail delivers letters to subscribers and schedules the follow-up
// tasks a dispatch needs.
package mail

import (
	"context"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Transport sends one message to one recipient.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPTransport struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPTransport(host string, port int, user, password, from string) *SMTPTransport {
	if from == "" {
		from = user
	}
	return &SMTPTransport{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send opens a new SMTP connection per message. gomail has no context
// support, so ctx is only checked before dialing.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.dialer.DialAndSend(newMessage(t.from, to, subject, body)); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func newMessage(from, to, subject, body string) *gomail.Message {
	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)
	return message
}

// LogTransport writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("mail: to=%s subject=%q (%d bytes)", to, subject, len(body))
	return nil
}
