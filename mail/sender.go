// Package mail provides the SMTP implementation of the engine's mail
// sending contract, built on gomail.
package mail

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
)

// Sender delivers messages over SMTP. It satisfies the orchestrator's
// MailSender contract.
type Sender struct {
	cfg    outreach.SMTPConfig
	dialer *gomail.Dialer
}

// NewSender creates an SMTP sender from the given config.
func NewSender(cfg outreach.SMTPConfig) *Sender {
	return &Sender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// Send delivers one message and returns a provider message ID. SMTP has
// no server-assigned ID on the submission path, so a fresh local ID is
// returned for delivery bookkeeping.
func (s *Sender) Send(ctx context.Context, to, from, subject, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if from == "" {
		from = s.cfg.From
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", classifySendError(err)
	}
	return id.NewMessageID().String(), nil
}

// classifySendError maps SMTP failures onto the engine's error
// taxonomy so the retry policy treats them correctly.
func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535") || strings.Contains(msg, "auth"):
		return fmt.Errorf("%w: %s", outreach.ErrAuthExpired, err)
	case strings.Contains(msg, "421") || strings.Contains(msg, "too many"):
		return &outreach.RateLimitedError{Provider: outreach.ProviderMailSend}
	default:
		return &outreach.SendFailedError{Detail: err.Error()}
	}
}
