// Package delivery submits built messages to the account's SMTP
// submission server.
package delivery

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/profile"
)

// SMTPSender delivers over SMTP with mandatory STARTTLS and PLAIN
// authentication. A fresh client is built per call; the gateway holds no
// connections between operations.
type SMTPSender struct {
	timeout time.Duration
	helo    string
}

// NewSMTPSender creates an SMTPSender from configuration.
func NewSMTPSender(conf config.SMTP) *SMTPSender {
	return &SMTPSender{
		timeout: conf.Timeout,
		helo:    conf.HELODomain,
	}
}

// Send dials the profile's submission server and transmits msg. The
// envelope is taken from the message itself, Bcc recipients included.
func (s *SMTPSender) Send(ctx context.Context, p *profile.Profile, msg *gomail.Msg) error {
	client, err := s.client(p)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp %s: %w", p.SMTPAddr(), err)
	}
	return nil
}

// Validate dials, negotiates STARTTLS, and authenticates without
// sending anything.
func (s *SMTPSender) Validate(ctx context.Context, p *profile.Profile) error {
	client, err := s.client(p)
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp %s: %w", p.SMTPAddr(), err)
	}
	return client.Close()
}

func (s *SMTPSender) client(p *profile.Profile) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(p.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(p.Address),
		gomail.WithPassword(p.Secret),
	}
	if s.timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.timeout))
	}
	if s.helo != "" {
		opts = append(opts, gomail.WithHELO(s.helo))
	}
	client, err := gomail.NewClient(p.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}
