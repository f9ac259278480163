// Package profile defines the remote mailbox connection profile carried by
// credential tokens.
package profile

import (
	"fmt"
	"net"
	"net/mail"
	"strconv"
)

// Default ports for implicit-TLS IMAP and submission SMTP.
const (
	DefaultIMAPPort = 993
	DefaultSMTPPort = 587
)

// Profile holds everything needed to reach one remote mailbox: the account
// address, its secret, and the IMAP/SMTP endpoints.  It is minted into a
// credential token at login and recovered from the token on every request.
type Profile struct {
	Address  string `json:"email"`
	Secret   string `json:"password"`
	IMAPHost string `json:"imap_host"`
	IMAPPort int    `json:"imap_port"`
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
}

// Normalize applies default ports to a profile that omitted them.
func (p *Profile) Normalize() {
	if p.IMAPPort == 0 {
		p.IMAPPort = DefaultIMAPPort
	}
	if p.SMTPPort == 0 {
		p.SMTPPort = DefaultSMTPPort
	}
}

// Validate confirms the profile is complete enough to dial with.
func (p *Profile) Validate() error {
	if _, err := mail.ParseAddress(p.Address); err != nil {
		return fmt.Errorf("address %q: %v", p.Address, err)
	}
	if p.Secret == "" {
		return fmt.Errorf("password must not be empty")
	}
	if p.IMAPHost == "" {
		return fmt.Errorf("IMAP host must not be empty")
	}
	if p.SMTPHost == "" {
		return fmt.Errorf("SMTP host must not be empty")
	}
	for _, port := range []int{p.IMAPPort, p.SMTPPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port %v out of range", port)
		}
	}
	return nil
}

// IMAPAddr returns the host:port address of the IMAP endpoint.
func (p *Profile) IMAPAddr() string {
	return net.JoinHostPort(p.IMAPHost, strconv.Itoa(p.IMAPPort))
}

// SMTPAddr returns the host:port address of the SMTP endpoint.
func (p *Profile) SMTPAddr() string {
	return net.JoinHostPort(p.SMTPHost, strconv.Itoa(p.SMTPPort))
}

// String renders the profile with the secret redacted, safe for logging.
func (p Profile) String() string {
	return fmt.Sprintf("%v imap=%v smtp=%v", p.Address, p.IMAPAddr(), p.SMTPAddr())
}
