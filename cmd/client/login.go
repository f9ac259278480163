package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/rest/client"
)

type loginCmd struct {
	email    string
	password string
	imapHost string
	imapPort int
	smtpHost string
	smtpPort int
}

func (*loginCmd) Name() string {
	return "login"
}

func (*loginCmd) Synopsis() string {
	return "verify a connection profile and mint tokens"
}

func (*loginCmd) Usage() string {
	return `login [flags]:
	verify the IMAP and SMTP connection profile, print a token pair
`
}

func (l *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.email, "email", "", "account email address")
	f.StringVar(&l.password, "password", os.Getenv("MAILBRIDGE_PASSWORD"),
		"account password, defaults to $MAILBRIDGE_PASSWORD")
	f.StringVar(&l.imapHost, "imap-host", "", "IMAP server hostname")
	f.IntVar(&l.imapPort, "imap-port", 0, "IMAP server port (default 993)")
	f.StringVar(&l.smtpHost, "smtp-host", "", "SMTP submission hostname")
	f.IntVar(&l.smtpPort, "smtp-port", 0, "SMTP submission port (default 587)")
}

func (l *loginCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if l.email == "" || l.password == "" {
		return usage("email and password required")
	}
	if l.imapHost == "" || l.smtpHost == "" {
		return usage("imap-host and smtp-host required")
	}

	// Setup REST client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	pair, err := c.Login(ctx, &profile.Profile{
		Address:  l.email,
		Secret:   l.password,
		IMAPHost: l.imapHost,
		IMAPPort: l.imapPort,
		SMTPHost: l.smtpHost,
		SMTPPort: l.smtpPort,
	})
	if err != nil {
		return fatal("Login REST call failed", err)
	}

	fmt.Printf("Access token, expires %v:\n%v\n\n",
		pair.AccessExpires.Format(time.RFC3339), pair.AccessToken)
	fmt.Printf("Refresh token, expires %v:\n%v\n",
		pair.RefreshExpires.Format(time.RFC3339), pair.RefreshToken)

	return subcommands.ExitSuccess
}
