package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/mailbridge/mailbridge/pkg/message"
)

type sendCmd struct {
	to      addressListFlag
	cc      addressListFlag
	bcc     addressListFlag
	subject string
	attach  fileListFlag
}

func (*sendCmd) Name() string {
	return "send"
}

func (*sendCmd) Synopsis() string {
	return "send a message, body read from stdin"
}

func (*sendCmd) Usage() string {
	return `send [flags] < body.txt:
	send a message through the account's SMTP server
`
}

func (s *sendCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&s.to, "to", "To recipients, comma separated or repeated")
	f.Var(&s.cc, "cc", "Cc recipients, comma separated or repeated")
	f.Var(&s.bcc, "bcc", "Bcc recipients, comma separated or repeated")
	f.StringVar(&s.subject, "subject", "", "message subject")
	f.Var(&s.attach, "attach", "attach the named file, may be repeated")
}

func (s *sendCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(s.to.addrs) == 0 {
		return usage("at least one -to recipient required")
	}

	// Message body is read from stdin.
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fatal("Couldn't read message body", err)
	}

	out := &message.Outbound{
		To:      s.to.addrs,
		Cc:      s.cc.addrs,
		Bcc:     s.bcc.addrs,
		Subject: s.subject,
		Body:    string(body),
	}
	for _, path := range s.attach.paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fatal("Couldn't read attachment", err)
		}
		ctype := mime.TypeByExtension(filepath.Ext(path))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		out.Attachments = append(out.Attachments, message.OutboundAttachment{
			FileName:    filepath.Base(path),
			ContentType: ctype,
			Content:     base64.StdEncoding.EncodeToString(content),
		})
	}

	// Setup REST client
	c, err := authClient()
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	result, err := c.Send(ctx, out)
	if err != nil {
		return fatal("Send REST call failed", err)
	}

	fmt.Printf("Message-ID: %v\n", result.MessageID)
	fmt.Printf("Delivered: %v, filed to Sent: %v\n", result.Delivered, result.Filed)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	return subcommands.ExitSuccess
}
