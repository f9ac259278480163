package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type showCmd struct {
	folder string
	output string
}

func (*showCmd) Name() string {
	return "show"
}

func (*showCmd) Synopsis() string {
	return "output a single message"
}

func (*showCmd) Usage() string {
	return `show [flags] <message-id>:
	output the headers and body of one message
`
}

func (s *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.folder, "folder", "INBOX", "folder holding the message")
	f.StringVar(&s.output, "output", "text", "output format: text or json")
}

func (s *showCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id := f.Arg(0)
	if id == "" {
		return usage("message-id required")
	}
	if s.output != "text" && s.output != "json" {
		return usage("unknown output type: " + s.output)
	}

	// Setup REST client
	c, err := authClient()
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	msg, err := c.GetMessage(ctx, s.folder, id)
	if err != nil {
		return fatal("Get REST call failed", err)
	}

	if s.output == "json" {
		jsonEncoder := json.NewEncoder(os.Stdout)
		jsonEncoder.SetEscapeHTML(false)
		jsonEncoder.SetIndent("", "  ")
		if err := jsonEncoder.Encode(msg); err != nil {
			return fatal("Error", err)
		}
		return subcommands.ExitSuccess
	}

	fmt.Printf("Folder: %v\n", msg.Folder)
	fmt.Printf("Message-ID: %v\n", msg.ID)
	fmt.Printf("From: %v\n", msg.From)
	fmt.Printf("To: %v\n", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		fmt.Printf("Cc: %v\n", strings.Join(msg.Cc, ", "))
	}
	fmt.Printf("Subject: %v\n", msg.Subject)
	fmt.Printf("Date: %v\n", msg.Date)
	for _, a := range msg.Attachments {
		fmt.Printf("Attachment: %v (%v, %v bytes)\n", a.FileName, a.ContentType, a.Size)
	}
	fmt.Println()
	if msg.Body == nil {
		return subcommands.ExitSuccess
	}
	if msg.Body.Text != "" {
		fmt.Println(msg.Body.Text)
	} else if msg.Body.HTML != "" {
		fmt.Println(msg.Body.HTML)
	}

	return subcommands.ExitSuccess
}
