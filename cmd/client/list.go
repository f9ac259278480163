package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/mailbridge/mailbridge/pkg/rest/client"
)

type listCmd struct {
	page    int
	limit   int
	search  string
	filter  string
	output  string
	outFunc func(headers []*client.MessageHeader) error
}

func (*listCmd) Name() string {
	return "list"
}

func (*listCmd) Synopsis() string {
	return "list contents of a folder"
}

func (*listCmd) Usage() string {
	return `list [flags] [folder]:
	list message IDs in folder, INBOX when omitted
`
}

func (l *listCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&l.page, "page", 1, "page number")
	f.IntVar(&l.limit, "limit", 20, "messages per page")
	f.StringVar(&l.search, "search", "", `search query, ex: "FROM fred UNSEEN"`)
	f.StringVar(&l.filter, "filter", "",
		"filter kind: read, unread, starred, unstarred, or with_attachments")
	f.StringVar(&l.output, "output", "id", "output format: id or json")
}

func (l *listCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	folder := f.Arg(0)
	if folder == "" {
		folder = "INBOX"
	}
	if l.search != "" && l.filter != "" {
		return usage("search and filter are mutually exclusive")
	}
	// Select output function
	switch l.output {
	case "id":
		l.outFunc = outputID
	case "json":
		l.outFunc = outputJSON
	default:
		return usage("unknown output type: " + l.output)
	}

	// Setup REST client
	c, err := authClient()
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	// Get list
	var headers []*client.MessageHeader
	switch {
	case l.search != "":
		headers, err = c.SearchMessages(ctx, folder, l.search, l.page, l.limit)
	case l.filter != "":
		headers, err = c.FilterMessages(ctx, folder, l.filter, l.page, l.limit)
	default:
		headers, err = c.ListMessages(ctx, folder, l.page, l.limit)
	}
	if err != nil {
		return fatal("List REST call failed", err)
	}
	err = l.outFunc(headers)
	if err != nil {
		return fatal("Error", err)
	}

	return subcommands.ExitSuccess
}

func outputID(headers []*client.MessageHeader) error {
	for _, h := range headers {
		fmt.Println(h.ID)
	}
	return nil
}

func outputJSON(headers []*client.MessageHeader) error {
	jsonEncoder := json.NewEncoder(os.Stdout)
	jsonEncoder.SetEscapeHTML(false)
	jsonEncoder.SetIndent("", "  ")
	return jsonEncoder.Encode(headers)
}
