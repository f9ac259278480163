package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type checkCmd struct{}

func (*checkCmd) Name() string {
	return "check"
}

func (*checkCmd) Synopsis() string {
	return "ask the gateway to poll for new mail"
}

func (*checkCmd) Usage() string {
	return `check:
	poll the inbox for unseen messages; results are pushed to
	monitor WebSocket clients
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rc, err := authClient()
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	if err := rc.CheckNew(ctx); err != nil {
		return fatal("Check REST call failed", err)
	}
	fmt.Println("Check requested")

	return subcommands.ExitSuccess
}
