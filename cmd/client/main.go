// Package main implements a command line client for the MailBridge REST API
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/mailbridge/mailbridge/pkg/rest/client"
)

var host = flag.String("host", "localhost", "host/IP of MailBridge gateway")
var port = flag.Uint("port", 9000, "HTTP port of MailBridge gateway")
var token = flag.String("token", os.Getenv("MAILBRIDGE_TOKEN"),
	"access token, defaults to $MAILBRIDGE_TOKEN")

// Allow subcommands to accept address lists as repeatable flags
type addressListFlag struct {
	addrs []string
}

func (a *addressListFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			a.addrs = append(a.addrs, part)
		}
	}
	return nil
}

func (a *addressListFlag) String() string {
	return strings.Join(a.addrs, ",")
}

// addressListFlag must implement flag.Value
var _ flag.Value = &addressListFlag{}

// Allow subcommands to accept repeatable file path flags
type fileListFlag struct {
	paths []string
}

func (ff *fileListFlag) Set(value string) error {
	ff.paths = append(ff.paths, value)
	return nil
}

func (ff *fileListFlag) String() string {
	return strings.Join(ff.paths, ",")
}

// fileListFlag must implement flag.Value
var _ flag.Value = &fileListFlag{}

func main() {
	// Important top-level flags
	subcommands.ImportantFlag("host")
	subcommands.ImportantFlag("port")
	subcommands.ImportantFlag("token")

	// Setup standard helpers
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	// Setup my commands
	subcommands.Register(&loginCmd{}, "")
	subcommands.Register(&listCmd{}, "")
	subcommands.Register(&showCmd{}, "")
	subcommands.Register(&sendCmd{}, "")
	subcommands.Register(&checkCmd{}, "")

	// Parse and execute
	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

func baseURL() string {
	return "http://" + net.JoinHostPort(*host, strconv.FormatUint(uint64(*port), 10))
}

// authClient builds a REST client carrying the access token from the
// -token flag.
func authClient() (*client.Client, error) {
	if *token == "" {
		return nil, fmt.Errorf("no access token; run the login command or set -token")
	}
	c, err := client.New(baseURL())
	if err != nil {
		return nil, err
	}
	c.SetToken(*token)
	return c, nil
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
