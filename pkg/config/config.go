// Package config provides the MailBridge configuration, loaded from the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "mailbridge"
	tableFormat = `MailBridge is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Web      Web
	Mailbox  Mailbox
	SMTP     SMTP
	Token    Token
	Lua      Lua
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr        string   `required:"true" default:"0.0.0.0:9000" desc:"Web server IP4 host:port"`
	BasePath    string   `desc:"Base path prefix for UI and API URLs"`
	CORSOrigins []string `default:"*" desc:"Allowed CORS origins"`
}

// Mailbox contains the upstream IMAP client configuration.
type Mailbox struct {
	DialTimeout   time.Duration `required:"true" default:"30s" desc:"IMAP dial/login timeout"`
	AllowInsecure bool          `required:"true" default:"false" desc:"Permit non-TLS IMAP connections?"`
}

// SMTP contains the outbound SMTP client configuration.
type SMTP struct {
	Timeout    time.Duration `required:"true" default:"30s" desc:"SMTP dial/send timeout"`
	HELODomain string        `desc:"HELO domain, defaults to local hostname"`
}

// Token contains the credential token configuration.
type Token struct {
	SigningKey    string        `required:"true" desc:"HMAC key for signing credential tokens"`
	CredentialKey string        `required:"true" desc:"AES key for credential encryption (16, 24 or 32 bytes)"`
	AccessTTL     time.Duration `required:"true" default:"1h" desc:"Access token lifetime"`
	RefreshTTL    time.Duration `required:"true" default:"24h" desc:"Refresh token lifetime"`
}

// Lua contains the extension script configuration.
type Lua struct {
	Path string `default:"mailbridge.lua" desc:"Lua extension script path"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	if err != nil {
		return c, err
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if kl := len(c.Token.CredentialKey); kl != 16 && kl != 24 && kl != 32 {
		return c, fmt.Errorf("Token credential key must be 16, 24 or 32 bytes, got %v", kl)
	}
	return c, nil
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to render env config usage: %v\n", err)
		os.Exit(1)
	}
	tabs.Flush()
}
