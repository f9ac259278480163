package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/token"
)

// Context is passed into every request handler function.  Profile is nil
// until the Secure wrapper has verified the caller's access token.
type Context struct {
	Vars       map[string]string
	Profile    *profile.Profile
	Manager    mailbox.Manager
	MsgHub     *msghub.Hub
	TokenCodec *token.Codec
	RootConfig *config.Root
}

// Close the Context (currently does nothing).
func (c *Context) Close() {
	// Do nothing
}

// NewContext returns a Context for the given HTTP request.
func NewContext(req *http.Request) (*Context, error) {
	if active == nil {
		return nil, errors.New("web server not initialized")
	}
	ctx := &Context{
		Vars:       mux.Vars(req),
		Manager:    active.manager,
		MsgHub:     active.msgHub,
		TokenCodec: active.tokenCodec,
		RootConfig: active.rootConfig,
	}
	return ctx, nil
}
