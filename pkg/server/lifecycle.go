package server

import (
	"context"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/delivery"
	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/extension/luahost"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/rest"
	"github.com/mailbridge/mailbridge/pkg/server/web"
	"github.com/mailbridge/mailbridge/pkg/stringutil"
	"github.com/mailbridge/mailbridge/pkg/token"
)

// Services holds the configured and started services.
type Services struct {
	MsgHub    *msghub.Hub
	ExtHost   *extension.Host
	WebServer *web.Server
}

// Prod wires up the production MailBridge environment.
func Prod(rootCtx context.Context, shutdownChan chan bool, conf *config.Root) (*Services, error) {
	// Configure extensions.
	extHost := extension.NewHost()
	if _, err := luahost.New(conf.Lua, extHost); err != nil {
		return nil, err
	}

	// Start the notification hub.
	msgHub := msghub.New(extHost)
	go msgHub.Start(rootCtx)

	// Configure the mailbox facade; sessions are dialed per request.
	dialer := &mailbox.IMAPDialer{
		Timeout:       conf.Mailbox.DialTimeout,
		AllowInsecure: conf.Mailbox.AllowInsecure,
	}
	mmanager := &mailbox.SessionManager{
		Dialer:  dialer,
		Sender:  delivery.NewSMTPSender(conf.SMTP),
		ExtHost: extHost,
	}

	tokenCodec := token.NewCodec(conf.Token)

	// Configure routes and start HTTP server.
	prefix := stringutil.MakePathPrefixer(conf.Web.BasePath)
	rest.SetupRoutes(web.Router.PathPrefix(prefix("/api/")).Subrouter())
	webServer := web.NewServer(conf, shutdownChan, mmanager, msgHub, tokenCodec)
	go webServer.Start(rootCtx)

	return &Services{
		MsgHub:    msgHub,
		ExtHost:   extHost,
		WebServer: webServer,
	}, nil
}
