// Package web provides the HTTP plumbing for the MailBridge REST API.
package web

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/token"
)

var (
	// Router is shared between the web and rest packages.  It sends
	// incoming requests to the correct handler function.
	Router = mux.NewRouter()

	// active holds the server NewContext reads handler state from.
	active *Server

	// ExpWebSocketConnectsCurrent tracks the number of open WebSockets.
	ExpWebSocketConnectsCurrent = new(expvar.Int)
)

func init() {
	m := expvar.NewMap("http")
	m.Set("WebSocketConnectsCurrent", ExpWebSocketConnectsCurrent)
}

// Server owns the HTTP listener and the state shared by request handlers.
type Server struct {
	rootConfig     *config.Root
	manager        mailbox.Manager
	msgHub         *msghub.Hub
	tokenCodec     *token.Codec
	handler        http.Handler
	server         *http.Server
	listener       net.Listener
	globalShutdown chan bool
	drained        chan struct{}
}

// NewServer sets up things for unit tests or the Start() method.
func NewServer(
	conf *config.Root,
	shutdownChan chan bool,
	mm mailbox.Manager,
	mh *msghub.Hub,
	tc *token.Codec,
) *Server {
	Router.NotFoundHandler = noMatchHandler(
		http.StatusNotFound, "No route matches URI path")
	Router.MethodNotAllowedHandler = noMatchHandler(
		http.StatusMethodNotAllowed, "Method not allowed for URI path")

	s := &Server{
		rootConfig:     conf,
		manager:        mm,
		msgHub:         mh,
		tokenCodec:     tc,
		globalShutdown: shutdownChan,
		drained:        make(chan struct{}),
		handler: requestLoggingWrapper(
			corsWrapper(conf.Web.CORSOrigins, Router)),
	}

	// NewContext() will use this server for the web handlers.
	active = s

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(ctx context.Context) {
	addr := s.rootConfig.Web.Addr
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// We don't use ListenAndServe because it lacks a way to close the
	// listener.
	log.Info().Str("module", "web").Str("phase", "startup").Str("addr", addr).
		Msg("HTTP listening on tcp")
	var err error
	s.listener, err = net.Listen("tcp", addr)
	if err != nil {
		log.Error().Str("module", "web").Str("addr", addr).Err(err).
			Msg("HTTP failed to start TCP listener")
		close(s.drained)
		s.emergencyShutdown()
		return
	}

	// Listener go routine.
	go s.serve(ctx)

	// Wait for shutdown.
	<-ctx.Done()
	log.Debug().Str("module", "web").Str("phase", "shutdown").
		Msg("HTTP server shutting down on request")

	// Closing the listener will cause the serve() go routine to exit.
	if err := s.listener.Close(); err != nil {
		log.Error().Str("module", "web").Err(err).
			Msg("Failed to close HTTP listener")
	}
}

// serve begins serving HTTP requests.
func (s *Server) serve(ctx context.Context) {
	defer close(s.drained)

	// server.Serve blocks until we close the listener.
	err := s.server.Serve(s.listener)

	select {
	case <-ctx.Done():
		// Nop
	default:
		log.Error().Str("module", "web").Err(err).Msg("HTTP server failed")
		s.emergencyShutdown()
	}
}

// Drain blocks until the HTTP listener has shut down.
func (s *Server) Drain() {
	<-s.drained
}

func (s *Server) emergencyShutdown() {
	// Shutdown MailBridge.
	select {
	case <-s.globalShutdown:
	default:
		close(s.globalShutdown)
	}
}
