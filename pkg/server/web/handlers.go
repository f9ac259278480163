package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/token"
)

// ErrNoToken indicates a request to a protected route carried no bearer
// token.
var ErrNoToken = errors.New("missing bearer token")

// Handler is a function type that handles an HTTP request in MailBridge.
type Handler func(http.ResponseWriter, *http.Request, *Context) error

// ServeHTTP builds the context and passes onto the real handler.
func (h Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Create the context.
	ctx, err := NewContext(req)
	if err != nil {
		log.Error().Str("module", "web").Err(err).
			Msg("HTTP failed to create context")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer ctx.Close()

	// Run the handler, grab the error, and report it.
	err = h(w, req, ctx)
	if err != nil {
		status := errorStatusCode(err)
		if status >= 500 {
			log.Error().Str("module", "web").Str("path", req.RequestURI).
				Err(err).Msg("Error handling request")
		} else {
			log.Debug().Str("module", "web").Str("path", req.RequestURI).
				Int("status", status).Err(err).Msg("Request rejected")
		}
		writeJSONError(w, status, err)
	}
}

// Secure wraps a handler with access token verification.  The wrapped
// handler runs with the authenticated profile set on its context.
func Secure(next Handler) Handler {
	return func(w http.ResponseWriter, req *http.Request, ctx *Context) error {
		tokenString := BearerToken(req)
		if tokenString == "" {
			return ErrNoToken
		}
		p, err := ctx.TokenCodec.Verify(tokenString)
		if err != nil {
			return err
		}
		ctx.Profile = p
		return next(w, req, ctx)
	}
}

// BearerToken extracts the access token from the Authorization header,
// falling back to the token query parameter for WebSocket clients.
func BearerToken(req *http.Request) string {
	if auth := req.Header.Get("Authorization"); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			return strings.TrimSpace(auth[7:])
		}
		return ""
	}
	return req.URL.Query().Get("token")
}

// errorStatusCode maps a handler error to the HTTP status sent to the
// client.
func errorStatusCode(err error) int {
	var verr *mailbox.ValidationError
	var rerr *mailbox.SendRejectedError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &rerr):
		return http.StatusForbidden
	case errors.Is(err, mailbox.ErrAuthFailed),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrTokenInvalid),
		errors.Is(err, ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, mailbox.ErrNotExist),
		errors.Is(err, mailbox.ErrFolderNotExist),
		errors.Is(err, mailbox.ErrAttachmentNotExist):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// errorReason supplies the machine readable reason for auth failures.
func errorReason(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return "token-expired"
	case errors.Is(err, token.ErrTokenInvalid):
		return "token-invalid"
	case errors.Is(err, ErrNoToken):
		return "token-missing"
	}
	return ""
}

// noMatchHandler creates a handler to log requests that Gorilla mux is
// unable to route, returning specified statusCode to the client.
func noMatchHandler(statusCode int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Warn().Str("module", "web").Str("remote", req.RemoteAddr).
			Str("proto", req.Proto).Str("method", req.Method).
			Str("path", req.RequestURI).Msg(message)
		w.WriteHeader(statusCode)
	})
}

// requestLoggingWrapper returns middleware that logs client requests.
func requestLoggingWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Debug().Str("module", "web").Str("remote", req.RemoteAddr).
			Str("proto", req.Proto).Str("method", req.Method).
			Str("path", req.RequestURI).Msg("Request")
		next.ServeHTTP(w, req)
	})
}

// corsWrapper returns middleware implementing CORS for the configured
// origins, including preflight requests.
func corsWrapper(origins []string, next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if origin := req.Header.Get("Origin"); origin != "" {
			_, ok := allowed[origin]
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case ok:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			if allowAll || ok {
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Authorization, Content-Type")
			}
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}
