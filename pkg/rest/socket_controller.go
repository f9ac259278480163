package rest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mailbridge/mailbridge/pkg/extension/event"
	"github.com/mailbridge/mailbridge/pkg/folder"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/rest/model"
	"github.com/mailbridge/mailbridge/pkg/server/web"
	"github.com/mailbridge/mailbridge/pkg/stringutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Deadline for a background new mail check.
	checkNewTimeout = 2 * time.Minute
)

// options for gorilla connection upgrader; bearer token auth stands in
// for the same origin check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(req *http.Request) bool { return true },
}

// errSocketBacklog causes the hub to drop a listener whose WebSocket
// cannot keep up.
var errSocketBacklog = errors.New("websocket send queue full")

// msgListener bridges hub deliveries to a WebSocket connection.
type msgListener struct {
	hub     *msghub.Hub                    // Global message hub.
	c       chan *model.JSONMonitorEventV1 // Queue of outgoing events.
	done    chan struct{}                  // Closed on listener shutdown.
	once    sync.Once
	address string // Account address this socket monitors.
}

// newMsgListener creates a listener and registers it for the address.
func newMsgListener(hub *msghub.Hub, address string) *msgListener {
	ml := &msgListener{
		hub:     hub,
		c:       make(chan *model.JSONMonitorEventV1, 100),
		done:    make(chan struct{}),
		address: address,
	}
	hub.AddListener(address, ml)
	return ml
}

// Receive handles an incoming message notification.
func (ml *msgListener) Receive(msg event.MessageMetadata) error {
	ev := &model.JSONMonitorEventV1{
		Variant: "new-mail",
		Address: ml.address,
		Headers: []*model.JSONMessageHeaderV1{metadataToHeader(&msg)},
	}

	// Enqueue for websocket; the hub actor must never block here.
	select {
	case ml.c <- ev:
		return nil
	default:
		return errSocketBacklog
	}
}

// WSReader makes sure the websocket client is still connected, discards
// any messages from client.
func (ml *msgListener) WSReader(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()
	defer ml.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn().Err(err).Msg("Failed to setup read deadline")
	}
	conn.SetPongHandler(func(string) error {
		slog.Debug().Msg("Got pong")
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Warn().Err(err).Msg("Failed to set read deadline in pong")
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				// Unexpected close code
				slog.Warn().Err(err).Msg("Socket error")
			} else {
				slog.Debug().Msg("Closing socket")
			}
			break
		}
	}
}

// WSWriter pushes queued events and keepalive pings to the client.
func (ml *msgListener) WSWriter(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ml.Close()
	}()

	// Handle messages from hub until msgListener is closed.
	for {
		select {
		case ev := <-ml.c:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for msg")
			}
			if conn.WriteJSON(ev) != nil {
				// Write failed
				return
			}
		case <-ml.done:
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			// Send ping
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for ping")
			}
			if conn.WriteMessage(websocket.PingMessage, []byte{}) != nil {
				// Write error
				return
			}
			slog.Debug().Msg("Sent ping")
		}
	}
}

// Close removes the listener registration.  Queued events still in the
// channel are left for the garbage collector.
func (ml *msgListener) Close() {
	ml.once.Do(func() {
		ml.hub.RemoveListener(ml.address, ml)
		close(ml.done)
	})
}

// MonitorSocketV1 upgrades the connection to a WebSocket and notifies
// the client of new mail for the authenticated account.
func MonitorSocketV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	address := ctx.Profile.Address

	// Upgrade to Websocket.
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	web.ExpWebSocketConnectsCurrent.Add(1)
	defer func() {
		_ = conn.Close()
		web.ExpWebSocketConnectsCurrent.Add(-1)
	}()
	log.Debug().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Msg("Upgraded to WebSocket")

	// Create, register listener; then interact with conn.
	ml := newMsgListener(ctx.MsgHub, address)
	go ml.WSWriter(conn)
	ml.WSReader(conn)
	return nil
}

// MonitorCheckV1 triggers a new mail check in the background and returns
// immediately.  Results arrive as new-mail events on the monitor socket.
func MonitorCheckV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	p := ctx.Profile
	mm := ctx.Manager
	go func() {
		checkCtx, cancel := context.WithTimeout(context.Background(), checkNewTimeout)
		defer cancel()
		if _, err := mm.CheckNew(checkCtx, p); err != nil {
			log.Error().Str("module", "rest").Str("address", p.Address).Err(err).
				Msg("Background new mail check failed")
		}
	}()
	return web.RenderJSONStatus(w, http.StatusAccepted, "OK")
}

// metadataToHeader converts event metadata to the JSON header form.  New
// mail notifications always concern the inbox.
func metadataToHeader(msg *event.MessageMetadata) *model.JSONMessageHeaderV1 {
	from := ""
	if msg.From != nil {
		from = msg.From.String()
	}
	return &model.JSONMessageHeaderV1{
		Folder:  folder.Inbox,
		ID:      msg.ID,
		From:    from,
		To:      stringutil.StringAddressList(msg.To),
		Subject: msg.Subject,
		Date:    msg.Date,
		Seen:    msg.Seen,
	}
}
