package msghub

import (
	"context"
	"strings"

	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/extension/event"
)

// Length of msghub operation queue
const opChanLen = 100

// Listener receives new message notifications for a single account.
type Listener interface {
	Receive(msg event.MessageMetadata) error
}

// Hub relays new mail notifications to the listeners watching each account.
// The gateway holds no mailbox state, so there is no history to replay;
// listeners only see messages discovered while they are registered.
type Hub struct {
	listeners map[string]map[Listener]struct{} // watchers keyed by lowercased account address
	opChan    chan func(h *Hub)                // operations queued for this actor
}

// New constructs a new Hub.  A goroutine must be started via Start to handle
// incoming operations; it will run until the provided context is canceled.
func New(extHost *extension.Host) *Hub {
	hub := &Hub{
		listeners: make(map[string]map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
	}

	// Register an extension event listener for NewMail.
	extHost.Events.AfterNewMail.AddListener("msghub", func(ev event.NewMail) {
		hub.Dispatch(ev.Mailbox, ev.Messages)
	})

	return hub
}

// Start Hub processing loop.
func (hub *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Shutdown
			close(hub.opChan)
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// Dispatch queues messages for broadcast to the listeners watching mailbox.
// Listeners returning an error are removed.
func (hub *Hub) Dispatch(mailbox string, msgs []event.MessageMetadata) {
	hub.opChan <- func(h *Hub) {
		key := strings.ToLower(mailbox)
		for l := range h.listeners[key] {
			for _, msg := range msgs {
				if err := l.Receive(msg); err != nil {
					h.remove(key, l)
					break
				}
			}
		}
	}
}

// AddListener registers a listener to receive messages for the given account
// address.
func (hub *Hub) AddListener(mailbox string, l Listener) {
	hub.opChan <- func(h *Hub) {
		key := strings.ToLower(mailbox)
		watchers := h.listeners[key]
		if watchers == nil {
			watchers = make(map[Listener]struct{})
			h.listeners[key] = watchers
		}
		watchers[l] = struct{}{}
	}
}

// RemoveListener deletes a listener registration, it will cease to receive
// messages.
func (hub *Hub) RemoveListener(mailbox string, l Listener) {
	hub.opChan <- func(h *Hub) {
		h.remove(strings.ToLower(mailbox), l)
	}
}

// remove drops a listener, and the account entry once no watchers remain.
// Must run on the actor goroutine.
func (hub *Hub) remove(key string, l Listener) {
	watchers := hub.listeners[key]
	delete(watchers, l)
	if len(watchers) == 0 {
		delete(hub.listeners, key)
	}
}

// Sync blocks until the msghub has processed its queue up to this point, useful
// for unit tests.
func (hub *Hub) Sync() {
	done := make(chan struct{})
	hub.opChan <- func(h *Hub) {
		close(done)
	}
	<-done
}
