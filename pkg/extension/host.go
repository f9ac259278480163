package extension

import (
	"github.com/mailbridge/mailbridge/pkg/extension/event"
)

// Host defines extension points for the gateway.
type Host struct {
	Events *Events
}

// Events defines all the event types supported by the extension host.
//
// Before-events provide an opportunity for extensions to alter how the
// gateway responds to that type of event.  These events are processed
// synchronously; expensive operations will reduce the perceived
// performance of the gateway.  The first listener in the list to respond
// with a non-nil value will determine the response, and the remaining
// listeners will not be called.
//
// After-events allow extensions to take an action after an event has
// completed.  These events are processed asynchronously with respect to
// the rest of the gateway's operation.  However, an event listener will
// not be called until the one before it completes.
type Events struct {
	AfterMessageSent   AsyncEventBroker[event.OutboundMetadata]
	AfterNewMail       AsyncEventBroker[event.NewMail]
	BeforeMessageSent  EventBroker[event.OutboundMessage, event.OutboundMessage]
	BeforeSendAccepted EventBroker[event.OutboundMessage, event.SendResponse]
}

// Void indicates the event emitter will ignore any value returned by listeners.
type Void struct{}

// NewHost creates a new extension host.
func NewHost() *Host {
	return &Host{Events: &Events{}}
}
