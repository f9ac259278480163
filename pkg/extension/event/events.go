package event

import (
	"net/mail"
	"time"
)

// Listener responses for the send policy event.
const (
	ActionDefer = iota
	ActionAllow
	ActionDeny
)

// MessageMetadata contains the basic header data for a message event.
type MessageMetadata struct {
	Mailbox string // owning account address
	ID      string // Message-ID header
	From    *mail.Address
	To      []*mail.Address
	Date    time.Time
	Subject string
	Seen    bool
}

// NewMail lists messages discovered by an unseen mail check.
type NewMail struct {
	Mailbox  string
	Messages []MessageMetadata
}

// OutboundMessage is the rewritable form of a message about to be sent.
// The envelope sender is pinned to the authenticated account; listeners
// may adjust the display name, recipients, subject and body.
type OutboundMessage struct {
	From    *mail.Address
	To      []*mail.Address
	Cc      []*mail.Address
	Bcc     []*mail.Address
	Subject string
	Body    string
}

// OutboundMetadata describes a message after successful submission.
type OutboundMetadata struct {
	Mailbox   string
	MessageID string
	From      *mail.Address
	To        []*mail.Address
	Date      time.Time
	Subject   string
	Filed     bool // copy reached the sent folder
}

// SendResponse is the verdict returned by send policy listeners.
type SendResponse struct {
	Action    int
	ErrorCode int
	ErrorMsg  string
}
