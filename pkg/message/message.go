// Package message converts between raw RFC 822 mail and the structures
// the gateway serves: parsing stored messages and building outgoing MIME
// documents.
package message

import (
	"net/mail"
	"strings"
	"time"
)

// Body content types accepted in Outbound.ContentType. Values other than
// plain are treated as HTML.
const (
	ContentTypePlain = "plain"
	ContentTypeHTML  = "html"
)

// Attachment describes one attachment part. Content is nil in summary
// listings; full-message parses and attachment fetches populate it.
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Content     []byte
}

// Summary is the header-level view of a stored message, sufficient for
// mailbox listings. Seq is only meaningful within the IMAP session that
// produced it; MessageID is the stable handle across sessions.
type Summary struct {
	Seq            uint32
	MessageID      string
	Subject        string
	From           string
	To             []string
	Cc             []string
	Date           time.Time
	Preview        string
	Flags          []string
	Seen           bool
	Flagged        bool
	HasAttachments bool
	Attachments    []Attachment
}

// Message holds the summary fields plus bodies, the full header map, and
// decoded attachment content.
type Message struct {
	Summary
	Text   string
	HTML   string
	Header map[string][]string
}

// OutboundAttachment is an attachment as accepted from API clients, with
// base64 encoded content.
type OutboundAttachment struct {
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// Outbound is a message to be sent or stored as a draft, as accepted from
// API clients. InReplyTo and References are derived server side by the
// reply builder, never from client input.
type Outbound struct {
	FromName      string               `json:"from_name"`
	To            []string             `json:"to"`
	Cc            []string             `json:"cc"`
	Bcc           []string             `json:"bcc"`
	Subject       string               `json:"subject"`
	Body          string               `json:"body"`
	ContentType   string               `json:"content_type"`
	Attachments   []OutboundAttachment `json:"attachments"`
	ReadReceipt   bool                 `json:"read_receipt"`
	ReadReceiptTo string               `json:"read_receipt_to"`
	InReplyTo     string               `json:"-"`
	References    string               `json:"-"`
}

// Recipients returns the envelope recipient union of To, Cc and Bcc in
// order, duplicates removed by bare address.
func (o *Outbound) Recipients() []string {
	seen := make(map[string]struct{}, len(o.To)+len(o.Cc)+len(o.Bcc))
	var rcpts []string
	for _, group := range [][]string{o.To, o.Cc, o.Bcc} {
		for _, addr := range group {
			key := bareAddress(addr)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rcpts = append(rcpts, addr)
		}
	}
	return rcpts
}

// bareAddress reduces a possibly phrased address to its lowercase
// addr-spec for comparison.
func bareAddress(s string) string {
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(strings.TrimSpace(s))
}
