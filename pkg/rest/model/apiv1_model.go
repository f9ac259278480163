// Package model defines the JSON document types served by the REST API.
package model

import (
	"time"

	"github.com/mailbridge/mailbridge/pkg/message"
)

// JSONTokenPairV1 carries a freshly minted access and refresh token.
type JSONTokenPairV1 struct {
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
}

// JSONRefreshRequestV1 is the body for token refresh requests.
type JSONRefreshRequestV1 struct {
	RefreshToken string `json:"refresh_token"`
}

// JSONMessageHeaderV1 contains the basic header data for a message.
type JSONMessageHeaderV1 struct {
	Folder         string    `json:"folder"`
	ID             string    `json:"id"`
	From           string    `json:"from"`
	To             []string  `json:"to"`
	Cc             []string  `json:"cc,omitempty"`
	Subject        string    `json:"subject"`
	Date           time.Time `json:"date"`
	Preview        string    `json:"preview,omitempty"`
	Seen           bool      `json:"seen"`
	Flagged        bool      `json:"flagged"`
	HasAttachments bool      `json:"has_attachments"`
}

// JSONMessageListV1 is one page of a folder listing.
type JSONMessageListV1 struct {
	Folder   string                 `json:"folder"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	Limit    int                    `json:"limit"`
	Messages []*JSONMessageHeaderV1 `json:"messages"`
}

// JSONMessageV1 contains the same data as the header plus a JSONMessageBody.
type JSONMessageV1 struct {
	Folder      string                     `json:"folder"`
	ID          string                     `json:"id"`
	From        string                     `json:"from"`
	To          []string                   `json:"to"`
	Cc          []string                   `json:"cc,omitempty"`
	Subject     string                     `json:"subject"`
	Date        time.Time                  `json:"date"`
	Seen        bool                       `json:"seen"`
	Flagged     bool                       `json:"flagged"`
	Body        *JSONMessageBodyV1         `json:"body"`
	Header      map[string][]string        `json:"header"`
	Attachments []*JSONMessageAttachmentV1 `json:"attachments"`
}

// JSONMessageBodyV1 contains the Text and HTML versions of the message body.
type JSONMessageBodyV1 struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// JSONMessageAttachmentV1 describes one attachment.  Content is base64
// and only populated on single attachment fetches.
type JSONMessageAttachmentV1 struct {
	FileName     string `json:"filename"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	DownloadLink string `json:"download_link"`
	Content      string `json:"content,omitempty"`
}

// JSONFolderCountV1 reports message totals for one folder.
type JSONFolderCountV1 struct {
	Folder string `json:"folder"`
	Total  uint32 `json:"total"`
	Unseen uint32 `json:"unseen"`
}

// JSONUnreadCountV1 reports the INBOX unseen count.
type JSONUnreadCountV1 struct {
	Unread uint32 `json:"unread"`
}

// JSONFlagRequestV1 is the body for flag updates; nil fields are left
// unchanged.
type JSONFlagRequestV1 struct {
	Seen    *bool `json:"seen"`
	Flagged *bool `json:"flagged"`
}

// JSONMoveRequestV1 is the body for move requests.
type JSONMoveRequestV1 struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// JSONReplyRequestV1 is the body for reply requests.
type JSONReplyRequestV1 struct {
	message.Outbound
	ReplyAll bool `json:"reply_all"`
}

// JSONSendResultV1 reports the outcome of a send operation.
type JSONSendResultV1 struct {
	MessageID string   `json:"message_id"`
	Delivered bool     `json:"delivered"`
	Filed     bool     `json:"filed"`
	Warnings  []string `json:"warnings,omitempty"`
}

// JSONDraftV1 reports a stored draft's identity.  Updates change the
// Message-ID, so callers must retain the returned value.
type JSONDraftV1 struct {
	MessageID string `json:"message_id"`
}

// JSONTrashEmptyV1 reports how many messages an empty trash operation
// removed.
type JSONTrashEmptyV1 struct {
	Removed int `json:"removed"`
}

// JSONMonitorEventV1 is pushed over the monitor WebSocket.
type JSONMonitorEventV1 struct {
	// Event variant: currently only `new-mail`.
	Variant string                 `json:"variant"`
	Address string                 `json:"address"`
	Headers []*JSONMessageHeaderV1 `json:"headers"`
}
