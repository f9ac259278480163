// Package client provides a basic REST client for MailBridge
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/rest/model"
)

// Client accesses the MailBridge REST API v1
type Client struct {
	restClient
}

// New creates a new v1 REST API client given the base URL of a MailBridge
// gateway, ex: "http://localhost:9000"
func New(baseURL string, opts ...func(*ClientOptions)) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	options := getDefaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}
	c := &Client{
		restClient{
			client: &http.Client{
				Transport: options.transport,
				Timeout:   options.timeout,
			},
			baseURL: parsedURL,
		},
	}
	return c, nil
}

// SetToken installs a previously minted access token, allowing a session to
// resume without calling Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login submits the connection profile to the gateway for verification and
// stores the minted access token for use by subsequent calls.
func (c *Client) Login(ctx context.Context, p *profile.Profile) (*model.JSONTokenPairV1, error) {
	pair := &model.JSONTokenPairV1{}
	if err := c.doJSON(ctx, "POST", "/api/v1/auth/login", p, pair); err != nil {
		return nil, err
	}
	c.token = pair.AccessToken
	return pair, nil
}

// Refresh exchanges a refresh token for a fresh pair and stores the new
// access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.JSONTokenPairV1, error) {
	pair := &model.JSONTokenPairV1{}
	body := &model.JSONRefreshRequestV1{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, "POST", "/api/v1/auth/refresh", body, pair); err != nil {
		return nil, err
	}
	c.token = pair.AccessToken
	return pair, nil
}

// Folders returns the folder names visible in the account.
func (c *Client) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	err := c.doJSON(ctx, "GET", "/api/v1/mailbox/folders", nil, &folders)
	return folders, err
}

// FolderCount returns total and unseen message counts for the named folder.
func (c *Client) FolderCount(ctx context.Context, folder string) (*model.JSONFolderCountV1, error) {
	count := &model.JSONFolderCountV1{}
	uri := "/api/v1/mailbox/folders/count?" + folderQuery(folder).Encode()
	if err := c.doJSON(ctx, "GET", uri, nil, count); err != nil {
		return nil, err
	}
	return count, nil
}

// ListMessages returns one page of message headers for the named folder.
func (c *Client) ListMessages(ctx context.Context, folder string, page, limit int) ([]*MessageHeader, error) {
	uri := "/api/v1/mailbox/messages?" + pageQuery(folder, page, limit).Encode()
	return c.headerList(ctx, uri)
}

// SearchMessages returns message headers matching an IMAP style search
// query, ex: "FROM fred UNSEEN".
func (c *Client) SearchMessages(ctx context.Context, folder, query string, page, limit int) ([]*MessageHeader, error) {
	vals := pageQuery(folder, page, limit)
	vals.Set("query", query)
	return c.headerList(ctx, "/api/v1/mailbox/search?"+vals.Encode())
}

// FilterMessages returns message headers matching a named filter, one of:
// read, unread, starred, unstarred, with_attachments.
func (c *Client) FilterMessages(ctx context.Context, folder, kind string, page, limit int) ([]*MessageHeader, error) {
	vals := pageQuery(folder, page, limit)
	vals.Set("kind", kind)
	return c.headerList(ctx, "/api/v1/mailbox/filter?"+vals.Encode())
}

// GetMessage returns the message details given a folder name and message ID.
func (c *Client) GetMessage(ctx context.Context, folder, id string) (msg *Message, err error) {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "?" + folderQuery(folder).Encode()
	err = c.doJSON(ctx, "GET", uri, nil, &msg)
	if err != nil {
		return nil, err
	}
	msg.client = c
	return
}

// SetFlags updates the seen and flagged markers on a message; nil values
// are left unchanged.
func (c *Client) SetFlags(ctx context.Context, folder, id string, seen, flagged *bool) error {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "?" + folderQuery(folder).Encode()
	body := &model.JSONFlagRequestV1{Seen: seen, Flagged: flagged}
	return c.doJSON(ctx, "PATCH", uri, body, nil)
}

// MarkSeen marks the specified message as having been read.
func (c *Client) MarkSeen(ctx context.Context, folder, id string) error {
	seen := true
	return c.SetFlags(ctx, folder, id, &seen, nil)
}

// DeleteMessage deletes a single message given the folder name and message
// ID.  Deleting from Trash is permanent, anywhere else files the message
// into Trash.
func (c *Client) DeleteMessage(ctx context.Context, folder, id string) error {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "?" + folderQuery(folder).Encode()
	return c.doJSON(ctx, "DELETE", uri, nil, nil)
}

// MoveMessage files a message into another folder.
func (c *Client) MoveMessage(ctx context.Context, id, from, to string) error {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "/move"
	body := &model.JSONMoveRequestV1{From: from, To: to}
	return c.doJSON(ctx, "POST", uri, body, nil)
}

// UnreadCount returns the number of unseen messages in the inbox.
func (c *Client) UnreadCount(ctx context.Context) (uint32, error) {
	count := &model.JSONUnreadCountV1{}
	if err := c.doJSON(ctx, "GET", "/api/v1/mailbox/unread-count", nil, count); err != nil {
		return 0, err
	}
	return count.Unread, nil
}

// EmptyTrash permanently removes every message in the Trash folder,
// reporting how many were removed.
func (c *Client) EmptyTrash(ctx context.Context) (int, error) {
	result := &model.JSONTrashEmptyV1{}
	if err := c.doJSON(ctx, "POST", "/api/v1/mailbox/trash/empty", nil, result); err != nil {
		return 0, err
	}
	return result.Removed, nil
}

// Send submits an outbound message for SMTP delivery.
func (c *Client) Send(ctx context.Context, out *message.Outbound) (*model.JSONSendResultV1, error) {
	result := &model.JSONSendResultV1{}
	if err := c.doJSON(ctx, "POST", "/api/v1/mailbox/send", out, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Reply sends a reply to an existing message.  With replyAll the original
// recipients are kept on the Cc line.
func (c *Client) Reply(ctx context.Context, folder, id string, replyAll bool, out *message.Outbound) (*model.JSONSendResultV1, error) {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "/reply?" + folderQuery(folder).Encode()
	body := &model.JSONReplyRequestV1{Outbound: *out, ReplyAll: replyAll}
	result := &model.JSONSendResultV1{}
	if err := c.doJSON(ctx, "POST", uri, body, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Forward sends an existing message on to the recipients named in out.To,
// attachments included.
func (c *Client) Forward(ctx context.Context, folder, id string, out *message.Outbound) (*model.JSONSendResultV1, error) {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "/forward?" + folderQuery(folder).Encode()
	result := &model.JSONSendResultV1{}
	if err := c.doJSON(ctx, "POST", uri, out, result); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveDraft stores an outbound message in the Drafts folder, returning its
// Message-ID.
func (c *Client) SaveDraft(ctx context.Context, out *message.Outbound) (string, error) {
	draft := &model.JSONDraftV1{}
	if err := c.doJSON(ctx, "POST", "/api/v1/mailbox/drafts", out, draft); err != nil {
		return "", err
	}
	return draft.MessageID, nil
}

// UpdateDraft replaces a stored draft.  The replacement is assigned a new
// Message-ID, which is returned.
func (c *Client) UpdateDraft(ctx context.Context, id string, out *message.Outbound) (string, error) {
	uri := "/api/v1/mailbox/drafts/" + url.PathEscape(id)
	draft := &model.JSONDraftV1{}
	if err := c.doJSON(ctx, "PUT", uri, out, draft); err != nil {
		return "", err
	}
	return draft.MessageID, nil
}

// DeleteDraft removes a stored draft.
func (c *Client) DeleteDraft(ctx context.Context, id string) error {
	return c.doJSON(ctx, "DELETE", "/api/v1/mailbox/drafts/"+url.PathEscape(id), nil, nil)
}

// CheckNew asks the gateway to poll the inbox for unseen messages.  Results
// arrive as events on the monitor WebSocket, not in this response.
func (c *Client) CheckNew(ctx context.Context) error {
	return c.doJSON(ctx, "POST", "/api/v1/monitor/check", nil, nil)
}

// ListAttachments returns attachment metadata for a message.
func (c *Client) ListAttachments(ctx context.Context, folder, id string) ([]*model.JSONMessageAttachmentV1, error) {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "/attachments?" + folderQuery(folder).Encode()
	var list []*model.JSONMessageAttachmentV1
	err := c.doJSON(ctx, "GET", uri, nil, &list)
	return list, err
}

// DownloadAttachment returns the raw bytes of a single attachment.
func (c *Client) DownloadAttachment(ctx context.Context, folder, id, filename string) (*bytes.Buffer, error) {
	uri := "/api/v1/mailbox/messages/" + url.PathEscape(id) + "/attachments/" +
		url.PathEscape(filename) + "/download?" + folderQuery(folder).Encode()
	resp, err := c.do(ctx, "GET", uri, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil,
			fmt.Errorf("Unexpected HTTP response status %v: %s", resp.StatusCode, resp.Status)
	}
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	return buf, err
}

// headerList fetches one page of a listing URI and wires the returned
// headers to this client.
func (c *Client) headerList(ctx context.Context, uri string) (headers []*MessageHeader, err error) {
	list := &model.JSONMessageListV1{}
	if err := c.doJSON(ctx, "GET", uri, nil, list); err != nil {
		return nil, err
	}
	headers = make([]*MessageHeader, len(list.Messages))
	for i, h := range list.Messages {
		headers[i] = &MessageHeader{JSONMessageHeaderV1: h, client: c}
	}
	return
}

func folderQuery(folder string) url.Values {
	return url.Values{"folder": {folder}}
}

func pageQuery(folder string, page, limit int) url.Values {
	vals := folderQuery(folder)
	if page > 0 {
		vals.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		vals.Set("limit", strconv.Itoa(limit))
	}
	return vals
}

// MessageHeader represents a MailBridge message sans content
type MessageHeader struct {
	*model.JSONMessageHeaderV1
	client *Client
}

// GetMessage returns this message with content
func (h *MessageHeader) GetMessage(ctx context.Context) (*Message, error) {
	return h.client.GetMessage(ctx, h.Folder, h.ID)
}

// MarkSeen marks this message as having been read
func (h *MessageHeader) MarkSeen(ctx context.Context) error {
	return h.client.MarkSeen(ctx, h.Folder, h.ID)
}

// Delete deletes this message from its folder
func (h *MessageHeader) Delete(ctx context.Context) error {
	return h.client.DeleteMessage(ctx, h.Folder, h.ID)
}

// Message represents a MailBridge message including content
type Message struct {
	*model.JSONMessageV1
	client *Client
}

// Delete deletes this message from its folder
func (m *Message) Delete(ctx context.Context) error {
	return m.client.DeleteMessage(ctx, m.Folder, m.ID)
}

// DownloadAttachment returns the raw bytes of one of this message's
// attachments.
func (m *Message) DownloadAttachment(ctx context.Context, filename string) (*bytes.Buffer, error) {
	return m.client.DownloadAttachment(ctx, m.Folder, m.ID, filename)
}
