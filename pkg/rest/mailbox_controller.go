package rest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mailbridge/mailbridge/pkg/folder"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/rest/model"
	"github.com/mailbridge/mailbridge/pkg/sanitize"
	"github.com/mailbridge/mailbridge/pkg/server/web"
)

// Listing page defaults; limits above the cap are clamped, not rejected.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// FolderListV1 renders the account's folder list, exact server spellings.
func FolderListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	folders, err := ctx.Manager.Folders(req.Context(), ctx.Profile)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, folders)
}

// FolderCountV1 renders total and unseen message counts for one folder.
func FolderCountV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	name := folderParam(req)
	total, unseen, err := ctx.Manager.FolderCount(req.Context(), ctx.Profile, name)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, &model.JSONFolderCountV1{
		Folder: name,
		Total:  total,
		Unseen: unseen,
	})
}

// MessageListV1 renders a page of messages in a folder, newest first.
func MessageListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	page, limit := pageParams(req)
	listing, err := ctx.Manager.List(req.Context(), ctx.Profile, folderParam(req), page, limit)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, listingToJSON(listing, page, limit))
}

// MessageShowV1 renders a particular message with bodies and attachment
// metadata.  The sanitized query parameter runs the HTML body through
// the sanitizer before serving.
func MessageShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	id := ctx.Vars["id"]
	folderName := folderParam(req)
	msg, err := ctx.Manager.Get(req.Context(), ctx.Profile, folderName, id)
	if err != nil {
		return err
	}

	htmlBody := msg.HTML
	if boolParam(req, "sanitized") && htmlBody != "" {
		if str, err := sanitize.HTML(htmlBody); err == nil {
			htmlBody = str
		} else {
			htmlBody = "MailBridge HTML sanitizer failed."
			log.Warn().Str("module", "rest").Str("folder", folderName).Str("id", id).
				Err(err).Msg("HTML sanitizer failed")
		}
	}

	attachments := make([]*model.JSONMessageAttachmentV1, len(msg.Attachments))
	for i, att := range msg.Attachments {
		attachments[i] = &model.JSONMessageAttachmentV1{
			FileName:     att.FileName,
			ContentType:  att.ContentType,
			Size:         att.Size,
			DownloadLink: attachmentLink(req, folderName, id, att.FileName),
		}
	}

	return web.RenderJSON(w,
		&model.JSONMessageV1{
			Folder:  folderName,
			ID:      msg.MessageID,
			From:    msg.From,
			To:      msg.To,
			Cc:      msg.Cc,
			Subject: msg.Subject,
			Date:    msg.Date,
			Seen:    msg.Seen,
			Flagged: msg.Flagged,
			Body: &model.JSONMessageBodyV1{
				Text: msg.Text,
				HTML: htmlBody,
			},
			Header:      msg.Header,
			Attachments: attachments,
		})
}

// MessageFlagsV1 updates the seen and flagged markers on a message.
// Fields absent from the body are left unchanged.
func MessageFlagsV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var body model.JSONFlagRequestV1
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	if body.Seen == nil && body.Flagged == nil {
		return &mailbox.ValidationError{Reason: "no flag changes requested"}
	}
	err = ctx.Manager.SetFlags(
		req.Context(), ctx.Profile, folderParam(req), ctx.Vars["id"], body.Seen, body.Flagged)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, "OK")
}

// MessageDeleteV1 moves a message to the trash folder, or deletes it
// permanently when it is already there.
func MessageDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	err = ctx.Manager.Delete(req.Context(), ctx.Profile, folderParam(req), ctx.Vars["id"])
	if err != nil {
		return err
	}
	return web.RenderJSON(w, "OK")
}

// MessageMoveV1 moves a message between folders.
func MessageMoveV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var body model.JSONMoveRequestV1
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	if body.To == "" {
		return &mailbox.ValidationError{Reason: "destination folder required"}
	}
	if body.From == "" {
		body.From = folder.Inbox
	}
	err = ctx.Manager.Move(req.Context(), ctx.Profile, ctx.Vars["id"], body.From, body.To)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, "OK")
}

// MessageSearchV1 runs an IMAP criteria search over a folder and renders
// the matching page.
func MessageSearchV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	query := req.URL.Query().Get("query")
	if query == "" {
		return &mailbox.ValidationError{Reason: "search query required"}
	}
	page, limit := pageParams(req)
	listing, err := ctx.Manager.Search(
		req.Context(), ctx.Profile, folderParam(req), query, page, limit)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, listingToJSON(listing, page, limit))
}

// MessageFilterV1 renders the page of messages matching a predefined
// filter kind: read, unread, starred, unstarred or with_attachments.
func MessageFilterV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	kind := req.URL.Query().Get("kind")
	if kind == "" {
		return &mailbox.ValidationError{Reason: "filter kind required"}
	}
	page, limit := pageParams(req)
	listing, err := ctx.Manager.Filter(
		req.Context(), ctx.Profile, folderParam(req), kind, page, limit)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, listingToJSON(listing, page, limit))
}

// UnreadCountV1 renders the INBOX unseen message count.
func UnreadCountV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	unread, err := ctx.Manager.UnreadCount(req.Context(), ctx.Profile)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, &model.JSONUnreadCountV1{Unread: unread})
}

// TrashEmptyV1 permanently removes every message in the trash folder.
func TrashEmptyV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	removed, err := ctx.Manager.EmptyTrash(req.Context(), ctx.Profile)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, &model.JSONTrashEmptyV1{Removed: removed})
}

// AttachmentListV1 renders attachment metadata for a message.
func AttachmentListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	id := ctx.Vars["id"]
	folderName := folderParam(req)
	atts, err := ctx.Manager.Attachments(req.Context(), ctx.Profile, folderName, id)
	if err != nil {
		return err
	}
	list := make([]*model.JSONMessageAttachmentV1, len(atts))
	for i, att := range atts {
		list[i] = &model.JSONMessageAttachmentV1{
			FileName:     att.FileName,
			ContentType:  att.ContentType,
			Size:         att.Size,
			DownloadLink: attachmentLink(req, folderName, id, att.FileName),
		}
	}
	return web.RenderJSON(w, list)
}

// AttachmentShowV1 renders one attachment with base64 content.
func AttachmentShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	id := ctx.Vars["id"]
	folderName := folderParam(req)
	att, err := ctx.Manager.Attachment(
		req.Context(), ctx.Profile, folderName, id, ctx.Vars["filename"])
	if err != nil {
		return err
	}
	return web.RenderJSON(w, &model.JSONMessageAttachmentV1{
		FileName:     att.FileName,
		ContentType:  att.ContentType,
		Size:         att.Size,
		DownloadLink: attachmentLink(req, folderName, id, att.FileName),
		Content:      base64.StdEncoding.EncodeToString(att.Content),
	})
}

// AttachmentDownloadV1 sends the raw attachment bytes for download.
func AttachmentDownloadV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	att, err := ctx.Manager.Attachment(
		req.Context(), ctx.Profile, folderParam(req), ctx.Vars["id"], ctx.Vars["filename"])
	if err != nil {
		return err
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+url.PathEscape(att.FileName)+`"`)
	_, err = w.Write(att.Content)
	return err
}

// folderParam returns the folder query parameter, defaulting to INBOX.
func folderParam(req *http.Request) string {
	if f := req.URL.Query().Get("folder"); f != "" {
		return f
	}
	return folder.Inbox
}

// boolParam reports whether a query parameter was set to a truthy value.
func boolParam(req *http.Request, name string) bool {
	switch req.URL.Query().Get(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// pageParams parses the page and limit query parameters, applying the
// listing defaults.
func pageParams(req *http.Request) (page, limit int) {
	page = intParam(req, "page", 1)
	limit = intParam(req, "limit", defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func intParam(req *http.Request, name string, def int) int {
	val := req.URL.Query().Get(name)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// attachmentLink builds the absolute download URL for one attachment.
func attachmentLink(req *http.Request, folderName, id, filename string) string {
	return "http://" + req.Host + "/api/v1/mailbox/messages/" + url.PathEscape(id) +
		"/attachments/" + url.PathEscape(filename) + "/download?folder=" +
		url.QueryEscape(folderName)
}

// summaryToHeader converts a parsed summary to its JSON header form.
func summaryToHeader(folderName string, s *message.Summary) *model.JSONMessageHeaderV1 {
	return &model.JSONMessageHeaderV1{
		Folder:         folderName,
		ID:             s.MessageID,
		From:           s.From,
		To:             s.To,
		Cc:             s.Cc,
		Subject:        s.Subject,
		Date:           s.Date,
		Preview:        s.Preview,
		Seen:           s.Seen,
		Flagged:        s.Flagged,
		HasAttachments: s.HasAttachments,
	}
}

func listingToJSON(l *mailbox.Listing, page, limit int) *model.JSONMessageListV1 {
	headers := make([]*model.JSONMessageHeaderV1, len(l.Messages))
	for i, s := range l.Messages {
		headers[i] = summaryToHeader(l.Folder, s)
	}
	return &model.JSONMessageListV1{
		Folder:   l.Folder,
		Total:    l.Total,
		Page:     page,
		Limit:    limit,
		Messages: headers,
	}
}
