package rest

import (
	"encoding/json"
	"net/http"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/rest/model"
	"github.com/mailbridge/mailbridge/pkg/server/web"
)

// MessageSendV1 delivers a message through the account's SMTP server and
// files a copy to the sent folder.  Filing problems surface as warnings
// on the result, not as request failures.
func MessageSendV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	out, err := decodeOutbound(req)
	if err != nil {
		return err
	}
	result, err := ctx.Manager.Send(req.Context(), ctx.Profile, out)
	if err != nil {
		return err
	}
	return web.RenderJSONStatus(w, http.StatusAccepted, sendResultToJSON(result))
}

// MessageReplyV1 sends a reply to a stored message, quoting the original
// and threading via its Message-ID.
func MessageReplyV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var body model.JSONReplyRequestV1
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	result, err := ctx.Manager.Reply(
		req.Context(), ctx.Profile, folderParam(req), ctx.Vars["id"], body.ReplyAll, &body.Outbound)
	if err != nil {
		return err
	}
	return web.RenderJSONStatus(w, http.StatusAccepted, sendResultToJSON(result))
}

// MessageForwardV1 forwards a stored message, original attachments
// included, to the recipients named in the body.
func MessageForwardV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	out, err := decodeOutbound(req)
	if err != nil {
		return err
	}
	result, err := ctx.Manager.Forward(
		req.Context(), ctx.Profile, folderParam(req), ctx.Vars["id"], out.To, out)
	if err != nil {
		return err
	}
	return web.RenderJSONStatus(w, http.StatusAccepted, sendResultToJSON(result))
}

// DraftSaveV1 stores a new draft and renders its generated Message-ID.
func DraftSaveV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	out, err := decodeOutbound(req)
	if err != nil {
		return err
	}
	id, err := ctx.Manager.SaveDraft(req.Context(), ctx.Profile, out)
	if err != nil {
		return err
	}
	return web.RenderJSONStatus(w, http.StatusCreated, &model.JSONDraftV1{MessageID: id})
}

// DraftUpdateV1 replaces a stored draft.  The draft's Message-ID changes
// on every update; the response carries the new one.
func DraftUpdateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	out, err := decodeOutbound(req)
	if err != nil {
		return err
	}
	id, err := ctx.Manager.UpdateDraft(req.Context(), ctx.Profile, ctx.Vars["id"], out)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, &model.JSONDraftV1{MessageID: id})
}

// DraftDeleteV1 permanently removes a draft.
func DraftDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	err = ctx.Manager.DeleteDraft(req.Context(), ctx.Profile, ctx.Vars["id"])
	if err != nil {
		return err
	}
	return web.RenderJSON(w, "OK")
}

// decodeOutbound reads an outbound message from the request body.
// Recipient and attachment validation happens in the manager.
func decodeOutbound(req *http.Request) (*message.Outbound, error) {
	out := &message.Outbound{}
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		return nil, &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	return out, nil
}

func sendResultToJSON(r *mailbox.SendResult) *model.JSONSendResultV1 {
	return &model.JSONSendResultV1{
		MessageID: r.MessageID,
		Delivered: r.Delivered,
		Filed:     r.Filed,
		Warnings:  r.Warnings,
	}
}
