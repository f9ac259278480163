// Package rest implements the JSON REST API for MailBridge.
package rest

import (
	"github.com/gorilla/mux"

	"github.com/mailbridge/mailbridge/pkg/server/web"
)

// SetupRoutes populates routes for the REST API into the provided
// mux.Router.  Auth routes are open; everything else requires a bearer
// token.
func SetupRoutes(r *mux.Router) {
	r.Path("/v1/auth/login").Handler(web.Handler(AuthLoginV1)).
		Name("AuthLoginV1").Methods("POST")
	r.Path("/v1/auth/refresh").Handler(web.Handler(AuthRefreshV1)).
		Name("AuthRefreshV1").Methods("POST")
	r.Path("/v1/auth/validate").Handler(web.Handler(AuthValidateV1)).
		Name("AuthValidateV1").Methods("POST")
	r.Path("/v1/mailbox/folders").Handler(web.Handler(web.Secure(FolderListV1))).
		Name("FolderListV1").Methods("GET")
	r.Path("/v1/mailbox/folders/count").Handler(web.Handler(web.Secure(FolderCountV1))).
		Name("FolderCountV1").Methods("GET")
	r.Path("/v1/mailbox/messages").Handler(web.Handler(web.Secure(MessageListV1))).
		Name("MessageListV1").Methods("GET")
	r.Path("/v1/mailbox/messages/{id}").Handler(web.Handler(web.Secure(MessageShowV1))).
		Name("MessageShowV1").Methods("GET")
	r.Path("/v1/mailbox/messages/{id}").Handler(web.Handler(web.Secure(MessageFlagsV1))).
		Name("MessageFlagsV1").Methods("PATCH")
	r.Path("/v1/mailbox/messages/{id}").Handler(web.Handler(web.Secure(MessageDeleteV1))).
		Name("MessageDeleteV1").Methods("DELETE")
	r.Path("/v1/mailbox/messages/{id}/move").Handler(web.Handler(web.Secure(MessageMoveV1))).
		Name("MessageMoveV1").Methods("POST")
	r.Path("/v1/mailbox/messages/{id}/reply").Handler(web.Handler(web.Secure(MessageReplyV1))).
		Name("MessageReplyV1").Methods("POST")
	r.Path("/v1/mailbox/messages/{id}/forward").Handler(web.Handler(web.Secure(MessageForwardV1))).
		Name("MessageForwardV1").Methods("POST")
	r.Path("/v1/mailbox/messages/{id}/attachments").Handler(web.Handler(web.Secure(AttachmentListV1))).
		Name("AttachmentListV1").Methods("GET")
	r.Path("/v1/mailbox/messages/{id}/attachments/{filename}").Handler(web.Handler(web.Secure(AttachmentShowV1))).
		Name("AttachmentShowV1").Methods("GET")
	r.Path("/v1/mailbox/messages/{id}/attachments/{filename}/download").Handler(web.Handler(web.Secure(AttachmentDownloadV1))).
		Name("AttachmentDownloadV1").Methods("GET")
	r.Path("/v1/mailbox/search").Handler(web.Handler(web.Secure(MessageSearchV1))).
		Name("MessageSearchV1").Methods("GET")
	r.Path("/v1/mailbox/filter").Handler(web.Handler(web.Secure(MessageFilterV1))).
		Name("MessageFilterV1").Methods("GET")
	r.Path("/v1/mailbox/unread-count").Handler(web.Handler(web.Secure(UnreadCountV1))).
		Name("UnreadCountV1").Methods("GET")
	r.Path("/v1/mailbox/trash/empty").Handler(web.Handler(web.Secure(TrashEmptyV1))).
		Name("TrashEmptyV1").Methods("POST")
	r.Path("/v1/mailbox/send").Handler(web.Handler(web.Secure(MessageSendV1))).
		Name("MessageSendV1").Methods("POST")
	r.Path("/v1/mailbox/drafts").Handler(web.Handler(web.Secure(DraftSaveV1))).
		Name("DraftSaveV1").Methods("POST")
	r.Path("/v1/mailbox/drafts/{id}").Handler(web.Handler(web.Secure(DraftUpdateV1))).
		Name("DraftUpdateV1").Methods("PUT")
	r.Path("/v1/mailbox/drafts/{id}").Handler(web.Handler(web.Secure(DraftDeleteV1))).
		Name("DraftDeleteV1").Methods("DELETE")
	r.Path("/v1/monitor/check").Handler(web.Handler(web.Secure(MonitorCheckV1))).
		Name("MonitorCheckV1").Methods("POST")
	r.Path("/v1/monitor/socket").Handler(web.Handler(web.Secure(MonitorSocketV1))).
		Name("MonitorSocketV1").Methods("GET")
}
