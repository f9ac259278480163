package mailbox_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/extension/event"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/test"
)

var testProfile = &profile.Profile{
	Address:  "ann@example.com",
	Secret:   "secret",
	IMAPHost: "imap.example.com",
	IMAPPort: 993,
	SMTPHost: "smtp.example.com",
	SMTPPort: 587,
}

func testManager(server *test.MailServer) (*mailbox.SessionManager, *test.SenderStub) {
	sender := &test.SenderStub{}
	return &mailbox.SessionManager{
		Dialer:  server,
		Sender:  sender,
		ExtHost: extension.NewHost(),
	}, sender
}

func rawMsg(id, from, to, subject, body string) string {
	return strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Message-Id: <" + id + ">",
		"Date: Mon, 02 Feb 2026 10:00:00 +0000",
		"Content-Type: text/plain",
		"",
		body,
	}, "\r\n")
}

func rawMsgWithAttachment(id, subject string) string {
	return strings.Join([]string{
		"From: carol@example.com",
		"To: ann@example.com",
		"Subject: " + subject,
		"Message-Id: <" + id + ">",
		"Date: Mon, 02 Feb 2026 10:00:00 +0000",
		"Content-Type: multipart/mixed; boundary=mixed1",
		"",
		"--mixed1",
		"Content-Type: text/plain",
		"",
		"See attachment.",
		"--mixed1",
		"Content-Type: application/pdf; name=report.pdf",
		"Content-Disposition: attachment; filename=report.pdf",
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0xLjQ=",
		"--mixed1--",
		"",
	}, "\r\n")
}

// seedInbox fills INBOX with n plain messages, oldest first.
func seedInbox(server *test.MailServer, n int) {
	base := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("m%v@test", i)
		server.AddMessage("INBOX", nil, base.Add(time.Duration(i)*time.Hour),
			rawMsg(id, "carol@example.com", "ann@example.com",
				fmt.Sprintf("Message %v", i), fmt.Sprintf("Body %v", i)))
	}
}

func TestListWindowNewestFirst(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 5)
	mgr, _ := testManager(server)
	ctx := context.Background()

	// Page 1 holds the two newest, oldest first within the page.
	l, err := mgr.List(ctx, testProfile, "INBOX", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "INBOX", l.Folder)
	assert.Equal(t, 5, l.Total)
	require.Len(t, l.Messages, 2)
	assert.Equal(t, "<m4@test>", l.Messages[0].MessageID)
	assert.Equal(t, "<m5@test>", l.Messages[1].MessageID)

	l, err = mgr.List(ctx, testProfile, "INBOX", 2, 2)
	require.NoError(t, err)
	require.Len(t, l.Messages, 2)
	assert.Equal(t, "<m2@test>", l.Messages[0].MessageID)
	assert.Equal(t, "<m3@test>", l.Messages[1].MessageID)

	// The final page anchors at the oldest message and backfills to a
	// full window.
	l, err = mgr.List(ctx, testProfile, "INBOX", 3, 2)
	require.NoError(t, err)
	require.Len(t, l.Messages, 2)
	assert.Equal(t, "<m1@test>", l.Messages[0].MessageID)
	assert.Equal(t, "<m2@test>", l.Messages[1].MessageID)
}

func TestListEmptyFolder(t *testing.T) {
	server := test.NewMailServer()
	mgr, _ := testManager(server)

	l, err := mgr.List(context.Background(), testProfile, "INBOX", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Total)
	assert.Empty(t, l.Messages)
}

func TestListSkipsUnparseable(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 2)
	server.AddMessage("INBOX", nil, time.Now(), "")
	mgr, _ := testManager(server)

	l, err := mgr.List(context.Background(), testProfile, "INBOX", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Total)
	assert.Len(t, l.Messages, 2)
}

func TestListMissingFolder(t *testing.T) {
	server := test.NewMailServer()
	mgr, _ := testManager(server)

	_, err := mgr.List(context.Background(), testProfile, "Absent", 1, 20)
	assert.ErrorIs(t, err, mailbox.ErrFolderNotExist)
}

func TestGetByMessageID(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 3)
	mgr, _ := testManager(server)

	msg, err := mgr.Get(context.Background(), testProfile, "INBOX", "<m2@test>")
	require.NoError(t, err)
	assert.Equal(t, "Message 2", msg.Subject)
	assert.Equal(t, "Body 2", strings.TrimSpace(msg.Text))
	assert.Equal(t, []string{"<m2@test>"}, msg.Header["Message-Id"])
}

func TestGetNotExist(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 1)
	mgr, _ := testManager(server)

	_, err := mgr.Get(context.Background(), testProfile, "INBOX", "<ghost@test>")
	assert.ErrorIs(t, err, mailbox.ErrNotExist)
}

func TestGetResolvesAlias(t *testing.T) {
	server := test.NewMailServer()
	server.AddMessage("Deleted Items", nil, time.Now(),
		rawMsg("m9@test", "carol@example.com", "ann@example.com", "Old", "Body"))
	mgr, _ := testManager(server)

	msg, err := mgr.Get(context.Background(), testProfile, "trash", "<m9@test>")
	require.NoError(t, err)
	assert.Equal(t, "Old", msg.Subject)
}

func TestSearchUnseen(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 3)
	server.Folder("INBOX").Messages[1].Flags = []string{`\Seen`}
	mgr, _ := testManager(server)

	l, err := mgr.Search(context.Background(), testProfile, "INBOX", "UNSEEN", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Total)
	require.Len(t, l.Messages, 2)
	assert.Equal(t, "<m1@test>", l.Messages[0].MessageID)
	assert.Equal(t, "<m3@test>", l.Messages[1].MessageID)
}

func TestSearchHeader(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 2)
	server.AddMessage("INBOX", nil, time.Now(),
		rawMsg("m3@test", "dave@example.com", "ann@example.com", "Invoice", "Attached"))
	mgr, _ := testManager(server)

	l, err := mgr.Search(context.Background(), testProfile, "INBOX", "FROM dave", 1, 20)
	require.NoError(t, err)
	require.Len(t, l.Messages, 1)
	assert.Equal(t, "<m3@test>", l.Messages[0].MessageID)
}

func TestSearchBadQueryFailsFast(t *testing.T) {
	server := test.NewMailServer()
	mgr, _ := testManager(server)

	_, err := mgr.Search(context.Background(), testProfile, "INBOX", "BOGUS", 1, 20)
	var verr *mailbox.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, server.Dials, "bad query must not open a session")
}

func TestFilterUnread(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 3)
	server.Folder("INBOX").Messages[0].Flags = []string{`\Seen`}
	mgr, _ := testManager(server)

	l, err := mgr.Filter(context.Background(), testProfile, "INBOX", "unread", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Total)
}

func TestFilterWithAttachments(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 2)
	server.AddMessage("INBOX", nil, time.Now(), rawMsgWithAttachment("m3@test", "Report"))
	mgr, _ := testManager(server)

	l, err := mgr.Filter(context.Background(), testProfile, "INBOX", "with_attachments", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Total)
	require.Len(t, l.Messages, 1)
	assert.Equal(t, "<m3@test>", l.Messages[0].MessageID)
	assert.True(t, l.Messages[0].HasAttachments)
}

func TestFilterUnknownKindFailsFast(t *testing.T) {
	server := test.NewMailServer()
	mgr, _ := testManager(server)

	_, err := mgr.Filter(context.Background(), testProfile, "INBOX", "sideways", 1, 20)
	var verr *mailbox.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, server.Dials)
}

func TestFolderCount(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 3)
	server.Folder("INBOX").Messages[0].Flags = []string{`\Seen`}
	mgr, _ := testManager(server)
	ctx := context.Background()

	total, unseen, err := mgr.FolderCount(ctx, testProfile, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), total)
	assert.Equal(t, uint32(2), unseen)

	count, err := mgr.UnreadCount(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
}

func TestSetFlags(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 1)
	mgr, _ := testManager(server)
	ctx := context.Background()

	seen, flagged := true, true
	err := mgr.SetFlags(ctx, testProfile, "INBOX", "<m1@test>", &seen, &flagged)
	require.NoError(t, err)
	flags := server.Folder("INBOX").Messages[0].Flags
	assert.Contains(t, flags, `\Seen`)
	assert.Contains(t, flags, `\Flagged`)

	seen = false
	err = mgr.SetFlags(ctx, testProfile, "INBOX", "<m1@test>", &seen, nil)
	require.NoError(t, err)
	flags = server.Folder("INBOX").Messages[0].Flags
	assert.NotContains(t, flags, `\Seen`)
	assert.Contains(t, flags, `\Flagged`, "flagged must survive a seen-only change")
}

func TestDeleteMovesToTrash(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Trash")
	seedInbox(server, 2)
	mgr, _ := testManager(server)

	err := mgr.Delete(context.Background(), testProfile, "INBOX", "<m1@test>")
	require.NoError(t, err)
	assert.Len(t, server.Folder("INBOX").Messages, 1)
	require.Len(t, server.Folder("Trash").Messages, 1)
	assert.Contains(t, string(server.Folder("Trash").Messages[0].Source), "<m1@test>")
}

func TestDeleteInTrashIsPermanent(t *testing.T) {
	server := test.NewMailServer()
	server.AddMessage("Trash", nil, time.Now(),
		rawMsg("m1@test", "carol@example.com", "ann@example.com", "Old", "Body"))
	mgr, _ := testManager(server)

	err := mgr.Delete(context.Background(), testProfile, "trash", "<m1@test>")
	require.NoError(t, err)
	assert.Empty(t, server.Folder("Trash").Messages)
	assert.Empty(t, server.Folder("INBOX").Messages)
}

func TestMoveCreatesDestination(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 1)
	mgr, _ := testManager(server)

	err := mgr.Move(context.Background(), testProfile, "<m1@test>", "INBOX", "Projects")
	require.NoError(t, err)
	assert.Empty(t, server.Folder("INBOX").Messages)
	assert.Len(t, server.Folder("Projects").Messages, 1)
}

func TestMoveSameFolder(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 1)
	mgr, _ := testManager(server)

	err := mgr.Move(context.Background(), testProfile, "<m1@test>", "INBOX", "inbox")
	var verr *mailbox.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, server.Folder("INBOX").Messages, 1)
}

func TestEmptyTrash(t *testing.T) {
	server := test.NewMailServer()
	for i := 1; i <= 3; i++ {
		server.AddMessage("Trash", nil, time.Now(),
			rawMsg(fmt.Sprintf("t%v@test", i), "a@example.com", "b@example.com", "Old", "Body"))
	}
	mgr, _ := testManager(server)
	ctx := context.Background()

	removed, err := mgr.EmptyTrash(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, server.Folder("Trash").Messages)

	removed, err = mgr.EmptyTrash(ctx, testProfile)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSaveDraft(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Drafts")
	mgr, _ := testManager(server)

	id, err := mgr.SaveDraft(context.Background(), testProfile, &message.Outbound{
		To:      []string{"bob@example.com"},
		Subject: "WIP",
		Body:    "Unfinished thought",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))
	require.Len(t, server.Folder("Drafts").Messages, 1)
	draft := server.Folder("Drafts").Messages[0]
	assert.Contains(t, draft.Flags, `\Draft`)
	assert.Contains(t, string(draft.Source), id)
}

func TestUpdateDraftChangesIdentity(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Drafts")
	mgr, _ := testManager(server)
	ctx := context.Background()

	oldID, err := mgr.SaveDraft(ctx, testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Subject: "WIP", Body: "v1",
	})
	require.NoError(t, err)

	newID, err := mgr.UpdateDraft(ctx, testProfile, oldID, &message.Outbound{
		To: []string{"bob@example.com"}, Subject: "WIP v2", Body: "v2",
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)
	require.Len(t, server.Folder("Drafts").Messages, 1)
	source := string(server.Folder("Drafts").Messages[0].Source)
	assert.Contains(t, source, newID)
	assert.Contains(t, source, "WIP v2")
}

func TestUpdateDraftMissing(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Drafts")
	mgr, _ := testManager(server)

	_, err := mgr.UpdateDraft(context.Background(), testProfile, "<ghost@test>",
		&message.Outbound{To: []string{"bob@example.com"}, Body: "v2"})
	assert.ErrorIs(t, err, mailbox.ErrNotExist)
	assert.Empty(t, server.Folder("Drafts").Messages)
}

func TestDeleteDraftIsPermanent(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Drafts")
	server.Folder("Trash")
	mgr, _ := testManager(server)
	ctx := context.Background()

	id, err := mgr.SaveDraft(ctx, testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Body: "scrap",
	})
	require.NoError(t, err)
	require.NoError(t, mgr.DeleteDraft(ctx, testProfile, id))
	assert.Empty(t, server.Folder("Drafts").Messages)
	assert.Empty(t, server.Folder("Trash").Messages)
}

func TestSendDeliversAndFiles(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Sent")
	mgr, sender := testManager(server)

	res, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To:      []string{"bob@example.com"},
		Subject: "Hello",
		Body:    "Hi Bob",
	})
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.True(t, res.Filed)
	assert.Empty(t, res.Warnings)
	assert.True(t, strings.HasPrefix(res.MessageID, "<"))
	assert.Len(t, sender.Sent, 1)
	require.Len(t, server.Folder("Sent").Messages, 1)
	assert.Contains(t, server.Folder("Sent").Messages[0].Flags, `\Seen`)
}

func TestSendNoRecipients(t *testing.T) {
	server := test.NewMailServer()
	mgr, sender := testManager(server)

	_, err := mgr.Send(context.Background(), testProfile, &message.Outbound{Body: "to no one"})
	var verr *mailbox.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, sender.Sent)
	assert.Zero(t, server.Dials)
}

func TestSendAuthErrorMapped(t *testing.T) {
	server := test.NewMailServer()
	mgr, sender := testManager(server)
	sender.SendErr = errors.New("dial: 535 5.7.8 authentication credentials invalid")

	_, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Body: "Hi",
	})
	assert.ErrorIs(t, err, mailbox.ErrAuthFailed)
}

func TestSendFilingFailureWarns(t *testing.T) {
	server := test.NewMailServer()
	server.AppendErr = errors.New("quota exceeded")
	mgr, sender := testManager(server)

	res, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Subject: "Hello", Body: "Hi",
	})
	require.NoError(t, err, "filing failure must not fail the send")
	assert.True(t, res.Delivered)
	assert.False(t, res.Filed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not filed")
	assert.Len(t, sender.Sent, 1)
}

func TestSendPolicyDeny(t *testing.T) {
	server := test.NewMailServer()
	mgr, sender := testManager(server)
	mgr.ExtHost.Events.BeforeSendAccepted.AddListener("test",
		func(ev event.OutboundMessage) *event.SendResponse {
			return &event.SendResponse{Action: event.ActionDeny, ErrorCode: 554, ErrorMsg: "blocked"}
		})

	_, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Body: "Hi",
	})
	var rejected *mailbox.SendRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 554, rejected.Code)
	assert.Equal(t, "blocked", rejected.Text)
	assert.Empty(t, sender.Sent)
}

func TestSendPolicyDeferred(t *testing.T) {
	server := test.NewMailServer()
	mgr, sender := testManager(server)
	mgr.ExtHost.Events.BeforeSendAccepted.AddListener("test",
		func(ev event.OutboundMessage) *event.SendResponse {
			return &event.SendResponse{Action: event.ActionDefer}
		})

	_, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Body: "Hi",
	})
	var rejected *mailbox.SendRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 451, rejected.Code)
	assert.Empty(t, sender.Sent)
}

func TestSendListenerRewrite(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Sent")
	mgr, sender := testManager(server)
	mgr.ExtHost.Events.BeforeMessageSent.AddListener("test",
		func(ev event.OutboundMessage) *event.OutboundMessage {
			ev.Subject = "[EXT] " + ev.Subject
			ev.To = append(ev.To, &mail.Address{Address: "audit@example.com"})
			return &ev
		})

	out := &message.Outbound{To: []string{"bob@example.com"}, Subject: "Hello", Body: "Hi"}
	_, err := mgr.Send(context.Background(), testProfile, out)
	require.NoError(t, err)
	assert.Equal(t, "[EXT] Hello", out.Subject)
	assert.Equal(t, []string{"bob@example.com", "audit@example.com"}, out.To)
	require.Len(t, sender.Sent, 1)
	var buf bytes.Buffer
	_, err = sender.Sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[EXT] Hello")
}

func TestSendEmitsAfterMessageSent(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Sent")
	mgr, _ := testManager(server)
	wait := mgr.ExtHost.Events.AfterMessageSent.AsyncTestListener("test", 1)

	res, err := mgr.Send(context.Background(), testProfile, &message.Outbound{
		To: []string{"bob@example.com"}, Subject: "Hello", Body: "Hi",
	})
	require.NoError(t, err)

	meta, err := wait()
	require.NoError(t, err)
	assert.Equal(t, testProfile.Address, meta.Mailbox)
	assert.Equal(t, res.MessageID, meta.MessageID)
	assert.True(t, meta.Filed)
}

func TestReply(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Sent")
	seedInbox(server, 1)
	mgr, sender := testManager(server)

	out := &message.Outbound{Body: "Thanks!"}
	res, err := mgr.Reply(context.Background(), testProfile, "INBOX", "<m1@test>", false, out)
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, []string{"carol@example.com"}, out.To)
	assert.Equal(t, "Re: Message 1", out.Subject)
	assert.Equal(t, "<m1@test>", out.InReplyTo)
	assert.Len(t, sender.Sent, 1)
}

func TestForward(t *testing.T) {
	server := test.NewMailServer()
	server.Folder("Sent")
	seedInbox(server, 1)
	mgr, sender := testManager(server)

	out := &message.Outbound{Body: "FYI"}
	_, err := mgr.Forward(context.Background(), testProfile, "INBOX", "<m1@test>",
		[]string{"dave@example.com"}, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave@example.com"}, out.To)
	assert.Equal(t, "Fwd: Message 1", out.Subject)
	require.NotEmpty(t, out.Attachments)
	assert.Equal(t, "forwarded_message.eml", out.Attachments[0].FileName)
	assert.Len(t, sender.Sent, 1)
}

func TestLogin(t *testing.T) {
	server := test.NewMailServer()
	mgr, sender := testManager(server)

	require.NoError(t, mgr.Login(context.Background(), testProfile))
	assert.Equal(t, 1, sender.Validations)
}

func TestLoginBadCredentials(t *testing.T) {
	server := test.NewMailServer()
	server.DialErr = fmt.Errorf("%w: LOGIN rejected", mailbox.ErrAuthFailed)
	mgr, sender := testManager(server)

	err := mgr.Login(context.Background(), testProfile)
	assert.ErrorIs(t, err, mailbox.ErrAuthFailed)
	assert.Zero(t, sender.Validations, "SMTP must not be tried after IMAP failure")
}

func TestAttachments(t *testing.T) {
	server := test.NewMailServer()
	server.AddMessage("INBOX", nil, time.Now(), rawMsgWithAttachment("m1@test", "Report"))
	mgr, _ := testManager(server)
	ctx := context.Background()

	list, err := mgr.Attachments(ctx, testProfile, "INBOX", "<m1@test>")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "report.pdf", list[0].FileName)
	assert.Equal(t, "application/pdf", list[0].ContentType)
	assert.Nil(t, list[0].Content)

	att, err := mgr.Attachment(ctx, testProfile, "INBOX", "<m1@test>", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), att.Content)

	_, err = mgr.Attachment(ctx, testProfile, "INBOX", "<m1@test>", "missing.pdf")
	assert.ErrorIs(t, err, mailbox.ErrAttachmentNotExist)
}

func TestCheckNewEmitsEvent(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 2)
	server.Folder("INBOX").Messages[1].Flags = []string{`\Seen`}
	mgr, _ := testManager(server)
	wait := mgr.ExtHost.Events.AfterNewMail.AsyncTestListener("test", 1)

	summaries, err := mgr.CheckNew(context.Background(), testProfile)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "<m1@test>", summaries[0].MessageID)

	ev, err := wait()
	require.NoError(t, err)
	assert.Equal(t, testProfile.Address, ev.Mailbox)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, "<m1@test>", ev.Messages[0].ID)
}

func TestSessionsAlwaysClosed(t *testing.T) {
	server := test.NewMailServer()
	seedInbox(server, 1)
	mgr, _ := testManager(server)
	ctx := context.Background()

	_, _ = mgr.List(ctx, testProfile, "INBOX", 1, 20)
	_, _ = mgr.Get(ctx, testProfile, "INBOX", "<m1@test>")
	_, _ = mgr.Get(ctx, testProfile, "INBOX", "<ghost@test>")
	_, _ = mgr.List(ctx, testProfile, "Absent", 1, 20)
	assert.Equal(t, server.Dials, server.Closed, "every session must be closed")
	assert.Equal(t, 4, server.Dials)
}
