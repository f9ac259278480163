package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/extension/event"
	"github.com/mailbridge/mailbridge/pkg/folder"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/stringutil"
)

// defaultPageLimit is applied when a caller passes a non-positive limit.
const defaultPageLimit = 20

// Listing is one page of a folder's messages.
type Listing struct {
	Folder   string             // server's exact folder spelling
	Total    int                // matching messages before windowing
	Messages []*message.Summary // oldest first within the page
}

// SendResult reports the outcome of a send operation.  Delivered and
// Filed can disagree: a message may reach the SMTP server but fail to be
// copied into the sent folder, in which case Warnings says so.
type SendResult struct {
	MessageID string
	Delivered bool
	Filed     bool
	Warnings  []string
}

// Sender submits built messages to the account's SMTP server.
type Sender interface {
	Send(ctx context.Context, p *profile.Profile, msg *gomail.Msg) error
	Validate(ctx context.Context, p *profile.Profile) error
}

// Manager is the interface controllers use to operate on a remote
// mailbox.  Every method opens its own IMAP session; nothing is cached
// between calls.
type Manager interface {
	Login(ctx context.Context, p *profile.Profile) error
	Folders(ctx context.Context, p *profile.Profile) ([]string, error)
	FolderCount(ctx context.Context, p *profile.Profile, folderName string) (total, unseen uint32, err error)
	UnreadCount(ctx context.Context, p *profile.Profile) (uint32, error)
	List(ctx context.Context, p *profile.Profile, folderName string, page, limit int) (*Listing, error)
	Get(ctx context.Context, p *profile.Profile, folderName, id string) (*message.Message, error)
	Search(ctx context.Context, p *profile.Profile, folderName, query string, page, limit int) (*Listing, error)
	Filter(ctx context.Context, p *profile.Profile, folderName, kind string, page, limit int) (*Listing, error)
	Attachments(ctx context.Context, p *profile.Profile, folderName, id string) ([]message.Attachment, error)
	Attachment(ctx context.Context, p *profile.Profile, folderName, id, filename string) (*message.Attachment, error)
	SetFlags(ctx context.Context, p *profile.Profile, folderName, id string, seen, flagged *bool) error
	Delete(ctx context.Context, p *profile.Profile, folderName, id string) error
	Move(ctx context.Context, p *profile.Profile, id, from, to string) error
	EmptyTrash(ctx context.Context, p *profile.Profile) (int, error)
	SaveDraft(ctx context.Context, p *profile.Profile, out *message.Outbound) (string, error)
	UpdateDraft(ctx context.Context, p *profile.Profile, id string, out *message.Outbound) (string, error)
	DeleteDraft(ctx context.Context, p *profile.Profile, id string) error
	Send(ctx context.Context, p *profile.Profile, out *message.Outbound) (*SendResult, error)
	Reply(ctx context.Context, p *profile.Profile, folderName, id string, all bool, out *message.Outbound) (*SendResult, error)
	Forward(ctx context.Context, p *profile.Profile, folderName, id string, to []string, out *message.Outbound) (*SendResult, error)
	CheckNew(ctx context.Context, p *profile.Profile) ([]*message.Summary, error)
}

// SessionManager implements Manager over short-lived IMAP sessions.
type SessionManager struct {
	Dialer  Dialer
	Sender  Sender
	ExtHost *extension.Host
}

// Login validates the profile against both upstream services: IMAP must
// accept the credentials and expose INBOX, SMTP must complete STARTTLS
// and authentication.
func (m *SessionManager) Login(ctx context.Context, p *profile.Profile) error {
	err := m.withConn(ctx, p, func(conn Conn) error {
		_, err := conn.Select("INBOX", true)
		return err
	})
	if err != nil {
		return err
	}
	if err := m.Sender.Validate(ctx, p); err != nil {
		return mapSendErr(err)
	}
	return nil
}

// Folders lists the selectable folders on the server, exact spellings.
func (m *SessionManager) Folders(ctx context.Context, p *profile.Profile) ([]string, error) {
	var folders []string
	err := m.withConn(ctx, p, func(conn Conn) error {
		var err error
		folders, err = conn.Folders()
		return err
	})
	return folders, err
}

// FolderCount returns total and unseen message counts via STATUS.
func (m *SessionManager) FolderCount(
	ctx context.Context, p *profile.Profile, folderName string,
) (total, unseen uint32, err error) {
	err = m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		total, unseen, err = conn.Status(folder.Resolve(available, folderName))
		return err
	})
	return total, unseen, err
}

// UnreadCount returns the INBOX unseen count.
func (m *SessionManager) UnreadCount(ctx context.Context, p *profile.Profile) (uint32, error) {
	_, unseen, err := m.FolderCount(ctx, p, folder.Inbox)
	return unseen, err
}

// List returns one page of a folder, newest first.
func (m *SessionManager) List(
	ctx context.Context, p *profile.Profile, folderName string, page, limit int,
) (*Listing, error) {
	var listing *Listing
	err := m.withConn(ctx, p, func(conn Conn) error {
		name, total, err := resolveAndSelect(conn, folderName, true)
		if err != nil {
			return err
		}
		listing, err = m.listPage(conn, p, name, seqRange(total), page, limit)
		return err
	})
	return listing, err
}

// Get fetches and parses one message by Message-ID.
func (m *SessionManager) Get(
	ctx context.Context, p *profile.Profile, folderName, id string,
) (*message.Message, error) {
	var msg *message.Message
	err := m.withConn(ctx, p, func(conn Conn) error {
		if _, _, err := resolveAndSelect(conn, folderName, true); err != nil {
			return err
		}
		raw, err := fetchByID(conn, id)
		if err != nil {
			return err
		}
		msg, err = message.ParseMessage(raw.Seq, raw.Flags, raw.InternalDate, raw.Source)
		return err
	})
	return msg, err
}

// Search runs an IMAP criteria query against a folder, paginated like
// List.  The query is parsed before any connection is made.
func (m *SessionManager) Search(
	ctx context.Context, p *profile.Profile, folderName, query string, page, limit int,
) (*Listing, error) {
	criteria, err := ParseCriteria(query)
	if err != nil {
		return nil, err
	}
	var listing *Listing
	err = m.withConn(ctx, p, func(conn Conn) error {
		name, _, err := resolveAndSelect(conn, folderName, true)
		if err != nil {
			return err
		}
		seqs, err := conn.Search(criteria)
		if err != nil {
			return err
		}
		listing, err = m.listPage(conn, p, name, seqs, page, limit)
		return err
	})
	return listing, err
}

// Filter returns the page of messages matching a named filter kind.
func (m *SessionManager) Filter(
	ctx context.Context, p *profile.Profile, folderName, kind string, page, limit int,
) (*Listing, error) {
	criteria, clientSide, err := FilterCriteria(kind)
	if err != nil {
		return nil, err
	}
	var listing *Listing
	err = m.withConn(ctx, p, func(conn Conn) error {
		name, total, err := resolveAndSelect(conn, folderName, true)
		if err != nil {
			return err
		}
		if clientSide {
			listing, err = m.attachmentPage(conn, p, name, total, page, limit)
			return err
		}
		seqs, err := conn.Search(criteria)
		if err != nil {
			return err
		}
		listing, err = m.listPage(conn, p, name, seqs, page, limit)
		return err
	})
	return listing, err
}

// Attachments lists attachment metadata for one message.
func (m *SessionManager) Attachments(
	ctx context.Context, p *profile.Profile, folderName, id string,
) ([]message.Attachment, error) {
	msg, err := m.Get(ctx, p, folderName, id)
	if err != nil {
		return nil, err
	}
	list := make([]message.Attachment, len(msg.Attachments))
	for i, a := range msg.Attachments {
		a.Content = nil
		list[i] = a
	}
	return list, nil
}

// Attachment fetches one attachment by exact filename, first match wins.
func (m *SessionManager) Attachment(
	ctx context.Context, p *profile.Profile, folderName, id, filename string,
) (*message.Attachment, error) {
	msg, err := m.Get(ctx, p, folderName, id)
	if err != nil {
		return nil, err
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].FileName == filename {
			return &msg.Attachments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrAttachmentNotExist, filename)
}

// SetFlags stores seen and flagged changes, each only when requested.
func (m *SessionManager) SetFlags(
	ctx context.Context, p *profile.Profile, folderName, id string, seen, flagged *bool,
) error {
	return m.withConn(ctx, p, func(conn Conn) error {
		if _, _, err := resolveAndSelect(conn, folderName, false); err != nil {
			return err
		}
		seq, err := resolveID(conn, id)
		if err != nil {
			return err
		}
		if seen != nil {
			if err := applyFlag(conn, seq, imap.FlagSeen, *seen); err != nil {
				return err
			}
		}
		if flagged != nil {
			if err := applyFlag(conn, seq, imap.FlagFlagged, *flagged); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete moves a message to trash, or deletes it permanently when it is
// already there.
func (m *SessionManager) Delete(ctx context.Context, p *profile.Profile, folderName, id string) error {
	return m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		source := folder.Resolve(available, folderName)
		trash := folder.Resolve(available, folder.Trash)
		if _, err := conn.Select(source, false); err != nil {
			return err
		}
		seq, err := resolveID(conn, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(source, trash) {
			if err := conn.EnsureFolder(trash); err != nil {
				return err
			}
			if err := conn.Copy([]uint32{seq}, trash); err != nil {
				return err
			}
		}
		return expungeSeqs(conn, seq)
	})
}

// Move copies a message to the destination folder and expunges it from
// the source.  The destination is created when missing.
func (m *SessionManager) Move(ctx context.Context, p *profile.Profile, id, from, to string) error {
	return m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		source := folder.Resolve(available, from)
		dest := folder.Resolve(available, to)
		if strings.EqualFold(source, dest) {
			return &ValidationError{Reason: "source and destination folders are the same"}
		}
		if _, err := conn.Select(source, false); err != nil {
			return err
		}
		seq, err := resolveID(conn, id)
		if err != nil {
			return err
		}
		if err := conn.EnsureFolder(dest); err != nil {
			return err
		}
		if err := conn.Copy([]uint32{seq}, dest); err != nil {
			return err
		}
		return expungeSeqs(conn, seq)
	})
}

// EmptyTrash permanently deletes everything in the trash folder and
// returns the number of messages removed.
func (m *SessionManager) EmptyTrash(ctx context.Context, p *profile.Profile) (int, error) {
	var removed int
	err := m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		total, err := conn.Select(folder.Resolve(available, folder.Trash), false)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
		if err := conn.AddFlags(seqRange(total), imap.FlagDeleted); err != nil {
			return err
		}
		removed, err = conn.Expunge()
		return err
	})
	return removed, err
}

// SaveDraft appends a draft to the drafts folder and returns the
// generated Message-ID.
func (m *SessionManager) SaveDraft(
	ctx context.Context, p *profile.Profile, out *message.Outbound,
) (string, error) {
	id, raw, err := renderOutbound(p, out)
	if err != nil {
		return "", err
	}
	err = m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		drafts := folder.Resolve(available, folder.Drafts)
		if err := conn.EnsureFolder(drafts); err != nil {
			return err
		}
		return conn.Append(drafts, raw, []imap.Flag{imap.FlagDraft}, time.Now())
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateDraft replaces a draft by deleting the old one and appending the
// replacement.  The draft's Message-ID changes on every update.
func (m *SessionManager) UpdateDraft(
	ctx context.Context, p *profile.Profile, id string, out *message.Outbound,
) (string, error) {
	newID, raw, err := renderOutbound(p, out)
	if err != nil {
		return "", err
	}
	err = m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		drafts := folder.Resolve(available, folder.Drafts)
		if _, err := conn.Select(drafts, false); err != nil {
			return err
		}
		seq, err := resolveID(conn, id)
		if err != nil {
			return err
		}
		if err := expungeSeqs(conn, seq); err != nil {
			return err
		}
		return conn.Append(drafts, raw, []imap.Flag{imap.FlagDraft}, time.Now())
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// DeleteDraft permanently deletes a draft, no trash copy.
func (m *SessionManager) DeleteDraft(ctx context.Context, p *profile.Profile, id string) error {
	return m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		if _, err := conn.Select(folder.Resolve(available, folder.Drafts), false); err != nil {
			return err
		}
		seq, err := resolveID(conn, id)
		if err != nil {
			return err
		}
		return expungeSeqs(conn, seq)
	})
}

// Send runs the outbound pipeline: validate, policy check, listener
// rewrites, build, SMTP submit, then best-effort filing to the sent
// folder.  Filing failure does not fail the send.
func (m *SessionManager) Send(
	ctx context.Context, p *profile.Profile, out *message.Outbound,
) (*SendResult, error) {
	if len(out.Recipients()) == 0 {
		return nil, &ValidationError{Reason: "at least one recipient is required"}
	}
	if err := m.checkSendAccepted(p, out); err != nil {
		return nil, err
	}
	m.applyRewrites(p, out)
	if len(out.Recipients()) == 0 {
		return nil, &ValidationError{Reason: "rewritten message has no recipients"}
	}
	msg, err := message.BuildOutbound(p.Address, out)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	id := message.MessageID(msg)
	if err := m.Sender.Send(ctx, p, msg); err != nil {
		return nil, mapSendErr(err)
	}
	log.Info().Str("module", "mailbox").Str("mailbox", p.Address).Str("id", id).
		Int("recipients", len(out.Recipients())).Msg("Message submitted")
	result := &SendResult{MessageID: id, Delivered: true}
	m.fileSent(ctx, p, msg, result)
	m.emitSent(p, out, id, result.Filed)
	return result, nil
}

// Reply fetches the original message, applies the reply rules to out,
// then runs the send pipeline.
func (m *SessionManager) Reply(
	ctx context.Context, p *profile.Profile, folderName, id string, all bool, out *message.Outbound,
) (*SendResult, error) {
	orig, err := m.Get(ctx, p, folderName, id)
	if err != nil {
		return nil, err
	}
	out.AsReplyTo(orig, p.Address, all)
	return m.Send(ctx, p, out)
}

// Forward fetches the original message, attaches it verbatim to out,
// then runs the send pipeline.
func (m *SessionManager) Forward(
	ctx context.Context, p *profile.Profile, folderName, id string, to []string, out *message.Outbound,
) (*SendResult, error) {
	var orig *message.Message
	var raw []byte
	err := m.withConn(ctx, p, func(conn Conn) error {
		if _, _, err := resolveAndSelect(conn, folderName, true); err != nil {
			return err
		}
		rm, err := fetchByID(conn, id)
		if err != nil {
			return err
		}
		raw = rm.Source
		orig, err = message.ParseMessage(rm.Seq, rm.Flags, rm.InternalDate, rm.Source)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.AsForwardOf(orig, raw, to)
	return m.Send(ctx, p, out)
}

// CheckNew returns summaries of unseen INBOX messages and notifies
// AfterNewMail listeners when there are any.
func (m *SessionManager) CheckNew(ctx context.Context, p *profile.Profile) ([]*message.Summary, error) {
	var summaries []*message.Summary
	err := m.withConn(ctx, p, func(conn Conn) error {
		if _, err := conn.Select(folder.Inbox, true); err != nil {
			return err
		}
		seqs, err := conn.Search(&imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}})
		if err != nil {
			return err
		}
		summaries, err = m.summaries(conn, p, seqs)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.emitNewMail(p, summaries)
	return summaries, nil
}

// withConn dials a session, runs fn, and guarantees logout.  Close
// errors are logged, never returned.
func (m *SessionManager) withConn(
	ctx context.Context, p *profile.Profile, fn func(Conn) error,
) error {
	conn, err := m.Dialer.Dial(ctx, p)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Str("module", "mailbox").Str("mailbox", p.Address).Err(err).
				Msg("Failed to close IMAP session")
		}
	}()
	return fn(conn)
}

// listPage fetches and parses one window of the matching sequence set.
func (m *SessionManager) listPage(
	conn Conn, p *profile.Profile, name string, seqs []uint32, page, limit int,
) (*Listing, error) {
	start, end := pageWindow(len(seqs), page, limit)
	summaries, err := m.summaries(conn, p, seqs[start:end])
	if err != nil {
		return nil, err
	}
	return &Listing{Folder: name, Total: len(seqs), Messages: summaries}, nil
}

// attachmentPage evaluates attachment presence from MIME structure; no
// portable search key covers it.  The whole folder is fetched and
// parsed, then the page window is applied to the matches.
func (m *SessionManager) attachmentPage(
	conn Conn, p *profile.Profile, name string, total uint32, page, limit int,
) (*Listing, error) {
	all, err := m.summaries(conn, p, seqRange(total))
	if err != nil {
		return nil, err
	}
	matches := make([]*message.Summary, 0, len(all))
	for _, s := range all {
		if s.HasAttachments {
			matches = append(matches, s)
		}
	}
	start, end := pageWindow(len(matches), page, limit)
	return &Listing{Folder: name, Total: len(matches), Messages: matches[start:end]}, nil
}

// summaries fetches and parses the given messages.  Messages that fail
// to parse are skipped with a warning so one bad message cannot hide a
// whole folder.
func (m *SessionManager) summaries(
	conn Conn, p *profile.Profile, seqs []uint32,
) ([]*message.Summary, error) {
	summaries := make([]*message.Summary, 0, len(seqs))
	if len(seqs) == 0 {
		return summaries, nil
	}
	raws, err := conn.Fetch(seqs)
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		s, err := message.ParseSummary(raw.Seq, raw.Flags, raw.InternalDate, raw.Source)
		if err != nil {
			log.Warn().Str("module", "mailbox").Str("mailbox", p.Address).
				Uint32("seq", raw.Seq).Err(err).Msg("Skipping unparseable message")
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// checkSendAccepted runs the send policy event.  A deny verdict rejects
// the message with the listener's code and text; a defer verdict asks
// the client to retry later; no response allows the send.
func (m *SessionManager) checkSendAccepted(p *profile.Profile, out *message.Outbound) error {
	if m.ExtHost == nil {
		return nil
	}
	ev := outboundEvent(p, out)
	res := m.ExtHost.Events.BeforeSendAccepted.Emit(&ev)
	if res == nil {
		return nil
	}
	switch res.Action {
	case event.ActionAllow:
		return nil
	case event.ActionDeny:
		code, text := res.ErrorCode, res.ErrorMsg
		if code == 0 {
			code = 550
		}
		if text == "" {
			text = "Mail denied by policy"
		}
		return &SendRejectedError{Code: code, Text: text}
	default:
		return &SendRejectedError{Code: 451, Text: "Send deferred, try again later"}
	}
}

// applyRewrites lets extension listeners rewrite the outbound message.
// The envelope sender stays pinned to the authenticated account; only
// the display name is taken from a rewritten From.
func (m *SessionManager) applyRewrites(p *profile.Profile, out *message.Outbound) {
	if m.ExtHost == nil {
		return
	}
	ev := outboundEvent(p, out)
	res := m.ExtHost.Events.BeforeMessageSent.Emit(&ev)
	if res == nil {
		return
	}
	if res.From != nil {
		out.FromName = res.From.Name
	}
	out.To = stringList(res.To)
	out.Cc = stringList(res.Cc)
	out.Bcc = stringList(res.Bcc)
	out.Subject = res.Subject
	out.Body = res.Body
}

// fileSent copies the submitted message into the sent folder.  The
// message is already on the wire, so failure here downgrades to a
// warning on the result.
func (m *SessionManager) fileSent(
	ctx context.Context, p *profile.Profile, msg *gomail.Msg, result *SendResult,
) {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("message sent but not filed to sent folder: %v", err))
		return
	}
	err := m.withConn(ctx, p, func(conn Conn) error {
		available, err := conn.Folders()
		if err != nil {
			return err
		}
		sent := folder.Resolve(available, folder.Sent)
		if err := conn.EnsureFolder(sent); err != nil {
			return err
		}
		return conn.Append(sent, buf.Bytes(), []imap.Flag{imap.FlagSeen}, time.Now())
	})
	if err != nil {
		log.Warn().Str("module", "mailbox").Str("mailbox", p.Address).Err(err).
			Msg("Failed to file message to sent folder")
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("message sent but not filed to sent folder: %v", err))
		return
	}
	result.Filed = true
}

// emitSent notifies listeners of a successful submission.
func (m *SessionManager) emitSent(p *profile.Profile, out *message.Outbound, id string, filed bool) {
	if m.ExtHost == nil {
		return
	}
	meta := event.OutboundMetadata{
		Mailbox:   p.Address,
		MessageID: id,
		From:      &mail.Address{Name: out.FromName, Address: p.Address},
		To:        addressList(out.To),
		Date:      time.Now(),
		Subject:   out.Subject,
		Filed:     filed,
	}
	m.ExtHost.Events.AfterMessageSent.Emit(&meta)
}

// emitNewMail notifies listeners of unseen messages.
func (m *SessionManager) emitNewMail(p *profile.Profile, summaries []*message.Summary) {
	if m.ExtHost == nil || len(summaries) == 0 {
		return
	}
	metas := make([]event.MessageMetadata, 0, len(summaries))
	for _, s := range summaries {
		metas = append(metas, metadataOf(p.Address, s))
	}
	ev := event.NewMail{Mailbox: p.Address, Messages: metas}
	m.ExtHost.Events.AfterNewMail.Emit(&ev)
}

// renderOutbound builds the MIME message for out and returns its
// generated Message-ID plus raw bytes.  Build failures are client input
// problems.
func renderOutbound(p *profile.Profile, out *message.Outbound) (string, []byte, error) {
	msg, err := message.BuildOutbound(p.Address, out)
	if err != nil {
		return "", nil, &ValidationError{Reason: err.Error()}
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return "", nil, fmt.Errorf("rendering message: %w", err)
	}
	return message.MessageID(msg), buf.Bytes(), nil
}

// resolveAndSelect resolves the requested folder against the live folder
// list and selects it, returning the server's exact name and the message
// total.
func resolveAndSelect(conn Conn, requested string, readOnly bool) (string, uint32, error) {
	available, err := conn.Folders()
	if err != nil {
		return "", 0, err
	}
	name := folder.Resolve(available, requested)
	total, err := conn.Select(name, readOnly)
	if err != nil {
		return "", 0, err
	}
	return name, total, nil
}

// resolveID locates a message by Message-ID within the selected folder.
// Sequence numbers are stable only within one session, so every
// operation re-resolves the ID it was given.
func resolveID(conn Conn, id string) (uint32, error) {
	seqs, err := conn.Search(&imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Message-Id", Value: id}},
	})
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, fmt.Errorf("%w: message %v", ErrNotExist, id)
	}
	return seqs[0], nil
}

// fetchByID fetches the full source of a message by Message-ID.  The
// caller must have selected a folder.
func fetchByID(conn Conn, id string) (*RawMessage, error) {
	seq, err := resolveID(conn, id)
	if err != nil {
		return nil, err
	}
	raws, err := conn.Fetch([]uint32{seq})
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: message %v", ErrNotExist, id)
	}
	return &raws[0], nil
}

// expungeSeqs flags the given message deleted and expunges the selected
// folder.
func expungeSeqs(conn Conn, seqs ...uint32) error {
	if err := conn.AddFlags(seqs, imap.FlagDeleted); err != nil {
		return err
	}
	_, err := conn.Expunge()
	return err
}

func applyFlag(conn Conn, seq uint32, flag imap.Flag, set bool) error {
	if set {
		return conn.AddFlags([]uint32{seq}, flag)
	}
	return conn.RemoveFlags([]uint32{seq}, flag)
}

// pageWindow computes the newest-first page window over n matching
// messages: page 1 holds the newest limit messages, and within a page
// order stays oldest to newest, matching sequence order.
func pageWindow(n, page, limit int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	start = n - page*limit
	if start < 0 {
		start = 0
	}
	end = start + limit
	if end > n {
		end = n
	}
	return start, end
}

// seqRange returns sequence numbers 1..n; RFC 3501 guarantees they are
// contiguous within a selected folder.
func seqRange(n uint32) []uint32 {
	seqs := make([]uint32, n)
	for i := range seqs {
		seqs[i] = uint32(i + 1)
	}
	return seqs
}

// mapSendErr distinguishes upstream credential rejections from other
// delivery failures so the API can answer 401 instead of 500.
func mapSendErr(err error) error {
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "535") || strings.Contains(text, "auth") {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return err
}

// outboundEvent converts an outbound draft to its event form.  The From
// address is always the authenticated account.
func outboundEvent(p *profile.Profile, out *message.Outbound) event.OutboundMessage {
	return event.OutboundMessage{
		From:    &mail.Address{Name: out.FromName, Address: p.Address},
		To:      addressList(out.To),
		Cc:      addressList(out.Cc),
		Bcc:     addressList(out.Bcc),
		Subject: out.Subject,
		Body:    out.Body,
	}
}

// metadataOf converts a summary to its event form.
func metadataOf(mailbox string, s *message.Summary) event.MessageMetadata {
	from, err := mail.ParseAddress(s.From)
	if err != nil {
		from = &mail.Address{Address: s.From}
	}
	return event.MessageMetadata{
		Mailbox: mailbox,
		ID:      s.MessageID,
		From:    from,
		To:      addressList(s.To),
		Date:    s.Date,
		Subject: s.Subject,
		Seen:    s.Seen,
	}
}

func addressList(in []string) []*mail.Address {
	list := make([]*mail.Address, 0, len(in))
	for _, s := range in {
		a, err := mail.ParseAddress(s)
		if err != nil {
			a = &mail.Address{Address: strings.TrimSpace(s)}
		}
		list = append(list, a)
	}
	return list
}

func stringList(in []*mail.Address) []string {
	list := make([]string, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		list = append(list, stringutil.StringAddress(a))
	}
	return list
}
