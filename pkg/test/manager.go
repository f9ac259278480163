package test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/profile"
)

// FlagCall records one SetFlags invocation.
type FlagCall struct {
	Folder  string
	ID      string
	Seen    *bool
	Flagged *bool
}

// MoveCall records one Move invocation.
type MoveCall struct {
	ID   string
	From string
	To   string
}

// ManagerStub is a test stub for mailbox.Manager.  The folder name
// "messageerr" triggers an internal error on reads.
type ManagerStub struct {
	mailbox.Manager

	LoginErr   error
	FolderList []string
	Counts     map[string][2]uint32 // folder -> total, unseen
	SendRes    *mailbox.SendResult
	SendErr    error
	DraftID    string
	Unseen     []*message.Summary

	listings map[string]*mailbox.Listing
	messages map[string]*message.Message

	SentOut  []*message.Outbound
	Flagged  []FlagCall
	Deleted  []string
	Moved    []MoveCall
	Emptied  int
	DraftOps []string

	mu       sync.Mutex
	checkCnt int
}

// NewManager creates a new ManagerStub.
func NewManager() *ManagerStub {
	return &ManagerStub{
		listings: make(map[string]*mailbox.Listing),
		messages: make(map[string]*message.Message),
	}
}

// AddListing installs the canned listing for a folder.
func (m *ManagerStub) AddListing(folder string, l *mailbox.Listing) {
	m.listings[folder] = l
}

// AddMessage installs a canned message keyed by folder and ID.
func (m *ManagerStub) AddMessage(folder string, msg *message.Message) {
	m.messages[folder+"/"+msg.MessageID] = msg
}

// Login fails with LoginErr when set.
func (m *ManagerStub) Login(_ context.Context, _ *profile.Profile) error {
	return m.LoginErr
}

// Folders returns the canned folder list.
func (m *ManagerStub) Folders(_ context.Context, _ *profile.Profile) ([]string, error) {
	if m.FolderList == nil {
		return []string{"INBOX"}, nil
	}
	return m.FolderList, nil
}

// FolderCount returns the canned counts for a folder.
func (m *ManagerStub) FolderCount(
	_ context.Context, _ *profile.Profile, folder string,
) (uint32, uint32, error) {
	if folder == "messageerr" {
		return 0, 0, errors.New("internal error")
	}
	c := m.Counts[folder]
	return c[0], c[1], nil
}

// UnreadCount returns the canned INBOX unseen count.
func (m *ManagerStub) UnreadCount(_ context.Context, _ *profile.Profile) (uint32, error) {
	c := m.Counts["INBOX"]
	return c[1], nil
}

// List returns the canned listing for a folder.
func (m *ManagerStub) List(
	_ context.Context, _ *profile.Profile, folder string, _, _ int,
) (*mailbox.Listing, error) {
	return m.listing(folder)
}

// Search validates the query, then returns the canned listing.
func (m *ManagerStub) Search(
	_ context.Context, _ *profile.Profile, folder, query string, _, _ int,
) (*mailbox.Listing, error) {
	if _, err := mailbox.ParseCriteria(query); err != nil {
		return nil, err
	}
	return m.listing(folder)
}

// Filter validates the kind, then returns the canned listing.
func (m *ManagerStub) Filter(
	_ context.Context, _ *profile.Profile, folder, kind string, _, _ int,
) (*mailbox.Listing, error) {
	if _, _, err := mailbox.FilterCriteria(kind); err != nil {
		return nil, err
	}
	return m.listing(folder)
}

// Get returns a canned message by folder and ID.
func (m *ManagerStub) Get(
	_ context.Context, _ *profile.Profile, folder, id string,
) (*message.Message, error) {
	if folder == "messageerr" {
		return nil, errors.New("internal error")
	}
	msg, ok := m.messages[folder+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%w: message %v", mailbox.ErrNotExist, id)
	}
	return msg, nil
}

// Attachments lists metadata from the canned message.
func (m *ManagerStub) Attachments(
	ctx context.Context, p *profile.Profile, folder, id string,
) ([]message.Attachment, error) {
	msg, err := m.Get(ctx, p, folder, id)
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

// Attachment fetches one attachment from the canned message.
func (m *ManagerStub) Attachment(
	ctx context.Context, p *profile.Profile, folder, id, filename string,
) (*message.Attachment, error) {
	msg, err := m.Get(ctx, p, folder, id)
	if err != nil {
		return nil, err
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].FileName == filename {
			return &msg.Attachments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %v", mailbox.ErrAttachmentNotExist, filename)
}

// SetFlags records the call.
func (m *ManagerStub) SetFlags(
	_ context.Context, _ *profile.Profile, folder, id string, seen, flagged *bool,
) error {
	if folder == "messageerr" {
		return errors.New("internal error")
	}
	m.Flagged = append(m.Flagged, FlagCall{Folder: folder, ID: id, Seen: seen, Flagged: flagged})
	return nil
}

// Delete records the call.
func (m *ManagerStub) Delete(_ context.Context, _ *profile.Profile, folder, id string) error {
	if folder == "messageerr" {
		return errors.New("internal error")
	}
	if _, ok := m.messages[folder+"/"+id]; !ok {
		return fmt.Errorf("%w: message %v", mailbox.ErrNotExist, id)
	}
	m.Deleted = append(m.Deleted, folder+"/"+id)
	return nil
}

// Move records the call.
func (m *ManagerStub) Move(_ context.Context, _ *profile.Profile, id, from, to string) error {
	m.Moved = append(m.Moved, MoveCall{ID: id, From: from, To: to})
	return nil
}

// EmptyTrash records the call.
func (m *ManagerStub) EmptyTrash(_ context.Context, _ *profile.Profile) (int, error) {
	m.Emptied++
	return 2, nil
}

// SaveDraft records the call and returns the canned draft ID.
func (m *ManagerStub) SaveDraft(
	_ context.Context, _ *profile.Profile, _ *message.Outbound,
) (string, error) {
	m.DraftOps = append(m.DraftOps, "save")
	return m.DraftID, nil
}

// UpdateDraft records the call and returns the canned draft ID.
func (m *ManagerStub) UpdateDraft(
	_ context.Context, _ *profile.Profile, id string, _ *message.Outbound,
) (string, error) {
	m.DraftOps = append(m.DraftOps, "update "+id)
	return m.DraftID, nil
}

// DeleteDraft records the call.
func (m *ManagerStub) DeleteDraft(_ context.Context, _ *profile.Profile, id string) error {
	m.DraftOps = append(m.DraftOps, "delete "+id)
	return nil
}

// Send records the outbound and returns the canned result.
func (m *ManagerStub) Send(
	_ context.Context, _ *profile.Profile, out *message.Outbound,
) (*mailbox.SendResult, error) {
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.SentOut = append(m.SentOut, out)
	if m.SendRes != nil {
		return m.SendRes, nil
	}
	return &mailbox.SendResult{MessageID: "<stub@test>", Delivered: true, Filed: true}, nil
}

// Reply records the outbound and returns the canned result.
func (m *ManagerStub) Reply(
	ctx context.Context, p *profile.Profile, folder, id string, _ bool, out *message.Outbound,
) (*mailbox.SendResult, error) {
	if _, err := m.Get(ctx, p, folder, id); err != nil {
		return nil, err
	}
	return m.Send(ctx, p, out)
}

// Forward records the outbound and returns the canned result.
func (m *ManagerStub) Forward(
	ctx context.Context, p *profile.Profile, folder, id string, to []string, out *message.Outbound,
) (*mailbox.SendResult, error) {
	if _, err := m.Get(ctx, p, folder, id); err != nil {
		return nil, err
	}
	out.To = to
	return m.Send(ctx, p, out)
}

// CheckNew returns the canned unseen summaries.  Safe for concurrent
// use, the REST layer calls it from a background goroutine.
func (m *ManagerStub) CheckNew(
	_ context.Context, _ *profile.Profile,
) ([]*message.Summary, error) {
	m.mu.Lock()
	m.checkCnt++
	m.mu.Unlock()
	return m.Unseen, nil
}

// CheckCount reports how many times CheckNew has been called.
func (m *ManagerStub) CheckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkCnt
}

func (m *ManagerStub) listing(folder string) (*mailbox.Listing, error) {
	if folder == "messageserr" {
		return nil, errors.New("internal error")
	}
	if l, ok := m.listings[folder]; ok {
		return l, nil
	}
	return &mailbox.Listing{Folder: folder, Messages: []*message.Summary{}}, nil
}
