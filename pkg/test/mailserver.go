package test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/profile"
)

// MailServer is an in-memory stand-in for a remote IMAP account.  It
// doubles as the mailbox.Dialer handed to a SessionManager under test;
// each Dial returns a fresh session against the shared folder state.
type MailServer struct {
	DialErr   error // returned by Dial when set
	AppendErr error // returned by Append when set
	Dials     int   // sessions opened
	Closed    int   // sessions closed

	folders map[string]*MailFolder
	order   []string
}

// MailFolder holds one folder's messages in append order.  Sequence
// numbers are the 1-based positions in Messages.
type MailFolder struct {
	Name     string
	Messages []*StoredMessage
}

// StoredMessage is one message held by the fake server.
type StoredMessage struct {
	Flags  []string
	Date   time.Time
	Source []byte
}

// NewMailServer creates a MailServer with an empty INBOX.
func NewMailServer() *MailServer {
	s := &MailServer{folders: make(map[string]*MailFolder)}
	s.Folder("INBOX")
	return s
}

// Folder returns the named folder, creating it when missing.
func (s *MailServer) Folder(name string) *MailFolder {
	if f, ok := s.folders[name]; ok {
		return f
	}
	f := &MailFolder{Name: name}
	s.folders[name] = f
	s.order = append(s.order, name)
	return f
}

// AddMessage appends a message to the named folder, creating the folder
// when missing.
func (s *MailServer) AddMessage(folderName string, flags []string, date time.Time, source string) {
	f := s.Folder(folderName)
	f.Messages = append(f.Messages, &StoredMessage{
		Flags:  flags,
		Date:   date,
		Source: []byte(source),
	})
}

// Dial implements mailbox.Dialer.
func (s *MailServer) Dial(_ context.Context, _ *profile.Profile) (mailbox.Conn, error) {
	if s.DialErr != nil {
		return nil, s.DialErr
	}
	s.Dials++
	return &serverConn{server: s}, nil
}

// serverConn is one session against a MailServer.
type serverConn struct {
	server   *MailServer
	selected *MailFolder
	readOnly bool
	closed   bool
}

func (c *serverConn) Folders() ([]string, error) {
	return append([]string{}, c.server.order...), nil
}

func (c *serverConn) Select(name string, readOnly bool) (uint32, error) {
	f, ok := c.server.folders[name]
	if !ok {
		return 0, fmt.Errorf("%w: %v", mailbox.ErrFolderNotExist, name)
	}
	c.selected = f
	c.readOnly = readOnly
	return uint32(len(f.Messages)), nil
}

func (c *serverConn) Status(name string) (total, unseen uint32, err error) {
	f, ok := c.server.folders[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", mailbox.ErrFolderNotExist, name)
	}
	for _, m := range f.Messages {
		if !hasFlag(m, imap.FlagSeen) {
			unseen++
		}
	}
	return uint32(len(f.Messages)), unseen, nil
}

func (c *serverConn) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	if c.selected == nil {
		return nil, errors.New("no folder selected")
	}
	var seqs []uint32
	for i, m := range c.selected.Messages {
		if matches(m, criteria) {
			seqs = append(seqs, uint32(i+1))
		}
	}
	return seqs, nil
}

func (c *serverConn) Fetch(seqs []uint32) ([]mailbox.RawMessage, error) {
	if c.selected == nil {
		return nil, errors.New("no folder selected")
	}
	raws := make([]mailbox.RawMessage, 0, len(seqs))
	for _, seq := range seqs {
		m, err := c.message(seq)
		if err != nil {
			return nil, err
		}
		raws = append(raws, mailbox.RawMessage{
			Seq:          seq,
			Flags:        append([]string{}, m.Flags...),
			InternalDate: m.Date,
			Source:       append([]byte{}, m.Source...),
		})
	}
	return raws, nil
}

func (c *serverConn) AddFlags(seqs []uint32, flags ...imap.Flag) error {
	if err := c.writable(); err != nil {
		return err
	}
	for _, seq := range seqs {
		m, err := c.message(seq)
		if err != nil {
			return err
		}
		for _, f := range flags {
			if !hasFlag(m, f) {
				m.Flags = append(m.Flags, string(f))
			}
		}
	}
	return nil
}

func (c *serverConn) RemoveFlags(seqs []uint32, flags ...imap.Flag) error {
	if err := c.writable(); err != nil {
		return err
	}
	for _, seq := range seqs {
		m, err := c.message(seq)
		if err != nil {
			return err
		}
		kept := m.Flags[:0]
		for _, have := range m.Flags {
			remove := false
			for _, f := range flags {
				if strings.EqualFold(have, string(f)) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, have)
			}
		}
		m.Flags = kept
	}
	return nil
}

func (c *serverConn) Copy(seqs []uint32, name string) error {
	dest, ok := c.server.folders[name]
	if !ok {
		return fmt.Errorf("%w: %v", mailbox.ErrFolderNotExist, name)
	}
	for _, seq := range seqs {
		m, err := c.message(seq)
		if err != nil {
			return err
		}
		dest.Messages = append(dest.Messages, &StoredMessage{
			Flags:  append([]string{}, m.Flags...),
			Date:   m.Date,
			Source: append([]byte{}, m.Source...),
		})
	}
	return nil
}

func (c *serverConn) Append(name string, raw []byte, flags []imap.Flag, date time.Time) error {
	if c.server.AppendErr != nil {
		return c.server.AppendErr
	}
	dest, ok := c.server.folders[name]
	if !ok {
		return fmt.Errorf("%w: %v", mailbox.ErrFolderNotExist, name)
	}
	strs := make([]string, len(flags))
	for i, f := range flags {
		strs[i] = string(f)
	}
	dest.Messages = append(dest.Messages, &StoredMessage{
		Flags:  strs,
		Date:   date,
		Source: append([]byte{}, raw...),
	})
	return nil
}

func (c *serverConn) EnsureFolder(name string) error {
	c.server.Folder(name)
	return nil
}

func (c *serverConn) Expunge() (int, error) {
	if err := c.writable(); err != nil {
		return 0, err
	}
	kept := c.selected.Messages[:0]
	removed := 0
	for _, m := range c.selected.Messages {
		if hasFlag(m, imap.FlagDeleted) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	c.selected.Messages = kept
	return removed, nil
}

func (c *serverConn) Close() error {
	c.closed = true
	c.server.Closed++
	return nil
}

func (c *serverConn) message(seq uint32) (*StoredMessage, error) {
	if c.selected == nil {
		return nil, errors.New("no folder selected")
	}
	if seq < 1 || int(seq) > len(c.selected.Messages) {
		return nil, fmt.Errorf("sequence %v out of range", seq)
	}
	return c.selected.Messages[seq-1], nil
}

func (c *serverConn) writable() error {
	if c.selected == nil {
		return errors.New("no folder selected")
	}
	if c.readOnly {
		return fmt.Errorf("folder %v selected read-only", c.selected.Name)
	}
	return nil
}

func hasFlag(m *StoredMessage, want imap.Flag) bool {
	for _, f := range m.Flags {
		if strings.EqualFold(f, string(want)) {
			return true
		}
	}
	return false
}

// matches interprets the subset of search criteria the gateway
// generates: flags, header fields, text and body substrings, internal
// date ranges, NOT and OR.
func matches(m *StoredMessage, c *imap.SearchCriteria) bool {
	if c == nil {
		return true
	}
	for _, f := range c.Flag {
		if !hasFlag(m, f) {
			return false
		}
	}
	for _, f := range c.NotFlag {
		if hasFlag(m, f) {
			return false
		}
	}
	for _, h := range c.Header {
		if !headerContains(m.Source, h.Key, h.Value) {
			return false
		}
	}
	for _, t := range c.Text {
		if !bytes.Contains(bytes.ToLower(m.Source), bytes.ToLower([]byte(t))) {
			return false
		}
	}
	for _, b := range c.Body {
		if !bytes.Contains(bytes.ToLower(m.Source), bytes.ToLower([]byte(b))) {
			return false
		}
	}
	if !c.Since.IsZero() && m.Date.Before(c.Since) {
		return false
	}
	if !c.Before.IsZero() && !m.Date.Before(c.Before) {
		return false
	}
	for _, sub := range c.Not {
		if matches(m, &sub) {
			return false
		}
	}
	for _, pair := range c.Or {
		if !matches(m, &pair[0]) && !matches(m, &pair[1]) {
			return false
		}
	}
	return true
}

func headerContains(source []byte, key, value string) bool {
	msg, err := mail.ReadMessage(bytes.NewReader(source))
	if err != nil {
		return false
	}
	got := msg.Header.Get(key)
	if got == "" {
		return false
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(value))
}
