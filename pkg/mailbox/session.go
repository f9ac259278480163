// Package mailbox opens per-operation IMAP sessions against the
// account's server and exposes the logical mailbox operations consumed
// by the REST layer. No message state is retained between operations.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mailbridge/mailbridge/pkg/profile"
)

// RawMessage is one fetched message: its session sequence number, flags,
// server receive time, and full source.
type RawMessage struct {
	Seq          uint32
	Flags        []string
	InternalDate time.Time
	Source       []byte
}

// Conn is a single authenticated IMAP session. Implementations are not
// safe for concurrent use; the facade opens one session per operation.
type Conn interface {
	// Folders lists selectable folder names in server spelling.
	Folders() ([]string, error)
	// Select opens a folder and returns its message count.
	Select(name string, readOnly bool) (uint32, error)
	// Status reports total and unseen counts without selecting.
	Status(name string) (total, unseen uint32, err error)
	// Search returns matching sequence numbers in ascending order.
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	// Fetch retrieves the messages in seqs, sorted by sequence number.
	Fetch(seqs []uint32) ([]RawMessage, error)
	AddFlags(seqs []uint32, flags ...imap.Flag) error
	RemoveFlags(seqs []uint32, flags ...imap.Flag) error
	// Copy copies the messages in seqs into the named folder.
	Copy(seqs []uint32, name string) error
	// Append stores raw as a new message in the named folder.
	Append(name string, raw []byte, flags []imap.Flag, date time.Time) error
	// EnsureFolder creates the named folder unless it already exists.
	EnsureFolder(name string) error
	// Expunge removes messages flagged deleted, returning the count.
	Expunge() (int, error)
	// Close logs out and releases the connection.
	Close() error
}

// Dialer opens authenticated sessions for a profile.
type Dialer interface {
	Dial(ctx context.Context, p *profile.Profile) (Conn, error)
}

// IMAPDialer connects over implicit TLS. AllowInsecure downgrades to
// cleartext TCP for test servers.
type IMAPDialer struct {
	Timeout       time.Duration
	AllowInsecure bool
}

// Dial connects to the profile's IMAP server and logs in. Login
// failures are reported as ErrAuthFailed.
func (d *IMAPDialer) Dial(ctx context.Context, p *profile.Profile) (Conn, error) {
	addr := p.IMAPAddr()
	netDialer := &net.Dialer{Timeout: d.Timeout}
	var (
		conn net.Conn
		err  error
	)
	if d.AllowInsecure {
		conn, err = netDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = tls.DialWithDialer(netDialer, "tcp", addr, &tls.Config{ServerName: p.IMAPHost})
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", addr, err)
	}
	client := imapclient.New(conn, &imapclient.Options{})

	// Cancelling the operation context tears down the connection,
	// unblocking any command in flight.
	stop := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	if err := client.Login(p.Address, p.Secret).Wait(); err != nil {
		stop()
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return &imapConn{client: client, stop: stop}, nil
}

// imapConn adapts imapclient.Client to the Conn interface.
type imapConn struct {
	client *imapclient.Client
	stop   func() bool
}

func (c *imapConn) Folders() ([]string, error) {
	boxes, err := c.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	names := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if hasAttr(box.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		names = append(names, box.Mailbox)
	}
	return names, nil
}

func (c *imapConn) Select(name string, readOnly bool) (uint32, error) {
	data, err := c.client.Select(name, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		return 0, folderErr(name, err)
	}
	return data.NumMessages, nil
}

func (c *imapConn) Status(name string) (total, unseen uint32, err error) {
	data, err := c.client.Status(name, &imap.StatusOptions{
		NumMessages: true,
		NumUnseen:   true,
	}).Wait()
	if err != nil {
		return 0, 0, folderErr(name, err)
	}
	if data.NumMessages != nil {
		total = *data.NumMessages
	}
	if data.NumUnseen != nil {
		unseen = *data.NumUnseen
	}
	return total, unseen, nil
}

func (c *imapConn) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	data, err := c.client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return data.AllSeqNums(), nil
}

func (c *imapConn) Fetch(seqs []uint32) ([]RawMessage, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	section := &imap.FetchItemBodySection{Peek: true}
	bufs, err := c.client.Fetch(imap.SeqSetNum(seqs...), &imap.FetchOptions{
		Flags:        true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	msgs := make([]RawMessage, 0, len(bufs))
	for _, buf := range bufs {
		flags := make([]string, len(buf.Flags))
		for i, f := range buf.Flags {
			flags[i] = string(f)
		}
		msgs = append(msgs, RawMessage{
			Seq:          buf.SeqNum,
			Flags:        flags,
			InternalDate: buf.InternalDate,
			Source:       buf.FindBodySection(section),
		})
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })
	return msgs, nil
}

func (c *imapConn) AddFlags(seqs []uint32, flags ...imap.Flag) error {
	return c.store(seqs, imap.StoreFlagsAdd, flags)
}

func (c *imapConn) RemoveFlags(seqs []uint32, flags ...imap.Flag) error {
	return c.store(seqs, imap.StoreFlagsDel, flags)
}

func (c *imapConn) store(seqs []uint32, op imap.StoreFlagsOp, flags []imap.Flag) error {
	if len(seqs) == 0 {
		return nil
	}
	err := c.client.Store(imap.SeqSetNum(seqs...), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("store flags: %w", err)
	}
	return nil
}

func (c *imapConn) Copy(seqs []uint32, name string) error {
	if _, err := c.client.Copy(imap.SeqSetNum(seqs...), name).Wait(); err != nil {
		return fmt.Errorf("copy to %q: %w", name, err)
	}
	return nil
}

func (c *imapConn) Append(name string, raw []byte, flags []imap.Flag, date time.Time) error {
	cmd := c.client.Append(name, int64(len(raw)), &imap.AppendOptions{
		Flags: flags,
		Time:  date,
	})
	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("append write: %w", err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append to %q: %w", name, err)
	}
	return nil
}

func (c *imapConn) EnsureFolder(name string) error {
	err := c.client.Create(name, nil).Wait()
	if err != nil {
		var imapErr *imap.Error
		if errors.As(err, &imapErr) && imapErr.Code == imap.ResponseCodeAlreadyExists {
			return nil
		}
		return fmt.Errorf("create folder %q: %w", name, err)
	}
	return nil
}

func (c *imapConn) Expunge() (int, error) {
	seqs, err := c.client.Expunge().Collect()
	if err != nil {
		return 0, fmt.Errorf("expunge: %w", err)
	}
	return len(seqs), nil
}

// Close logs out, then tears down the connection. Logout failures are
// ignored; the server side reclaims the session either way.
func (c *imapConn) Close() error {
	c.stop()
	_ = c.client.Logout().Wait()
	if err := c.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

// folderErr maps a server NO reply on a folder operation to
// ErrFolderNotExist, preserving other failures.
func folderErr(name string, err error) error {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) && imapErr.Type == imap.StatusResponseTypeNo {
		return fmt.Errorf("%w: %s", ErrFolderNotExist, name)
	}
	return fmt.Errorf("folder %q: %w", name, err)
}
