package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

// plainFallback is the alternative part paired with an HTML body.
const plainFallback = "This email requires an HTML-supported email client to view properly."

// defaultSubject replaces an empty outbound subject.
const defaultSubject = "No Subject"

// BuildOutbound assembles a MIME document for SMTP submission or IMAP
// append. from is the account address; it becomes the From and Reply-To
// address, combined with out.FromName when present. The document carries
// a generated Message-ID, readable via MessageID. Errors indicate
// unusable client input, such as malformed addresses or attachment
// content that does not decode.
func BuildOutbound(from string, out *Outbound) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	var err error
	if out.FromName != "" {
		err = m.FromFormat(out.FromName, from)
	} else {
		err = m.From(from)
	}
	if err != nil {
		return nil, fmt.Errorf("from %q: %w", from, err)
	}
	if err := m.To(out.To...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if err := m.Cc(out.Cc...); err != nil {
		return nil, fmt.Errorf("cc: %w", err)
	}
	if err := m.Bcc(out.Bcc...); err != nil {
		return nil, fmt.Errorf("bcc: %w", err)
	}
	m.Subject(subjectOrDefault(out.Subject))
	if out.FromName != "" {
		err = m.ReplyToFormat(out.FromName, from)
	} else {
		err = m.ReplyTo(from)
	}
	if err != nil {
		return nil, fmt.Errorf("reply-to: %w", err)
	}
	m.SetMessageID()
	if out.InReplyTo != "" {
		m.SetGenHeader(gomail.HeaderInReplyTo, out.InReplyTo)
	}
	if out.References != "" {
		m.SetGenHeader(gomail.HeaderReferences, out.References)
	}
	if out.ReadReceipt {
		rcpt := out.ReadReceiptTo
		if rcpt == "" {
			rcpt = from
		}
		if err := m.RequestMDNTo(rcpt); err != nil {
			return nil, fmt.Errorf("read receipt: %w", err)
		}
	}
	if out.ContentType == ContentTypePlain {
		m.SetBodyString(gomail.TypeTextPlain, out.Body)
	} else {
		m.SetBodyString(gomail.TypeTextPlain, plainFallback)
		m.AddAlternativeString(gomail.TypeTextHTML, out.Body)
	}
	for _, a := range out.Attachments {
		if err := attach(m, a); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MessageID returns the Message-ID header of a built message, angle
// brackets included.
func MessageID(m *gomail.Msg) string {
	if ids := m.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// AsReplyTo rewrites o into an answer to orig: recipients, subject
// prefix, and threading headers. self is the replying account address,
// excluded from reply-all recipient lists along with the original
// sender.
func (o *Outbound) AsReplyTo(orig *Message, self string, all bool) {
	o.To = nil
	o.Cc = nil
	if orig.From != "" {
		o.To = []string{orig.From}
	}
	if all {
		o.To = appendAddresses(o.To, orig.To, self, orig.From)
		o.Cc = appendAddresses(nil, orig.Cc, self, orig.From)
	}
	o.Subject = prefixSubject("Re:", orig.Subject)
	if orig.MessageID != "" && orig.MessageID != unknownMessageID {
		o.InReplyTo = orig.MessageID
		o.References = joinReferences(orig.Header, orig.MessageID)
	}
}

// AsForwardOf rewrites o into a forward of orig, attaching the original
// source verbatim as a message/rfc822 part.
func (o *Outbound) AsForwardOf(orig *Message, raw []byte, to []string) {
	o.To = to
	o.Subject = prefixSubject("Fwd:", orig.Subject)
	o.Attachments = append(o.Attachments, OutboundAttachment{
		FileName:    "forwarded_message.eml",
		ContentType: "message/rfc822",
		Content:     base64.StdEncoding.EncodeToString(raw),
	})
}

func subjectOrDefault(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return defaultSubject
	}
	return subject
}

// prefixSubject prepends prefix unless subject already starts with it,
// compared case insensitively.
func prefixSubject(prefix, subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) >= len(prefix) && strings.EqualFold(subject[:len(prefix)], prefix) {
		return subject
	}
	return prefix + " " + subject
}

// appendAddresses appends entries from src to dst, skipping duplicates
// and any address whose addr-spec matches one of exclude.
func appendAddresses(dst, src []string, exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude)+len(dst))
	for _, e := range exclude {
		if key := bareAddress(e); key != "" {
			skip[key] = struct{}{}
		}
	}
	for _, d := range dst {
		if key := bareAddress(d); key != "" {
			skip[key] = struct{}{}
		}
	}
	for _, addr := range src {
		key := bareAddress(addr)
		if key == "" {
			continue
		}
		if _, dup := skip[key]; dup {
			continue
		}
		skip[key] = struct{}{}
		dst = append(dst, addr)
	}
	return dst
}

func joinReferences(header map[string][]string, messageID string) string {
	var refs string
	if header != nil {
		refs = strings.TrimSpace(strings.Join(header["References"], " "))
	}
	if refs == "" {
		return messageID
	}
	return refs + " " + messageID
}

func attach(m *gomail.Msg, a OutboundAttachment) error {
	content, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return fmt.Errorf("attachment %q: decode content: %w", a.FileName, err)
	}
	var opts []gomail.FileOption
	if a.ContentType != "" {
		opts = append(opts, gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
	}
	if err := m.AttachReader(a.FileName, bytes.NewReader(content), opts...); err != nil {
		return fmt.Errorf("attachment %q: %w", a.FileName, err)
	}
	return nil
}
