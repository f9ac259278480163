package message

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime/v2"

	"github.com/mailbridge/mailbridge/pkg/stringutil"
)

// Placeholder values for absent message fields.
const (
	noPreview        = "No preview available"
	unknownMessageID = "Unknown"
)

// previewLength caps the plain text preview in characters.
const previewLength = 100

// ParseSummary parses raw message source into a Summary. flags carries
// the IMAP flags of the message; serverDate is the INTERNALDATE, used
// when the Date header is missing or unparseable.
func ParseSummary(seq uint32, flags []string, serverDate time.Time, raw []byte) (*Summary, error) {
	env, err := readEnvelope(seq, raw)
	if err != nil {
		return nil, err
	}
	return summaryFromEnvelope(seq, flags, serverDate, env), nil
}

// ParseMessage parses raw message source into a full Message, including
// bodies, header map, and decoded attachment content.
func ParseMessage(seq uint32, flags []string, serverDate time.Time, raw []byte) (*Message, error) {
	env, err := readEnvelope(seq, raw)
	if err != nil {
		return nil, err
	}
	m := &Message{
		Summary: *summaryFromEnvelope(seq, flags, serverDate, env),
		HTML:    env.HTML,
		Header:  env.Root.Header,
	}
	// enmime synthesizes Text from the HTML part when no plain part
	// exists; only a genuine inline text part is reported.
	if inlineTextPart(env) != nil {
		m.Text = env.Text
	}
	for i, part := range env.Attachments {
		m.Attachments[i].Content = part.Content
	}
	return m, nil
}

// readEnvelope parses raw source, rejecting an empty fetch result.
func readEnvelope(seq uint32, raw []byte) (*enmime.Envelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse message %v: empty source", seq)
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse message %v: %w", seq, err)
	}
	return env, nil
}

func summaryFromEnvelope(seq uint32, flags []string, serverDate time.Time, env *enmime.Envelope) *Summary {
	s := &Summary{
		Seq:       seq,
		MessageID: messageID(env),
		Subject:   env.GetHeader("Subject"),
		From:      fromLine(env),
		To:        addressLines(env, "To"),
		Cc:        addressLines(env, "Cc"),
		Date:      messageDate(env, serverDate),
		Preview:   preview(env),
		Flags:     flags,
		Seen:      HasFlag(flags, `\Seen`),
		Flagged:   HasFlag(flags, `\Flagged`),
	}
	for _, part := range env.Attachments {
		s.Attachments = append(s.Attachments, Attachment{
			FileName:    part.FileName,
			ContentType: part.ContentType,
			Size:        int64(len(part.Content)),
		})
	}
	s.HasAttachments = len(s.Attachments) > 0
	return s
}

// HasFlag reports whether the IMAP flag list contains name. Flag names
// are case insensitive.
func HasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func messageID(env *enmime.Envelope) string {
	if id := strings.TrimSpace(env.GetHeader("Message-Id")); id != "" {
		return id
	}
	return unknownMessageID
}

func fromLine(env *enmime.Envelope) string {
	addrs, err := env.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(env.GetHeader("From"))
	}
	return stringutil.StringAddress(addrs[0])
}

func addressLines(env *enmime.Envelope, key string) []string {
	addrs, err := env.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return nil
	}
	return stringutil.StringAddressList(addrs)
}

func messageDate(env *enmime.Envelope, serverDate time.Time) time.Time {
	if v := env.GetHeader("Date"); v != "" {
		if t, err := mail.ParseDate(v); err == nil {
			return t
		}
	}
	return serverDate
}

// preview returns the first hundred characters of the first inline text
// part, or a fixed placeholder when the message carries none.
func preview(env *enmime.Envelope) string {
	part := inlineTextPart(env)
	if part == nil {
		return noPreview
	}
	text := strings.TrimSpace(string(part.Content))
	if text == "" {
		return noPreview
	}
	if runes := []rune(text); len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return text
}

// inlineTextPart locates the first text/plain part that is not an
// attachment, in depth-first order.
func inlineTextPart(env *enmime.Envelope) *enmime.Part {
	if env.Root == nil {
		return nil
	}
	return env.Root.DepthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" && p.Disposition != "attachment"
	})
}
