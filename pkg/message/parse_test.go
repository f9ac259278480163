package message_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func alternativeFixture() []byte {
	return crlf(
		`From: "Ann Example" <ann@example.com>`,
		`To: Bob <bob@example.com>, carol@example.com`,
		`Cc: dave@example.com`,
		`Subject: =?UTF-8?Q?Caf=C3=A9_plans?=`,
		`Date: Tue, 05 Aug 2025 10:30:00 +0000`,
		`Message-ID: <lunch123@example.com>`,
		`MIME-Version: 1.0`,
		`Content-Type: multipart/alternative; boundary="b1"`,
		``,
		`--b1`,
		`Content-Type: text/plain; charset=utf-8`,
		``,
		`Lunch at the new place?`,
		`--b1`,
		`Content-Type: text/html; charset=utf-8`,
		``,
		`<p>Lunch at the <b>new</b> place?</p>`,
		`--b1--`,
		``,
	)
}

func mixedFixture(payload []byte) []byte {
	return crlf(
		`From: ann@example.com`,
		`To: bob@example.com`,
		`Subject: report attached`,
		`Date: Tue, 05 Aug 2025 10:30:00 +0000`,
		`Message-ID: <report@example.com>`,
		`MIME-Version: 1.0`,
		`Content-Type: multipart/mixed; boundary="b2"`,
		``,
		`--b2`,
		`Content-Type: text/plain; charset=utf-8`,
		``,
		`See attachment.`,
		`--b2`,
		`Content-Type: application/pdf; name="report.pdf"`,
		`Content-Disposition: attachment; filename="report.pdf"`,
		`Content-Transfer-Encoding: base64`,
		``,
		base64.StdEncoding.EncodeToString(payload),
		`--b2--`,
		``,
	)
}

func TestParseSummary(t *testing.T) {
	serverDate := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC)
	s, err := message.ParseSummary(7, []string{`\Seen`}, serverDate, alternativeFixture())
	require.NoError(t, err)

	assert.Equal(t, uint32(7), s.Seq)
	assert.Equal(t, "<lunch123@example.com>", s.MessageID)
	assert.Equal(t, "Café plans", s.Subject)
	assert.Equal(t, `"Ann Example" <ann@example.com>`, s.From)
	assert.Equal(t, []string{`"Bob" <bob@example.com>`, "carol@example.com"}, s.To)
	assert.Equal(t, []string{"dave@example.com"}, s.Cc)
	assert.True(t, s.Date.Equal(time.Date(2025, 8, 5, 10, 30, 0, 0, time.UTC)), "Date = %v", s.Date)
	assert.Equal(t, "Lunch at the new place?", s.Preview)
	assert.True(t, s.Seen)
	assert.False(t, s.Flagged)
	assert.False(t, s.HasAttachments)
	assert.Empty(t, s.Attachments)
}

func TestParseSummaryFlagsCaseInsensitive(t *testing.T) {
	s, err := message.ParseSummary(1, []string{`\seen`, `\FLAGGED`}, time.Now(), alternativeFixture())
	require.NoError(t, err)
	assert.True(t, s.Seen)
	assert.True(t, s.Flagged)
}

func TestParseSummaryPreviewTruncated(t *testing.T) {
	body := strings.Repeat("é", 150)
	raw := crlf(
		`From: ann@example.com`,
		`Subject: long`,
		`Content-Type: text/plain; charset=utf-8`,
		``,
		body,
	)
	s, err := message.ParseSummary(1, nil, time.Now(), raw)
	require.NoError(t, err)
	assert.Equal(t, 100, utf8.RuneCountInString(s.Preview))
	assert.Equal(t, strings.Repeat("é", 100), s.Preview)
}

func TestParseSummaryHTMLOnlyHasNoPreview(t *testing.T) {
	raw := crlf(
		`From: ann@example.com`,
		`Subject: fancy`,
		`Content-Type: text/html; charset=utf-8`,
		``,
		`<p>Styled content only.</p>`,
	)
	s, err := message.ParseSummary(1, nil, time.Now(), raw)
	require.NoError(t, err)
	assert.Equal(t, "No preview available", s.Preview)
}

func TestParseSummaryMissingHeaders(t *testing.T) {
	serverDate := time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)
	raw := crlf(
		`From: ann@example.com`,
		`Content-Type: text/plain`,
		``,
		`bare bones`,
	)
	s, err := message.ParseSummary(1, nil, serverDate, raw)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", s.MessageID)
	assert.True(t, s.Date.Equal(serverDate), "Date = %v", s.Date)
	assert.Empty(t, s.Subject)
	assert.Empty(t, s.To)
}

func TestParseSummaryAttachmentMetadata(t *testing.T) {
	payload := []byte("%PDF-1.4 not really a PDF")
	s, err := message.ParseSummary(1, nil, time.Now(), mixedFixture(payload))
	require.NoError(t, err)

	assert.True(t, s.HasAttachments)
	require.Len(t, s.Attachments, 1)
	got := s.Attachments[0]
	assert.Equal(t, "report.pdf", got.FileName)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, int64(len(payload)), got.Size)
	assert.Nil(t, got.Content, "summary must not carry attachment content")
}

func TestParseMessage(t *testing.T) {
	m, err := message.ParseMessage(3, []string{`\Flagged`}, time.Now(), alternativeFixture())
	require.NoError(t, err)

	assert.Equal(t, uint32(3), m.Seq)
	assert.Equal(t, "Lunch at the new place?", m.Text)
	assert.Equal(t, `<p>Lunch at the <b>new</b> place?</p>`, m.HTML)
	assert.True(t, m.Flagged)
	require.NotNil(t, m.Header)
	assert.Equal(t, []string{"<lunch123@example.com>"}, m.Header["Message-Id"])
}

func TestParseMessageHTMLOnlyBody(t *testing.T) {
	raw := crlf(
		`From: ann@example.com`,
		`Subject: fancy`,
		`Content-Type: text/html; charset=utf-8`,
		``,
		`<p>Styled content only.</p>`,
	)
	m, err := message.ParseMessage(1, nil, time.Now(), raw)
	require.NoError(t, err)
	assert.Empty(t, m.Text, "no inline text part, Text must stay empty")
	assert.Equal(t, `<p>Styled content only.</p>`, m.HTML)
}

func TestParseMessageAttachmentContent(t *testing.T) {
	payload := []byte("%PDF-1.4 not really a PDF")
	m, err := message.ParseMessage(1, nil, time.Now(), mixedFixture(payload))
	require.NoError(t, err)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, payload, m.Attachments[0].Content)
	assert.Equal(t, "See attachment.", m.Text)
}

func TestParseEmptySource(t *testing.T) {
	_, err := message.ParseSummary(1, nil, time.Now(), nil)
	assert.Error(t, err)
	_, err = message.ParseMessage(1, nil, time.Now(), nil)
	assert.Error(t, err)
}

func TestHasFlag(t *testing.T) {
	flags := []string{`\Seen`, `\Answered`}
	assert.True(t, message.HasFlag(flags, `\seen`))
	assert.True(t, message.HasFlag(flags, `\Answered`))
	assert.False(t, message.HasFlag(flags, `\Flagged`))
	assert.False(t, message.HasFlag(nil, `\Seen`))
}
