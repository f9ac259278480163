package mailbox

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/emersion/go-imap/v2"
)

// Filter kinds accepted by the filter operation.
const (
	FilterRead            = "read"
	FilterUnread          = "unread"
	FilterStarred         = "starred"
	FilterUnstarred       = "unstarred"
	FilterWithAttachments = "with_attachments"
)

// FilterCriteria maps a filter kind onto server search criteria. The
// boolean result requests client side attachment evaluation: the
// HASATTACHMENT search key is a provider extension, so with_attachments
// matches everything server side and inspects MIME structure after
// fetching.
func FilterCriteria(kind string) (*imap.SearchCriteria, bool, error) {
	switch kind {
	case FilterRead:
		return &imap.SearchCriteria{Flag: []imap.Flag{imap.FlagSeen}}, false, nil
	case FilterUnread:
		return &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}, false, nil
	case FilterStarred:
		return &imap.SearchCriteria{Flag: []imap.Flag{imap.FlagFlagged}}, false, nil
	case FilterUnstarred:
		return &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagFlagged}}, false, nil
	case FilterWithAttachments:
		return &imap.SearchCriteria{}, true, nil
	default:
		return nil, false, &ValidationError{Reason: fmt.Sprintf("unknown filter kind %q", kind)}
	}
}

// ParseCriteria translates an IMAP SEARCH syntax query into structured
// criteria. Supported keys: ALL, SEEN, UNSEEN, FLAGGED, UNFLAGGED,
// ANSWERED, DRAFT, FROM, TO, CC, SUBJECT, TEXT, BODY, HEADER <field>
// <value>, SINCE, BEFORE and ON with dd-MMM-yyyy dates, NOT, OR, and
// parenthesized groups. Values may be double quoted. Anything else is a
// ValidationError.
func ParseCriteria(query string) (*imap.SearchCriteria, error) {
	tokens, err := tokenizeCriteria(query)
	if err != nil {
		return nil, err
	}
	p := &criteriaParser{tokens: tokens}
	criteria := &imap.SearchCriteria{}
	for !p.done() {
		if p.peekText() == ")" {
			return nil, &ValidationError{Reason: "unbalanced parenthesis in search query"}
		}
		if err := p.parseTerm(criteria); err != nil {
			return nil, err
		}
	}
	return criteria, nil
}

type criteriaToken struct {
	text   string
	quoted bool
}

type criteriaParser struct {
	tokens []criteriaToken
	pos    int
}

func (p *criteriaParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *criteriaParser) peekText() string {
	if p.done() || p.tokens[p.pos].quoted {
		return ""
	}
	return p.tokens[p.pos].text
}

func (p *criteriaParser) next() (criteriaToken, error) {
	if p.done() {
		return criteriaToken{}, &ValidationError{Reason: "search query ended unexpectedly"}
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

// value consumes the argument for the named key.
func (p *criteriaParser) value(key string) (string, error) {
	if p.done() {
		return "", &ValidationError{Reason: fmt.Sprintf("missing argument for search key %s", key)}
	}
	tok := p.tokens[p.pos]
	if !tok.quoted && (tok.text == "(" || tok.text == ")") {
		return "", &ValidationError{Reason: fmt.Sprintf("missing argument for search key %s", key)}
	}
	p.pos++
	return tok.text, nil
}

func (p *criteriaParser) date(key string) (time.Time, error) {
	v, err := p.value(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2-Jan-2006", v)
	if err != nil {
		return time.Time{}, &ValidationError{
			Reason: fmt.Sprintf("invalid %s date %q, want dd-MMM-yyyy", key, v),
		}
	}
	return t, nil
}

func (p *criteriaParser) parseTerm(acc *imap.SearchCriteria) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.quoted {
		return &ValidationError{Reason: fmt.Sprintf("unexpected string %q in search query", tok.text)}
	}
	key := strings.ToUpper(tok.text)
	switch key {
	case "ALL":
	case "SEEN":
		acc.Flag = append(acc.Flag, imap.FlagSeen)
	case "UNSEEN":
		acc.NotFlag = append(acc.NotFlag, imap.FlagSeen)
	case "FLAGGED":
		acc.Flag = append(acc.Flag, imap.FlagFlagged)
	case "UNFLAGGED":
		acc.NotFlag = append(acc.NotFlag, imap.FlagFlagged)
	case "ANSWERED":
		acc.Flag = append(acc.Flag, imap.FlagAnswered)
	case "DRAFT":
		acc.Flag = append(acc.Flag, imap.FlagDraft)
	case "FROM", "TO", "CC", "SUBJECT":
		v, err := p.value(key)
		if err != nil {
			return err
		}
		acc.Header = append(acc.Header, imap.SearchCriteriaHeaderField{
			Key:   headerKeys[key],
			Value: v,
		})
	case "HEADER":
		field, err := p.value(key)
		if err != nil {
			return err
		}
		v, err := p.value(key)
		if err != nil {
			return err
		}
		acc.Header = append(acc.Header, imap.SearchCriteriaHeaderField{Key: field, Value: v})
	case "TEXT":
		v, err := p.value(key)
		if err != nil {
			return err
		}
		acc.Text = append(acc.Text, v)
	case "BODY":
		v, err := p.value(key)
		if err != nil {
			return err
		}
		acc.Body = append(acc.Body, v)
	case "SINCE":
		t, err := p.date(key)
		if err != nil {
			return err
		}
		andSince(acc, t)
	case "BEFORE":
		t, err := p.date(key)
		if err != nil {
			return err
		}
		andBefore(acc, t)
	case "ON":
		t, err := p.date(key)
		if err != nil {
			return err
		}
		andSince(acc, t)
		andBefore(acc, t.AddDate(0, 0, 1))
	case "NOT":
		var sub imap.SearchCriteria
		if err := p.parseTerm(&sub); err != nil {
			return err
		}
		acc.Not = append(acc.Not, sub)
	case "OR":
		var left, right imap.SearchCriteria
		if err := p.parseTerm(&left); err != nil {
			return err
		}
		if err := p.parseTerm(&right); err != nil {
			return err
		}
		acc.Or = append(acc.Or, [2]imap.SearchCriteria{left, right})
	case "(":
		var group imap.SearchCriteria
		for {
			if p.done() {
				return &ValidationError{Reason: "missing closing parenthesis in search query"}
			}
			if p.peekText() == ")" {
				p.pos++
				break
			}
			if err := p.parseTerm(&group); err != nil {
				return err
			}
		}
		mergeCriteria(acc, &group)
	case ")":
		return &ValidationError{Reason: "unbalanced parenthesis in search query"}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unsupported search key %q", tok.text)}
	}
	return nil
}

// headerKeys maps address and subject search keys onto the header field
// the server matches them against.
var headerKeys = map[string]string{
	"FROM":    "From",
	"TO":      "To",
	"CC":      "Cc",
	"SUBJECT": "Subject",
}

// mergeCriteria folds src into dst with AND semantics.
func mergeCriteria(dst, src *imap.SearchCriteria) {
	dst.Flag = append(dst.Flag, src.Flag...)
	dst.NotFlag = append(dst.NotFlag, src.NotFlag...)
	dst.Header = append(dst.Header, src.Header...)
	dst.Body = append(dst.Body, src.Body...)
	dst.Text = append(dst.Text, src.Text...)
	dst.Not = append(dst.Not, src.Not...)
	dst.Or = append(dst.Or, src.Or...)
	if !src.Since.IsZero() {
		andSince(dst, src.Since)
	}
	if !src.Before.IsZero() {
		andBefore(dst, src.Before)
	}
}

func andSince(c *imap.SearchCriteria, t time.Time) {
	if c.Since.IsZero() || t.After(c.Since) {
		c.Since = t
	}
}

func andBefore(c *imap.SearchCriteria, t time.Time) {
	if c.Before.IsZero() || t.Before(c.Before) {
		c.Before = t
	}
}

func tokenizeCriteria(query string) ([]criteriaToken, error) {
	var tokens []criteriaToken
	rs := []rune(query)
	i := 0
	for i < len(rs) {
		switch r := rs[i]; {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			tokens = append(tokens, criteriaToken{text: string(r)})
			i++
		case r == '"':
			i++
			var sb strings.Builder
			closed := false
			for i < len(rs) {
				if rs[i] == '\\' && i+1 < len(rs) {
					sb.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if rs[i] == '"' {
					closed = true
					i++
					break
				}
				sb.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, &ValidationError{Reason: "unterminated quoted string in search query"}
			}
			tokens = append(tokens, criteriaToken{text: sb.String(), quoted: true})
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '(' && rs[i] != ')' && rs[i] != '"' {
				i++
			}
			tokens = append(tokens, criteriaToken{text: string(rs[start:i])})
		}
	}
	return tokens, nil
}
