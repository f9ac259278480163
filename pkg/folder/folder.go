// Package folder maps logical folder names onto the provider-specific
// spellings found on a live IMAP account.
package folder

import "strings"

// Logical folder names accepted by the resolver.
const (
	Inbox   = "INBOX"
	Trash   = "trash"
	Sent    = "sent"
	Archive = "archive"
	Drafts  = "drafts"
)

// aliases lists candidate provider names per logical folder, most common
// first.  The first candidate present on the server wins.
var aliases = map[string][]string{
	Trash:   {"Trash", "[Gmail]/Trash", "Deleted Items", "Bin"},
	Sent:    {"Sent", "[Gmail]/Sent Mail", "Sent Items"},
	Archive: {"Archive", "[Gmail]/All Mail"},
	Drafts:  {"Drafts", "[Gmail]/Drafts"},
}

// Resolve matches a requested folder name against the folders available on
// the server.  Logical names (trash, sent, archive, drafts) resolve through
// the alias table; anything else, and any logical name with no candidate
// present, degrades to the literal requested name.  Matching ignores case
// and the returned name is the server's exact spelling.
func Resolve(available []string, requested string) string {
	candidates, ok := aliases[strings.ToLower(requested)]
	if !ok {
		candidates = []string{requested}
	}
	lower := make([]string, len(available))
	for i, name := range available {
		lower[i] = strings.ToLower(name)
	}
	for _, want := range candidates {
		for i, have := range lower {
			if have == strings.ToLower(want) {
				return available[i]
			}
		}
	}
	return requested
}

// IsLogical reports whether name is one of the logical folder names that
// resolve through the alias table.
func IsLogical(name string) bool {
	_, ok := aliases[strings.ToLower(name)]
	return ok
}
