package compose

import "strings"

// completedKeyLength is the length of a token that reads as a finished key
// rather than a search query. Hex-encoded Nostr keys are 64 characters.
const completedKeyLength = 64

// MentionQuery inspects the tail of the draft and reports a pending mention
// search: the text after "@" in the last whitespace-separated token. The
// second return is false when nothing at the tail asks for a search.
func MentionQuery(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}

	last := fields[len(fields)-1]
	if len(last) < 2 || !strings.HasPrefix(last, "@") {
		return "", false
	}
	if len(last) == completedKeyLength {
		return "", false
	}
	return last[1:], true
}
