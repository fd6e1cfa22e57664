package compose

import (
	"regexp"
	"strings"
)

// nsecPattern matches a bech32-encoded Nostr private key. The data part of
// bech32 excludes the characters 1, b, i and o; a full nsec carries 58 of
// them after the prefix.
var nsecPattern = regexp.MustCompile(`nsec1[02-9ac-hj-np-z]{58}`)

// LooksLikePrivateKey reports whether the draft appears to leak a private
// key. It is the default submission gate; embedders with their own key
// handling swap it out via WithKeyScanner.
func LooksLikePrivateKey(text string) bool {
	return nsecPattern.MatchString(strings.ToLower(text))
}
