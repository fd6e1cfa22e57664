package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikePrivateKey(t *testing.T) {
	t.Parallel()

	fullKey := "nsec1" + strings.Repeat("q", 58)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "bare key", text: fullKey, want: true},
		{name: "key inside a sentence", text: "backup: " + fullKey + " keep safe", want: true},
		{name: "uppercase key", text: strings.ToUpper(fullKey), want: true},
		{name: "prefix alone", text: "my nsec1 is secret", want: false},
		{name: "truncated key", text: "nsec1" + strings.Repeat("q", 30), want: false},
		{name: "invalid bech32 characters", text: "nsec1" + strings.Repeat("b", 58), want: false},
		{name: "ordinary draft", text: "gm everyone, great morning", want: false},
		{name: "public key is fine", text: "npub1" + strings.Repeat("q", 58), want: false},
		{name: "hex identifier is fine", text: "quoting event " + strings.Repeat("4d0c", 16), want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LooksLikePrivateKey(tt.text))
		})
	}
}
