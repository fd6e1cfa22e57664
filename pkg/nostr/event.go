// Package nostr carries the minimal note and event model plume needs to
// hand finished drafts to a submission sink.
package nostr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Kind selects the note type on the wire.
type Kind int

const (
	// KindText is an ordinary public note.
	KindText Kind = 1
	// KindChat is a public chat channel message.
	KindChat Kind = 42
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChat:
		return "chat"
	default:
		return fmt.Sprintf("kind-%d", int(k))
	}
}

// ParseKind maps the user-facing kind names onto wire kinds.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text", "note":
		return KindText, nil
	case "chat":
		return KindChat, nil
	default:
		return 0, fmt.Errorf("unknown kind %q, want text or chat", s)
	}
}

// Reference ties a note to an upstream event or profile and becomes one tag
// on the wire.
type Reference struct {
	Type      string // "e" for events, "p" for profiles
	ID        string // hex event id or public key
	RelayHint string // optional relay the referenced object was seen on
}

// Note is a finished draft ready for submission.
type Note struct {
	Content    string
	Kind       Kind
	References []Reference
}

// Sink receives finished notes. Implementations decide what submission
// means; the composer never inspects the outcome beyond the error.
type Sink interface {
	Submit(ctx context.Context, note Note) error
}

// Signer attributes events to a key pair held elsewhere. Schnorr signing
// stays outside this module; wallets, NIP-07 bridges and key stores all
// implement this interface.
type Signer interface {
	// PublicKey returns the hex public key events are attributed to.
	PublicKey() string
	// Sign fills in the event id and signature.
	Sign(ctx context.Context, ev *Event) error
}

// Event is the NIP-01 wire shape.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// NewEvent shapes a note into an unsigned event attributed to pubkey. The
// id is filled in; the signature is the signer's job.
func NewEvent(note Note, pubkey string, createdAt time.Time) Event {
	tags := make([][]string, 0, len(note.References))
	for _, ref := range note.References {
		tag := []string{ref.Type, ref.ID}
		if ref.RelayHint != "" {
			tag = append(tag, ref.RelayHint)
		}
		tags = append(tags, tag)
	}

	ev := Event{
		PubKey:    pubkey,
		CreatedAt: createdAt.Unix(),
		Kind:      int(note.Kind),
		Tags:      tags,
		Content:   note.Content,
	}
	ev.ID = ev.ComputeID()
	return ev
}

// ComputeID hashes the canonical serialization of the event: the JSON array
// [0, pubkey, created_at, kind, tags, content] with HTML escaping off.
func (e Event) ComputeID() string {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}); err != nil {
		return ""
	}
	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:])
}
