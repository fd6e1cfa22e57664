// Package draft persists notes in progress so an interrupted compose
// session never loses text.
package draft

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/plumenet/plume/pkg/nostr"
)

var (
	ErrEmptyID  = errors.New("draft ID cannot be empty")
	ErrNotFound = errors.New("draft not found")
)

// Draft is one saved note in progress.
type Draft struct {
	ID         string
	Content    string
	Kind       nostr.Kind
	References []nostr.Reference
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Summary contains lightweight draft metadata for listing purposes.
// This is used instead of loading full drafts with their references.
type Summary struct {
	ID        string
	Excerpt   string
	UpdatedAt time.Time
}

// Store defines the interface for draft storage.
type Store interface {
	Save(ctx context.Context, draft *Draft) error
	Get(ctx context.Context, id string) (*Draft, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

const excerptMax = 80

// excerpt reduces a draft to a single list-friendly line.
func excerpt(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if utf8.RuneCountInString(line) <= excerptMax {
		return line
	}
	runes := []rune(line)
	return string(runes[:excerptMax-3]) + "..."
}
