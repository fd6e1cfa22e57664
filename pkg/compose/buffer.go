package compose

import "strings"

// Buffer holds the draft text of a note under composition. It is not safe
// for concurrent use on its own; Session serializes all access to it.
type Buffer struct {
	value string
}

func NewBuffer(initial string) *Buffer {
	return &Buffer{value: initial}
}

func (b *Buffer) String() string {
	return b.value
}

func (b *Buffer) Len() int {
	return len(b.value)
}

// Set replaces the whole draft, mirroring an edit made in the embedding UI.
func (b *Buffer) Set(value string) {
	b.value = value
}

func (b *Buffer) Reset() {
	b.value = ""
}

// InsertPlaceholder appends the marker on a fresh line and returns the new
// buffer state.
func (b *Buffer) InsertPlaceholder(marker string) string {
	b.value += "\n" + marker
	return b.value
}

// ReplacePlaceholder swaps the first occurrence of marker for replacement
// and returns the new buffer state. A buffer without the marker is left
// untouched; the caller never learns the difference.
func (b *Buffer) ReplacePlaceholder(marker, replacement string) string {
	b.value = strings.Replace(b.value, marker, replacement, 1)
	return b.value
}

// RemovePlaceholder deletes the first newline-plus-marker sequence and
// returns the new buffer state. A marker without its leading newline does
// not match, same as a buffer without the marker at all.
func (b *Buffer) RemovePlaceholder(marker string) string {
	idx := strings.Index(b.value, "\n"+marker)
	if idx < 0 {
		return b.value
	}
	b.value = b.value[:idx] + b.value[idx+len(marker)+1:]
	return b.value
}
