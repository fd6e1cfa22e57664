package run

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenet/plume/pkg/compose"
	"github.com/plumenet/plume/pkg/nostr"
)

type captureSink struct {
	notes []nostr.Note
}

func (s *captureSink) Submit(_ context.Context, note nostr.Note) error {
	s.notes = append(s.notes, note)
	return nil
}

func TestNote_ValidationErrors(t *testing.T) {
	ctx := testContext(t)

	t.Run("nil sink", func(t *testing.T) {
		_, err := Note(ctx, nil, "hello")
		assert.ErrorContains(t, err, "sink is required")
	})

	t.Run("empty note", func(t *testing.T) {
		_, err := Note(ctx, &captureSink{}, "")
		assert.ErrorContains(t, err, "text or at least one file is required")
	})
}

func TestNote_PublishesText(t *testing.T) {
	sink := &captureSink{}

	content, err := Note(testContext(t), sink, "good morning, nostr")
	require.NoError(t, err)
	assert.Equal(t, "good morning, nostr", content)

	require.Len(t, sink.notes, 1)
	assert.Equal(t, nostr.KindText, sink.notes[0].Kind)
	assert.Equal(t, "good morning, nostr", sink.notes[0].Content)
}

func TestChat_PublishesChatKind(t *testing.T) {
	sink := &captureSink{}

	_, err := Chat(testContext(t), sink, "anyone here?")
	require.NoError(t, err)

	require.Len(t, sink.notes, 1)
	assert.Equal(t, nostr.KindChat, sink.notes[0].Kind)
}

func TestNote_RejectsLeakedKey(t *testing.T) {
	sink := &captureSink{}
	leaky := "backup: nsec1" + strings.Repeat("q", 58)

	_, err := Note(testContext(t), sink, leaky)
	require.ErrorIs(t, err, compose.ErrSubmitRejected)
	assert.Empty(t, sink.notes)
}
