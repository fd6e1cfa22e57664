package nostr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// WriterSink renders notes as event JSON, one per line. With a signer the
// events come out signed; without one they are unsigned templates with empty
// id and sig, ready to be piped into an external signing tool.
type WriterSink struct {
	Out    io.Writer
	Signer Signer
	now    func() time.Time
}

func NewWriterSink(out io.Writer, signer Signer) *WriterSink {
	return &WriterSink{Out: out, Signer: signer, now: time.Now}
}

func (s *WriterSink) Submit(ctx context.Context, note Note) error {
	now := s.now
	if now == nil {
		now = time.Now
	}

	var ev Event
	if s.Signer != nil {
		ev = NewEvent(note, s.Signer.PublicKey(), now())
		if err := s.Signer.Sign(ctx, &ev); err != nil {
			return fmt.Errorf("sign event: %w", err)
		}
	} else {
		ev = NewEvent(note, "", now())
		ev.ID = ""
	}

	enc := json.NewEncoder(s.Out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
