package nostr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const defaultRelayTimeout = 10 * time.Second

// RelaySink publishes signed events to a set of relays over WebSocket. The
// submission counts as delivered when at least one relay accepts it.
type RelaySink struct {
	relays  []string
	signer  Signer
	timeout time.Duration
	now     func() time.Time
}

type RelayOpt func(*RelaySink)

// WithRelayTimeout bounds the dial-write-ack round trip per relay.
func WithRelayTimeout(d time.Duration) RelayOpt {
	return func(s *RelaySink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewRelaySink builds a sink for the given relay URLs. The signer provides
// attribution and signatures; without one every Submit fails.
func NewRelaySink(relays []string, signer Signer, opts ...RelayOpt) *RelaySink {
	s := &RelaySink{
		relays:  relays,
		signer:  signer,
		timeout: defaultRelayTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit signs the note and races it to every configured relay. The first
// acceptance wins; the collected errors surface only when no relay takes it.
func (s *RelaySink) Submit(ctx context.Context, note Note) error {
	if s.signer == nil {
		return errors.New("nostr: relay sink has no signer")
	}
	if len(s.relays) == 0 {
		return errors.New("nostr: no relays configured")
	}

	ev := NewEvent(note, s.signer.PublicKey(), s.now())
	if err := s.signer.Sign(ctx, &ev); err != nil {
		return fmt.Errorf("sign event: %w", err)
	}

	slog.Debug("Publishing event", "event_id", ev.ID, "kind", ev.Kind, "relays", len(s.relays))

	var accepted atomic.Int32
	var g errgroup.Group
	for _, relay := range s.relays {
		relay := relay
		g.Go(func() error {
			if err := s.publish(ctx, relay, ev); err != nil {
				slog.Warn("Relay refused event", "relay", relay, "error", err)
				return err
			}
			accepted.Add(1)
			return nil
		})
	}

	err := g.Wait()
	if accepted.Load() > 0 {
		return nil
	}
	return fmt.Errorf("no relay accepted event %s: %w", ev.ID, err)
}

func (s *RelaySink) publish(ctx context.Context, relay string, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, relay, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", relay, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteJSON([]any{"EVENT", ev}); err != nil {
		return fmt.Errorf("send to %s: %w", relay, err)
	}

	// Relays may interleave NOTICE frames before the OK for our event.
	for {
		var frame []json.RawMessage
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read from %s: %w", relay, err)
		}
		if len(frame) == 0 {
			continue
		}

		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case "OK":
			if len(frame) < 3 {
				continue
			}
			var id string
			var ok bool
			_ = json.Unmarshal(frame[1], &id)
			_ = json.Unmarshal(frame[2], &ok)
			if id != ev.ID {
				continue
			}
			if !ok {
				reason := ""
				if len(frame) > 3 {
					_ = json.Unmarshal(frame[3], &reason)
				}
				return fmt.Errorf("relay %s rejected event: %s", relay, reason)
			}
			slog.Debug("Relay accepted event", "relay", relay, "event_id", ev.ID)
			return nil
		case "NOTICE":
			msg := ""
			if len(frame) > 1 {
				_ = json.Unmarshal(frame[1], &msg)
			}
			slog.Debug("Relay notice", "relay", relay, "message", msg)
		}
	}
}
