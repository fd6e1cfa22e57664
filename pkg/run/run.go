// Package run provides simplified functions for composing and publishing
// notes. It hides the complexity of setting up sessions and event plumbing.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plumenet/plume/pkg/compose"
	"github.com/plumenet/plume/pkg/media"
	"github.com/plumenet/plume/pkg/nostr"
)

// Note composes a text note, uploads the given files one at a time, and
// submits the result through the sink. Each hosted URL is woven into the
// note body before submission. The returned string is the content as
// submitted.
//
// A note that trips the private-key guard is rejected, never published;
// drive compose.Session directly to put a confirmation prompt in front of
// the user instead.
func Note(ctx context.Context, sink nostr.Sink, text string, files ...string) (string, error) {
	return publish(ctx, sink, nostr.KindText, text, files)
}

// Chat is Note for public chat channel messages.
func Chat(ctx context.Context, sink nostr.Sink, text string, files ...string) (string, error) {
	return publish(ctx, sink, nostr.KindChat, text, files)
}

func publish(ctx context.Context, sink nostr.Sink, kind nostr.Kind, text string, files []string) (string, error) {
	if sink == nil {
		return "", errors.New("sink is required")
	}
	if text == "" && len(files) == 0 {
		return "", errors.New("text or at least one file is required")
	}

	session := compose.New(
		compose.WithSink(sink),
		compose.WithInitialText(text),
	)
	defer session.Close()

	events := session.Subscribe("run")

	for _, path := range files {
		sel, err := media.FromFile(path)
		if err != nil {
			return "", err
		}
		if !sel.Complete() {
			return "", fmt.Errorf("%s: cannot determine media type", path)
		}
		session.Attach(ctx, sel)
		if err := awaitUpload(ctx, events); err != nil {
			return "", fmt.Errorf("uploading %s: %w", path, err)
		}
	}

	go rejectKeyWarnings(ctx, session, events)

	content := session.Text()
	if err := session.Submit(ctx, kind, nil); err != nil {
		return "", fmt.Errorf("submitting note: %w", err)
	}
	return content, nil
}

func awaitUpload(ctx context.Context, events <-chan compose.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errors.New("session closed")
			}
			switch e := ev.(type) {
			case *compose.UploadSucceededEvent:
				return nil
			case *compose.UploadFailedEvent:
				if e.Err != nil {
					return e.Err
				}
				return errors.New(e.Reason)
			}
		}
	}
}

// rejectKeyWarnings answers any key warning with a rejection so Submit
// returns compose.ErrSubmitRejected instead of blocking forever.
func rejectKeyWarnings(ctx context.Context, session *compose.Session, events <-chan compose.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, isWarning := ev.(*compose.KeyWarningEvent); !isWarning {
				continue
			}
			// The warning lands moments before Submit starts listening
			// for the answer; retry across that window.
			for {
				if err := session.Confirm(ctx, false); !errors.Is(err, compose.ErrNoConfirmPending) {
					break
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Millisecond):
				}
			}
		}
	}
}
