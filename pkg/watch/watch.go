// Package watch turns a drop directory into a feed of media selections.
// Files copied into the directory are picked up once they stop changing
// and handed to the embedder, typically to attach to a compose session.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/plumenet/plume/pkg/media"
)

const defaultSettleDelay = 500 * time.Millisecond

// Watcher watches one directory and emits a selection per dropped file.
// Selections are emitted as-is; incomplete metadata is the consumer's
// call to drop or report.
type Watcher struct {
	dir    string
	settle time.Duration
	load   func(path string) (media.Selection, error)
	out    chan media.Selection

	mu       sync.Mutex
	timers   map[string]*time.Timer
	fw       *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

type Opt func(*Watcher)

// WithSettleDelay sets how long a file must stay quiet before it is read.
// Copies are not atomic; reading too early truncates the payload.
func WithSettleDelay(d time.Duration) Opt {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithLoader replaces how dropped paths become selections.
func WithLoader(load func(path string) (media.Selection, error)) Opt {
	return func(w *Watcher) {
		w.load = load
	}
}

func New(dir string, opts ...Opt) *Watcher {
	w := &Watcher{
		dir:    filepath.Clean(dir),
		settle: defaultSettleDelay,
		load:   media.FromFile,
		out:    make(chan media.Selection, 8),
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Selections is the stream of dropped files. The channel is never closed;
// consumers select against their own context.
func (w *Watcher) Selections() <-chan media.Selection {
	return w.out
}

// Start begins watching. Calling Start on a running watcher is a no-op.
// When ctx ends the watcher stops itself.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fw != nil {
		w.mu.Unlock()
		return nil
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		w.mu.Unlock()
		return fmt.Errorf("watch dir: %s is not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}
	w.fw = fw
	w.mu.Unlock()

	slog.Debug("Watching drop directory", "dir", w.dir, "settle", w.settle)

	go w.loop(fw)
	if ctx != nil {
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
	}
	return nil
}

// Stop ends the watch. Pending settle timers are cancelled.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		for path, timer := range w.timers {
			timer.Stop()
			delete(w.timers, path)
		}
		if w.fw != nil {
			_ = w.fw.Close()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) loop(fw *fsnotify.Watcher) {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Warn("Drop directory watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	if name == "" || strings.HasPrefix(name, ".") {
		return
	}
	w.scheduleRead(filepath.Clean(event.Name))
}

// scheduleRead arms (or re-arms) the settle timer for one path. Each write
// pushes the read further out, so a slow copy is read exactly once.
func (w *Watcher) scheduleRead(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.emit(path)
	})
}

func (w *Watcher) emit(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	sel, err := w.load(path)
	if err != nil {
		slog.Warn("Dropped file could not be read", "path", path, "error", err)
		return
	}

	select {
	case w.out <- sel:
		slog.Debug("Dropped file picked up", "path", path, "mime_type", sel.MIMEType)
	case <-w.stopCh:
	}
}
