// Package compose coordinates the composition of a single note: the draft
// buffer, media uploads with placeholder reconciliation, mention detection
// and the private-key gate in front of submission.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plumenet/plume/pkg/media"
	"github.com/plumenet/plume/pkg/nostr"
	"github.com/plumenet/plume/pkg/upload"
)

// UploadingMarker is the placeholder literal dropped into the draft while an
// upload is in flight. Users see it and may move it around.
const UploadingMarker = "[uploading...]"

// State names the coordinator phase a session is in.
type State string

const (
	StateIdle        State = "idle"
	StatePreparing   State = "preparing"
	StateUploading   State = "uploading"
	StateReconciling State = "reconciling"
	StateFailed      State = "failed"
)

var (
	// ErrNoSink reports a submission without a configured sink.
	ErrNoSink = errors.New("compose: no sink configured")

	// ErrUploadPending refuses to submit a draft that still carries an
	// unreconciled placeholder.
	ErrUploadPending = errors.New("compose: upload still in flight")

	// ErrSubmitRejected reports a submission the user declined at the key
	// warning. The draft is untouched.
	ErrSubmitRejected = errors.New("compose: submission rejected")

	// ErrNoConfirmPending reports a Confirm call with no warning waiting.
	ErrNoConfirmPending = errors.New("compose: no confirmation pending")
)

// Uploader is the slice of the upload client a session needs.
type Uploader interface {
	Upload(ctx context.Context, mimeType, extension string, data []byte) (string, error)
}

// FailureReason maps an upload error onto the diagnostic taxonomy. Errors
// from custom uploaders that fit no category count as transport failures.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, upload.ErrInvalidEncoding):
		return ReasonInvalidEncoding
	case errors.Is(err, upload.ErrURLNotFound):
		return ReasonURLNotFound
	default:
		return ReasonTransport
	}
}

// uploadTask identifies one in-flight upload. Pointer identity is the
// staleness token: a task that is no longer s.task mutates nothing.
type uploadTask struct {
	id     string
	cancel context.CancelFunc
}

const defaultEventBuffer = 64

// Session owns one draft and at most one in-flight upload. All buffer
// mutations happen under the session lock; background results carry their
// task identity and stale ones are discarded.
type Session struct {
	id       string
	uploader Uploader
	sink     nostr.Sink
	scanner  func(string) bool
	broker   *Broker
	tracing  *tracingProvider
	timeout  time.Duration

	mu     sync.Mutex
	buffer *Buffer
	state  State
	task   *uploadTask

	confirmCh chan bool
	wg        sync.WaitGroup
}

type Opt func(*Session)

// WithUploader swaps the upload client, mostly for tests and self-hosted
// media endpoints.
func WithUploader(u Uploader) Opt {
	return func(s *Session) {
		s.uploader = u
	}
}

// WithSink sets where finished notes go.
func WithSink(sink nostr.Sink) Opt {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithKeyScanner replaces the private-key gate in front of submission.
// A nil scanner disables the gate.
func WithKeyScanner(scan func(string) bool) Opt {
	return func(s *Session) {
		s.scanner = scan
	}
}

// WithTracer enables spans around upload tasks.
func WithTracer(tracer trace.Tracer) Opt {
	return func(s *Session) {
		s.tracing = newTracingProvider(tracer)
	}
}

// WithUploadTimeout bounds each upload task regardless of the uploader's
// own limits. Zero leaves only the uploader's limits in place.
func WithUploadTimeout(d time.Duration) Opt {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithInitialText seeds the draft, e.g. when replying with quoted content.
func WithInitialText(text string) Opt {
	return func(s *Session) {
		s.buffer.Set(text)
	}
}

func New(opts ...Opt) *Session {
	s := &Session{
		id:        uuid.NewString(),
		uploader:  upload.NewClient(),
		scanner:   LooksLikePrivateKey,
		broker:    NewBroker(defaultEventBuffer),
		tracing:   newTracingProvider(nil),
		buffer:    NewBuffer(""),
		state:     StateIdle,
		confirmCh: make(chan bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the current draft.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.String()
}

// SetText mirrors an edit made in the embedding UI into the draft. The edit
// is the embedder's own and is not echoed back as an event.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Set(text)
}

// MentionQuery reports a pending mention search at the tail of the draft.
func (s *Session) MentionQuery() (string, bool) {
	return MentionQuery(s.Text())
}

// Subscribe opens a named event stream for this session.
func (s *Session) Subscribe(id string) <-chan Event {
	return s.broker.Subscribe(id)
}

func (s *Session) Unsubscribe(id string) {
	s.broker.Unsubscribe(id)
}

// Attach takes a media selection and starts uploading it, dropping the
// placeholder into the draft. A selection already in flight is cancelled
// first; the last selection wins. Failures never surface to the caller,
// only to the event stream and the log.
func (s *Session) Attach(ctx context.Context, sel media.Selection) {
	if sel.MIMEType == "" || sel.Extension == "" {
		slog.Debug("Attachment dropped, metadata incomplete",
			"session_id", s.id,
			"reason", ReasonMissingMetadata,
			"mime_type", sel.MIMEType,
			"extension", sel.Extension,
		)
		s.broker.Publish(UploadFailed("", ReasonMissingMetadata, nil))
		return
	}

	s.mu.Lock()

	if prev := s.task; prev != nil {
		s.task = nil
		prev.cancel()
		s.buffer.RemovePlaceholder(UploadingMarker)
		slog.Debug("Superseding in-flight upload", "session_id", s.id, "task_id", prev.id)
	}

	s.setStateLocked(StatePreparing)

	var taskCtx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	task := &uploadTask{id: uuid.NewString(), cancel: cancel}
	s.task = task

	state := s.buffer.InsertPlaceholder(UploadingMarker)
	s.setStateLocked(StateUploading)
	s.mu.Unlock()

	slog.Debug("Upload task started",
		"session_id", s.id,
		"task_id", task.id,
		"mime_type", sel.MIMEType,
		"size", units.HumanSize(float64(len(sel.Data))),
	)
	s.broker.Publish(BufferChanged(state))
	s.broker.Publish(UploadStarted(task.id, sel.MIMEType, len(sel.Data)))

	s.wg.Add(1)
	go s.runUpload(taskCtx, task, sel)
}

func (s *Session) runUpload(ctx context.Context, task *uploadTask, sel media.Selection) {
	defer s.wg.Done()
	defer task.cancel()

	ctx, span := s.tracing.StartSpan(ctx, "compose.upload", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("task.id", task.id),
		attribute.String("mime_type", sel.MIMEType),
		attribute.Int("size_bytes", len(sel.Data)),
	))
	defer span.End()

	url, err := s.uploader.Upload(ctx, sel.MIMEType, sel.Extension, sel.Data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		s.finishFailure(task, err)
		return
	}

	span.SetStatus(codes.Ok, "uploaded")
	s.finishSuccess(task, url)
}

func (s *Session) finishSuccess(task *uploadTask, url string) {
	s.mu.Lock()
	if s.task != task {
		s.mu.Unlock()
		slog.Debug("Stale upload result discarded", "session_id", s.id, "task_id", task.id, "url", url)
		return
	}

	s.setStateLocked(StateReconciling)
	state := s.buffer.ReplacePlaceholder(UploadingMarker, url)
	s.task = nil
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	slog.Debug("Upload reconciled", "session_id", s.id, "task_id", task.id, "url", url)
	s.broker.Publish(BufferChanged(state))
	s.broker.Publish(UploadSucceeded(task.id, url))
}

func (s *Session) finishFailure(task *uploadTask, err error) {
	reason := FailureReason(err)

	s.mu.Lock()
	if s.task != task {
		s.mu.Unlock()
		slog.Debug("Stale upload failure discarded", "session_id", s.id, "task_id", task.id, "reason", reason)
		return
	}

	s.setStateLocked(StateFailed)
	state := s.buffer.RemovePlaceholder(UploadingMarker)
	s.task = nil
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	slog.Warn("Upload failed", "session_id", s.id, "task_id", task.id, "reason", reason, "error", err)
	s.broker.Publish(BufferChanged(state))
	s.broker.Publish(UploadFailed(task.id, reason, err))
}

// setStateLocked records a transition and publishes it. Callers hold s.mu;
// broker publishes never block, so holding the lock here is safe.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.broker.Publish(StateChanged(prev, next))
}

// Submit runs the key gate and hands the note to the sink. When the gate
// trips, a KeyWarningEvent goes out and Submit blocks until Confirm answers
// it or ctx ends. A rejected submission leaves the draft as it was. The
// sink's verdict passes through uninterpreted.
func (s *Session) Submit(ctx context.Context, kind nostr.Kind, refs []nostr.Reference) error {
	if s.sink == nil {
		return ErrNoSink
	}

	s.mu.Lock()
	content := s.buffer.String()
	pending := s.task != nil
	s.mu.Unlock()

	if pending {
		return ErrUploadPending
	}

	if s.scanner != nil && s.scanner(content) {
		slog.Warn("Draft may contain a private key, awaiting confirmation", "session_id", s.id)
		s.broker.Publish(KeyWarning())

		select {
		case proceed := <-s.confirmCh:
			if !proceed {
				slog.Debug("Submission rejected at key warning", "session_id", s.id)
				return ErrSubmitRejected
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	note := nostr.Note{Content: content, Kind: kind, References: refs}
	if err := s.sink.Submit(ctx, note); err != nil {
		return fmt.Errorf("submit note: %w", err)
	}

	s.mu.Lock()
	s.buffer.Reset()
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	slog.Debug("Note submitted", "session_id", s.id, "kind", kind)
	s.broker.Publish(Submitted(kind, content))
	return nil
}

// Confirm answers a pending key warning. With no Submit waiting on the
// gate it reports ErrNoConfirmPending instead of blocking.
func (s *Session) Confirm(ctx context.Context, proceed bool) error {
	select {
	case s.confirmCh <- proceed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrNoConfirmPending
	}
}

// Close ends the session without submitting. The in-flight upload, if any,
// is detached first so its late result cannot touch the buffer, then
// cancelled. Close waits for the task goroutine before closing the event
// stream.
func (s *Session) Close() {
	s.mu.Lock()
	if task := s.task; task != nil {
		s.task = nil
		task.cancel()
	}
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	s.wg.Wait()
	s.broker.Close()
	slog.Debug("Compose session closed", "session_id", s.id)
}
