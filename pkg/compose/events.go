package compose

import "github.com/plumenet/plume/pkg/nostr"

// Diagnostic failure reasons, one per way an attachment can go wrong.
const (
	ReasonInvalidEncoding = "invalid-encoding"
	ReasonURLNotFound     = "url-not-found"
	ReasonTransport       = "transport-failure"
	ReasonMissingMetadata = "missing-metadata"
)

// Event is a notification from a compose session to its subscribers.
type Event interface {
	isEvent()
}

// StateChangedEvent reports a session state transition.
type StateChangedEvent struct {
	From State
	To   State
}

// BufferChangedEvent carries the draft text after a session-driven mutation.
// Edits made through SetText are the embedder's own and are not echoed.
type BufferChangedEvent struct {
	Value string
}

// UploadStartedEvent reports a new upload task.
type UploadStartedEvent struct {
	TaskID   string
	MIMEType string
	Size     int
}

// UploadSucceededEvent reports the hosted URL now woven into the draft.
type UploadSucceededEvent struct {
	TaskID string
	URL    string
}

// UploadFailedEvent reports a failed or rejected attachment. TaskID is empty
// when the selection never became a task. Err is nil for metadata rejects.
type UploadFailedEvent struct {
	TaskID string
	Reason string
	Err    error
}

// KeyWarningEvent asks the embedder to confirm a submission that appears to
// contain a private key. Answer through Session.Confirm.
type KeyWarningEvent struct{}

// SubmittedEvent reports a note handed to the sink.
type SubmittedEvent struct {
	Kind    nostr.Kind
	Content string
}

func (*StateChangedEvent) isEvent()    {}
func (*BufferChangedEvent) isEvent()   {}
func (*UploadStartedEvent) isEvent()   {}
func (*UploadSucceededEvent) isEvent() {}
func (*UploadFailedEvent) isEvent()    {}
func (*KeyWarningEvent) isEvent()      {}
func (*SubmittedEvent) isEvent()       {}

func StateChanged(from, to State) Event {
	return &StateChangedEvent{From: from, To: to}
}

func BufferChanged(value string) Event {
	return &BufferChangedEvent{Value: value}
}

func UploadStarted(taskID, mimeType string, size int) Event {
	return &UploadStartedEvent{TaskID: taskID, MIMEType: mimeType, Size: size}
}

func UploadSucceeded(taskID, url string) Event {
	return &UploadSucceededEvent{TaskID: taskID, URL: url}
}

func UploadFailed(taskID, reason string, err error) Event {
	return &UploadFailedEvent{TaskID: taskID, Reason: reason, Err: err}
}

func KeyWarning() Event {
	return &KeyWarningEvent{}
}

func Submitted(kind nostr.Kind, content string) Event {
	return &SubmittedEvent{Kind: kind, Content: content}
}
