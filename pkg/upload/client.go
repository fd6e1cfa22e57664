// Package upload pushes media bytes to a nostr.build-compatible host and
// extracts the hosted URL from the response.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docker/go-units"
)

const (
	// DefaultEndpoint is nostr.build's anonymous upload endpoint.
	DefaultEndpoint = "https://nostr.build/upload.php"

	// formField is the input name the nostr.build upload form expects.
	formField = "fileToUpload"

	defaultTimeout = 90 * time.Second

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

var (
	// ErrInvalidEncoding reports a response body that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("upload: response is not valid UTF-8")

	// ErrURLNotFound reports a decoded response with no hosted URL in it.
	ErrURLNotFound = errors.New("upload: no hosted URL in response")
)

// hostedURL matches the address nostr.build reports back for a stored file:
// the image or audio/video path, the fixed file prefix, a 64-character hash,
// a dot and an extension. The first match in the body wins.
var hostedURL = regexp.MustCompile(`https://nostr\.build/(?:i|av)/nostr\.build_[a-z0-9]{64}\.[a-z0-9]+`)

// TransportError categorizes failures of the exchange itself: connection
// errors, timeouts and non-success status codes, as opposed to a successful
// response whose body could not be decoded or scanned.
type TransportError struct {
	// StatusCode is set when the host answered with a non-success status,
	// zero when the failure happened below HTTP.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upload: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client uploads media to a single configured host.
type Client struct {
	endpoint string
	http     *http.Client
	retries  int
}

type Opt func(*Client)

// WithEndpoint points the client at a different upload endpoint.
func WithEndpoint(endpoint string) Opt {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
func WithHTTPClient(h *http.Client) Opt {
	return func(c *Client) {
		c.http = h
	}
}

// WithRetries enables up to n retries for transport failures, error
// statuses from the host included. Decode and scan failures are never
// retried.
func WithRetries(n int) Opt {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

func NewClient(opts ...Opt) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts the payload as multipart/form-data and returns the hosted URL
// found in the response, verbatim. The file name sent to the host is always
// "file." plus the extension; the original name never leaves the machine.
func (c *Client) Upload(ctx context.Context, mimeType, extension string, data []byte) (string, error) {
	filename := "file." + extension
	body, contentType, err := EncodeForm(formField, filename, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}

	slog.Debug("Uploading media",
		"endpoint", c.endpoint,
		"mime_type", mimeType,
		"size", units.HumanSize(float64(len(data))),
	)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			slog.Debug("Retrying upload", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return "", &TransportError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		url, err := c.post(ctx, body, contentType)
		if err == nil {
			slog.Debug("Upload complete", "url", url)
			return url, nil
		}

		var te *TransportError
		if !errors.As(err, &te) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	slog.Debug("Upload response received", "status", resp.StatusCode, "bytes", len(raw))

	// The host answers errors with a human-readable page and a non-success
	// code. Only a successful response gets its body decoded and scanned.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("host answered %s: %s", resp.Status, bodyExcerpt(raw)),
		}
	}

	if !utf8.Valid(raw) {
		return "", ErrInvalidEncoding
	}

	url := hostedURL.FindString(string(raw))
	if url == "" {
		return "", ErrURLNotFound
	}
	return url, nil
}

func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for ; attempt > 1 && delay < retryMaxDelay; attempt-- {
		delay *= 2
	}
	if delay > retryMaxDelay {
		return retryMaxDelay
	}
	return delay
}

const excerptLen = 160

// bodyExcerpt flattens an error page into a single log-friendly line.
func bodyExcerpt(raw []byte) string {
	s := strings.Join(strings.Fields(strings.ToValidUTF8(string(raw), "")), " ")
	if s == "" {
		return "empty body"
	}
	if len(s) > excerptLen {
		s = strings.ToValidUTF8(s[:excerptLen], "") + "..."
	}
	return s
}
