// Package media turns picked files into upload-ready selections carrying
// bytes, MIME type and extension.
package media

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Selection is what a media picker hands to a compose session.
type Selection struct {
	Name      string // display name, never sent to the host
	Data      []byte
	MIMEType  string
	Extension string // without the dot
}

// Complete reports whether the selection carries the metadata an upload
// needs. Incomplete selections are dropped silently by the session.
func (s Selection) Complete() bool {
	return s.MIMEType != "" && s.Extension != ""
}

var mimeByExt = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
}

var extByMIME = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"image/avif":      "avif",
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
	"video/webm":      "webm",
	"audio/mpeg":      "mp3",
	"audio/mp4":       "m4a",
	"audio/ogg":       "ogg",
	"audio/wav":       "wav",
}

// MIMEFor returns the MIME type conventionally tied to an extension.
func MIMEFor(ext string) (string, bool) {
	m, ok := mimeByExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return m, ok
}

// ExtensionFor returns the preferred extension for a MIME type.
func ExtensionFor(mimeType string) (string, bool) {
	e, ok := extByMIME[strings.ToLower(mimeType)]
	return e, ok
}

// FromFile reads path into a selection. The extension decides the MIME type
// when it is a known media extension; otherwise the content is sniffed, and
// for extensionless paths the sniffed type fills the extension back in.
// Files that resolve to neither come back incomplete, not as an error.
func FromFile(path string) (Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("read %s: %w", path, err)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	mimeType := ""
	if ext != "" {
		mimeType, _ = MIMEFor(ext)
	}
	if mimeType == "" {
		mimeType = sniff(data)
	}
	if ext == "" {
		ext, _ = ExtensionFor(mimeType)
	}

	return Selection{
		Name:      filepath.Base(path),
		Data:      data,
		MIMEType:  mimeType,
		Extension: ext,
	}, nil
}

// sniff detects the content type from the payload, without parameters and
// without the octet-stream fallback, which says nothing useful here.
func sniff(data []byte) string {
	m := http.DetectContentType(data)
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "application/octet-stream" {
		return ""
	}
	return m
}
