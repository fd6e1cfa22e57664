package upload

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestEncodeForm_FixedBoundary(t *testing.T) {
	t.Parallel()

	body, contentType, err := encodeForm("plume-test-boundary", "fileToUpload", "file.png", "image/png", []byte("PAYLOAD-BYTES"))
	require.NoError(t, err)

	assert.Equal(t, "multipart/form-data; boundary=plume-test-boundary", contentType)
	golden.Assert(t, string(body), "form_single_part.golden")
}

func TestEncodeForm_Structure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "text payload", payload: []byte("hello world")},
		{name: "binary payload", payload: []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff, '\r', '\n', 0x1a}},
		{name: "empty payload", payload: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, contentType, err := EncodeForm("fileToUpload", "file.bin", "application/octet-stream", tt.payload)
			require.NoError(t, err)

			mediaType, params, err := mime.ParseMediaType(contentType)
			require.NoError(t, err)
			require.Equal(t, "multipart/form-data", mediaType)
			boundary := params["boundary"]
			require.NotEmpty(t, boundary)

			assert.True(t, bytes.HasPrefix(body, []byte("--"+boundary+"\r\n")), "body must open with the dashed boundary line")
			assert.True(t, bytes.HasSuffix(body, []byte("\r\n--"+boundary+"--\r\n")), "body must close with the double-dashed boundary line")
			assert.Contains(t, string(body), "Content-Disposition: form-data; name=\"fileToUpload\"; filename=\"file.bin\"\r\n")
			assert.Contains(t, string(body), "Content-Type: application/octet-stream\r\n")
			if len(tt.payload) > 0 {
				assert.True(t, bytes.Contains(body, tt.payload), "payload bytes must appear verbatim")
			}
		})
	}
}

func TestEncodeForm_RoundTripsThroughReader(t *testing.T) {
	t.Parallel()

	payload := []byte{0xde, 0xad, 0xbe, 0xef, '\n', 0x00}
	body, contentType, err := EncodeForm("fileToUpload", "file.mov", "video/quicktime", payload)
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := reader.NextPart()
	require.NoError(t, err)

	assert.Equal(t, "fileToUpload", part.FormName())
	assert.Equal(t, "file.mov", part.FileName())
	assert.Equal(t, "video/quicktime", part.Header.Get("Content-Type"))

	got, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = reader.NextPart()
	assert.Equal(t, io.EOF, err, "form must contain exactly one part")
}

func TestEncodeForm_NamesWrittenVerbatim(t *testing.T) {
	t.Parallel()

	body, _, err := encodeForm("plume-test-boundary", "odd field", "sp aced.png", "image/png", []byte("x"))
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `name="odd field"; filename="sp aced.png"`),
		"names are inserted without escaping")
}
