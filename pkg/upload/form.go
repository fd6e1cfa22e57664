package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// EncodeForm renders a single-file multipart/form-data body and returns it
// together with the Content-Type header value carrying the boundary token.
// The boundary is freshly generated for every call.
//
// Field name and file name are written into the part header verbatim, without
// escaping or validation. Callers control both values and keep them free of
// quotes and CR/LF. The payload is written as-is too: nothing scans it for
// boundary collisions, the random token is the only protection.
func EncodeForm(field, filename, mimeType string, data []byte) ([]byte, string, error) {
	return encodeForm("", field, filename, mimeType, data)
}

// encodeForm is the deterministic core behind EncodeForm. A non-empty
// boundary overrides the generated one, which lets tests pin the exact
// output bytes.
func encodeForm(boundary, field, filename, mimeType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			return nil, "", fmt.Errorf("set boundary: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
