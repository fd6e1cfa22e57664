package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFromFile_KnownExtension(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "shot.PNG", pngMagic)

	sel, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "shot.PNG", sel.Name)
	assert.Equal(t, pngMagic, sel.Data)
	assert.Equal(t, "image/png", sel.MIMEType)
	assert.Equal(t, "png", sel.Extension)
	assert.True(t, sel.Complete())
}

func TestFromFile_SniffsExtensionlessContent(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "clipboard-paste", pngMagic)

	sel, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "image/png", sel.MIMEType)
	assert.Equal(t, "png", sel.Extension, "sniffed type fills the extension back in")
	assert.True(t, sel.Complete())
}

func TestFromFile_UnknownContentIsIncomplete(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "mystery", []byte{0x00, 0x01, 0x02, 0x03})

	sel, err := FromFile(path)
	require.NoError(t, err, "unknown content is not an error, just incomplete")
	assert.False(t, sel.Complete())
}

func TestFromFile_UnknownExtensionFallsBackToSniffing(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "shot.xyz", pngMagic)

	sel, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "image/png", sel.MIMEType)
	assert.Equal(t, "xyz", sel.Extension, "the user's extension travels as-is")
	assert.True(t, sel.Complete())
}

func TestFromFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := FromFile(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}

func TestMIMEFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
		ok   bool
	}{
		{ext: "png", want: "image/png", ok: true},
		{ext: ".JPG", want: "image/jpeg", ok: true},
		{ext: "mov", want: "video/quicktime", ok: true},
		{ext: "exe", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got, ok := MIMEFor(tt.ext)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	got, ok := ExtensionFor("image/jpeg")
	require.True(t, ok)
	assert.Equal(t, "jpg", got, "jpeg has one preferred extension")

	_, ok = ExtensionFor("application/x-tar")
	assert.False(t, ok)
}
