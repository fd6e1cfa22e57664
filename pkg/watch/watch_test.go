package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenet/plume/pkg/media"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()

	w := New(dir, WithSettleDelay(50*time.Millisecond))
	require.NoError(t, w.Start(testContext(t)))
	t.Cleanup(w.Stop)
	return w
}

func receiveSelection(t *testing.T, w *Watcher) media.Selection {
	t.Helper()

	select {
	case sel := <-w.Selections():
		return sel
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for a selection")
		return media.Selection{}
	}
}

func expectQuiet(t *testing.T, w *Watcher) {
	t.Helper()

	select {
	case sel := <-w.Selections():
		t.Fatalf("unexpected selection for %q", sel.Name)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDeliversDroppedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), pngMagic, 0o644))

	sel := receiveSelection(t, w)
	assert.Equal(t, "shot.png", sel.Name)
	assert.Equal(t, "image/png", sel.MIMEType)
	assert.Equal(t, "png", sel.Extension)
	assert.Equal(t, pngMagic, sel.Data)
}

func TestWatcherCoalescesWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "clip.mp4")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("chunk-one-"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = f.Write([]byte("chunk-two"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sel := receiveSelection(t, w)
	assert.Equal(t, []byte("chunk-one-chunk-two"), sel.Data, "the settled file is read whole")

	expectQuiet(t, w)
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial.png"), pngMagic, 0o644))

	expectQuiet(t, w)
}

func TestWatcherIgnoresSubdirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	expectQuiet(t, w)
}

func TestWatcherForwardsIncompleteSelections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	// Unknown extension and unsniffable content: no MIME type, but the
	// consumer decides what to do with it, not the watcher.
	blob := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.xyz"), blob, 0o644))

	sel := receiveSelection(t, w)
	assert.Equal(t, "blob.xyz", sel.Name)
	assert.False(t, sel.Complete())
}

func TestWatcherStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := New(dir, WithSettleDelay(50*time.Millisecond))
	require.NoError(t, w.Start(testContext(t)))

	w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.png"), pngMagic, 0o644))
	expectQuiet(t, w)
}

func TestWatcherStartTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, w.Start(testContext(t)), "starting a running watcher is a no-op")
}

func TestWatcherMissingDir(t *testing.T) {
	t.Parallel()

	w := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, w.Start(testContext(t)))
}

func TestWatcherLoaderErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := New(dir,
		WithSettleDelay(50*time.Millisecond),
		WithLoader(func(string) (media.Selection, error) {
			return media.Selection{}, os.ErrPermission
		}),
	)
	require.NoError(t, w.Start(testContext(t)))
	t.Cleanup(w.Stop)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), pngMagic, 0o644))

	expectQuiet(t, w)
}
