package compress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dns-stats/cdns/format"
)

// =============================================================================
// PlainSink
// =============================================================================

func TestPlainSink_WriteThenCloseRenamesIntoPlace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.cdns")

	s, err := NewPlainSink(target)
	require.NoError(t, err)

	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)

	require.NoError(t, s.Close())

	_, err = os.Stat(target + ".part")
	assert.True(t, os.IsNotExist(err), "part file should be gone after close")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestPlainSink_WriteAfterCloseFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPlainSink(filepath.Join(dir, "out.cdns"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("x"))
	assert.Error(t, err)
}

func TestPlainSink_Rotate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cdns")
	b := filepath.Join(dir, "b.cdns")

	s, err := NewPlainSink(a)
	require.NoError(t, err)
	_, err = s.Write([]byte("first"))
	require.NoError(t, err)

	require.NoError(t, s.Rotate(b))
	_, err = s.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "first", string(da))

	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "second", string(db))
}

// =============================================================================
// GzipSink
// =============================================================================

func TestGzipSink_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out")

	s, err := NewGzipSink(target)
	require.NoError(t, err)
	_, err = s.Write([]byte("some data to compress"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	f, err := os.Open(target + ".gz")
	require.NoError(t, err)
	defer f.Close()

	r, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 64)
	n, _ := r.Read(buf)
	assert.Equal(t, "some data to compress", string(buf[:n]))
}

// =============================================================================
// BytesWritten and XzSink
// =============================================================================

func TestPlainSink_BytesWritten(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPlainSink(filepath.Join(dir, "out"))
	require.NoError(t, err)

	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.BytesWritten())

	_, err = s.Write([]byte("world!"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), s.BytesWritten())
	require.NoError(t, s.Close())
}

func TestGzipSink_BytesWrittenIsCompressedSize(t *testing.T) {
	dir := t.TempDir()
	s, err := NewGzipSink(filepath.Join(dir, "out"))
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("a"), 4096)
	_, err = s.Write(payload)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Gzip's own Close finalizes the stream through to PlainSink, so by
	// the time Close returns BytesWritten reflects the whole compressed
	// file: much smaller than the highly compressible input, and smaller
	// than len(payload) — the figure a size-based rollover decision needs.
	assert.Less(t, s.BytesWritten(), int64(len(payload)))
	assert.Greater(t, s.BytesWritten(), int64(0))
}

func TestXzSink_ProducesSuffixedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out")

	s, err := NewXzSink(target)
	require.NoError(t, err)
	_, err = s.Write([]byte("xz payload"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(target + ".xz")
	require.NoError(t, err)
}

// =============================================================================
// Factory
// =============================================================================

func TestNewSink_Dispatch(t *testing.T) {
	dir := t.TempDir()

	plain, err := NewSink(format.CompressionNone, filepath.Join(dir, "p"))
	require.NoError(t, err)
	_, ok := plain.(*PlainSink)
	assert.True(t, ok)
	require.NoError(t, plain.Close())

	gz, err := NewSink(format.CompressionGzip, filepath.Join(dir, "g"))
	require.NoError(t, err)
	_, ok = gz.(*GzipSink)
	assert.True(t, ok)
	require.NoError(t, gz.Close())
}
