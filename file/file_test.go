package file

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dns-stats/cdns/block"
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/compress"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
	"github.com/stretchr/testify/require"
)

func testParams() block.BlockParameters {
	return block.BlockParameters{
		Storage: block.StorageParameters{
			TicksPerSecond: 1000,
			MaxBlockItems:  1000,
			Hints: block.StorageHints{
				QueryResponseHints: ^uint32(0),
				OtherDataHints:     format.OtherDataHintMalformedMessages | format.OtherDataHintAddressEventCounts,
			},
		},
	}
}

func TestExporterReader_MinimalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out")

	sink, err := compress.NewSink(format.CompressionNone, target)
	require.NoError(t, err)

	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)

	ex, err := NewExporter(sink, preamble)
	require.NoError(t, err)

	b := block.New(&preamble.BlockParameters[0], 0)
	require.NoError(t, b.AppendQueryResponse(block.QueryResponseAppend{Timestamp: block.Timestamp{Secs: 100}}))

	n, err := ex.WriteBlock(b)
	require.NoError(t, err)
	require.Greater(t, n, int64(0))
	require.NoError(t, ex.Close())

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()

	r, err := NewReader(f)
	require.NoError(t, err)
	require.Equal(t, uint64(format.MajorVersion), r.Preamble().MajorVersion)
	require.Len(t, r.Preamble().BlockParameters, 1)

	got, err := r.ReadBlock()
	require.NoError(t, err)
	require.Len(t, got.QueryResponses(), 1)

	_, err = r.ReadBlock()
	require.ErrorIs(t, err, errs.ErrEndOfInput)
}

func TestExporterReader_MultipleBlocks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "multi")

	sink, err := compress.NewSink(format.CompressionNone, target)
	require.NoError(t, err)
	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)
	ex, err := NewExporter(sink, preamble)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b := block.New(&preamble.BlockParameters[0], 0)
		require.NoError(t, b.AppendQueryResponse(block.QueryResponseAppend{Timestamp: block.Timestamp{Secs: uint64(i)}}))
		_, err := ex.WriteBlock(b)
		require.NoError(t, err)
	}
	require.NoError(t, ex.Close())

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	r, err := NewReader(f)
	require.NoError(t, err)

	count := 0
	for {
		_, err := r.ReadBlock()
		if err != nil {
			require.ErrorIs(t, err, errs.ErrEndOfInput)
			break
		}
		count++
	}
	require.Equal(t, 3, count)
}

func TestExporter_RotateStartsNewFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")

	sink, err := compress.NewSink(format.CompressionNone, first)
	require.NoError(t, err)
	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)
	ex, err := NewExporter(sink, preamble)
	require.NoError(t, err)

	b1 := block.New(&preamble.BlockParameters[0], 0)
	require.NoError(t, b1.AppendQueryResponse(block.QueryResponseAppend{Timestamp: block.Timestamp{Secs: 1}}))
	_, err = ex.WriteBlock(b1)
	require.NoError(t, err)

	require.NoError(t, ex.Rotate(second))

	b2 := block.New(&preamble.BlockParameters[0], 0)
	require.NoError(t, b2.AppendQueryResponse(block.QueryResponseAppend{Timestamp: block.Timestamp{Secs: 2}}))
	_, err = ex.WriteBlock(b2)
	require.NoError(t, err)
	require.NoError(t, ex.Close())

	for _, target := range []string{first, second} {
		f, err := os.Open(target)
		require.NoError(t, err)
		r, err := NewReader(f)
		require.NoError(t, err)
		_, err = r.ReadBlock()
		require.NoError(t, err)
		_, err = r.ReadBlock()
		require.ErrorIs(t, err, errs.ErrEndOfInput)
		f.Close()
	}
}

func TestExporter_WriteAfterCloseFails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "closed")
	sink, err := compress.NewSink(format.CompressionNone, target)
	require.NoError(t, err)
	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)
	ex, err := NewExporter(sink, preamble)
	require.NoError(t, err)
	require.NoError(t, ex.Close())

	b := block.New(&preamble.BlockParameters[0], 0)
	_, err = ex.WriteBlock(b)
	require.ErrorIs(t, err, errs.ErrSinkClosed)
}

func TestNewPreamble_RejectsEmptyParams(t *testing.T) {
	_, err := NewPreamble(nil)
	require.ErrorIs(t, err, errs.ErrNoBlockParameters)
}

func TestExporter_BytesWrittenMatchesCompressedFileSizeAfterClose(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out")

	sink, err := compress.NewSink(format.CompressionGzip, target)
	require.NoError(t, err)
	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)
	ex, err := NewExporter(sink, preamble)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		b := block.New(&preamble.BlockParameters[0], 0)
		require.NoError(t, b.AppendQueryResponse(block.QueryResponseAppend{
			Timestamp: block.Timestamp{Secs: uint64(i)},
			QueryName: []byte("www.example.com"),
		}))
		before := ex.BytesWritten()
		n, err := ex.WriteBlock(b)
		require.NoError(t, err)
		// Reported per-block bytes are real sink output, not the
		// uncompressed CBOR fed to the encoder. gzip buffers its deflate
		// stream, so a block may report 0 until the compressor emits.
		require.Equal(t, ex.BytesWritten()-before, n)
	}
	require.NoError(t, ex.Close())

	info, err := os.Stat(target + format.CompressionGzip.Suffix())
	require.NoError(t, err)
	require.Equal(t, info.Size(), ex.BytesWritten())
}

func TestExporterReader_WithBufferSizeOptions(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "opts")

	sink, err := compress.NewSink(format.CompressionNone, target)
	require.NoError(t, err)
	preamble, err := NewPreamble([]block.BlockParameters{testParams()})
	require.NoError(t, err)

	ex, err := NewExporter(sink, preamble, WithEncoderBufferSize(8))
	require.NoError(t, err)

	b := block.New(&preamble.BlockParameters[0], 0)
	require.NoError(t, b.AppendQueryResponse(block.QueryResponseAppend{
		Timestamp: block.Timestamp{Secs: 1},
		QueryName: []byte("www.example.com"),
	}))
	_, err = ex.WriteBlock(b)
	require.NoError(t, err)
	require.NoError(t, ex.Close())

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()

	r, err := NewReader(f, WithDecoderBufferSize(16))
	require.NoError(t, err)
	got, err := r.ReadBlock()
	require.NoError(t, err)
	require.Len(t, got.QueryResponses(), 1)
}

func TestReader_RejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	require.NoError(t, enc.WriteArrayStart(3))
	require.NoError(t, enc.WriteTextString("X-DNS"))
	require.NoError(t, enc.WriteMapStart(0))
	require.NoError(t, enc.WriteIndefiniteArrayStart())
	require.NoError(t, enc.WriteBreak())
	require.NoError(t, enc.Flush())

	_, err := NewReader(&buf)
	require.ErrorIs(t, err, errs.ErrBadMagic)
}
