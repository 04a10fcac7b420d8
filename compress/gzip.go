package compress

import (
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
)

// GzipSink compresses with deflate and a gzip header, per spec.md §4.2
// ("window bits 31" — zlib's convention for "15-bit window, gzip framing"
// is exactly what gzip.Writer already produces, so no extra configuration
// is needed beyond picking this writer over a raw flate/zlib one).
// Suffix is ".gz".
type GzipSink struct {
	plain       *PlainSink
	gz          *gzip.Writer
	lastWritten int64 // plain's BytesWritten, cached across Close (which nils plain)
}

var _ Sink = (*GzipSink)(nil)

// NewGzipSink returns a GzipSink, opening target immediately if non-empty.
func NewGzipSink(target string) (*GzipSink, error) {
	s := &GzipSink{}
	if target == "" {
		return s, nil
	}
	if err := s.Rotate(target); err != nil {
		return nil, err
	}
	return s, nil
}

// Write implements Sink.
func (s *GzipSink) Write(p []byte) (int, error) {
	if s.gz == nil {
		return 0, fmt.Errorf("gzip sink: %w", errs.ErrSinkClosed)
	}
	n, err := s.gz.Write(p)
	if err != nil {
		return n, fmt.Errorf("gzip sink write: %w", errs.ErrCodec)
	}
	return n, nil
}

// Rotate implements Sink: closes and finalizes the current gzip stream
// (if any), then opens a fresh one against target, resetting compressor
// state as spec.md §4.2 requires.
func (s *GzipSink) Rotate(target string) error {
	if err := s.closeCurrent(); err != nil {
		return err
	}
	plain, err := NewPlainSink(target + format.CompressionGzip.Suffix())
	if err != nil {
		return err
	}
	s.plain = plain
	s.gz = gzip.NewWriter(plain)
	return nil
}

// Close implements Sink: flushes the deflate stream to end-of-stream
// before finalizing the underlying plain sink.
func (s *GzipSink) Close() error {
	return s.closeCurrent()
}

// BytesWritten implements Sink, reporting compressed bytes: the deflate
// stream buffers internally, so this reflects what s.plain has actually
// had flushed to it so far, not what has been handed to Write. After
// Close, it keeps reporting the final total rather than resetting to 0.
func (s *GzipSink) BytesWritten() int64 {
	if s.plain == nil {
		return s.lastWritten
	}
	return s.plain.BytesWritten()
}

func (s *GzipSink) closeCurrent() error {
	if s.gz == nil {
		return nil
	}
	if err := s.gz.Close(); err != nil {
		return fmt.Errorf("finalizing gzip stream: %w", errs.ErrCodec)
	}
	s.lastWritten = s.plain.BytesWritten()
	if err := s.plain.Close(); err != nil {
		return err
	}
	s.gz = nil
	s.plain = nil
	return nil
}
