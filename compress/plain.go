package compress

import (
	"fmt"
	"os"

	"github.com/dns-stats/cdns/errs"
)

// PlainSink passes bytes straight through to a filesystem path, with no
// compression. It is also the delegate every other Sink variant writes
// its compressed bytes into: the ".part" + atomic-rename contract lives
// here exactly once.
//
// Grounded on the teacher's NoOpCompressor (compress/noop.go in the
// original repo): that type's Compress/Decompress methods were a
// whole-buffer pass-through; PlainSink is the same pass-through policy
// re-expressed as a streaming Sink with rotation and atomic output.
type PlainSink struct {
	target   string
	partPath string
	f        *os.File
	written  int64
}

var _ Sink = (*PlainSink)(nil)

// NewPlainSink returns a PlainSink. If target is non-empty it is opened
// immediately; an empty target leaves the sink closed until Rotate is
// called.
func NewPlainSink(target string) (*PlainSink, error) {
	s := &PlainSink{}
	if target == "" {
		return s, nil
	}
	if err := s.Rotate(target); err != nil {
		return nil, err
	}
	return s, nil
}

// Write implements Sink.
func (s *PlainSink) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, fmt.Errorf("plain sink: %w", errs.ErrSinkClosed)
	}
	n, err := s.f.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("plain sink write: %w", err)
	}
	if n < len(p) {
		return n, fmt.Errorf("plain sink wrote %d of %d bytes: %w", n, len(p), errs.ErrShortWrite)
	}
	return n, nil
}

// BytesWritten implements Sink.
func (s *PlainSink) BytesWritten() int64 { return s.written }

// Rotate implements Sink.
func (s *PlainSink) Rotate(target string) error {
	if err := s.closeCurrent(); err != nil {
		return err
	}
	return s.open(target)
}

// Close implements Sink.
func (s *PlainSink) Close() error {
	return s.closeCurrent()
}

func (s *PlainSink) open(target string) error {
	partPath := target + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", partPath, errs.ErrOpenTarget)
	}
	s.f = f
	s.target = target
	s.partPath = partPath
	s.written = 0
	return nil
}

func (s *PlainSink) closeCurrent() error {
	if s.f == nil {
		return nil
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.partPath, err)
	}
	if err := os.Rename(s.partPath, s.target); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", s.partPath, s.target, err)
	}
	s.f = nil
	return nil
}
