package cbor

import (
	"github.com/dns-stats/cdns/internal/options"
	"github.com/dns-stats/cdns/internal/pool"
)

// CBOR major type tags (high 3 bits of the initial byte), per RFC 8949 §3.
const (
	majorUnsigned   = 0x00
	majorNegative   = 0x20
	majorByteString = 0x40
	majorTextString = 0x60
	majorArray      = 0x80
	majorMap        = 0xA0
	majorTag        = 0xC0
	majorSimple     = 0xE0
)

const (
	simpleFalse   = 20
	simpleTrue    = 21
	additionalU8  = 24
	additionalU16 = 25
	additionalU32 = 26
	additionalU64 = 27
	indefinite    = 31
	breakCode     = 0xFF
)

// Encoder is a streaming CBOR writer over a pluggable Sink, per spec.md
// §4.1. It buffers internally (≈2KiB) and flushes to the sink whenever a
// write would overflow; writes larger than the buffer are segmented:
// fill, flush, continue. The encoder cannot fail on well-typed input —
// the only error it can report is sink I/O failure.
type Encoder struct {
	sink   Sink
	buf    *pool.ByteBuffer
	pooled bool
}

// NewEncoder returns an Encoder that writes to sink. By default its
// internal buffer comes from the shared encoder pool; WithEncoderBufferSize
// opts out of pooling in favor of a buffer sized for this Encoder alone.
func NewEncoder(sink Sink, opts ...EncoderOption) *Encoder {
	cfg := &encoderConfig{}
	_ = options.Apply(cfg, opts...)

	if cfg.bufferSize > 0 {
		return &Encoder{sink: sink, buf: pool.NewByteBuffer(cfg.bufferSize)}
	}
	return &Encoder{
		sink:   sink,
		buf:    pool.GetEncoderBuffer(),
		pooled: true,
	}
}

// Close releases the encoder's internal buffer, returning it to the pool
// if it came from there. It does not flush; call Flush first if pending
// bytes must reach the sink.
func (e *Encoder) Close() {
	if e.buf != nil {
		if e.pooled {
			pool.PutEncoderBuffer(e.buf)
		}
		e.buf = nil
	}
}

// Flush writes any buffered bytes to the sink.
func (e *Encoder) Flush() error {
	if e.buf.Len() == 0 {
		return nil
	}
	_, err := e.buf.WriteTo(e.sink)
	e.buf.Reset()
	return err
}

// Rotate flushes pending bytes and swaps in a new sink for subsequent
// writes, per spec.md §4.1.
func (e *Encoder) Rotate(newSink Sink) error {
	if err := e.Flush(); err != nil {
		return err
	}
	e.sink = newSink
	return nil
}

// write appends raw bytes to the internal buffer. Bytes that do not fit
// are segmented: the buffer is filled, flushed to the sink, and writing
// continues with the remainder.
func (e *Encoder) write(p []byte) error {
	for len(p) > e.buf.Available() {
		n := e.buf.Available()
		e.buf.MustWrite(p[:n])
		p = p[n:]
		if err := e.Flush(); err != nil {
			return err
		}
	}
	e.buf.MustWrite(p)
	return nil
}

// writeHead writes a major-type head byte plus minimally-encoded length/value.
func (e *Encoder) writeHead(major byte, v uint64) error {
	switch {
	case v <= 23:
		return e.write([]byte{major | byte(v)})
	case v <= 0xff:
		return e.write([]byte{major | additionalU8, byte(v)})
	case v <= 0xffff:
		return e.write([]byte{
			major | additionalU16,
			byte(v >> 8), byte(v),
		})
	case v <= 0xffffffff:
		return e.write([]byte{
			major | additionalU32,
			byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
		})
	default:
		return e.write([]byte{
			major | additionalU64,
			byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
			byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
		})
	}
}

// WriteUnsigned writes an unsigned integer, in the smallest form that fits.
func (e *Encoder) WriteUnsigned(v uint64) error {
	return e.writeHead(majorUnsigned, v)
}

// WriteNegative writes the CBOR negative integer whose value is -1-n.
// n is the unsigned magnitude passed to major type 1, per RFC 8949 §3.1.
func (e *Encoder) WriteNegative(n uint64) error {
	return e.writeHead(majorNegative, n)
}

// WriteInt writes a signed integer, choosing major type 0 or 1 as needed.
func (e *Encoder) WriteInt(v int64) error {
	if v >= 0 {
		return e.WriteUnsigned(uint64(v))
	}
	return e.WriteNegative(uint64(-1 - v))
}

// WriteBool writes a CBOR simple value 20 (false) or 21 (true).
func (e *Encoder) WriteBool(v bool) error {
	if v {
		return e.write([]byte{majorSimple | simpleTrue})
	}
	return e.write([]byte{majorSimple | simpleFalse})
}

// WriteByteString writes a definite-length byte string.
func (e *Encoder) WriteByteString(b []byte) error {
	if err := e.writeHead(majorByteString, uint64(len(b))); err != nil {
		return err
	}
	return e.write(b)
}

// WriteTextString writes a definite-length text string.
func (e *Encoder) WriteTextString(s string) error {
	if err := e.writeHead(majorTextString, uint64(len(s))); err != nil {
		return err
	}
	return e.write([]byte(s))
}

// WriteArrayStart writes a definite-length array head for n elements.
// The caller is responsible for writing exactly n items afterward.
func (e *Encoder) WriteArrayStart(n int) error {
	return e.writeHead(majorArray, uint64(n))
}

// WriteIndefiniteArrayStart writes an indefinite-length array head. The
// caller must terminate the array with WriteBreak.
func (e *Encoder) WriteIndefiniteArrayStart() error {
	return e.write([]byte{majorArray | indefinite})
}

// WriteMapStart writes a definite-length map head for n key/value pairs.
func (e *Encoder) WriteMapStart(n int) error {
	return e.writeHead(majorMap, uint64(n))
}

// WriteIndefiniteMapStart writes an indefinite-length map head. The
// caller must terminate the map with WriteBreak.
func (e *Encoder) WriteIndefiniteMapStart() error {
	return e.write([]byte{majorMap | indefinite})
}

// WriteBreak closes the innermost indefinite-length array or map.
func (e *Encoder) WriteBreak() error {
	return e.write([]byte{breakCode})
}
