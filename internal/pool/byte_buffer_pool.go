// Package pool provides reusable byte buffers to keep the CBOR codec's hot
// paths allocation-free across repeated block emission and decode cycles.
package pool

import (
	"io"
	"sync"
)

// Default buffer sizes per spec.md §4.1: the encoder's internal buffer is
// sized around 2KiB, the decoder's read-ahead buffer around 64KiB.
const (
	EncoderBufferDefaultSize  = 1024 * 2   // 2KiB, encoder internal buffer (spec.md §4.1, §5)
	EncoderBufferMaxThreshold = 1024 * 64  // discard pooled encoder buffers grown past this
	DecoderBufferDefaultSize  = 1024 * 64  // 64KiB, decoder read-ahead buffer (spec.md §4.1, §5)
	DecoderBufferMaxThreshold = 1024 * 512 // discard pooled decoder buffers grown past this
)

// ByteBuffer is a growable byte slice wrapper meant to be reused via a pool.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Available returns the number of bytes that can be written without growing the buffer.
func (bb *ByteBuffer) Available() int {
	return cap(bb.B) - len(bb.B)
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
//
// The growth strategy is as follows:
//   - For small buffers, grow by EncoderBufferDefaultSize to minimize reallocations.
//   - For larger buffers, grow by 25% of current capacity to balance memory usage and reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if bb.Available() >= requiredBytes {
		return
	}

	growBy := EncoderBufferDefaultSize
	if cap(bb.B) > 4*EncoderBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w. It does not reset the
// buffer; call Reset afterwards to reuse it.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// It uses sync.Pool internally to manage the buffers. The pool can be
// configured with a maximum size threshold to avoid retaining overly large
// buffers that could lead to memory bloat.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	encoderDefaultPool = NewByteBufferPool(EncoderBufferDefaultSize, EncoderBufferMaxThreshold)
	decoderDefaultPool = NewByteBufferPool(DecoderBufferDefaultSize, DecoderBufferMaxThreshold)
)

// GetEncoderBuffer retrieves a ByteBuffer from the default encoder pool.
func GetEncoderBuffer() *ByteBuffer {
	return encoderDefaultPool.Get()
}

// PutEncoderBuffer returns a ByteBuffer to the default encoder pool.
func PutEncoderBuffer(bb *ByteBuffer) {
	encoderDefaultPool.Put(bb)
}

// GetDecoderBuffer retrieves a ByteBuffer from the default decoder pool.
func GetDecoderBuffer() *ByteBuffer {
	return decoderDefaultPool.Get()
}

// PutDecoderBuffer returns a ByteBuffer to the default decoder pool.
func PutDecoderBuffer(bb *ByteBuffer) {
	decoderDefaultPool.Put(bb)
}
