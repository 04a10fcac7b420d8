// Package compress implements the pluggable, write-only compression sink
// described in spec.md §4.2: three variants (plain, gzip, xz) sharing one
// interface, each able to rotate its output target without losing state
// across the call, and each reporting codec/I-O failures distinctly.
package compress

import "io"

// Sink is the destination a file.Exporter writes compressed CBOR bytes
// through. It is also a valid cbor.Sink (any io.Writer is), so an Encoder
// can be built directly on top of one.
type Sink interface {
	io.Writer

	// Rotate closes the current target, if any (flushing and finalizing
	// the compressor), then opens target as the new destination. Target
	// is a filesystem path without the variant's suffix; each Sink
	// appends its own suffix (spec.md §4.2, §6).
	Rotate(target string) error

	// Close finalizes the current target: flushes the compressor to
	// end-of-stream and renames the in-progress file into place. Close
	// on an already-closed Sink is a no-op.
	Close() error

	// BytesWritten returns the number of bytes actually written to the
	// current target file since it was opened (by construction or by the
	// last Rotate) — i.e. the compressed size for Gzip/Xz, not the size
	// of the uncompressed bytes fed to Write. This is the figure a
	// file.Exporter reports per block for size-based rollover decisions
	// (spec.md §4.2, §4.5).
	BytesWritten() int64
}
