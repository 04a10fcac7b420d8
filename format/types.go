// Package format holds the wire-format constants for C-DNS (RFC 8618):
// the integer map keys used by every CBOR map in the file, the StorageHints
// bit positions, and the small value enumerations (query/response type,
// address-event type). These mirror CZ-NIC/c-dns's format_specification.h
// one for one.
package format

// CompressionType identifies which compression sink variant produced (or
// should produce) a file's bytes. It is not itself part of the CBOR wire
// format — the file doesn't self-describe its compression, the caller picks
// it out-of-band, same as the reference implementation's CborOutputCompression.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota // pass-through, no suffix
	CompressionGzip                        // deflate, window bits 31 (gzip header), suffix .gz
	CompressionXz                          // LZMA2 easy-encoder preset 6, CRC64, suffix .xz
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionGzip:
		return "Gzip"
	case CompressionXz:
		return "Xz"
	default:
		return "Unknown"
	}
}

// Suffix returns the filename suffix this compression variant appends, per spec.md §4.2.
func (c CompressionType) Suffix() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionXz:
		return ".xz"
	default:
		return ""
	}
}

// FileTypeID is the literal text string identifying a C-DNS file (spec.md §6).
// The writer always emits it uppercase; the reader matches case-insensitively
// (design note: asymmetry kept intentionally for forward compatibility with
// lowercase producers).
const FileTypeID = "C-DNS"

// Major/minor/private format version implemented by this library (spec.md §6).
const (
	MajorVersion   = 1
	MinorVersion   = 0
	PrivateVersion = 1
)
