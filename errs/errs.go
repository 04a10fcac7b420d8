// Package errs defines the sentinel errors returned across the cdns module.
//
// Callers should match against these with errors.Is; call sites wrap them
// with fmt.Errorf("...: %w", errs.ErrX) to attach context (an index value, a
// map key, a byte offset) without losing the sentinel for comparison.
package errs

import "errors"

// Invalid input errors (caller bugs, spec.md §7.1): surfaced immediately,
// distinct from I/O and decode faults.
var (
	// ErrOutOfRange is returned by BlockTable.Get when the index is not in range.
	ErrOutOfRange = errors.New("cdns: index out of range")
	// ErrParamsNotSet is returned when appending to a block whose BlockParameters haven't been set.
	ErrParamsNotSet = errors.New("cdns: block parameters not set")
	// ErrBlockNotEmpty is returned when changing block parameters on a non-empty block.
	ErrBlockNotEmpty = errors.New("cdns: block is not empty")
	// ErrNoBlockParameters is returned when a FilePreamble is constructed with zero BlockParameters.
	ErrNoBlockParameters = errors.New("cdns: file preamble requires at least one block parameters entry")
	// ErrZeroTicksPerSecond is returned when StorageParameters.TicksPerSecond is zero.
	ErrZeroTicksPerSecond = errors.New("cdns: ticks_per_second must be greater than zero")
	// ErrTicksOverflow is returned when a Timestamp's ticks value is not smaller than ticks_per_second.
	ErrTicksOverflow = errors.New("cdns: ticks must be smaller than ticks_per_second")
)

// Decoder faults (spec.md §7.2): well-formed CBOR with unexpected structure,
// or ill-formed CBOR. Each carries a human-readable message via fmt.Errorf wrapping.
var (
	// ErrEndOfInput signals well-formed exhaustion of the input (e.g. end of the blocks array).
	ErrEndOfInput = errors.New("cdns: end of input")
	// ErrDecode signals ill-formed CBOR: wrong major type, unsupported additional info, unexpected break, etc.
	ErrDecode = errors.New("cdns: malformed cbor")
	// ErrMissingKey signals a mandatory map key was absent on decode.
	ErrMissingKey = errors.New("cdns: missing mandatory key")
	// ErrBadMagic signals the file type marker did not case-insensitively match "C-DNS".
	ErrBadMagic = errors.New("cdns: bad file type marker")
	// ErrBlockParamsIndex signals a block preamble's block_parameters_index is out of range.
	ErrBlockParamsIndex = errors.New("cdns: block_parameters_index out of range")
)

// I/O and codec faults (spec.md §7.3): propagated with their origin distinguishable.
var (
	// ErrShortWrite is returned by a compression sink when the underlying target accepts fewer bytes than given.
	ErrShortWrite = errors.New("cdns: short write")
	// ErrCodec wraps a failure reported by the underlying compression codec (gzip/xz).
	ErrCodec = errors.New("cdns: compression codec error")
	// ErrSinkClosed is returned when writing to a sink that has been closed (Rotate reopens one), and when writing to or rotating an Exporter after Close.
	ErrSinkClosed = errors.New("cdns: sink is closed")
	// ErrOpenTarget is returned when a sink fails to open its output target.
	ErrOpenTarget = errors.New("cdns: failed to open output target")
)
