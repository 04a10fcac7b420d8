// Package block implements the in-memory representation of one C-DNS
// block: its preamble, optional statistics, the nine deduplicating tables,
// and the three per-block item arrays, per spec.md §3-4.4.
package block

import (
	"fmt"

	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
)

// Timestamp is a point in time expressed as whole seconds since the epoch
// plus subsecond ticks, per spec.md §3. Ticks must stay below whatever
// ticks_per_second the owning block's StorageParameters declare; that
// invariant is enforced where a Timestamp is turned into an offset, not
// on construction, since a Timestamp can briefly exist before its block
// parameters are known.
//
// Ported from original_source/src/timestamp.h's Timestamp struct.
type Timestamp struct {
	Secs  uint64
	Ticks uint64
}

// Before reports whether ts happened strictly before other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Secs != other.Secs {
		return ts.Secs < other.Secs
	}
	return ts.Ticks < other.Ticks
}

// BeforeOrEqual reports whether ts happened at or before other.
func (ts Timestamp) BeforeOrEqual(other Timestamp) bool {
	return ts == other || ts.Before(other)
}

// Offset returns ts expressed as an unsigned tick count relative to
// reference, using ticksPerSecond to combine seconds and ticks into one
// scale. reference must be BeforeOrEqual to ts.
func (ts Timestamp) Offset(reference Timestamp, ticksPerSecond uint64) (uint64, error) {
	if ticksPerSecond == 0 {
		return 0, errs.ErrZeroTicksPerSecond
	}
	if ts.Ticks >= ticksPerSecond || reference.Ticks >= ticksPerSecond {
		return 0, errs.ErrTicksOverflow
	}
	refAbs := reference.Secs*ticksPerSecond + reference.Ticks
	tsAbs := ts.Secs*ticksPerSecond + ts.Ticks
	if tsAbs < refAbs {
		return 0, fmt.Errorf("timestamp before reference: %w", errs.ErrOutOfRange)
	}
	return tsAbs - refAbs, nil
}

// Add reconstructs an absolute Timestamp from a reference and a relative
// tick offset, the inverse of Offset, used when rehydrating a record on
// read.
func Add(reference Timestamp, offset uint64, ticksPerSecond uint64) (Timestamp, error) {
	if ticksPerSecond == 0 {
		return Timestamp{}, errs.ErrZeroTicksPerSecond
	}
	refAbs := reference.Secs*ticksPerSecond + reference.Ticks
	abs := refAbs + offset
	return Timestamp{
		Secs:  abs / ticksPerSecond,
		Ticks: abs % ticksPerSecond,
	}, nil
}

// write emits ts as the 2-element wire array [secs, ticks] used by the
// block preamble's earliest_time field (spec.md §6).
func (ts Timestamp) write(enc *cbor.Encoder) error {
	if err := enc.WriteArrayStart(2); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(ts.Secs); err != nil {
		return err
	}
	return enc.WriteUnsigned(ts.Ticks)
}

// readTimestamp reads the 2-element wire array form.
func readTimestamp(dec *cbor.Decoder) (Timestamp, error) {
	n, indef, err := dec.ReadArrayStart()
	if err != nil {
		return Timestamp{}, err
	}
	if indef || n != 2 {
		return Timestamp{}, fmt.Errorf("timestamp array must have exactly 2 elements: %w", errs.ErrDecode)
	}
	secs, err := dec.ReadUnsigned()
	if err != nil {
		return Timestamp{}, err
	}
	ticks, err := dec.ReadUnsigned()
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Secs: secs, Ticks: ticks}, nil
}
