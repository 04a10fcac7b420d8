// Package table implements the deduplicating, append-only block tables
// described in spec.md §4.3: a logical value maps to a small dense index,
// equal values share an index, and a CRC32-based hash accelerates lookup
// without ever entering the wire format.
package table

import "hash/crc32"

// Hasher accumulates a rolling CRC32 over a composite key's present fields.
// It mirrors CZ-NIC/c-dns's hash.h, which folds each field's bytes into a
// single CRC32 via chained hardware CRC32 instructions; here the same
// composition is expressed with hash/crc32's table-driven implementation
// since Go has no portable SSE4.2 intrinsic. The hash is purely a lookup
// accelerator: two structurally equal keys always hash equal, but a hash
// collision is resolved by falling back to Equal, never taken as identity.
type Hasher struct {
	crc uint32
}

// NewHasher returns a Hasher ready to accumulate fields.
func NewHasher() Hasher {
	return Hasher{crc: 0}
}

// Uint64 folds a uint64 field into the hash.
func (h Hasher) Uint64(v uint64) Hasher {
	var b [8]byte
	putUint64(b[:], v)
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, b[:])}
}

// Uint32 folds a uint32 field into the hash.
func (h Hasher) Uint32(v uint32) Hasher {
	var b [4]byte
	putUint32(b[:], v)
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, b[:])}
}

// Uint8 folds a single byte field into the hash.
func (h Hasher) Uint8(v uint8) Hasher {
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, []byte{v})}
}

// Bytes folds an arbitrary byte slice (a string, a byte string, opaque
// payload) into the hash.
func (h Hasher) Bytes(v []byte) Hasher {
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, v)}
}

// String folds a text field into the hash.
func (h Hasher) String(v string) Hasher {
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, []byte(v))}
}

// Bool folds a boolean field into the hash.
func (h Hasher) Bool(v bool) Hasher {
	if v {
		return h.Uint8(1)
	}
	return h.Uint8(0)
}

// Absent folds the "field not present" marker into the hash, so that two
// keys differing only in which optional fields are set never collapse to
// the same hash as a key that happens to carry zero values there.
func (h Hasher) Absent() Hasher {
	return Hasher{crc: crc32.Update(h.crc, crc32.IEEETable, []byte{0xff})}
}

// Sum returns the accumulated CRC32.
func (h Hasher) Sum() uint32 {
	return h.crc
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
