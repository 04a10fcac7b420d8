package cbor

import (
	"bufio"
	"errors"
	"io"

	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/internal/options"
	"github.com/dns-stats/cdns/internal/pool"
)

// Decoder is a streaming CBOR reader over a pluggable Source, behind a
// bounded (≈64KiB) read-ahead buffer, per spec.md §4.1.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from src. WithDecoderBufferSize
// overrides the default (≈64KiB) read-ahead buffer size.
func NewDecoder(src Source, opts ...DecoderOption) *Decoder {
	cfg := &decoderConfig{bufferSize: pool.DecoderBufferDefaultSize}
	_ = options.Apply(cfg, opts...)
	return &Decoder{r: bufio.NewReaderSize(src, cfg.bufferSize)}
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, eofToEndOfInput(err)
	}
	return b, nil
}

func eofToEndOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return errs.ErrEndOfInput
	}
	return err
}

// PeekType reports the major type of the next item without consuming
// input. The break code (0xFF) is reported as TypeBreak, a logical type
// of its own.
func (d *Decoder) PeekType() (Type, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		return 0, eofToEndOfInput(err)
	}
	if b[0] == breakCode {
		return TypeBreak, nil
	}
	switch b[0] & 0xE0 {
	case majorUnsigned:
		return TypeUnsigned, nil
	case majorNegative:
		return TypeNegative, nil
	case majorByteString:
		return TypeByteString, nil
	case majorTextString:
		return TypeTextString, nil
	case majorArray:
		return TypeArray, nil
	case majorMap:
		return TypeMap, nil
	case majorTag:
		return TypeTag, nil
	case majorSimple:
		return TypeSimple, nil
	default:
		return 0, decodeErrorf("unrecognized major type byte 0x%02x", b[0])
	}
}

// readHead consumes the initial byte of an item, returning its major type
// and additional-info field.
func (d *Decoder) readHead() (major byte, info byte, err error) {
	b, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	return b & 0xE0, b & 0x1F, nil
}

// readArg resolves an additional-info field to its argument value.
// indefinite reports whether info signalled the indefinite-length marker
// (31); in that case the returned value is meaningless.
func (d *Decoder) readArg(info byte) (value uint64, indefinite_ bool, err error) {
	switch {
	case info <= 23:
		return uint64(info), false, nil
	case info == additionalU8:
		b, err := d.readByte()
		return uint64(b), false, err
	case info == additionalU16:
		var b [2]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return 0, false, eofToEndOfInput(err)
		}
		return uint64(b[0])<<8 | uint64(b[1]), false, nil
	case info == additionalU32:
		var b [4]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return 0, false, eofToEndOfInput(err)
		}
		return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), false, nil
	case info == additionalU64:
		var b [8]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return 0, false, eofToEndOfInput(err)
		}
		var v uint64
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v, false, nil
	case info == indefinite:
		return 0, true, nil
	default:
		return 0, false, decodeErrorf("reserved additional info value %d", info)
	}
}

// ReadUnsigned reads an unsigned integer.
func (d *Decoder) ReadUnsigned() (uint64, error) {
	major, info, err := d.readHead()
	if err != nil {
		return 0, err
	}
	if major != majorUnsigned {
		return 0, decodeErrorf("expected unsigned integer, got major type 0x%02x", major)
	}
	v, indef, err := d.readArg(info)
	if err != nil {
		return 0, err
	}
	if indef {
		return 0, decodeErrorf("unsigned integer cannot be indefinite-length")
	}
	return v, nil
}

// ReadNegative reads a CBOR negative integer and returns its magnitude n,
// where the represented value is -1-n.
func (d *Decoder) ReadNegative() (uint64, error) {
	major, info, err := d.readHead()
	if err != nil {
		return 0, err
	}
	if major != majorNegative {
		return 0, decodeErrorf("expected negative integer, got major type 0x%02x", major)
	}
	v, indef, err := d.readArg(info)
	if err != nil {
		return 0, err
	}
	if indef {
		return 0, decodeErrorf("negative integer cannot be indefinite-length")
	}
	return v, nil
}

// ReadInt reads either an unsigned or negative integer and returns it as
// a signed value, auto-selecting on the next item's major type.
func (d *Decoder) ReadInt() (int64, error) {
	t, err := d.PeekType()
	if err != nil {
		return 0, err
	}
	switch t {
	case TypeUnsigned:
		v, err := d.ReadUnsigned()
		return int64(v), err
	case TypeNegative:
		n, err := d.ReadNegative()
		return -1 - int64(n), err
	default:
		return 0, decodeErrorf("expected integer, got %s", t)
	}
}

// ReadBool reads a CBOR simple boolean value.
func (d *Decoder) ReadBool() (bool, error) {
	major, info, err := d.readHead()
	if err != nil {
		return false, err
	}
	if major != majorSimple {
		return false, decodeErrorf("expected bool, got major type 0x%02x", major)
	}
	switch info {
	case simpleFalse:
		return false, nil
	case simpleTrue:
		return true, nil
	default:
		return false, decodeErrorf("expected bool simple value, got %d", info)
	}
}

// readStringChunks handles the shared byte-string/text-string decode path,
// including indefinite chunked form: chunks of the same major type are
// concatenated until a break; chunks may not themselves be indefinite.
func (d *Decoder) readStringChunks(wantMajor byte) ([]byte, error) {
	major, info, err := d.readHead()
	if err != nil {
		return nil, err
	}
	if major != wantMajor {
		return nil, decodeErrorf("expected major type 0x%02x, got 0x%02x", wantMajor, major)
	}
	length, indef, err := d.readArg(info)
	if err != nil {
		return nil, err
	}
	if !indef {
		return d.readExact(int(length))
	}

	var out []byte
	for {
		t, err := d.PeekType()
		if err != nil {
			return nil, err
		}
		if t == TypeBreak {
			if _, _, err := d.readHead(); err != nil {
				return nil, err
			}
			return out, nil
		}
		cMajor, cInfo, err := d.readHead()
		if err != nil {
			return nil, err
		}
		if cMajor != wantMajor {
			return nil, decodeErrorf("chunk major type 0x%02x does not match string major type 0x%02x", cMajor, wantMajor)
		}
		cLen, cIndef, err := d.readArg(cInfo)
		if err != nil {
			return nil, err
		}
		if cIndef {
			return nil, decodeErrorf("nested indefinite-length chunk is not allowed")
		}
		chunk, err := d.readExact(int(cLen))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}

func (d *Decoder) readExact(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, eofToEndOfInput(err)
	}
	return b, nil
}

// ReadByteString reads a (possibly chunked) byte string.
func (d *Decoder) ReadByteString() ([]byte, error) {
	return d.readStringChunks(majorByteString)
}

// ReadTextString reads a (possibly chunked) text string.
func (d *Decoder) ReadTextString() (string, error) {
	b, err := d.readStringChunks(majorTextString)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadArrayStart consumes an array head, returning its declared length, or
// 0 with indef=true for an indefinite-length array.
func (d *Decoder) ReadArrayStart() (length int, indef bool, err error) {
	major, info, err := d.readHead()
	if err != nil {
		return 0, false, err
	}
	if major != majorArray {
		return 0, false, decodeErrorf("expected array, got major type 0x%02x", major)
	}
	v, isIndef, err := d.readArg(info)
	if err != nil {
		return 0, false, err
	}
	return int(v), isIndef, nil
}

// ReadArray iterates a (possibly indefinite) array, invoking cb once per
// element. For an indefinite array it stops upon encountering a break.
func (d *Decoder) ReadArray(cb func(i int) error) error {
	length, indef, err := d.ReadArrayStart()
	if err != nil {
		return err
	}
	if !indef {
		for i := 0; i < length; i++ {
			if err := cb(i); err != nil {
				return err
			}
		}
		return nil
	}
	for i := 0; ; i++ {
		t, err := d.PeekType()
		if err != nil {
			return err
		}
		if t == TypeBreak {
			return d.ReadBreak()
		}
		if err := cb(i); err != nil {
			return err
		}
	}
}

// ReadMapStart consumes a map head, returning its declared pair count, or
// 0 with indef=true for an indefinite-length map.
func (d *Decoder) ReadMapStart() (pairs int, indef bool, err error) {
	major, info, err := d.readHead()
	if err != nil {
		return 0, false, err
	}
	if major != majorMap {
		return 0, false, decodeErrorf("expected map, got major type 0x%02x", major)
	}
	v, isIndef, err := d.readArg(info)
	if err != nil {
		return 0, false, err
	}
	return int(v), isIndef, nil
}

// ReadBreak consumes a break code, failing if the next byte is not one.
func (d *Decoder) ReadBreak() error {
	b, err := d.readByte()
	if err != nil {
		return err
	}
	if b != breakCode {
		return decodeErrorf("expected break code, got 0x%02x", b)
	}
	return nil
}

// SkipItem consumes exactly one CBOR item of arbitrary shape, recursively
// skipping contained items for arrays and maps (including indefinite
// ones). Used to ignore unknown map keys.
func (d *Decoder) SkipItem() error {
	t, err := d.PeekType()
	if err != nil {
		return err
	}
	switch t {
	case TypeUnsigned:
		_, err := d.ReadUnsigned()
		return err
	case TypeNegative:
		_, err := d.ReadNegative()
		return err
	case TypeByteString:
		_, err := d.ReadByteString()
		return err
	case TypeTextString:
		_, err := d.ReadTextString()
		return err
	case TypeSimple:
		_, info, err := d.readHead()
		if err != nil {
			return err
		}
		_, _, err = d.readArg(info)
		return err
	case TypeArray:
		return d.ReadArray(func(int) error { return d.SkipItem() })
	case TypeMap:
		pairs, indef, err := d.ReadMapStart()
		if err != nil {
			return err
		}
		if !indef {
			for i := 0; i < pairs; i++ {
				if err := d.SkipItem(); err != nil { // key
					return err
				}
				if err := d.SkipItem(); err != nil { // value
					return err
				}
			}
			return nil
		}
		for {
			pt, err := d.PeekType()
			if err != nil {
				return err
			}
			if pt == TypeBreak {
				return d.ReadBreak()
			}
			if err := d.SkipItem(); err != nil { // key
				return err
			}
			if err := d.SkipItem(); err != nil { // value
				return err
			}
		}
	case TypeTag:
		_, info, err := d.readHead()
		if err != nil {
			return err
		}
		if _, _, err := d.readArg(info); err != nil {
			return err
		}
		return d.SkipItem()
	default:
		return decodeErrorf("cannot skip item of type %s", t)
	}
}
