package cbor

import (
	"fmt"

	"github.com/dns-stats/cdns/errs"
)

// Type identifies a CBOR major type, plus the logical pseudo-type
// TypeBreak that PeekType reports for the break code. End of input is
// reported as the error errs.ErrEndOfInput, not as a Type.
type Type uint8

const (
	TypeUnsigned Type = iota
	TypeNegative
	TypeByteString
	TypeTextString
	TypeArray
	TypeMap
	TypeTag
	TypeSimple
	TypeBreak
)

func (t Type) String() string {
	switch t {
	case TypeUnsigned:
		return "unsigned"
	case TypeNegative:
		return "negative"
	case TypeByteString:
		return "byte-string"
	case TypeTextString:
		return "text-string"
	case TypeArray:
		return "array"
	case TypeMap:
		return "map"
	case TypeTag:
		return "tag"
	case TypeSimple:
		return "simple"
	case TypeBreak:
		return "break"
	default:
		return "unknown"
	}
}

// decodeErrorf wraps errs.ErrDecode with a descriptive message, per
// spec.md §7.2 ("each is a distinct error carrying a human-readable message").
func decodeErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, errs.ErrDecode)...)
}
