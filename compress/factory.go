package compress

import (
	"fmt"

	"github.com/dns-stats/cdns/format"
)

// NewSink constructs the Sink variant matching kind, opening target
// immediately if non-empty. target is a path without the variant's
// suffix; each Sink appends its own.
func NewSink(kind format.CompressionType, target string) (Sink, error) {
	switch kind {
	case format.CompressionNone:
		return NewPlainSink(target)
	case format.CompressionGzip:
		return NewGzipSink(target)
	case format.CompressionXz:
		return NewXzSink(target)
	default:
		return nil, fmt.Errorf("compress: unknown compression type %v", kind)
	}
}
