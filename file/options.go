package file

import (
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/internal/options"
)

// exporterConfig holds Exporter construction-time tunables.
type exporterConfig struct {
	encoderOpts []cbor.EncoderOption
}

// ExporterOption configures an Exporter at construction time.
type ExporterOption = options.Option[*exporterConfig]

// WithEncoderBufferSize overrides the size of the CBOR encoder's internal
// write buffer (default ~2KiB, spec.md §4.1/§5). Useful for writers that
// build up large blocks before the next flush.
func WithEncoderBufferSize(n int) ExporterOption {
	return options.NoError(func(c *exporterConfig) {
		c.encoderOpts = append(c.encoderOpts, cbor.WithEncoderBufferSize(n))
	})
}

// readerConfig holds Reader construction-time tunables.
type readerConfig struct {
	decoderOpts []cbor.DecoderOption
}

// ReaderOption configures a Reader at construction time.
type ReaderOption = options.Option[*readerConfig]

// WithDecoderBufferSize overrides the size of the CBOR decoder's
// read-ahead buffer (default ~64KiB, spec.md §4.1/§5).
func WithDecoderBufferSize(n int) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		c.decoderOpts = append(c.decoderOpts, cbor.WithDecoderBufferSize(n))
	})
}
