package cbor

import "github.com/dns-stats/cdns/internal/options"

// encoderConfig holds Encoder construction-time tunables.
type encoderConfig struct {
	bufferSize int
}

// EncoderOption configures an Encoder at construction time.
type EncoderOption = options.Option[*encoderConfig]

// WithEncoderBufferSize overrides the encoder's internal write buffer size
// (default pool.EncoderBufferDefaultSize, ~2KiB per spec.md §4.1/§5). A
// writer that emits unusually large blocks between flushes can raise this
// to cut down on segmented writes; n <= 0 is ignored.
func WithEncoderBufferSize(n int) EncoderOption {
	return options.NoError(func(c *encoderConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	})
}

// decoderConfig holds Decoder construction-time tunables.
type decoderConfig struct {
	bufferSize int
}

// DecoderOption configures a Decoder at construction time.
type DecoderOption = options.Option[*decoderConfig]

// WithDecoderBufferSize overrides the decoder's read-ahead buffer size
// (default pool.DecoderBufferDefaultSize, ~64KiB per spec.md §4.1/§5).
// n <= 0 is ignored.
func WithDecoderBufferSize(n int) DecoderOption {
	return options.NoError(func(c *decoderConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	})
}
