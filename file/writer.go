package file

import (
	"github.com/dns-stats/cdns/block"
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/compress"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
	"github.com/dns-stats/cdns/internal/options"
)

// Exporter streams blocks into a single C-DNS file: the 3-element outer
// array ["C-DNS", file_preamble, blocks], where blocks is an
// indefinite-length array terminated by a CBOR break on Close or Rotate
// (spec.md §4.1-4.2).
type Exporter struct {
	sink          compress.Sink
	enc           *cbor.Encoder
	preamble      Preamble
	headerWritten bool
	closed        bool
}

// NewExporter constructs an Exporter bound to sink, which will carry the
// given file preamble ahead of the first block written.
func NewExporter(sink compress.Sink, preamble Preamble, opts ...ExporterOption) (*Exporter, error) {
	if len(preamble.BlockParameters) == 0 {
		return nil, errs.ErrNoBlockParameters
	}
	cfg := &exporterConfig{}
	_ = options.Apply(cfg, opts...)
	return &Exporter{
		sink:     sink,
		enc:      cbor.NewEncoder(sink, cfg.encoderOpts...),
		preamble: preamble,
	}, nil
}

func (ex *Exporter) writeHeader() error {
	if ex.headerWritten {
		return nil
	}
	if err := ex.enc.WriteArrayStart(3); err != nil {
		return err
	}
	if err := ex.enc.WriteTextString(format.FileTypeID); err != nil {
		return err
	}
	if err := ex.preamble.write(ex.enc); err != nil {
		return err
	}
	if err := ex.enc.WriteIndefiniteArrayStart(); err != nil {
		return err
	}
	ex.headerWritten = true
	return nil
}

// WriteBlock emits b, writing the file header first if this is the first
// block in the file (or since the last Rotate). It returns the number of
// compressed bytes the sink actually wrote to its target for this call,
// after a Flush — the figure spec.md §4.5 says drives a size-based
// rollover decision, counted at the sink's own disk-facing boundary
// (compress.Sink.BytesWritten) so gzip/xz report their compressed size,
// not the uncompressed CBOR fed into them.
func (ex *Exporter) WriteBlock(b *block.Block) (int64, error) {
	if ex.closed {
		return 0, errs.ErrSinkClosed
	}
	if err := ex.writeHeader(); err != nil {
		return 0, err
	}
	before := ex.sink.BytesWritten()
	if err := b.Emit(ex.enc); err != nil {
		return 0, err
	}
	if err := ex.enc.Flush(); err != nil {
		return 0, err
	}
	return ex.sink.BytesWritten() - before, nil
}

// BytesWritten returns the cumulative compressed byte count the sink has
// written to its current target since construction (or the last Rotate).
func (ex *Exporter) BytesWritten() int64 { return ex.sink.BytesWritten() }

func (ex *Exporter) terminateBlocksArray() error {
	if !ex.headerWritten {
		return nil
	}
	if err := ex.enc.WriteBreak(); err != nil {
		return err
	}
	if err := ex.enc.Flush(); err != nil {
		return err
	}
	ex.headerWritten = false
	return nil
}

// Rotate closes out the current output (terminating the blocks array)
// and switches the underlying sink to a new target, ready for a fresh
// file header on the next WriteBlock (spec.md §4.2).
func (ex *Exporter) Rotate(target string) error {
	if ex.closed {
		return errs.ErrSinkClosed
	}
	if err := ex.terminateBlocksArray(); err != nil {
		return err
	}
	return ex.sink.Rotate(target)
}

// Close terminates the blocks array (if any block was written) and
// closes the underlying sink. Close is idempotent.
func (ex *Exporter) Close() error {
	if ex.closed {
		return nil
	}
	err := ex.terminateBlocksArray()
	ex.enc.Close()
	ex.closed = true
	if closeErr := ex.sink.Close(); err == nil {
		err = closeErr
	}
	return err
}
