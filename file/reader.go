package file

import (
	"fmt"
	"io"
	"strings"

	"github.com/dns-stats/cdns/block"
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
	"github.com/dns-stats/cdns/internal/options"
)

// Reader consumes a C-DNS file's outer array and hands back one Block at
// a time. It accepts both definite- and indefinite-length blocks arrays,
// since either is valid CBOR and the reference implementation always
// writes indefinite but other producers may not (spec.md §4.5).
type Reader struct {
	dec        *cbor.Decoder
	preamble   Preamble
	indefinite bool
	remaining  int
}

// NewReader reads the file header (magic, preamble) from src and returns
// a Reader positioned at the start of the blocks array. The magic marker
// is matched case-insensitively (spec.md §6).
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := &readerConfig{}
	_ = options.Apply(cfg, opts...)
	dec := cbor.NewDecoder(src, cfg.decoderOpts...)

	n, indef, err := dec.ReadArrayStart()
	if err != nil {
		return nil, err
	}
	if indef || n != 3 {
		return nil, fmt.Errorf("file array must have exactly 3 elements: %w", errs.ErrDecode)
	}

	magic, err := dec.ReadTextString()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(magic, format.FileTypeID) {
		return nil, errs.ErrBadMagic
	}

	preamble, err := readPreamble(dec)
	if err != nil {
		return nil, err
	}

	blocksLen, blocksIndef, err := dec.ReadArrayStart()
	if err != nil {
		return nil, err
	}

	return &Reader{dec: dec, preamble: preamble, indefinite: blocksIndef, remaining: blocksLen}, nil
}

// Preamble returns the file's preamble, available as soon as NewReader
// returns.
func (r *Reader) Preamble() Preamble { return r.preamble }

// ReadBlock reads and fully rehydrates the next block, resolving its
// block_parameters_index against the file preamble's BlockParameters and
// converting every record's relative time offset back to an absolute
// Timestamp. It returns errs.ErrEndOfInput once the blocks array is
// exhausted.
func (r *Reader) ReadBlock() (*block.Block, error) {
	if r.indefinite {
		t, err := r.dec.PeekType()
		if err != nil {
			return nil, err
		}
		if t == cbor.TypeBreak {
			if err := r.dec.ReadBreak(); err != nil {
				return nil, err
			}
			return nil, errs.ErrEndOfInput
		}
	} else {
		if r.remaining == 0 {
			return nil, errs.ErrEndOfInput
		}
		r.remaining--
	}
	return block.Read(r.dec, r.preamble.BlockParameters)
}
