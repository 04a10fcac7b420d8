// Package file implements the outer C-DNS file container: the file
// preamble, the exporter that streams blocks into it, and the reader
// that consumes them back, per spec.md §2, §4.1-4.2, §4.5.
package file

import (
	"github.com/dns-stats/cdns/block"
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
)

// Preamble is the file-level header: the format version this library
// implements plus the (non-empty) set of BlockParameters that blocks in
// the file may reference by index (spec.md §3, §6).
type Preamble struct {
	MajorVersion    uint64
	MinorVersion    uint64
	PrivateVersion  *uint64
	BlockParameters []block.BlockParameters
}

// NewPreamble constructs a Preamble carrying this library's format
// version and the given block parameters. params must be non-empty
// (spec.md §4.1).
func NewPreamble(params []block.BlockParameters) (Preamble, error) {
	if len(params) == 0 {
		return Preamble{}, errs.ErrNoBlockParameters
	}
	privateVersion := uint64(format.PrivateVersion)
	return Preamble{
		MajorVersion:    format.MajorVersion,
		MinorVersion:    format.MinorVersion,
		PrivateVersion:  &privateVersion,
		BlockParameters: params,
	}, nil
}

func (p Preamble) write(enc *cbor.Encoder) error {
	n := 3 // major, minor, block_parameters
	if p.PrivateVersion != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyMajorVersion, p.MajorVersion); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyMinorVersion, p.MinorVersion); err != nil {
		return err
	}
	if p.PrivateVersion != nil {
		if err := writeUintField(enc, format.KeyPrivateVersion, *p.PrivateVersion); err != nil {
			return err
		}
	}
	if err := enc.WriteUnsigned(format.KeyBlockParameters); err != nil {
		return err
	}
	if err := enc.WriteArrayStart(len(p.BlockParameters)); err != nil {
		return err
	}
	for _, bp := range p.BlockParameters {
		if err := bp.Write(enc); err != nil {
			return err
		}
	}
	return nil
}

func readPreamble(dec *cbor.Decoder) (Preamble, error) {
	var p Preamble
	err := block.ReadMap(dec, func(key int64) error {
		switch key {
		case format.KeyMajorVersion:
			v, err := dec.ReadUnsigned()
			p.MajorVersion = v
			return err
		case format.KeyMinorVersion:
			v, err := dec.ReadUnsigned()
			p.MinorVersion = v
			return err
		case format.KeyPrivateVersion:
			v, err := dec.ReadUnsigned()
			p.PrivateVersion = &v
			return err
		case format.KeyBlockParameters:
			return dec.ReadArray(func(int) error {
				bp, err := block.ReadBlockParameters(dec)
				p.BlockParameters = append(p.BlockParameters, bp)
				return err
			})
		default:
			return dec.SkipItem()
		}
	})
	if err != nil {
		return p, err
	}
	if len(p.BlockParameters) == 0 {
		return p, errs.ErrNoBlockParameters
	}
	return p, nil
}

func writeUintField(enc *cbor.Encoder, key int, v uint64) error {
	if err := enc.WriteUnsigned(uint64(key)); err != nil {
		return err
	}
	return enc.WriteUnsigned(v)
}
