package block

import (
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
)

// StorageHints gates, bit by bit, which optional fields of QueryResponse,
// QueryResponseSignature, RR, and the other-data item arrays are eligible
// for storage. A field whose bit is clear is silently omitted regardless
// of what the caller supplied (spec.md §3, §6).
type StorageHints struct {
	QueryResponseHints          uint32
	QueryResponseSignatureHints uint32
	RRHints                     uint8
	OtherDataHints              uint8
}

func (h StorageHints) write(enc *cbor.Encoder) error {
	if err := enc.WriteMapStart(4); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyQueryResponseHints); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(uint64(h.QueryResponseHints)); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyQueryResponseSignatureHints); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(uint64(h.QueryResponseSignatureHints)); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyRRHints); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(uint64(h.RRHints)); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyOtherDataHints); err != nil {
		return err
	}
	return enc.WriteUnsigned(uint64(h.OtherDataHints))
}

func readStorageHints(dec *cbor.Decoder) (StorageHints, error) {
	var h StorageHints
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyQueryResponseHints:
			v, err := dec.ReadUnsigned()
			h.QueryResponseHints = uint32(v)
			return err
		case format.KeyQueryResponseSignatureHints:
			v, err := dec.ReadUnsigned()
			h.QueryResponseSignatureHints = uint32(v)
			return err
		case format.KeyRRHints:
			v, err := dec.ReadUnsigned()
			h.RRHints = uint8(v)
			return err
		case format.KeyOtherDataHints:
			v, err := dec.ReadUnsigned()
			h.OtherDataHints = uint8(v)
			return err
		default:
			return dec.SkipItem()
		}
	})
	return h, err
}

// StorageParameters is the block-independent part of how a file's blocks
// were produced: tick resolution, rollover threshold, the storage hints,
// and the set of accepted opcodes/RR types (spec.md §3).
type StorageParameters struct {
	TicksPerSecond  uint64
	MaxBlockItems   uint32
	Hints           StorageHints
	Opcodes         []uint8
	RRTypes         []uint16
	StorageFlags    *uint8
	ClientAddrPrefixIPv4 *uint8
	ClientAddrPrefixIPv6 *uint8
	ServerAddrPrefixIPv4 *uint8
	ServerAddrPrefixIPv6 *uint8
	SamplingMethod       *string
	AnonymizationMethod  *string
}

func (p StorageParameters) write(enc *cbor.Encoder) error {
	n := 5 // ticks_per_second, max_block_items, storage_hints, opcodes, rr_types
	if p.StorageFlags != nil {
		n++
	}
	if p.ClientAddrPrefixIPv4 != nil {
		n++
	}
	if p.ClientAddrPrefixIPv6 != nil {
		n++
	}
	if p.ServerAddrPrefixIPv4 != nil {
		n++
	}
	if p.ServerAddrPrefixIPv6 != nil {
		n++
	}
	if p.SamplingMethod != nil {
		n++
	}
	if p.AnonymizationMethod != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}

	if err := writeUintField(enc, format.KeyTicksPerSecond, p.TicksPerSecond); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyMaxBlockItems, uint64(p.MaxBlockItems)); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyStorageHints); err != nil {
		return err
	}
	if err := p.Hints.write(enc); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyOpcodes); err != nil {
		return err
	}
	if err := enc.WriteArrayStart(len(p.Opcodes)); err != nil {
		return err
	}
	for _, op := range p.Opcodes {
		if err := enc.WriteUnsigned(uint64(op)); err != nil {
			return err
		}
	}
	if err := enc.WriteUnsigned(format.KeyRRTypes); err != nil {
		return err
	}
	if err := enc.WriteArrayStart(len(p.RRTypes)); err != nil {
		return err
	}
	for _, rt := range p.RRTypes {
		if err := enc.WriteUnsigned(uint64(rt)); err != nil {
			return err
		}
	}
	if p.StorageFlags != nil {
		if err := writeUintField(enc, format.KeyStorageFlags, uint64(*p.StorageFlags)); err != nil {
			return err
		}
	}
	if p.ClientAddrPrefixIPv4 != nil {
		if err := writeUintField(enc, format.KeyClientAddressPrefixIPv4, uint64(*p.ClientAddrPrefixIPv4)); err != nil {
			return err
		}
	}
	if p.ClientAddrPrefixIPv6 != nil {
		if err := writeUintField(enc, format.KeyClientAddressPrefixIPv6, uint64(*p.ClientAddrPrefixIPv6)); err != nil {
			return err
		}
	}
	if p.ServerAddrPrefixIPv4 != nil {
		if err := writeUintField(enc, format.KeyServerAddressPrefixIPv4, uint64(*p.ServerAddrPrefixIPv4)); err != nil {
			return err
		}
	}
	if p.ServerAddrPrefixIPv6 != nil {
		if err := writeUintField(enc, format.KeyServerAddressPrefixIPv6, uint64(*p.ServerAddrPrefixIPv6)); err != nil {
			return err
		}
	}
	if p.SamplingMethod != nil {
		if err := enc.WriteUnsigned(format.KeySamplingMethod); err != nil {
			return err
		}
		if err := enc.WriteTextString(*p.SamplingMethod); err != nil {
			return err
		}
	}
	if p.AnonymizationMethod != nil {
		if err := enc.WriteUnsigned(format.KeyAnonymizationMethod); err != nil {
			return err
		}
		if err := enc.WriteTextString(*p.AnonymizationMethod); err != nil {
			return err
		}
	}
	return nil
}

func readStorageParameters(dec *cbor.Decoder) (StorageParameters, error) {
	var p StorageParameters
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyTicksPerSecond:
			v, err := dec.ReadUnsigned()
			p.TicksPerSecond = v
			return err
		case format.KeyMaxBlockItems:
			v, err := dec.ReadUnsigned()
			p.MaxBlockItems = uint32(v)
			return err
		case format.KeyStorageHints:
			h, err := readStorageHints(dec)
			p.Hints = h
			return err
		case format.KeyOpcodes:
			return dec.ReadArray(func(int) error {
				v, err := dec.ReadUnsigned()
				p.Opcodes = append(p.Opcodes, uint8(v))
				return err
			})
		case format.KeyRRTypes:
			return dec.ReadArray(func(int) error {
				v, err := dec.ReadUnsigned()
				p.RRTypes = append(p.RRTypes, uint16(v))
				return err
			})
		case format.KeyStorageFlags:
			v, err := dec.ReadUnsigned()
			f := uint8(v)
			p.StorageFlags = &f
			return err
		case format.KeyClientAddressPrefixIPv4:
			v, err := dec.ReadUnsigned()
			f := uint8(v)
			p.ClientAddrPrefixIPv4 = &f
			return err
		case format.KeyClientAddressPrefixIPv6:
			v, err := dec.ReadUnsigned()
			f := uint8(v)
			p.ClientAddrPrefixIPv6 = &f
			return err
		case format.KeyServerAddressPrefixIPv4:
			v, err := dec.ReadUnsigned()
			f := uint8(v)
			p.ServerAddrPrefixIPv4 = &f
			return err
		case format.KeyServerAddressPrefixIPv6:
			v, err := dec.ReadUnsigned()
			f := uint8(v)
			p.ServerAddrPrefixIPv6 = &f
			return err
		case format.KeySamplingMethod:
			v, err := dec.ReadTextString()
			p.SamplingMethod = &v
			return err
		case format.KeyAnonymizationMethod:
			v, err := dec.ReadTextString()
			p.AnonymizationMethod = &v
			return err
		default:
			return dec.SkipItem()
		}
	})
	if p.TicksPerSecond == 0 {
		return p, errs.ErrZeroTicksPerSecond
	}
	return p, err
}

// CollectionParameters is optional and informational (spec.md §3, §6):
// the library round-trips it without interpreting any field, since
// packet capture is explicitly out of scope.
type CollectionParameters struct {
	QueryTimeout  *uint32
	SkewTimeout   *uint32
	Snaplen       *uint32
	Promisc       *bool
	Interfaces    []string
	ServerAddress []string
	VlanIDs       []uint32
	Filter        *string
	GeneratorID   *string
	HostID        *string
}

// BlockParameters bundles the storage parameters every block needs with
// the optional, informational collection parameters (spec.md §3, §6).
type BlockParameters struct {
	Storage    StorageParameters
	Collection *CollectionParameters
}

func (bp BlockParameters) write(enc *cbor.Encoder) error {
	n := 1
	if bp.Collection != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyStorageParameters); err != nil {
		return err
	}
	if err := bp.Storage.write(enc); err != nil {
		return err
	}
	if bp.Collection != nil {
		if err := enc.WriteUnsigned(format.KeyCollectionParameters); err != nil {
			return err
		}
		if err := writeCollectionParameters(enc, *bp.Collection); err != nil {
			return err
		}
	}
	return nil
}

func writeCollectionParameters(enc *cbor.Encoder, cp CollectionParameters) error {
	var n int
	if cp.QueryTimeout != nil {
		n++
	}
	if cp.SkewTimeout != nil {
		n++
	}
	if cp.Snaplen != nil {
		n++
	}
	if cp.Promisc != nil {
		n++
	}
	if len(cp.Interfaces) > 0 {
		n++
	}
	if len(cp.ServerAddress) > 0 {
		n++
	}
	if len(cp.VlanIDs) > 0 {
		n++
	}
	if cp.Filter != nil {
		n++
	}
	if cp.GeneratorID != nil {
		n++
	}
	if cp.HostID != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if cp.QueryTimeout != nil {
		if err := writeUintField(enc, format.KeyQueryTimeout, uint64(*cp.QueryTimeout)); err != nil {
			return err
		}
	}
	if cp.SkewTimeout != nil {
		if err := writeUintField(enc, format.KeySkewTimeout, uint64(*cp.SkewTimeout)); err != nil {
			return err
		}
	}
	if cp.Snaplen != nil {
		if err := writeUintField(enc, format.KeySnaplen, uint64(*cp.Snaplen)); err != nil {
			return err
		}
	}
	if cp.Promisc != nil {
		if err := enc.WriteUnsigned(format.KeyPromisc); err != nil {
			return err
		}
		if err := enc.WriteBool(*cp.Promisc); err != nil {
			return err
		}
	}
	if len(cp.Interfaces) > 0 {
		if err := enc.WriteUnsigned(format.KeyInterfaces); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(cp.Interfaces)); err != nil {
			return err
		}
		for _, s := range cp.Interfaces {
			if err := enc.WriteTextString(s); err != nil {
				return err
			}
		}
	}
	if len(cp.ServerAddress) > 0 {
		if err := enc.WriteUnsigned(format.KeyServerAddress); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(cp.ServerAddress)); err != nil {
			return err
		}
		for _, s := range cp.ServerAddress {
			if err := enc.WriteTextString(s); err != nil {
				return err
			}
		}
	}
	if len(cp.VlanIDs) > 0 {
		if err := enc.WriteUnsigned(format.KeyVlanIDs); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(cp.VlanIDs)); err != nil {
			return err
		}
		for _, v := range cp.VlanIDs {
			if err := enc.WriteUnsigned(uint64(v)); err != nil {
				return err
			}
		}
	}
	if cp.Filter != nil {
		if err := enc.WriteUnsigned(format.KeyFilter); err != nil {
			return err
		}
		if err := enc.WriteTextString(*cp.Filter); err != nil {
			return err
		}
	}
	if cp.GeneratorID != nil {
		if err := enc.WriteUnsigned(format.KeyGeneratorID); err != nil {
			return err
		}
		if err := enc.WriteTextString(*cp.GeneratorID); err != nil {
			return err
		}
	}
	if cp.HostID != nil {
		if err := enc.WriteUnsigned(format.KeyHostID); err != nil {
			return err
		}
		if err := enc.WriteTextString(*cp.HostID); err != nil {
			return err
		}
	}
	return nil
}

func readBlockParameters(dec *cbor.Decoder) (BlockParameters, error) {
	var bp BlockParameters
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyStorageParameters:
			sp, err := readStorageParameters(dec)
			bp.Storage = sp
			return err
		case format.KeyCollectionParameters:
			cp, err := readCollectionParameters(dec)
			bp.Collection = &cp
			return err
		default:
			return dec.SkipItem()
		}
	})
	return bp, err
}

func readCollectionParameters(dec *cbor.Decoder) (CollectionParameters, error) {
	var cp CollectionParameters
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyQueryTimeout:
			v, err := dec.ReadUnsigned()
			u := uint32(v)
			cp.QueryTimeout = &u
			return err
		case format.KeySkewTimeout:
			v, err := dec.ReadUnsigned()
			u := uint32(v)
			cp.SkewTimeout = &u
			return err
		case format.KeySnaplen:
			v, err := dec.ReadUnsigned()
			u := uint32(v)
			cp.Snaplen = &u
			return err
		case format.KeyPromisc:
			v, err := dec.ReadBool()
			cp.Promisc = &v
			return err
		case format.KeyInterfaces:
			return dec.ReadArray(func(int) error {
				v, err := dec.ReadTextString()
				cp.Interfaces = append(cp.Interfaces, v)
				return err
			})
		case format.KeyServerAddress:
			return dec.ReadArray(func(int) error {
				v, err := dec.ReadTextString()
				cp.ServerAddress = append(cp.ServerAddress, v)
				return err
			})
		case format.KeyVlanIDs:
			return dec.ReadArray(func(int) error {
				v, err := dec.ReadUnsigned()
				cp.VlanIDs = append(cp.VlanIDs, uint32(v))
				return err
			})
		case format.KeyFilter:
			v, err := dec.ReadTextString()
			cp.Filter = &v
			return err
		case format.KeyGeneratorID:
			v, err := dec.ReadTextString()
			cp.GeneratorID = &v
			return err
		case format.KeyHostID:
			v, err := dec.ReadTextString()
			cp.HostID = &v
			return err
		default:
			return dec.SkipItem()
		}
	})
	return cp, err
}

// readMap is shared plumbing for every fixed-integer-key map type in this
// package: it consumes a map header (definite or indefinite), dispatches
// each key to fn, and tolerates unknown keys by leaving their skipping to
// fn's default case (spec.md §4.5, "unknown keys are skipped").
func readMap(dec *cbor.Decoder, fn func(key int64) error) error {
	pairs, indef, err := dec.ReadMapStart()
	if err != nil {
		return err
	}
	if !indef {
		for i := 0; i < pairs; i++ {
			key, err := dec.ReadInt()
			if err != nil {
				return err
			}
			if err := fn(key); err != nil {
				return err
			}
		}
		return nil
	}
	for {
		t, err := dec.PeekType()
		if err != nil {
			return err
		}
		if t == cbor.TypeBreak {
			return dec.ReadBreak()
		}
		key, err := dec.ReadInt()
		if err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
	}
}

func writeUintField(enc *cbor.Encoder, key int, v uint64) error {
	if err := enc.WriteUnsigned(uint64(key)); err != nil {
		return err
	}
	return enc.WriteUnsigned(v)
}

// Write emits bp as a CBOR map. Exported for package file, which embeds
// BlockParameters in the file preamble.
func (bp BlockParameters) Write(enc *cbor.Encoder) error { return bp.write(enc) }

// ReadBlockParameters reads one BlockParameters map. Exported for package
// file, which reads the file preamble's block_parameters array.
func ReadBlockParameters(dec *cbor.Decoder) (BlockParameters, error) { return readBlockParameters(dec) }

// ReadMap is the exported form of readMap, reused by package file for the
// file preamble's own fixed-integer-key map.
func ReadMap(dec *cbor.Decoder, fn func(key int64) error) error { return readMap(dec, fn) }
