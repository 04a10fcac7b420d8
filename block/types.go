package block

import (
	"bytes"

	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/format"
	"github.com/dns-stats/cdns/internal/table"
)

// ptrEqual compares two optional scalar fields: both absent is equal, one
// absent and one present is not, both present compares the pointed-to value.
func ptrEqual[T comparable](a, b *T) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func hashOptUint[T ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int](h table.Hasher, v *T) table.Hasher {
	if v == nil {
		return h.Absent()
	}
	return h.Uint64(uint64(*v))
}

// IPAddress is the ip_address table entry: raw address bytes, 4 for IPv4
// or 16 for IPv6.
type IPAddress []byte

func (a IPAddress) Hash() uint32 { return table.NewHasher().Bytes(a).Sum() }

func (a IPAddress) Equal(other IPAddress) bool { return bytes.Equal(a, other) }

func (a IPAddress) write(enc *cbor.Encoder) error { return enc.WriteByteString(a) }

func readIPAddress(dec *cbor.Decoder) (IPAddress, error) {
	b, err := dec.ReadByteString()
	return IPAddress(b), err
}

// NameRdata is the name_rdata table entry: an opaque DNS name or rdata
// byte string, wire-normalized by the caller before interning.
type NameRdata []byte

func (n NameRdata) Hash() uint32 { return table.NewHasher().Bytes(n).Sum() }

func (n NameRdata) Equal(other NameRdata) bool { return bytes.Equal(n, other) }

func (n NameRdata) write(enc *cbor.Encoder) error { return enc.WriteByteString(n) }

func readNameRdata(dec *cbor.Decoder) (NameRdata, error) {
	b, err := dec.ReadByteString()
	return NameRdata(b), err
}

// ClassType is the classtype table entry: a DNS type and class pair.
type ClassType struct {
	Type  uint16
	Class uint16
}

func (c ClassType) Hash() uint32 {
	return table.NewHasher().Uint64(uint64(c.Type)).Uint64(uint64(c.Class)).Sum()
}

func (c ClassType) Equal(other ClassType) bool { return c == other }

func (c ClassType) write(enc *cbor.Encoder) error {
	if err := enc.WriteMapStart(2); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyClassTypeType, uint64(c.Type)); err != nil {
		return err
	}
	return writeUintField(enc, format.KeyClassTypeClass, uint64(c.Class))
}

func readClassType(dec *cbor.Decoder) (ClassType, error) {
	var ct ClassType
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyClassTypeType:
			v, err := dec.ReadUnsigned()
			ct.Type = uint16(v)
			return err
		case format.KeyClassTypeClass:
			v, err := dec.ReadUnsigned()
			ct.Class = uint16(v)
			return err
		default:
			return dec.SkipItem()
		}
	})
	return ct, err
}

// Question is the qrr table entry: indices of a question's name and
// classtype, both resolved against the same block's tables.
type Question struct {
	NameIndex      int
	ClasstypeIndex int
}

func (q Question) Hash() uint32 {
	return table.NewHasher().Uint64(uint64(q.NameIndex)).Uint64(uint64(q.ClasstypeIndex)).Sum()
}

func (q Question) Equal(other Question) bool { return q == other }

func (q Question) write(enc *cbor.Encoder) error {
	if err := enc.WriteMapStart(2); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyQuestionNameIndex, uint64(q.NameIndex)); err != nil {
		return err
	}
	return writeUintField(enc, format.KeyQuestionClasstypeIndex, uint64(q.ClasstypeIndex))
}

func readQuestion(dec *cbor.Decoder) (Question, error) {
	var q Question
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyQuestionNameIndex:
			v, err := dec.ReadUnsigned()
			q.NameIndex = int(v)
			return err
		case format.KeyQuestionClasstypeIndex:
			v, err := dec.ReadUnsigned()
			q.ClasstypeIndex = int(v)
			return err
		default:
			return dec.SkipItem()
		}
	})
	return q, err
}

// RR is the rr table entry: a resource record reduced to indices plus an
// optional TTL and rdata index. TTL and RdataIndex presence is gated by
// StorageHints' RRHints mask at append time (spec.md §4.4).
type RR struct {
	NameIndex      int
	ClasstypeIndex int
	TTL            *uint32
	RdataIndex     *int
}

func (r RR) Hash() uint32 {
	h := table.NewHasher().Uint64(uint64(r.NameIndex)).Uint64(uint64(r.ClasstypeIndex))
	h = hashOptUint(h, r.TTL)
	h = hashOptUint(h, r.RdataIndex)
	return h.Sum()
}

func (r RR) Equal(other RR) bool {
	return r.NameIndex == other.NameIndex &&
		r.ClasstypeIndex == other.ClasstypeIndex &&
		ptrEqual(r.TTL, other.TTL) &&
		ptrEqual(r.RdataIndex, other.RdataIndex)
}

func (r RR) write(enc *cbor.Encoder) error {
	n := 2
	if r.TTL != nil {
		n++
	}
	if r.RdataIndex != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyRRNameIndex, uint64(r.NameIndex)); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyRRClasstypeIndex, uint64(r.ClasstypeIndex)); err != nil {
		return err
	}
	if r.TTL != nil {
		if err := writeUintField(enc, format.KeyRRTTL, uint64(*r.TTL)); err != nil {
			return err
		}
	}
	if r.RdataIndex != nil {
		if err := writeUintField(enc, format.KeyRRRdataIndex, uint64(*r.RdataIndex)); err != nil {
			return err
		}
	}
	return nil
}

func readRR(dec *cbor.Decoder) (RR, error) {
	var r RR
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyRRNameIndex:
			v, err := dec.ReadUnsigned()
			r.NameIndex = int(v)
			return err
		case format.KeyRRClasstypeIndex:
			v, err := dec.ReadUnsigned()
			r.ClasstypeIndex = int(v)
			return err
		case format.KeyRRTTL:
			v, err := dec.ReadUnsigned()
			u := uint32(v)
			r.TTL = &u
			return err
		case format.KeyRRRdataIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			r.RdataIndex = &i
			return err
		default:
			return dec.SkipItem()
		}
	})
	return r, err
}

// IndexList is the qlist/rrlist table entry: an ordered list of indices
// into the question or rr table, deduplicated by whole-list equality
// (spec.md §4.3).
type IndexList []int

func (l IndexList) Hash() uint32 {
	h := table.NewHasher()
	for _, idx := range l {
		h = h.Uint64(uint64(idx))
	}
	return h.Sum()
}

func (l IndexList) Equal(other IndexList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

func (l IndexList) write(enc *cbor.Encoder) error {
	if err := enc.WriteArrayStart(len(l)); err != nil {
		return err
	}
	for _, idx := range l {
		if err := enc.WriteUnsigned(uint64(idx)); err != nil {
			return err
		}
	}
	return nil
}

func readIndexList(dec *cbor.Decoder) (IndexList, error) {
	var l IndexList
	err := dec.ReadArray(func(int) error {
		v, err := dec.ReadUnsigned()
		l = append(l, int(v))
		return err
	})
	if l == nil {
		l = IndexList{}
	}
	return l, err
}

// QueryResponseSignature is the qr_sig table entry: the 17 optional
// fields describing a query/response's "shape" shared across many
// records (spec.md §3). Each field's presence is gated independently by
// StorageHints' QueryResponseSignatureHints mask at append time.
type QueryResponseSignature struct {
	ServerAddressIndex  *int
	ServerPort          *uint16
	QRTransportFlags    *uint8
	QRType              *uint8
	QRSigFlags          *uint8
	QueryOpcode         *uint8
	QRDNSFlags          *uint16
	QueryRcode          *uint8
	QueryClasstypeIndex *int
	QueryQDCount        *uint16
	QueryANCount        *uint16
	QueryNSCount        *uint16
	QueryARCount        *uint16
	QueryEDNSVersion    *uint8
	QueryUDPSize        *uint16
	QueryOptRdataIndex  *int
	ResponseRcode       *uint8
}

// Hash folds every field, in a fixed order, using the Absent marker for
// nil fields. Grounded on original_source/src/hash.h's approach of
// hashing the whole in-memory struct; ported to per-field hashing here
// because Go structs with pointer fields aren't safe to hash by raw
// memory (spec.md §9's "QueryResponseSignature whole-struct equality"
// design note — see DESIGN.md for the Open Question resolution).
func (s QueryResponseSignature) Hash() uint32 {
	h := table.NewHasher()
	h = hashOptUint(h, s.ServerAddressIndex)
	h = hashOptUint(h, s.ServerPort)
	h = hashOptUint(h, s.QRTransportFlags)
	h = hashOptUint(h, s.QRType)
	h = hashOptUint(h, s.QRSigFlags)
	h = hashOptUint(h, s.QueryOpcode)
	h = hashOptUint(h, s.QRDNSFlags)
	h = hashOptUint(h, s.QueryRcode)
	h = hashOptUint(h, s.QueryClasstypeIndex)
	h = hashOptUint(h, s.QueryQDCount)
	h = hashOptUint(h, s.QueryANCount)
	h = hashOptUint(h, s.QueryNSCount)
	h = hashOptUint(h, s.QueryARCount)
	h = hashOptUint(h, s.QueryEDNSVersion)
	h = hashOptUint(h, s.QueryUDPSize)
	h = hashOptUint(h, s.QueryOptRdataIndex)
	h = hashOptUint(h, s.ResponseRcode)
	return h.Sum()
}

func (s QueryResponseSignature) Equal(o QueryResponseSignature) bool {
	return ptrEqual(s.ServerAddressIndex, o.ServerAddressIndex) &&
		ptrEqual(s.ServerPort, o.ServerPort) &&
		ptrEqual(s.QRTransportFlags, o.QRTransportFlags) &&
		ptrEqual(s.QRType, o.QRType) &&
		ptrEqual(s.QRSigFlags, o.QRSigFlags) &&
		ptrEqual(s.QueryOpcode, o.QueryOpcode) &&
		ptrEqual(s.QRDNSFlags, o.QRDNSFlags) &&
		ptrEqual(s.QueryRcode, o.QueryRcode) &&
		ptrEqual(s.QueryClasstypeIndex, o.QueryClasstypeIndex) &&
		ptrEqual(s.QueryQDCount, o.QueryQDCount) &&
		ptrEqual(s.QueryANCount, o.QueryANCount) &&
		ptrEqual(s.QueryNSCount, o.QueryNSCount) &&
		ptrEqual(s.QueryARCount, o.QueryARCount) &&
		ptrEqual(s.QueryEDNSVersion, o.QueryEDNSVersion) &&
		ptrEqual(s.QueryUDPSize, o.QueryUDPSize) &&
		ptrEqual(s.QueryOptRdataIndex, o.QueryOptRdataIndex) &&
		ptrEqual(s.ResponseRcode, o.ResponseRcode)
}

func (s QueryResponseSignature) write(enc *cbor.Encoder) error {
	n := 0
	for _, present := range []bool{
		s.ServerAddressIndex != nil, s.ServerPort != nil, s.QRTransportFlags != nil, s.QRType != nil,
		s.QRSigFlags != nil, s.QueryOpcode != nil, s.QRDNSFlags != nil, s.QueryRcode != nil,
		s.QueryClasstypeIndex != nil, s.QueryQDCount != nil, s.QueryANCount != nil, s.QueryNSCount != nil,
		s.QueryARCount != nil, s.QueryEDNSVersion != nil, s.QueryUDPSize != nil, s.QueryOptRdataIndex != nil,
		s.ResponseRcode != nil,
	} {
		if present {
			n++
		}
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	write := func(key int, present bool, v uint64) error {
		if !present {
			return nil
		}
		return writeUintField(enc, key, v)
	}
	if err := write(format.KeySigServerAddressIndex, s.ServerAddressIndex != nil, derefInt(s.ServerAddressIndex)); err != nil {
		return err
	}
	if err := write(format.KeySigServerPort, s.ServerPort != nil, uint64(derefU16(s.ServerPort))); err != nil {
		return err
	}
	if err := write(format.KeySigQRTransportFlags, s.QRTransportFlags != nil, uint64(derefU8(s.QRTransportFlags))); err != nil {
		return err
	}
	if err := write(format.KeySigQRType, s.QRType != nil, uint64(derefU8(s.QRType))); err != nil {
		return err
	}
	if err := write(format.KeySigQRSigFlags, s.QRSigFlags != nil, uint64(derefU8(s.QRSigFlags))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryOpcode, s.QueryOpcode != nil, uint64(derefU8(s.QueryOpcode))); err != nil {
		return err
	}
	if err := write(format.KeySigQRDNSFlags, s.QRDNSFlags != nil, uint64(derefU16(s.QRDNSFlags))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryRcode, s.QueryRcode != nil, uint64(derefU8(s.QueryRcode))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryClasstypeIndex, s.QueryClasstypeIndex != nil, derefInt(s.QueryClasstypeIndex)); err != nil {
		return err
	}
	if err := write(format.KeySigQueryQDCount, s.QueryQDCount != nil, uint64(derefU16(s.QueryQDCount))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryANCount, s.QueryANCount != nil, uint64(derefU16(s.QueryANCount))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryNSCount, s.QueryNSCount != nil, uint64(derefU16(s.QueryNSCount))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryARCount, s.QueryARCount != nil, uint64(derefU16(s.QueryARCount))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryEDNSVersion, s.QueryEDNSVersion != nil, uint64(derefU8(s.QueryEDNSVersion))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryUDPSize, s.QueryUDPSize != nil, uint64(derefU16(s.QueryUDPSize))); err != nil {
		return err
	}
	if err := write(format.KeySigQueryOptRdataIndex, s.QueryOptRdataIndex != nil, derefInt(s.QueryOptRdataIndex)); err != nil {
		return err
	}
	if err := write(format.KeySigResponseRcode, s.ResponseRcode != nil, uint64(derefU8(s.ResponseRcode))); err != nil {
		return err
	}
	return nil
}

func derefInt(p *int) uint64 {
	if p == nil {
		return 0
	}
	return uint64(*p)
}
func derefU8(p *uint8) uint8 {
	if p == nil {
		return 0
	}
	return *p
}
func derefU16(p *uint16) uint16 {
	if p == nil {
		return 0
	}
	return *p
}

func readQueryResponseSignature(dec *cbor.Decoder) (QueryResponseSignature, error) {
	var s QueryResponseSignature
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeySigServerAddressIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			s.ServerAddressIndex = &i
			return err
		case format.KeySigServerPort:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.ServerPort = &u
			return err
		case format.KeySigQRTransportFlags:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QRTransportFlags = &u
			return err
		case format.KeySigQRType:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QRType = &u
			return err
		case format.KeySigQRSigFlags:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QRSigFlags = &u
			return err
		case format.KeySigQueryOpcode:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QueryOpcode = &u
			return err
		case format.KeySigQRDNSFlags:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QRDNSFlags = &u
			return err
		case format.KeySigQueryRcode:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QueryRcode = &u
			return err
		case format.KeySigQueryClasstypeIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			s.QueryClasstypeIndex = &i
			return err
		case format.KeySigQueryQDCount:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QueryQDCount = &u
			return err
		case format.KeySigQueryANCount:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QueryANCount = &u
			return err
		case format.KeySigQueryNSCount:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QueryNSCount = &u
			return err
		case format.KeySigQueryARCount:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QueryARCount = &u
			return err
		case format.KeySigQueryEDNSVersion:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.QueryEDNSVersion = &u
			return err
		case format.KeySigQueryUDPSize:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			s.QueryUDPSize = &u
			return err
		case format.KeySigQueryOptRdataIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			s.QueryOptRdataIndex = &i
			return err
		case format.KeySigResponseRcode:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			s.ResponseRcode = &u
			return err
		default:
			return dec.SkipItem()
		}
	})
	return s, err
}

// MalformedMessageData is the malformed_message_data table entry: the
// transport-level context around a message that failed DNS parsing, plus
// its opaque payload.
type MalformedMessageData struct {
	ServerAddressIndex *int
	ServerPort         *uint16
	TransportFlags     *uint8
	Payload            []byte
}

func (m MalformedMessageData) Hash() uint32 {
	h := table.NewHasher()
	h = hashOptUint(h, m.ServerAddressIndex)
	h = hashOptUint(h, m.ServerPort)
	h = hashOptUint(h, m.TransportFlags)
	h = h.Bytes(m.Payload)
	return h.Sum()
}

func (m MalformedMessageData) Equal(o MalformedMessageData) bool {
	return ptrEqual(m.ServerAddressIndex, o.ServerAddressIndex) &&
		ptrEqual(m.ServerPort, o.ServerPort) &&
		ptrEqual(m.TransportFlags, o.TransportFlags) &&
		bytes.Equal(m.Payload, o.Payload)
}

func (m MalformedMessageData) write(enc *cbor.Encoder) error {
	n := 1 // payload
	if m.ServerAddressIndex != nil {
		n++
	}
	if m.ServerPort != nil {
		n++
	}
	if m.TransportFlags != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if m.ServerAddressIndex != nil {
		if err := writeUintField(enc, format.KeyMMDServerAddressIndex, uint64(*m.ServerAddressIndex)); err != nil {
			return err
		}
	}
	if m.ServerPort != nil {
		if err := writeUintField(enc, format.KeyMMDServerPort, uint64(*m.ServerPort)); err != nil {
			return err
		}
	}
	if m.TransportFlags != nil {
		if err := writeUintField(enc, format.KeyMMDTransportFlags, uint64(*m.TransportFlags)); err != nil {
			return err
		}
	}
	if err := enc.WriteUnsigned(format.KeyMMDPayload); err != nil {
		return err
	}
	return enc.WriteByteString(m.Payload)
}

func readMalformedMessageData(dec *cbor.Decoder) (MalformedMessageData, error) {
	var m MalformedMessageData
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyMMDServerAddressIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			m.ServerAddressIndex = &i
			return err
		case format.KeyMMDServerPort:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			m.ServerPort = &u
			return err
		case format.KeyMMDTransportFlags:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			m.TransportFlags = &u
			return err
		case format.KeyMMDPayload:
			v, err := dec.ReadByteString()
			m.Payload = v
			return err
		default:
			return dec.SkipItem()
		}
	})
	return m, err
}
