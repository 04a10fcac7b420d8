package block

import (
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/format"
)

// ResponseProcessingData records what a resolver did while handling a
// query before answering it (spec.md §3).
type ResponseProcessingData struct {
	BailiwickIndex  *int
	ProcessingFlags *uint8
}

func (r ResponseProcessingData) write(enc *cbor.Encoder) error {
	n := 0
	if r.BailiwickIndex != nil {
		n++
	}
	if r.ProcessingFlags != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if r.BailiwickIndex != nil {
		if err := writeUintField(enc, format.KeyRPDBailiwickIndex, uint64(*r.BailiwickIndex)); err != nil {
			return err
		}
	}
	if r.ProcessingFlags != nil {
		if err := writeUintField(enc, format.KeyRPDProcessingFlags, uint64(*r.ProcessingFlags)); err != nil {
			return err
		}
	}
	return nil
}

func readResponseProcessingData(dec *cbor.Decoder) (ResponseProcessingData, error) {
	var r ResponseProcessingData
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyRPDBailiwickIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			r.BailiwickIndex = &i
			return err
		case format.KeyRPDProcessingFlags:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			r.ProcessingFlags = &u
			return err
		default:
			return dec.SkipItem()
		}
	})
	return r, err
}

// QueryResponseExtended references a message's sections as indices into
// the block's qlist (question) and rrlist (answer/authority/additional)
// tables. The same shape is used for both the query-side and
// response-side extension (spec.md §3, §6); a response-side value
// ordinarily leaves QuestionIndex unset.
type QueryResponseExtended struct {
	QuestionIndex   *int
	AnswerIndex     *int
	AuthorityIndex  *int
	AdditionalIndex *int
}

func (q QueryResponseExtended) write(enc *cbor.Encoder) error {
	n := 0
	if q.QuestionIndex != nil {
		n++
	}
	if q.AnswerIndex != nil {
		n++
	}
	if q.AuthorityIndex != nil {
		n++
	}
	if q.AdditionalIndex != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if q.QuestionIndex != nil {
		if err := writeUintField(enc, format.KeyQRExtQuestionIndex, uint64(*q.QuestionIndex)); err != nil {
			return err
		}
	}
	if q.AnswerIndex != nil {
		if err := writeUintField(enc, format.KeyQRExtAnswerIndex, uint64(*q.AnswerIndex)); err != nil {
			return err
		}
	}
	if q.AuthorityIndex != nil {
		if err := writeUintField(enc, format.KeyQRExtAuthorityIndex, uint64(*q.AuthorityIndex)); err != nil {
			return err
		}
	}
	if q.AdditionalIndex != nil {
		if err := writeUintField(enc, format.KeyQRExtAdditionalIndex, uint64(*q.AdditionalIndex)); err != nil {
			return err
		}
	}
	return nil
}

func readQueryResponseExtended(dec *cbor.Decoder) (QueryResponseExtended, error) {
	var q QueryResponseExtended
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyQRExtQuestionIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.QuestionIndex = &i
			return err
		case format.KeyQRExtAnswerIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.AnswerIndex = &i
			return err
		case format.KeyQRExtAuthorityIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.AuthorityIndex = &i
			return err
		case format.KeyQRExtAdditionalIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.AdditionalIndex = &i
			return err
		default:
			return dec.SkipItem()
		}
	})
	return q, err
}

// QueryResponse is one query/response item, stored inside a block between
// Append and Emit. Every field beyond Timestamp is optional, gated at
// append time by StorageHints' QueryResponseHints mask (spec.md §3-4.4).
// Timestamp is kept absolute while the record sits in the block; Emit
// converts it to the on-wire relative offset.
type QueryResponse struct {
	Timestamp              Timestamp
	ClientAddressIndex     *int
	ClientPort             *uint16
	TransactionID          *uint16
	QRSignatureIndex       *int
	ClientHoplimit         *uint8
	ResponseDelay          *int64
	QueryNameIndex         *int
	QuerySize              *uint16
	ResponseSize           *uint16
	ResponseProcessingData *ResponseProcessingData
	QueryExtended          *QueryResponseExtended
	ResponseExtended       *QueryResponseExtended
	ASN                    *string
	CountryCode            *string
	RoundTripTime          *int64
}

// write emits this record as a CBOR map, with TimeOffset precomputed by
// the caller (Block.Emit) relative to the block's earliest time.
func (q QueryResponse) write(enc *cbor.Encoder, timeOffset uint64, hasTimeOffset bool) error {
	n := 0
	if hasTimeOffset {
		n++
	}
	if q.ClientAddressIndex != nil {
		n++
	}
	if q.ClientPort != nil {
		n++
	}
	if q.TransactionID != nil {
		n++
	}
	if q.QRSignatureIndex != nil {
		n++
	}
	if q.ClientHoplimit != nil {
		n++
	}
	if q.ResponseDelay != nil {
		n++
	}
	if q.QueryNameIndex != nil {
		n++
	}
	if q.QuerySize != nil {
		n++
	}
	if q.ResponseSize != nil {
		n++
	}
	if q.ResponseProcessingData != nil {
		n++
	}
	if q.QueryExtended != nil {
		n++
	}
	if q.ResponseExtended != nil {
		n++
	}
	if q.ASN != nil {
		n++
	}
	if q.CountryCode != nil {
		n++
	}
	if q.RoundTripTime != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if hasTimeOffset {
		if err := writeUintField(enc, format.KeyQRTimeOffset, timeOffset); err != nil {
			return err
		}
	}
	if q.ClientAddressIndex != nil {
		if err := writeUintField(enc, format.KeyQRClientAddressIndex, uint64(*q.ClientAddressIndex)); err != nil {
			return err
		}
	}
	if q.ClientPort != nil {
		if err := writeUintField(enc, format.KeyQRClientPort, uint64(*q.ClientPort)); err != nil {
			return err
		}
	}
	if q.TransactionID != nil {
		if err := writeUintField(enc, format.KeyQRTransactionID, uint64(*q.TransactionID)); err != nil {
			return err
		}
	}
	if q.QRSignatureIndex != nil {
		if err := writeUintField(enc, format.KeyQRSignatureIndex, uint64(*q.QRSignatureIndex)); err != nil {
			return err
		}
	}
	if q.ClientHoplimit != nil {
		if err := writeUintField(enc, format.KeyQRClientHoplimit, uint64(*q.ClientHoplimit)); err != nil {
			return err
		}
	}
	if q.ResponseDelay != nil {
		if err := enc.WriteUnsigned(format.KeyQRResponseDelay); err != nil {
			return err
		}
		if err := enc.WriteInt(*q.ResponseDelay); err != nil {
			return err
		}
	}
	if q.QueryNameIndex != nil {
		if err := writeUintField(enc, format.KeyQRQueryNameIndex, uint64(*q.QueryNameIndex)); err != nil {
			return err
		}
	}
	if q.QuerySize != nil {
		if err := writeUintField(enc, format.KeyQRQuerySize, uint64(*q.QuerySize)); err != nil {
			return err
		}
	}
	if q.ResponseSize != nil {
		if err := writeUintField(enc, format.KeyQRResponseSize, uint64(*q.ResponseSize)); err != nil {
			return err
		}
	}
	if q.ResponseProcessingData != nil {
		if err := enc.WriteUnsigned(format.KeyQRResponseProcessingData); err != nil {
			return err
		}
		if err := q.ResponseProcessingData.write(enc); err != nil {
			return err
		}
	}
	if q.QueryExtended != nil {
		if err := enc.WriteUnsigned(format.KeyQRQueryExtended); err != nil {
			return err
		}
		if err := q.QueryExtended.write(enc); err != nil {
			return err
		}
	}
	if q.ResponseExtended != nil {
		if err := enc.WriteUnsigned(format.KeyQRResponseExtended); err != nil {
			return err
		}
		if err := q.ResponseExtended.write(enc); err != nil {
			return err
		}
	}
	if q.ASN != nil {
		if err := enc.WriteInt(format.KeyQRASN); err != nil {
			return err
		}
		if err := enc.WriteTextString(*q.ASN); err != nil {
			return err
		}
	}
	if q.CountryCode != nil {
		if err := enc.WriteInt(format.KeyQRCountryCode); err != nil {
			return err
		}
		if err := enc.WriteTextString(*q.CountryCode); err != nil {
			return err
		}
	}
	if q.RoundTripTime != nil {
		if err := enc.WriteInt(format.KeyQRRoundTripTime); err != nil {
			return err
		}
		if err := enc.WriteInt(*q.RoundTripTime); err != nil {
			return err
		}
	}
	return nil
}

// readQueryResponse reads a record, returning its raw time offset
// (relative, present only if hasOffset) for the caller to rehydrate into
// an absolute Timestamp once the block's earliest time is known.
func readQueryResponse(dec *cbor.Decoder) (q QueryResponse, offset uint64, hasOffset bool, err error) {
	err = readMap(dec, func(key int64) error {
		switch key {
		case format.KeyQRTimeOffset:
			v, err := dec.ReadUnsigned()
			offset = v
			hasOffset = true
			return err
		case format.KeyQRClientAddressIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.ClientAddressIndex = &i
			return err
		case format.KeyQRClientPort:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			q.ClientPort = &u
			return err
		case format.KeyQRTransactionID:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			q.TransactionID = &u
			return err
		case format.KeyQRSignatureIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.QRSignatureIndex = &i
			return err
		case format.KeyQRClientHoplimit:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			q.ClientHoplimit = &u
			return err
		case format.KeyQRResponseDelay:
			v, err := dec.ReadInt()
			q.ResponseDelay = &v
			return err
		case format.KeyQRQueryNameIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			q.QueryNameIndex = &i
			return err
		case format.KeyQRQuerySize:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			q.QuerySize = &u
			return err
		case format.KeyQRResponseSize:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			q.ResponseSize = &u
			return err
		case format.KeyQRResponseProcessingData:
			v, err := readResponseProcessingData(dec)
			q.ResponseProcessingData = &v
			return err
		case format.KeyQRQueryExtended:
			v, err := readQueryResponseExtended(dec)
			q.QueryExtended = &v
			return err
		case format.KeyQRResponseExtended:
			v, err := readQueryResponseExtended(dec)
			q.ResponseExtended = &v
			return err
		case format.KeyQRASN:
			v, err := dec.ReadTextString()
			q.ASN = &v
			return err
		case format.KeyQRCountryCode:
			v, err := dec.ReadTextString()
			q.CountryCode = &v
			return err
		case format.KeyQRRoundTripTime:
			v, err := dec.ReadInt()
			q.RoundTripTime = &v
			return err
		default:
			return dec.SkipItem()
		}
	})
	return q, offset, hasOffset, err
}

// AddressEventCount is an aggregated tally of a network-level event
// observed about a client address. Repeat appends with the same
// (Type, Code, TransportFlags, AddressIndex) tuple increment Count rather
// than creating a new entry (spec.md §3-4.4).
type AddressEventCount struct {
	Type           format.AddressEventType
	Code           *uint8
	AddressIndex   int
	TransportFlags *uint8
	Count          uint64
}

// aggregationKey returns the tuple this record aggregates on.
func (a AddressEventCount) aggregationKey() aeKey {
	var code, transport uint16 = 0xffff, 0xffff
	if a.Code != nil {
		code = uint16(*a.Code)
	}
	if a.TransportFlags != nil {
		transport = uint16(*a.TransportFlags)
	}
	return aeKey{typ: a.Type, code: code, transport: transport, addr: a.AddressIndex}
}

type aeKey struct {
	typ       format.AddressEventType
	code      uint16 // 0xffff means absent
	transport uint16 // 0xffff means absent
	addr      int
}

func (a AddressEventCount) write(enc *cbor.Encoder) error {
	n := 2 // ae_type, ae_count
	if a.Code != nil {
		n++
	}
	n++ // ae_address_index always present
	if a.TransportFlags != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if err := writeUintField(enc, format.KeyAECType, uint64(a.Type)); err != nil {
		return err
	}
	if a.Code != nil {
		if err := writeUintField(enc, format.KeyAECCode, uint64(*a.Code)); err != nil {
			return err
		}
	}
	if err := writeUintField(enc, format.KeyAECAddressIndex, uint64(a.AddressIndex)); err != nil {
		return err
	}
	if a.TransportFlags != nil {
		if err := writeUintField(enc, format.KeyAECTransportFlags, uint64(*a.TransportFlags)); err != nil {
			return err
		}
	}
	return writeUintField(enc, format.KeyAECCount, a.Count)
}

func readAddressEventCount(dec *cbor.Decoder) (AddressEventCount, error) {
	var a AddressEventCount
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyAECType:
			v, err := dec.ReadUnsigned()
			a.Type = format.AddressEventType(v)
			return err
		case format.KeyAECCode:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			a.Code = &u
			return err
		case format.KeyAECAddressIndex:
			v, err := dec.ReadUnsigned()
			a.AddressIndex = int(v)
			return err
		case format.KeyAECTransportFlags:
			v, err := dec.ReadUnsigned()
			u := uint8(v)
			a.TransportFlags = &u
			return err
		case format.KeyAECCount:
			v, err := dec.ReadUnsigned()
			a.Count = v
			return err
		default:
			return dec.SkipItem()
		}
	})
	return a, err
}

// MalformedMessage is one captured message that failed DNS parsing,
// stored in the block between Append and Emit.
type MalformedMessage struct {
	Timestamp           Timestamp
	ClientAddressIndex  *int
	ClientPort          *uint16
	MessageDataIndex    *int
}

func (m MalformedMessage) write(enc *cbor.Encoder, timeOffset uint64, hasTimeOffset bool) error {
	n := 0
	if hasTimeOffset {
		n++
	}
	if m.ClientAddressIndex != nil {
		n++
	}
	if m.ClientPort != nil {
		n++
	}
	if m.MessageDataIndex != nil {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if hasTimeOffset {
		if err := writeUintField(enc, format.KeyMMTimeOffset, timeOffset); err != nil {
			return err
		}
	}
	if m.ClientAddressIndex != nil {
		if err := writeUintField(enc, format.KeyMMClientAddressIndex, uint64(*m.ClientAddressIndex)); err != nil {
			return err
		}
	}
	if m.ClientPort != nil {
		if err := writeUintField(enc, format.KeyMMClientPort, uint64(*m.ClientPort)); err != nil {
			return err
		}
	}
	if m.MessageDataIndex != nil {
		if err := writeUintField(enc, format.KeyMMMessageDataIndex, uint64(*m.MessageDataIndex)); err != nil {
			return err
		}
	}
	return nil
}

func readMalformedMessage(dec *cbor.Decoder) (m MalformedMessage, offset uint64, hasOffset bool, err error) {
	err = readMap(dec, func(key int64) error {
		switch key {
		case format.KeyMMTimeOffset:
			v, err := dec.ReadUnsigned()
			offset = v
			hasOffset = true
			return err
		case format.KeyMMClientAddressIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			m.ClientAddressIndex = &i
			return err
		case format.KeyMMClientPort:
			v, err := dec.ReadUnsigned()
			u := uint16(v)
			m.ClientPort = &u
			return err
		case format.KeyMMMessageDataIndex:
			v, err := dec.ReadUnsigned()
			i := int(v)
			m.MessageDataIndex = &i
			return err
		default:
			return dec.SkipItem()
		}
	})
	return m, offset, hasOffset, err
}
