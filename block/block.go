package block

import (
	"fmt"

	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
)

// Statistics is the caller-maintained set of per-block counters. The
// block writes the most recently supplied value as its block_statistics
// entry on Emit; it is never computed by the block itself (spec.md §9,
// "statistics ownership").
type Statistics struct {
	ProcessedMessages  *uint64
	QRDataItems        *uint64
	UnmatchedQueries   *uint64
	UnmatchedResponses *uint64
	DiscardedOpcode    *uint64
	MalformedItems     *uint64
}

func (s Statistics) empty() bool {
	return s.ProcessedMessages == nil && s.QRDataItems == nil && s.UnmatchedQueries == nil &&
		s.UnmatchedResponses == nil && s.DiscardedOpcode == nil && s.MalformedItems == nil
}

func (s Statistics) write(enc *cbor.Encoder) error {
	n := 0
	for _, p := range []*uint64{s.ProcessedMessages, s.QRDataItems, s.UnmatchedQueries, s.UnmatchedResponses, s.DiscardedOpcode, s.MalformedItems} {
		if p != nil {
			n++
		}
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	fields := []struct {
		key int
		v   *uint64
	}{
		{format.KeyProcessedMessages, s.ProcessedMessages},
		{format.KeyQRDataItems, s.QRDataItems},
		{format.KeyUnmatchedQueries, s.UnmatchedQueries},
		{format.KeyUnmatchedResponses, s.UnmatchedResponses},
		{format.KeyDiscardedOpcode, s.DiscardedOpcode},
		{format.KeyMalformedItems, s.MalformedItems},
	}
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if err := writeUintField(enc, f.key, *f.v); err != nil {
			return err
		}
	}
	return nil
}

func readStatistics(dec *cbor.Decoder) (Statistics, error) {
	var s Statistics
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyProcessedMessages:
			v, err := dec.ReadUnsigned()
			s.ProcessedMessages = &v
			return err
		case format.KeyQRDataItems:
			v, err := dec.ReadUnsigned()
			s.QRDataItems = &v
			return err
		case format.KeyUnmatchedQueries:
			v, err := dec.ReadUnsigned()
			s.UnmatchedQueries = &v
			return err
		case format.KeyUnmatchedResponses:
			v, err := dec.ReadUnsigned()
			s.UnmatchedResponses = &v
			return err
		case format.KeyDiscardedOpcode:
			v, err := dec.ReadUnsigned()
			s.DiscardedOpcode = &v
			return err
		case format.KeyMalformedItems:
			v, err := dec.ReadUnsigned()
			s.MalformedItems = &v
			return err
		default:
			return dec.SkipItem()
		}
	})
	return s, err
}

// QuestionInput and RRInput are the raw shapes a caller builds a section
// from; Block interns their Name/Class/Rdata fields during Append, per
// spec.md §4.4.
type QuestionInput struct {
	Name  []byte
	Class ClassType
}

type RRInput struct {
	Name  []byte
	Class ClassType
	TTL   *uint32
	Rdata []byte
}

// QueryResponseSignatureInput is the raw shape of a query/response
// signature; Block interns ServerAddress, QueryClassType and
// QueryOptRdata during Append.
type QueryResponseSignatureInput struct {
	ServerAddress    []byte
	ServerPort       *uint16
	QRTransportFlags *uint8
	QRType           *uint8
	QRSigFlags       *uint8
	QueryOpcode      *uint8
	QRDNSFlags       *uint16
	QueryRcode       *uint8
	QueryClassType   *ClassType
	QueryQDCount     *uint16
	QueryANCount     *uint16
	QueryNSCount     *uint16
	QueryARCount     *uint16
	QueryEDNSVersion *uint8
	QueryUDPSize     *uint16
	QueryOptRdata    []byte
	ResponseRcode    *uint8
}

// QueryResponseAppend is the generic input record Append accepts: every
// optional field present/absent, with section contents and signature
// still in raw (pre-interned) form (spec.md §4.4).
type QueryResponseAppend struct {
	Timestamp              Timestamp
	ClientAddress          []byte
	ClientPort             *uint16
	TransactionID          *uint16
	Signature              *QueryResponseSignatureInput
	ClientHoplimit         *uint8
	ResponseDelay          *int64
	QueryName              []byte
	QuerySize              *uint16
	ResponseSize           *uint16
	BailiwickName          []byte
	ProcessingFlags        *uint8
	HasResponseProcessing  bool
	QueryQuestions         []QuestionInput
	QueryAnswers           []RRInput
	QueryAuthority         []RRInput
	QueryAdditional        []RRInput
	ResponseAnswers        []RRInput
	ResponseAuthority      []RRInput
	ResponseAdditional     []RRInput
	ASN                    *string
	CountryCode            *string
	RoundTripTime          *int64
}

// MalformedMessageAppend is the generic input for a malformed message.
type MalformedMessageAppend struct {
	Timestamp      Timestamp
	ClientAddress  []byte
	ClientPort     *uint16
	ServerAddress  []byte
	ServerPort     *uint16
	TransportFlags *uint8
	Payload        []byte
}

// Block is the in-memory representation of one C-DNS block: its
// preamble, optional caller-supplied statistics, the nine deduplicating
// tables, and the three per-block item arrays (spec.md §3-4.4).
//
// A Block is single-threaded and non-reentrant, per spec.md §5.
type Block struct {
	params      *BlockParameters
	paramsIndex int

	earliestTime Timestamp
	haveEarliest bool
	statistics   Statistics

	tables *tables

	queryResponses    []QueryResponse
	malformedMessages []MalformedMessage

	aeOrder []aeKey
	aeByKey map[aeKey]*AddressEventCount
}

// New constructs an empty Block bound to params, recording paramsIndex —
// the index of params within the owning file preamble's BlockParameters
// array — for the block preamble (spec.md §4.4 step 1).
func New(params *BlockParameters, paramsIndex int) *Block {
	return &Block{
		params:      params,
		paramsIndex: paramsIndex,
		tables:      newTables(),
		aeByKey:     make(map[aeKey]*AddressEventCount),
	}
}

// SetParameters swaps the block's parameters. Only valid when the block
// is Empty (spec.md §4.4 step 5).
func (b *Block) SetParameters(params *BlockParameters, paramsIndex int) error {
	if !b.Empty() {
		return errs.ErrBlockNotEmpty
	}
	b.params = params
	b.paramsIndex = paramsIndex
	return nil
}

// Empty reports whether the block holds no items and no table entries —
// the Empty state of the two-state machine in spec.md §4.4.
func (b *Block) Empty() bool {
	return len(b.queryResponses) == 0 && len(b.malformedMessages) == 0 &&
		len(b.aeOrder) == 0 && b.tables.empty()
}

// SetStatistics records the caller's latest statistics snapshot, written
// as the block's block_statistics entry on Emit.
func (b *Block) SetStatistics(s Statistics) {
	b.statistics = s
}

func (b *Block) touchEarliest(ts Timestamp) {
	if !b.haveEarliest || ts.Before(b.earliestTime) {
		b.earliestTime = ts
		b.haveEarliest = true
	}
}

func hasBit32(mask uint32, bit uint32) bool { return mask&bit != 0 }
func hasBit8(mask uint8, bit uint8) bool    { return mask&bit != 0 }

// internQuestions interns a raw question section into the question/qlist
// tables and returns the qlist index, or nil if sections is empty.
func (b *Block) internQuestions(sections []QuestionInput) *int {
	if len(sections) == 0 {
		return nil
	}
	qs := make([]Question, len(sections))
	for i, s := range sections {
		nameIdx := b.tables.nameRdata.Add(NameRdata(s.Name))
		ctIdx := b.tables.classType.Add(s.Class)
		qs[i] = Question{NameIndex: nameIdx, ClasstypeIndex: ctIdx}
	}
	idx := b.tables.internQuestionList(qs)
	return &idx
}

// internRRs interns a raw RR section into the rr/rrlist tables and
// returns the rrlist index, or nil if sections is empty.
func (b *Block) internRRs(sections []RRInput) *int {
	if len(sections) == 0 {
		return nil
	}
	rrs := make([]RR, len(sections))
	for i, s := range sections {
		nameIdx := b.tables.nameRdata.Add(NameRdata(s.Name))
		ctIdx := b.tables.classType.Add(s.Class)
		r := RR{NameIndex: nameIdx, ClasstypeIndex: ctIdx}
		if s.TTL != nil && hasBit8(b.params.Storage.Hints.RRHints, format.RRHintTTL) {
			ttl := *s.TTL
			r.TTL = &ttl
		}
		if s.Rdata != nil && hasBit8(b.params.Storage.Hints.RRHints, format.RRHintRdataIndex) {
			ri := b.tables.nameRdata.Add(NameRdata(s.Rdata))
			r.RdataIndex = &ri
		}
		rrs[i] = r
	}
	idx := b.tables.internRRList(rrs)
	return &idx
}

func (b *Block) internSignature(in *QueryResponseSignatureInput) *int {
	if in == nil {
		return nil
	}
	hints := b.params.Storage.Hints.QueryResponseSignatureHints
	var sig QueryResponseSignature
	if in.ServerAddress != nil && hasBit32(hints, format.SigHintServerAddressIndex) {
		i := b.tables.ipAddress.Add(IPAddress(in.ServerAddress))
		sig.ServerAddressIndex = &i
	}
	if in.ServerPort != nil && hasBit32(hints, format.SigHintServerPort) {
		sig.ServerPort = in.ServerPort
	}
	if in.QRTransportFlags != nil && hasBit32(hints, format.SigHintQRTransportFlags) {
		sig.QRTransportFlags = in.QRTransportFlags
	}
	if in.QRType != nil && hasBit32(hints, format.SigHintQRType) {
		sig.QRType = in.QRType
	}
	if in.QRSigFlags != nil && hasBit32(hints, format.SigHintQRSigFlags) {
		sig.QRSigFlags = in.QRSigFlags
	}
	if in.QueryOpcode != nil && hasBit32(hints, format.SigHintQueryOpcode) {
		sig.QueryOpcode = in.QueryOpcode
	}
	if in.QRDNSFlags != nil && hasBit32(hints, format.SigHintQRDNSFlags) {
		sig.QRDNSFlags = in.QRDNSFlags
	}
	if in.QueryRcode != nil && hasBit32(hints, format.SigHintQueryRcode) {
		sig.QueryRcode = in.QueryRcode
	}
	if in.QueryClassType != nil && hasBit32(hints, format.SigHintQueryClasstypeIndex) {
		i := b.tables.classType.Add(*in.QueryClassType)
		sig.QueryClasstypeIndex = &i
	}
	if in.QueryQDCount != nil && hasBit32(hints, format.SigHintQueryQDCount) {
		sig.QueryQDCount = in.QueryQDCount
	}
	if in.QueryANCount != nil && hasBit32(hints, format.SigHintQueryANCount) {
		sig.QueryANCount = in.QueryANCount
	}
	if in.QueryNSCount != nil && hasBit32(hints, format.SigHintQueryNSCount) {
		sig.QueryNSCount = in.QueryNSCount
	}
	if in.QueryARCount != nil && hasBit32(hints, format.SigHintQueryARCount) {
		sig.QueryARCount = in.QueryARCount
	}
	if in.QueryEDNSVersion != nil && hasBit32(hints, format.SigHintQueryEDNSVersion) {
		sig.QueryEDNSVersion = in.QueryEDNSVersion
	}
	if in.QueryUDPSize != nil && hasBit32(hints, format.SigHintQueryUDPSize) {
		sig.QueryUDPSize = in.QueryUDPSize
	}
	if in.QueryOptRdata != nil && hasBit32(hints, format.SigHintQueryOptRdataIndex) {
		i := b.tables.nameRdata.Add(NameRdata(in.QueryOptRdata))
		sig.QueryOptRdataIndex = &i
	}
	if in.ResponseRcode != nil && hasBit32(hints, format.SigHintResponseRcode) {
		sig.ResponseRcode = in.ResponseRcode
	}
	idx := b.tables.qrSig.Add(sig)
	return &idx
}

// AppendQueryResponse appends a query/response record, applying
// StorageHints field gating, interning section/signature content, and
// updating the block's earliest time, per spec.md §4.4 step 2.
func (b *Block) AppendQueryResponse(in QueryResponseAppend) error {
	if b.params == nil {
		return errs.ErrParamsNotSet
	}
	hints := b.params.Storage.Hints.QueryResponseHints

	var q QueryResponse
	if in.ClientAddress != nil && hasBit32(hints, format.QRHintClientAddressIndex) {
		i := b.tables.ipAddress.Add(IPAddress(in.ClientAddress))
		q.ClientAddressIndex = &i
	}
	if in.ClientPort != nil && hasBit32(hints, format.QRHintClientPort) {
		q.ClientPort = in.ClientPort
	}
	if in.TransactionID != nil && hasBit32(hints, format.QRHintTransactionID) {
		q.TransactionID = in.TransactionID
	}
	if in.Signature != nil && hasBit32(hints, format.QRHintQRSignatureIndex) {
		q.QRSignatureIndex = b.internSignature(in.Signature)
	}
	if in.ClientHoplimit != nil && hasBit32(hints, format.QRHintClientHoplimit) {
		q.ClientHoplimit = in.ClientHoplimit
	}
	if in.ResponseDelay != nil && hasBit32(hints, format.QRHintResponseDelay) {
		q.ResponseDelay = in.ResponseDelay
	}
	if in.QueryName != nil && hasBit32(hints, format.QRHintQueryNameIndex) {
		i := b.tables.nameRdata.Add(NameRdata(in.QueryName))
		q.QueryNameIndex = &i
	}
	if in.QuerySize != nil && hasBit32(hints, format.QRHintQuerySize) {
		q.QuerySize = in.QuerySize
	}
	if in.ResponseSize != nil && hasBit32(hints, format.QRHintResponseSize) {
		q.ResponseSize = in.ResponseSize
	}
	if in.HasResponseProcessing && hasBit32(hints, format.QRHintResponseProcessingData) {
		var rpd ResponseProcessingData
		if in.BailiwickName != nil {
			i := b.tables.nameRdata.Add(NameRdata(in.BailiwickName))
			rpd.BailiwickIndex = &i
		}
		rpd.ProcessingFlags = in.ProcessingFlags
		q.ResponseProcessingData = &rpd
	}

	var qext QueryResponseExtended
	haveQext := false
	if hasBit32(hints, format.QRHintQueryQuestionSections) {
		if idx := b.internQuestions(in.QueryQuestions); idx != nil {
			qext.QuestionIndex = idx
			haveQext = true
		}
	}
	if hasBit32(hints, format.QRHintQueryAnswerSections) {
		if idx := b.internRRs(in.QueryAnswers); idx != nil {
			qext.AnswerIndex = idx
			haveQext = true
		}
	}
	if hasBit32(hints, format.QRHintQueryAuthoritySections) {
		if idx := b.internRRs(in.QueryAuthority); idx != nil {
			qext.AuthorityIndex = idx
			haveQext = true
		}
	}
	if hasBit32(hints, format.QRHintQueryAdditionalSections) {
		if idx := b.internRRs(in.QueryAdditional); idx != nil {
			qext.AdditionalIndex = idx
			haveQext = true
		}
	}
	if haveQext {
		q.QueryExtended = &qext
	}

	var rext QueryResponseExtended
	haveRext := false
	if hasBit32(hints, format.QRHintResponseAnswerSections) {
		if idx := b.internRRs(in.ResponseAnswers); idx != nil {
			rext.AnswerIndex = idx
			haveRext = true
		}
	}
	if hasBit32(hints, format.QRHintResponseAuthoritySections) {
		if idx := b.internRRs(in.ResponseAuthority); idx != nil {
			rext.AuthorityIndex = idx
			haveRext = true
		}
	}
	if hasBit32(hints, format.QRHintResponseAdditionalSections) {
		if idx := b.internRRs(in.ResponseAdditional); idx != nil {
			rext.AdditionalIndex = idx
			haveRext = true
		}
	}
	if haveRext {
		q.ResponseExtended = &rext
	}

	q.ASN = in.ASN
	q.CountryCode = in.CountryCode
	q.RoundTripTime = in.RoundTripTime

	if hasBit32(hints, format.QRHintTimeOffset) {
		q.Timestamp = in.Timestamp
	}
	b.touchEarliest(in.Timestamp)
	b.queryResponses = append(b.queryResponses, q)
	return nil
}

// AppendMalformedMessage appends a malformed-message record, interning
// its server address and payload, gated by OtherDataHints
// (spec.md §4.4 step 2).
func (b *Block) AppendMalformedMessage(in MalformedMessageAppend) error {
	if b.params == nil {
		return errs.ErrParamsNotSet
	}
	if !hasBit8(b.params.Storage.Hints.OtherDataHints, format.OtherDataHintMalformedMessages) {
		return nil
	}

	var mmd MalformedMessageData
	if in.ServerAddress != nil {
		i := b.tables.ipAddress.Add(IPAddress(in.ServerAddress))
		mmd.ServerAddressIndex = &i
	}
	mmd.ServerPort = in.ServerPort
	mmd.TransportFlags = in.TransportFlags
	mmd.Payload = in.Payload
	dataIdx := b.tables.malformedMsg.Add(mmd)

	var m MalformedMessage
	m.Timestamp = in.Timestamp
	if in.ClientAddress != nil {
		i := b.tables.ipAddress.Add(IPAddress(in.ClientAddress))
		m.ClientAddressIndex = &i
	}
	m.ClientPort = in.ClientPort
	m.MessageDataIndex = &dataIdx

	b.touchEarliest(in.Timestamp)
	b.malformedMessages = append(b.malformedMessages, m)
	return nil
}

// AppendAddressEventCount appends, or aggregates into an existing entry,
// one address-event observation. The tuple (Type, Code, TransportFlags,
// AddressIndex) is the aggregation key; a new key starts at count 1 and
// each repeat increments the stored count by exactly 1. The caller
// supplies no count — the observed behavior of the reference
// implementation's add_address_event_count, preserved per spec.md §9's
// open question.
func (b *Block) AppendAddressEventCount(typ format.AddressEventType, code *uint8, address []byte, transportFlags *uint8) error {
	if b.params == nil {
		return errs.ErrParamsNotSet
	}
	if !hasBit8(b.params.Storage.Hints.OtherDataHints, format.OtherDataHintAddressEventCounts) {
		return nil
	}
	addrIdx := b.tables.ipAddress.Add(IPAddress(address))
	a := AddressEventCount{Type: typ, Code: code, AddressIndex: addrIdx, TransportFlags: transportFlags, Count: 1}
	key := a.aggregationKey()
	if existing, ok := b.aeByKey[key]; ok {
		existing.Count++
		return nil
	}
	b.aeByKey[key] = &a
	b.aeOrder = append(b.aeOrder, key)
	return nil
}

// IsFull reports whether any of the three item arrays has reached
// max_block_items. Advisory only: the caller decides whether to flush
// (spec.md §4.4 step 3).
func (b *Block) IsFull() bool {
	if b.params == nil {
		return false
	}
	maxItems := int(b.params.Storage.MaxBlockItems)
	if maxItems <= 0 {
		return false
	}
	return len(b.queryResponses) >= maxItems || len(b.malformedMessages) >= maxItems || len(b.aeOrder) >= maxItems
}

// ItemCount returns the total number of records appended so far, with
// duplicate address-event aggregations counted once (spec.md §8).
func (b *Block) ItemCount() int {
	return len(b.queryResponses) + len(b.malformedMessages) + len(b.aeOrder)
}

// Emit writes the block to enc as a CBOR map with up to six keys:
// preamble, statistics (if any), block tables (if any), and the three
// item arrays (if any), per spec.md §4.4 step 4.
func (b *Block) Emit(enc *cbor.Encoder) error {
	if b.params == nil {
		return errs.ErrParamsNotSet
	}

	n := 1 // block_preamble always present
	haveStats := !b.statistics.empty()
	if haveStats {
		n++
	}
	haveTables := !b.tables.empty()
	if haveTables {
		n++
	}
	haveQR := len(b.queryResponses) > 0
	if haveQR {
		n++
	}
	haveAE := len(b.aeOrder) > 0
	if haveAE {
		n++
	}
	haveMM := len(b.malformedMessages) > 0
	if haveMM {
		n++
	}

	if err := enc.WriteMapStart(n); err != nil {
		return err
	}

	if err := enc.WriteUnsigned(format.KeyBlockPreamble); err != nil {
		return err
	}
	if err := b.writePreamble(enc); err != nil {
		return err
	}

	if haveStats {
		if err := enc.WriteUnsigned(format.KeyBlockStatistics); err != nil {
			return err
		}
		if err := b.statistics.write(enc); err != nil {
			return err
		}
	}

	if haveTables {
		if err := enc.WriteUnsigned(format.KeyBlockTables); err != nil {
			return err
		}
		if err := b.tables.write(enc); err != nil {
			return err
		}
	}

	ticksPerSecond := b.params.Storage.TicksPerSecond
	hasOffsetHint := hasBit32(b.params.Storage.Hints.QueryResponseHints, format.QRHintTimeOffset)

	if haveQR {
		if err := enc.WriteUnsigned(format.KeyQueryResponses); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(b.queryResponses)); err != nil {
			return err
		}
		for _, q := range b.queryResponses {
			var offset uint64
			has := hasOffsetHint
			if has {
				var err error
				offset, err = q.Timestamp.Offset(b.earliestTime, ticksPerSecond)
				if err != nil {
					return err
				}
			}
			if err := q.write(enc, offset, has); err != nil {
				return err
			}
		}
	}

	if haveAE {
		if err := enc.WriteUnsigned(format.KeyAddressEventCounts); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(b.aeOrder)); err != nil {
			return err
		}
		for _, key := range b.aeOrder {
			if err := b.aeByKey[key].write(enc); err != nil {
				return err
			}
		}
	}

	if haveMM {
		if err := enc.WriteUnsigned(format.KeyMalformedMessages); err != nil {
			return err
		}
		if err := enc.WriteArrayStart(len(b.malformedMessages)); err != nil {
			return err
		}
		for _, m := range b.malformedMessages {
			offset, err := m.Timestamp.Offset(b.earliestTime, ticksPerSecond)
			if err != nil {
				return err
			}
			if err := m.write(enc, offset, true); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Block) writePreamble(enc *cbor.Encoder) error {
	n := 1 // earliest_time always written
	if b.paramsIndex != 0 {
		n++
	}
	if err := enc.WriteMapStart(n); err != nil {
		return err
	}
	if err := enc.WriteUnsigned(format.KeyEarliestTime); err != nil {
		return err
	}
	if err := b.earliestTime.write(enc); err != nil {
		return err
	}
	if b.paramsIndex != 0 {
		if err := writeUintField(enc, format.KeyBlockParametersIndex, uint64(b.paramsIndex)); err != nil {
			return err
		}
	}
	return nil
}

// Clear empties the block: tables, items, statistics and the earliest
// time are all reset (spec.md §4.4 step 5).
func (b *Block) Clear() {
	b.tables.clear()
	b.queryResponses = nil
	b.malformedMessages = nil
	b.aeOrder = nil
	b.aeByKey = make(map[aeKey]*AddressEventCount)
	b.haveEarliest = false
	b.earliestTime = Timestamp{}
	b.statistics = Statistics{}
}

// Read rehydrates a Block fully into memory from dec, resolving
// block_parameters_index against paramsArena and converting every
// record's relative time offset back into an absolute Timestamp
// (spec.md §4.5).
func Read(dec *cbor.Decoder, paramsArena []BlockParameters) (*Block, error) {
	b := &Block{tables: newTables(), aeByKey: make(map[aeKey]*AddressEventCount)}

	var ticksPerSecond uint64
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyBlockPreamble:
			earliest, idx, err := readBlockPreamble(dec)
			if err != nil {
				return err
			}
			if idx >= len(paramsArena) {
				return fmt.Errorf("block_parameters_index %d out of range (%d entries): %w", idx, len(paramsArena), errs.ErrBlockParamsIndex)
			}
			b.earliestTime = earliest
			b.haveEarliest = true
			b.paramsIndex = idx
			b.params = &paramsArena[idx]
			ticksPerSecond = b.params.Storage.TicksPerSecond
			return nil
		case format.KeyBlockStatistics:
			s, err := readStatistics(dec)
			b.statistics = s
			return err
		case format.KeyBlockTables:
			t, err := readTables(dec)
			b.tables = t
			return err
		case format.KeyQueryResponses:
			return dec.ReadArray(func(int) error {
				q, offset, hasOffset, err := readQueryResponse(dec)
				if err != nil {
					return err
				}
				if hasOffset {
					ts, err := Add(b.earliestTime, offset, ticksPerSecond)
					if err != nil {
						return err
					}
					q.Timestamp = ts
				}
				b.queryResponses = append(b.queryResponses, q)
				return nil
			})
		case format.KeyAddressEventCounts:
			return dec.ReadArray(func(int) error {
				a, err := readAddressEventCount(dec)
				if err != nil {
					return err
				}
				key := a.aggregationKey()
				b.aeOrder = append(b.aeOrder, key)
				b.aeByKey[key] = &a
				return nil
			})
		case format.KeyMalformedMessages:
			return dec.ReadArray(func(int) error {
				m, offset, hasOffset, err := readMalformedMessage(dec)
				if err != nil {
					return err
				}
				if hasOffset {
					ts, err := Add(b.earliestTime, offset, ticksPerSecond)
					if err != nil {
						return err
					}
					m.Timestamp = ts
				}
				b.malformedMessages = append(b.malformedMessages, m)
				return nil
			})
		default:
			return dec.SkipItem()
		}
	})
	if err != nil {
		return nil, err
	}
	if b.params == nil {
		return nil, fmt.Errorf("block missing block_preamble: %w", errs.ErrMissingKey)
	}
	return b, nil
}

func readBlockPreamble(dec *cbor.Decoder) (earliest Timestamp, paramsIndex int, err error) {
	haveEarliest := false
	err = readMap(dec, func(key int64) error {
		switch key {
		case format.KeyEarliestTime:
			ts, err := readTimestamp(dec)
			earliest = ts
			haveEarliest = true
			return err
		case format.KeyBlockParametersIndex:
			v, err := dec.ReadUnsigned()
			paramsIndex = int(v)
			return err
		default:
			return dec.SkipItem()
		}
	})
	if err == nil && !haveEarliest {
		err = fmt.Errorf("block_preamble missing earliest_time: %w", errs.ErrMissingKey)
	}
	return earliest, paramsIndex, err
}

// QueryResponses returns the block's query/response items, in append
// order.
func (b *Block) QueryResponses() []QueryResponse { return b.queryResponses }

// MalformedMessages returns the block's malformed-message items, in
// append order.
func (b *Block) MalformedMessages() []MalformedMessage { return b.malformedMessages }

// AddressEventCounts returns the block's aggregated address-event
// counts, in first-seen order.
func (b *Block) AddressEventCounts() []AddressEventCount {
	out := make([]AddressEventCount, len(b.aeOrder))
	for i, k := range b.aeOrder {
		out[i] = *b.aeByKey[k]
	}
	return out
}

// EarliestTime returns the block's earliest recorded timestamp.
func (b *Block) EarliestTime() Timestamp { return b.earliestTime }

// Parameters returns the BlockParameters this block is bound to.
func (b *Block) Parameters() *BlockParameters { return b.params }

// ParametersIndex returns the index of this block's parameters within
// the owning file preamble's BlockParameters array.
func (b *Block) ParametersIndex() int { return b.paramsIndex }
