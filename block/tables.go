package block

import (
	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/format"
	"github.com/dns-stats/cdns/internal/table"
)

// tables bundles the nine per-block deduplicating tables (spec.md §3,
// §4.3). qlist/rrlist store IndexList entries pointing into qrr/rr
// respectively; every other table stores its own value type directly.
type tables struct {
	ipAddress    *table.Table[IPAddress]
	classType    *table.Table[ClassType]
	nameRdata    *table.Table[NameRdata]
	qrSig        *table.Table[QueryResponseSignature]
	qlist        *table.Table[IndexList]
	qrr          *table.Table[Question]
	rrlist       *table.Table[IndexList]
	rr           *table.Table[RR]
	malformedMsg *table.Table[MalformedMessageData]
}

func newTables() *tables {
	return &tables{
		ipAddress:    table.New[IPAddress](),
		classType:    table.New[ClassType](),
		nameRdata:    table.New[NameRdata](),
		qrSig:        table.New[QueryResponseSignature](),
		qlist:        table.New[IndexList](),
		qrr:          table.New[Question](),
		rrlist:       table.New[IndexList](),
		rr:           table.New[RR](),
		malformedMsg: table.New[MalformedMessageData](),
	}
}

func (t *tables) clear() {
	t.ipAddress.Clear()
	t.classType.Clear()
	t.nameRdata.Clear()
	t.qrSig.Clear()
	t.qlist.Clear()
	t.qrr.Clear()
	t.rrlist.Clear()
	t.rr.Clear()
	t.malformedMsg.Clear()
}

func (t *tables) empty() bool {
	return t.ipAddress.Size() == 0 && t.classType.Size() == 0 && t.nameRdata.Size() == 0 &&
		t.qrSig.Size() == 0 && t.qlist.Size() == 0 && t.qrr.Size() == 0 &&
		t.rrlist.Size() == 0 && t.rr.Size() == 0 && t.malformedMsg.Size() == 0
}

// internRRList interns each RR into the rr table, collects the resulting
// indices, then interns the resulting IndexList into rrlist — the
// two-level dedup spec.md §4.4 describes for rr-list fields.
func (t *tables) internRRList(rrs []RR) int {
	indices := make(IndexList, len(rrs))
	for i, r := range rrs {
		indices[i] = t.rr.Add(r)
	}
	return t.rrlist.Add(indices)
}

// internQuestionList is internRRList's counterpart for the question side.
func (t *tables) internQuestionList(questions []Question) int {
	indices := make(IndexList, len(questions))
	for i, q := range questions {
		indices[i] = t.qrr.Add(q)
	}
	return t.qlist.Add(indices)
}

// write emits the non-empty tables as the block_tables map, in canonical
// key order (spec.md §4.4: "only non-empty tables appear").
func (t *tables) write(enc *cbor.Encoder) error {
	type entry struct {
		key   int
		count int
		write func() error
	}
	entries := []entry{
		{format.KeyIPAddressTable, t.ipAddress.Size(), func() error { return writeTable(enc, t.ipAddress) }},
		{format.KeyClassTypeTable, t.classType.Size(), func() error { return writeTable(enc, t.classType) }},
		{format.KeyNameRdataTable, t.nameRdata.Size(), func() error { return writeTable(enc, t.nameRdata) }},
		{format.KeyQRSigTable, t.qrSig.Size(), func() error { return writeTable(enc, t.qrSig) }},
		{format.KeyQListTable, t.qlist.Size(), func() error { return writeTable(enc, t.qlist) }},
		{format.KeyQRRTable, t.qrr.Size(), func() error { return writeTable(enc, t.qrr) }},
		{format.KeyRRListTable, t.rrlist.Size(), func() error { return writeTable(enc, t.rrlist) }},
		{format.KeyRRTable, t.rr.Size(), func() error { return writeTable(enc, t.rr) }},
		{format.KeyMalformedMessageDataTable, t.malformedMsg.Size(), func() error { return writeTable(enc, t.malformedMsg) }},
	}

	nonEmpty := 0
	for _, e := range entries {
		if e.count > 0 {
			nonEmpty++
		}
	}
	if err := enc.WriteMapStart(nonEmpty); err != nil {
		return err
	}
	for _, e := range entries {
		if e.count == 0 {
			continue
		}
		if err := enc.WriteUnsigned(uint64(e.key)); err != nil {
			return err
		}
		if err := e.write(); err != nil {
			return err
		}
	}
	return nil
}

// tableValue is satisfied by every block-table entry type; write emits
// one element of that table's wire array.
type tableValue interface {
	write(enc *cbor.Encoder) error
}

func writeTable[V interface {
	table.Keyed[V]
	tableValue
}](enc *cbor.Encoder, t *table.Table[V]) error {
	if err := enc.WriteArrayStart(t.Size()); err != nil {
		return err
	}
	for _, v := range t.All() {
		if err := v.write(enc); err != nil {
			return err
		}
	}
	return nil
}

func readTables(dec *cbor.Decoder) (*tables, error) {
	t := newTables()
	err := readMap(dec, func(key int64) error {
		switch key {
		case format.KeyIPAddressTable:
			return dec.ReadArray(func(int) error {
				v, err := readIPAddress(dec)
				t.ipAddress.AddValue(v)
				return err
			})
		case format.KeyClassTypeTable:
			return dec.ReadArray(func(int) error {
				v, err := readClassType(dec)
				t.classType.AddValue(v)
				return err
			})
		case format.KeyNameRdataTable:
			return dec.ReadArray(func(int) error {
				v, err := readNameRdata(dec)
				t.nameRdata.AddValue(v)
				return err
			})
		case format.KeyQRSigTable:
			return dec.ReadArray(func(int) error {
				v, err := readQueryResponseSignature(dec)
				t.qrSig.AddValue(v)
				return err
			})
		case format.KeyQListTable:
			return dec.ReadArray(func(int) error {
				v, err := readIndexList(dec)
				t.qlist.AddValue(v)
				return err
			})
		case format.KeyQRRTable:
			return dec.ReadArray(func(int) error {
				v, err := readQuestion(dec)
				t.qrr.AddValue(v)
				return err
			})
		case format.KeyRRListTable:
			return dec.ReadArray(func(int) error {
				v, err := readIndexList(dec)
				t.rrlist.AddValue(v)
				return err
			})
		case format.KeyRRTable:
			return dec.ReadArray(func(int) error {
				v, err := readRR(dec)
				t.rr.AddValue(v)
				return err
			})
		case format.KeyMalformedMessageDataTable:
			return dec.ReadArray(func(int) error {
				v, err := readMalformedMessageData(dec)
				t.malformedMsg.AddValue(v)
				return err
			})
		default:
			return dec.SkipItem()
		}
	})
	return t, err
}
