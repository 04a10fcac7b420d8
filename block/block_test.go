package block

import (
	"bytes"
	"testing"

	"github.com/dns-stats/cdns/cbor"
	"github.com/dns-stats/cdns/errs"
	"github.com/dns-stats/cdns/format"
	"github.com/stretchr/testify/require"
)

func fullHintsParams() *BlockParameters {
	return &BlockParameters{
		Storage: StorageParameters{
			TicksPerSecond: 1000,
			MaxBlockItems:  10000,
			Hints: StorageHints{
				QueryResponseHints:          ^uint32(0),
				QueryResponseSignatureHints: ^uint32(0),
				RRHints:                     format.RRHintTTL | format.RRHintRdataIndex,
				OtherDataHints:              format.OtherDataHintMalformedMessages | format.OtherDataHintAddressEventCounts,
			},
		},
	}
}

func emitAndRead(t *testing.T, b *Block, params []BlockParameters) *Block {
	t.Helper()
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	require.NoError(t, b.Emit(enc))
	require.NoError(t, enc.Flush())

	dec := cbor.NewDecoder(&buf)
	out, err := Read(dec, params)
	require.NoError(t, err)
	return out
}

func TestBlock_EmptyByDefault(t *testing.T) {
	b := New(fullHintsParams(), 0)
	require.True(t, b.Empty())
	require.Equal(t, 0, b.ItemCount())
}

func TestBlock_AppendQueryResponseRequiresParams(t *testing.T) {
	b := &Block{tables: newTables(), aeByKey: make(map[aeKey]*AddressEventCount)}
	err := b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 1}})
	require.ErrorIs(t, err, errs.ErrParamsNotSet)
}

func TestBlock_SetParametersRejectsNonEmpty(t *testing.T) {
	b := New(fullHintsParams(), 0)
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 1}}))
	err := b.SetParameters(fullHintsParams(), 1)
	require.Error(t, err)
}

func TestBlock_AppendQueryResponse_RoundTrip(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)

	clientPort := uint16(53000)
	serverPort := uint16(53)
	qtype := uint8(0)
	opcode := uint8(0)
	rcode := uint8(0)

	in := QueryResponseAppend{
		Timestamp:     Timestamp{Secs: 1000, Ticks: 500},
		ClientAddress: []byte{192, 0, 2, 1},
		ClientPort:    &clientPort,
		Signature: &QueryResponseSignatureInput{
			ServerAddress: []byte{192, 0, 2, 53},
			ServerPort:    &serverPort,
			QRType:        &qtype,
			QueryOpcode:   &opcode,
			ResponseRcode: &rcode,
		},
		QueryName: []byte("\x07example\x03com\x00"),
		QueryQuestions: []QuestionInput{
			{Name: []byte("\x07example\x03com\x00"), Class: ClassType{Type: 1, Class: 1}},
		},
		ResponseAnswers: []RRInput{
			{Name: []byte("\x07example\x03com\x00"), Class: ClassType{Type: 1, Class: 1}, TTL: uptr(300), Rdata: []byte{1, 2, 3, 4}},
		},
	}
	require.NoError(t, b.AppendQueryResponse(in))
	require.False(t, b.Empty())
	require.Equal(t, 1, b.ItemCount())

	out := emitAndRead(t, b, []BlockParameters{*params})
	require.Len(t, out.QueryResponses(), 1)
	qr := out.QueryResponses()[0]
	require.Equal(t, in.Timestamp, qr.Timestamp)
	require.NotNil(t, qr.ClientAddressIndex)
	require.NotNil(t, qr.QRSignatureIndex)
	require.NotNil(t, qr.QueryNameIndex)
	require.NotNil(t, qr.QueryExtended)
	require.NotNil(t, qr.QueryExtended.QuestionIndex)
	require.NotNil(t, qr.ResponseExtended)
	require.NotNil(t, qr.ResponseExtended.AnswerIndex)
}

func uptr(v uint32) *uint32 { return &v }

func TestBlock_HintGating_DropsUnhintedFields(t *testing.T) {
	params := fullHintsParams()
	params.Storage.Hints.QueryResponseHints = format.QRHintTimeOffset // only time offset retained
	b := New(params, 0)

	clientPort := uint16(1234)
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{
		Timestamp:  Timestamp{Secs: 10},
		ClientPort: &clientPort,
	}))
	out := emitAndRead(t, b, []BlockParameters{*params})
	require.Len(t, out.QueryResponses(), 1)
	require.Nil(t, out.QueryResponses()[0].ClientPort)
}

func TestBlock_AddressEventCount_RepeatsIncrementByOne(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)

	addr := []byte{198, 51, 100, 7}
	require.NoError(t, b.AppendAddressEventCount(format.AETypeTCPReset, nil, addr, nil))
	require.NoError(t, b.AppendAddressEventCount(format.AETypeTCPReset, nil, addr, nil))
	require.NoError(t, b.AppendAddressEventCount(format.AETypeTCPReset, nil, addr, nil))

	require.Len(t, b.AddressEventCounts(), 1)
	require.Equal(t, uint64(3), b.AddressEventCounts()[0].Count)

	out := emitAndRead(t, b, []BlockParameters{*params})
	require.Len(t, out.AddressEventCounts(), 1)
	require.Equal(t, uint64(3), out.AddressEventCounts()[0].Count)
}

func TestBlock_AddressEventCount_DistinctKeysDoNotAggregate(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)
	addr := []byte{198, 51, 100, 7}
	require.NoError(t, b.AppendAddressEventCount(format.AETypeTCPReset, nil, addr, nil))
	require.NoError(t, b.AppendAddressEventCount(format.AETypeICMPTimeExceeded, nil, addr, nil))
	require.Len(t, b.AddressEventCounts(), 2)
}

func TestBlock_MalformedMessage_RoundTrip(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)
	require.NoError(t, b.AppendMalformedMessage(MalformedMessageAppend{
		Timestamp:     Timestamp{Secs: 5},
		ClientAddress: []byte{10, 0, 0, 1},
		Payload:       []byte{0xde, 0xad, 0xbe, 0xef},
	}))
	require.False(t, b.Empty())
	out := emitAndRead(t, b, []BlockParameters{*params})
	require.Len(t, out.MalformedMessages(), 1)
	require.NotNil(t, out.MalformedMessages()[0].MessageDataIndex)
}

func TestBlock_MalformedMessage_OmittedWhenHintClear(t *testing.T) {
	params := fullHintsParams()
	params.Storage.Hints.OtherDataHints = 0
	b := New(params, 0)
	require.NoError(t, b.AppendMalformedMessage(MalformedMessageAppend{
		Timestamp: Timestamp{Secs: 5},
		Payload:   []byte{1},
	}))
	require.True(t, b.Empty())
}

func TestBlock_IsFull(t *testing.T) {
	params := fullHintsParams()
	params.Storage.MaxBlockItems = 2
	b := New(params, 0)
	require.False(t, b.IsFull())
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 1}}))
	require.False(t, b.IsFull())
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 2}}))
	require.True(t, b.IsFull())
}

func TestBlock_Clear(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 1}}))
	require.False(t, b.Empty())
	b.Clear()
	require.True(t, b.Empty())
	require.Equal(t, 0, b.ItemCount())
	require.NoError(t, b.SetParameters(params, 3))
	require.Equal(t, 3, b.ParametersIndex())
}

func TestBlock_DedupSharesTableEntries(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)
	addr := []byte{192, 0, 2, 9}
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 1}, ClientAddress: addr}))
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 2}, ClientAddress: addr}))
	require.Equal(t, 1, b.tables.ipAddress.Size())
	require.Equal(t, *b.queryResponses[0].ClientAddressIndex, *b.queryResponses[1].ClientAddressIndex)
}

func TestBlock_EarliestTimeTracksMinimum(t *testing.T) {
	params := fullHintsParams()
	b := New(params, 0)
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 10}}))
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 3}}))
	require.NoError(t, b.AppendQueryResponse(QueryResponseAppend{Timestamp: Timestamp{Secs: 7}}))
	require.Equal(t, Timestamp{Secs: 3}, b.EarliestTime())
}
