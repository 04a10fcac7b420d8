package cbor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dns-stats/cdns/internal/pool"
)

// =============================================================================
// Minimal integer encoding length
// =============================================================================

func TestEncoder_MinimalIntegerLength(t *testing.T) {
	cases := []struct {
		v      uint64
		wantLn int
	}{
		{0, 1},
		{23, 1},
		{24, 2},
		{255, 2},
		{256, 3},
		{65535, 3},
		{65536, 5},
		{4294967295, 5},
		{4294967296, 9},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.WriteUnsigned(c.v))
		require.NoError(t, enc.Flush())
		assert.Equal(t, c.wantLn, buf.Len(), "value %d", c.v)
	}
}

// =============================================================================
// Round trip: scalars
// =============================================================================

func TestRoundTrip_UnsignedAndNegative(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteUnsigned(42))
	require.NoError(t, enc.WriteInt(-4242))
	require.NoError(t, enc.WriteByteString([]byte("test")))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	u, err := dec.ReadUnsigned()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u)

	i, err := dec.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(-4242), i)

	bs, err := dec.ReadByteString()
	require.NoError(t, err)
	assert.Equal(t, []byte("test"), bs)
}

func TestRoundTrip_DefiniteAndIndefiniteArraysMatch(t *testing.T) {
	write := func(indef bool) []byte {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		if indef {
			require.NoError(t, enc.WriteIndefiniteArrayStart())
		} else {
			require.NoError(t, enc.WriteArrayStart(3))
		}
		require.NoError(t, enc.WriteUnsigned(42))
		require.NoError(t, enc.WriteInt(-4242))
		require.NoError(t, enc.WriteByteString([]byte("test")))
		if indef {
			require.NoError(t, enc.WriteBreak())
		}
		require.NoError(t, enc.Flush())
		return buf.Bytes()
	}

	def := write(false)
	indef := write(true)

	readAll := func(data []byte) []any {
		dec := NewDecoder(bytes.NewReader(data))
		var got []any
		err := dec.ReadArray(func(int) error {
			pt, err := dec.PeekType()
			if err != nil {
				return err
			}
			switch pt {
			case TypeUnsigned:
				v, err := dec.ReadUnsigned()
				got = append(got, v)
				return err
			case TypeNegative:
				v, err := dec.ReadInt()
				got = append(got, v)
				return err
			case TypeByteString:
				v, err := dec.ReadByteString()
				got = append(got, string(v))
				return err
			}
			return nil
		})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, readAll(def), readAll(indef))
}

func TestRoundTrip_Bool(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteBool(true))
	require.NoError(t, enc.WriteBool(false))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	v1, err := dec.ReadBool()
	require.NoError(t, err)
	assert.True(t, v1)

	v2, err := dec.ReadBool()
	require.NoError(t, err)
	assert.False(t, v2)
}

func TestRoundTrip_TextStringIndefiniteChunked(t *testing.T) {
	var buf bytes.Buffer
	// Hand-assemble an indefinite text string of two chunks: "foo" "bar".
	buf.WriteByte(majorTextString | indefinite)
	buf.WriteByte(majorTextString | 3)
	buf.WriteString("foo")
	buf.WriteByte(majorTextString | 3)
	buf.WriteString("bar")
	buf.WriteByte(breakCode)

	dec := NewDecoder(&buf)
	s, err := dec.ReadTextString()
	require.NoError(t, err)
	assert.Equal(t, "foobar", s)
}

// =============================================================================
// Map with negative keys
// =============================================================================

func TestRoundTrip_MapNegativeKeys(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteMapStart(2))
	require.NoError(t, enc.WriteInt(-1))
	require.NoError(t, enc.WriteUnsigned(7))
	require.NoError(t, enc.WriteInt(-3))
	require.NoError(t, enc.WriteUnsigned(99))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	n, indef, err := dec.ReadMapStart()
	require.NoError(t, err)
	assert.False(t, indef)
	assert.Equal(t, 2, n)

	k1, err := dec.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), k1)
	v1, err := dec.ReadUnsigned()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v1)
}

// =============================================================================
// SkipItem
// =============================================================================

func TestSkipItem_ThenPeekNextItem(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteArrayStart(2))
	require.NoError(t, enc.WriteUnsigned(1))
	require.NoError(t, enc.WriteUnsigned(2))
	require.NoError(t, enc.WriteTextString("after"))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	require.NoError(t, dec.SkipItem()) // skips the whole 2-element array

	s, err := dec.ReadTextString()
	require.NoError(t, err)
	assert.Equal(t, "after", s)
}

func TestSkipItem_NestedIndefiniteMap(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteIndefiniteMapStart())
	require.NoError(t, enc.WriteUnsigned(0))
	require.NoError(t, enc.WriteTextString("v"))
	require.NoError(t, enc.WriteBreak())
	require.NoError(t, enc.WriteUnsigned(123))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	require.NoError(t, dec.SkipItem())

	v, err := dec.ReadUnsigned()
	require.NoError(t, err)
	assert.Equal(t, uint64(123), v)
}

// =============================================================================
// Errors
// =============================================================================

func TestDecoder_ReservedAdditionalInfoRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(majorUnsigned | 28)

	dec := NewDecoder(&buf)
	_, err := dec.ReadUnsigned()
	assert.Error(t, err)
}

func TestDecoder_WrongMajorType(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteTextString("x"))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	_, err := dec.ReadUnsigned()
	assert.Error(t, err)
}

func TestEncoder_Rotate(t *testing.T) {
	var a, b bytes.Buffer
	enc := NewEncoder(&a)
	require.NoError(t, enc.WriteUnsigned(1))
	require.NoError(t, enc.Rotate(&b))
	require.NoError(t, enc.WriteUnsigned(2))
	require.NoError(t, enc.Flush())

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

// =============================================================================
// Construction options
// =============================================================================

func TestNewEncoder_WithEncoderBufferSize(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, WithEncoderBufferSize(8))
	assert.Equal(t, 8, enc.buf.Cap())

	// A write larger than the custom buffer still round-trips correctly,
	// segmented as fill, flush, continue rather than overflowing.
	payload := bytes.Repeat([]byte{0x61}, 40)
	require.NoError(t, enc.WriteByteString(payload))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	got, err := dec.ReadByteString()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestNewEncoder_WithEncoderBufferSize_NonPositiveIgnored(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, WithEncoderBufferSize(0))
	assert.Equal(t, pool.EncoderBufferDefaultSize, enc.buf.Cap())
}

func TestNewDecoder_WithDecoderBufferSize(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteUnsigned(42))
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf, WithDecoderBufferSize(16))
	v, err := dec.ReadUnsigned()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}
