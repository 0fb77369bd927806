package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMUID32To28RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint32().Draw(t, "v")

		on28 := MUID32To28(v)
		assert.Zero(t, on28&^uint32(0x0FFFFFFF), "conversion must fit 28 bits")
		assert.Equal(t, on28, MUID32To28(MUID28To32(on28)), "identity on the low 28 bits")
	})
}

func TestAppendMUIDSevenBitClean(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		muid := MUID(rapid.Uint32Range(0, uint32(BroadcastMUID)).Draw(t, "muid"))

		b := AppendMUID(nil, muid)
		require.Len(t, b, 4)
		for _, octet := range b {
			assert.Zero(t, octet&0x80, "high bit must be clear on the wire")
		}

		r := &reader{b: b}
		assert.Equal(t, muid, r.decodeMUID())
		assert.NoError(t, r.err)
	})
}

func TestReaderIntegerRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v14 := rapid.Uint16Range(0, maxInt14).Draw(t, "v14")
		v16 := rapid.Uint16().Draw(t, "v16")
		v28 := rapid.Uint32Range(0, 0x0FFFFFFF).Draw(t, "v28")

		b := append7bitInt14(nil, v14)
		b = appendDirectUint16(b, v16)
		b = append7bitInt28(b, v28)

		r := &reader{b: b}
		assert.Equal(t, v14, r.decode7bitInt14())
		assert.Equal(t, v16, r.decodeDirectUint16())
		assert.Equal(t, v28, r.decode7bitInt28())
		assert.NoError(t, r.err)
		assert.Zero(t, r.remaining())
	})
}

func TestReaderUnderflowIsSticky(t *testing.T) {
	r := &reader{b: []byte{0x01}}

	_ = r.decode7bitInt14()
	require.ErrorIs(t, r.err, ErrMessageTooShort)

	// every read after the failure yields zero values
	assert.Zero(t, r.decodeByte())
	assert.Nil(t, r.decodeBytes(1))
}

func TestReaderRejectsOversizedDeclaredLength(t *testing.T) {
	r := &reader{b: []byte{0x02, 0x00, 0xAA}} // declares 2 bytes, carries 1

	n := int(r.decode7bitInt14())
	payload := r.decodeBytes(n)
	assert.Nil(t, payload)
	assert.ErrorIs(t, r.err, ErrLengthExceedsBuffer)
}

func TestParamsValid(t *testing.T) {
	var p Params
	require.NoError(t, p.Valid())
	assert.Equal(t, DefaultMaxPropertyChunkSize, p.MaxPropertyChunkSize)
	assert.Equal(t, DefaultReceivableMaxSysExSize, p.ReceivableMaxSysExSize)

	bad := Params{MaxPropertyChunkSize: maxInt14 + 1}
	assert.Error(t, bad.Valid())

	bad = Params{ReceivableMaxSysExSize: 1}
	assert.Error(t, bad.Valid())
}
