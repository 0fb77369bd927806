package crpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMcoded7RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 2048).Draw(t, "data")

		encoded := Mcoded7Encode(data)
		for _, b := range encoded {
			assert.Zero(t, b&0x80, "Mcoded7 output must be 7-bit clean")
		}

		decoded, err := Mcoded7Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded[:len(data):len(data)])
		assert.Len(t, decoded, len(data))
	})
}

func TestMcoded7DecodeRejectsHighBit(t *testing.T) {
	_, err := Mcoded7Decode([]byte{0x80, 0x01})
	assert.ErrorIs(t, err, ErrMcoded7)

	_, err = Mcoded7Decode([]byte{0x00, 0x81})
	assert.ErrorIs(t, err, ErrMcoded7)

	// a dangling group byte carries no data
	_, err = Mcoded7Decode([]byte{0x00})
	assert.ErrorIs(t, err, ErrMcoded7)
}

func TestBodyEncodings(t *testing.T) {
	payload := []byte(`{"name":"pad","values":[0,127,64]}`)

	for _, encoding := range []string{"", EncodingASCII, EncodingMcoded7, EncodingZlibMcoded7} {
		encoding := encoding
		t.Run("encoding "+encoding, func(t *testing.T) {
			encoded, err := EncodeBody(payload, encoding)
			require.NoError(t, err)

			header := CreateReplyHeader(StatusOK, encoding)
			decoded, err := DecodeBody(header, encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestEncodeBodyUnknownEncoding(t *testing.T) {
	_, err := EncodeBody([]byte("x"), "base64")
	assert.ErrorIs(t, err, ErrEncodingUnknown)

	_, err = DecodeBody(CreateReplyHeader(StatusOK, "base64"), []byte("x"))
	assert.ErrorIs(t, err, ErrEncodingUnknown)
}

func TestHeaderFields(t *testing.T) {
	header := CreateDataRequestHeader("X-Foo", RequestFields{
		ResID:          "slot1",
		MutualEncoding: EncodingMcoded7,
		SetPartial:     true,
		Offset:         4,
		Limit:          16,
	})

	assert.Equal(t, "X-Foo", PropertyIDForHeader(header))
	assert.Equal(t, "slot1", HeaderFieldString(header, KeyResID))
	assert.Equal(t, EncodingMcoded7, HeaderFieldString(header, KeyMutualEncoding))
	assert.True(t, HeaderFieldBool(header, KeySetPartial))
	assert.Equal(t, 4, HeaderFieldInteger(header, KeyOffset))
	assert.Equal(t, 16, HeaderFieldInteger(header, KeyLimit))

	// absent fields read as zero values
	assert.Zero(t, HeaderFieldInteger(header, KeyStatus))
	assert.Empty(t, HeaderFieldString(header, KeySubscribeID))
}

func TestSubscriptionHeaders(t *testing.T) {
	header := CreateSubscriptionHeader("X-Foo", SubscriptionFields{Command: CommandStart})
	assert.Equal(t, CommandStart, HeaderFieldString(header, KeyCommand))
	assert.Equal(t, "X-Foo", PropertyIDForHeader(header))

	shutdown := CreateShutdownSubscriptionHeader("X-Foo")
	assert.Equal(t, CommandEnd, HeaderFieldString(shutdown, KeyCommand))

	reply := CreateSubscribeReplyHeader(StatusOK, "sub-42")
	assert.Equal(t, StatusOK, HeaderFieldInteger(reply, KeyStatus))
	assert.Equal(t, "sub-42", HeaderFieldString(reply, KeySubscribeID))
}
