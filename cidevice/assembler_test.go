package cidevice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atsushieno/midicci-sub001/ci"
)

const peer ci.MUID = 0x0000123

func chunkOf(requestID byte, numChunks, index uint16, body []byte) *ci.PropertyChunk {
	return &ci.PropertyChunk{
		RequestID:  requestID,
		Header:     []byte(`{"resource":"X"}`),
		Body:       body,
		NumChunks:  numChunks,
		ChunkIndex: index,
	}
}

func TestAssemblerMergesInOrder(t *testing.T) {
	var asm assembler
	asm.init()

	_, _, done := asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(7, 3, 1, []byte("aa")))
	assert.False(t, done)
	_, _, done = asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(7, 3, 2, []byte("bb")))
	assert.False(t, done)
	header, body, done := asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(7, 3, 3, []byte("c")))
	require.True(t, done)
	assert.Equal(t, []byte(`{"resource":"X"}`), header)
	assert.Equal(t, []byte("aabbc"), body)

	// the buffer is gone after the terminal chunk
	_, _, done = asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(7, 3, 3, []byte("c")))
	assert.False(t, done)
}

func TestAssemblerKeysByRequestAndPeer(t *testing.T) {
	var asm assembler
	asm.init()

	// interleaved sequences on distinct request IDs do not mix
	asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(1, 2, 1, []byte("a")))
	asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(2, 2, 1, []byte("x")))
	_, body, done := asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(1, 2, 2, []byte("b")))
	require.True(t, done)
	assert.Equal(t, []byte("ab"), body)
	_, body, done = asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(2, 2, 2, []byte("y")))
	require.True(t, done)
	assert.Equal(t, []byte("xy"), body)
}

func TestAssemblerDiscardsOnGap(t *testing.T) {
	var asm assembler
	asm.init()

	asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 4, 1, []byte("a")))
	_, _, done := asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 4, 3, []byte("c")))
	assert.False(t, done)

	// the whole buffer was discarded, resuming in order does not help
	_, _, done = asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 4, 2, []byte("b")))
	assert.False(t, done)

	// a restart at chunk 1 opens a fresh buffer
	asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 2, 1, []byte("a")))
	_, body, done := asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 2, 2, []byte("b")))
	require.True(t, done)
	assert.Equal(t, []byte("ab"), body)
}

func TestAssemblerDiscardsDuplicates(t *testing.T) {
	var asm assembler
	asm.init()

	asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 3, 1, []byte("a")))
	asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 3, 2, []byte("b")))
	_, _, done := asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 3, 2, []byte("b")))
	assert.False(t, done, "duplicate discards the buffer")
	_, _, done = asm.feed(peer, ci.SubID2SetPropertyData, chunkOf(5, 3, 3, []byte("c")))
	assert.False(t, done)
}

func TestAssemblerIdleTimeout(t *testing.T) {
	now := time.Unix(1000, 0)
	asm := assembler{now: func() time.Time { return now }}
	asm.init()

	asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(9, 2, 1, []byte("a")))

	now = now.Add(assemblerIdleTimeout + time.Second)
	_, _, done := asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(9, 2, 2, []byte("b")))
	assert.False(t, done, "stale buffer must have been pruned")
}

func TestAssemblerDropPeer(t *testing.T) {
	var asm assembler
	asm.init()

	asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(9, 2, 1, []byte("a")))
	asm.dropPeer(peer)
	_, _, done := asm.feed(peer, ci.SubID2GetPropertyDataReply, chunkOf(9, 2, 2, []byte("b")))
	assert.False(t, done)
}
