package cidevice

import (
	"time"

	"github.com/atsushieno/midicci-sub001/ci"
)

// assemblerIdleTimeout discards a reassembly buffer with no activity
// for this long.
const assemblerIdleTimeout = 10 * time.Second

// assembler reassembles multi-chunk property messages. One buffer per
// (source MUID, request ID, sub-ID 2); chunks must arrive in order
// starting at index 1, duplicates and gaps discard the buffer.
type assembler struct {
	buffers map[assemblerKey]*assemblerBuffer
	now     func() time.Time
}

type assemblerKey struct {
	muid      ci.MUID
	requestID byte
	subID2    ci.SubID2
}

type assemblerBuffer struct {
	header    []byte
	body      []byte
	numChunks uint16
	next      uint16
	last      time.Time
}

func (sf *assembler) init() {
	sf.buffers = make(map[assemblerKey]*assemblerBuffer)
	if sf.now == nil {
		sf.now = time.Now
	}
}

// feed consumes one chunk. done is true when the chunk closed its
// sequence; header is the first chunk's header and body the full
// concatenation.
func (sf *assembler) feed(source ci.MUID, subID2 ci.SubID2, chunk *ci.PropertyChunk) (header, body []byte, done bool) {
	now := sf.now()
	sf.prune(now)

	key := assemblerKey{muid: source, requestID: chunk.RequestID, subID2: subID2}
	buf := sf.buffers[key]

	switch {
	case chunk.ChunkIndex == 1:
		// a restarted sequence discards any prior buffer
		buf = &assemblerBuffer{
			header:    chunk.Header,
			numChunks: chunk.NumChunks,
			next:      2,
			last:      now,
		}
		buf.body = append(buf.body, chunk.Body...)
		sf.buffers[key] = buf
	case buf == nil, chunk.NumChunks != buf.numChunks, chunk.ChunkIndex != buf.next:
		// out of order, duplicate, or past the terminal chunk
		delete(sf.buffers, key)
		return nil, nil, false
	default:
		buf.body = append(buf.body, chunk.Body...)
		buf.next++
		buf.last = now
	}

	if chunk.ChunkIndex == chunk.NumChunks {
		delete(sf.buffers, key)
		return buf.header, buf.body, true
	}
	return nil, nil, false
}

// dropPeer discards every in-progress buffer of one source MUID.
func (sf *assembler) dropPeer(muid ci.MUID) {
	for key := range sf.buffers {
		if key.muid == muid {
			delete(sf.buffers, key)
		}
	}
}

func (sf *assembler) prune(now time.Time) {
	for key, buf := range sf.buffers {
		if now.Sub(buf.last) > assemblerIdleTimeout {
			delete(sf.buffers, key)
		}
	}
}
