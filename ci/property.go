package ci

import (
	"fmt"
)

// property exchange messages [0x30..0x3F]

// PropertyGetCapabilities inquires the property exchange capabilities
// of a peer [0x30]. The body is the number of simultaneous requests the
// initiator can handle.
// See Common Rules for Property Exchange v1.1, section 5.
type PropertyGetCapabilities struct {
	Common
	MaxSimultaneousRequests byte
}

// Type implements Message.
func (sf *PropertyGetCapabilities) Type() SubID2 { return SubID2PropertyGetCapabilities }

// Label implements Message.
func (sf *PropertyGetCapabilities) Label() string { return "PropertyGetCapabilities" }

// BodyString implements Message.
func (sf *PropertyGetCapabilities) BodyString() string {
	return fmt.Sprintf("maxRequests: %d", sf.MaxSimultaneousRequests)
}

// Serialize implements Message.
func (sf *PropertyGetCapabilities) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 14), sf.Common, SubID2PropertyGetCapabilities)
	return single(append(b, sf.MaxSimultaneousRequests)), nil
}

// PropertyGetCapabilitiesReply answers PropertyGetCapabilities [0x31].
type PropertyGetCapabilitiesReply struct {
	Common
	MaxSimultaneousRequests byte
}

// Type implements Message.
func (sf *PropertyGetCapabilitiesReply) Type() SubID2 { return SubID2PropertyGetCapabilitiesReply }

// Label implements Message.
func (sf *PropertyGetCapabilitiesReply) Label() string { return "PropertyGetCapabilitiesReply" }

// BodyString implements Message.
func (sf *PropertyGetCapabilitiesReply) BodyString() string {
	return fmt.Sprintf("maxRequests: %d", sf.MaxSimultaneousRequests)
}

// Serialize implements Message.
func (sf *PropertyGetCapabilitiesReply) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 14), sf.Common, SubID2PropertyGetCapabilitiesReply)
	return single(append(b, sf.MaxSimultaneousRequests)), nil
}

// PropertyChunk is the chunked body shared by the seven data-carrying
// property messages:
//
//	[request_id] [header_size:int14] [header]
//	[num_chunks:int14] [chunk_index:int14] [chunk_data_size:int14] [chunk_data]
//
// When a message is built locally, NumChunks and ChunkIndex are left 0
// and filled in by Serialize; a decoded message carries the received
// values so the reassembler can merge the chunk sequence.
type PropertyChunk struct {
	RequestID byte
	Header    []byte
	Body      []byte

	NumChunks  uint16
	ChunkIndex uint16
}

// IsComplete reports whether this message carries a complete body: it
// was built locally, or it is the only chunk of its request.
func (sf *PropertyChunk) IsComplete() bool {
	return sf.NumChunks == 0 || (sf.NumChunks == 1 && sf.ChunkIndex == 1)
}

func (sf *PropertyChunk) chunkString() string {
	if sf.NumChunks > 1 {
		return fmt.Sprintf("requestId: %d, header: %s, body: %d bytes, chunk: %d/%d",
			sf.RequestID, sf.Header, len(sf.Body), sf.ChunkIndex, sf.NumChunks)
	}
	return fmt.Sprintf("requestId: %d, header: %s, body: %d bytes", sf.RequestID, sf.Header, len(sf.Body))
}

// serializeChunks splits the body across as many packets as the chunk
// size requires. Every packet repeats the full header and num_chunks
// and increments the 1-based chunk index. An empty body still emits one
// packet with chunk 1/1 and a zero data size.
func (sf *PropertyChunk) serializeChunks(c Common, subID2 SubID2, p Params) ([][]byte, error) {
	if err := p.Valid(); err != nil {
		return nil, err
	}
	if len(sf.Header) > maxInt14 {
		return nil, ErrBodyTooLarge
	}

	chunkSize := p.MaxPropertyChunkSize
	numChunks := (len(sf.Body) + chunkSize - 1) / chunkSize
	if numChunks == 0 {
		numChunks = 1
	}
	if numChunks > maxInt14 {
		return nil, ErrBodyTooLarge
	}

	packets := make([][]byte, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(sf.Body) {
			end = len(sf.Body)
		}
		chunk := sf.Body[start:end]

		b := appendCommonHeader(make([]byte, 0, 22+len(sf.Header)+len(chunk)), c, subID2)
		b = append(b, sf.RequestID)
		b = append7bitInt14(b, uint16(len(sf.Header)))
		b = append(b, sf.Header...)
		b = append7bitInt14(b, uint16(numChunks))
		b = append7bitInt14(b, uint16(i+1))
		b = append7bitInt14(b, uint16(len(chunk)))
		b = append(b, chunk...)
		packets = append(packets, b)
	}
	return packets, nil
}

func decodePropertyChunk(r *reader) PropertyChunk {
	var chunk PropertyChunk

	chunk.RequestID = r.decodeByte()
	chunk.Header = r.decodeBytes(int(r.decode7bitInt14()))
	chunk.NumChunks = r.decode7bitInt14()
	chunk.ChunkIndex = r.decode7bitInt14()
	chunk.Body = r.decodeBytes(int(r.decode7bitInt14()))
	return chunk
}

// GetPropertyData requests a property resource [0x34]. The JSON header
// names the resource; the body is empty.
type GetPropertyData struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *GetPropertyData) Type() SubID2 { return SubID2GetPropertyData }

// Label implements Message.
func (sf *GetPropertyData) Label() string { return "GetPropertyData" }

// BodyString implements Message.
func (sf *GetPropertyData) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *GetPropertyData) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2GetPropertyData, p)
}

func decodeGetPropertyData(c Common, r *reader) (Message, error) {
	return &GetPropertyData{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// GetPropertyDataReply answers GetPropertyData [0x35] with a status
// header and the (possibly chunked, possibly encoded) resource body.
type GetPropertyDataReply struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *GetPropertyDataReply) Type() SubID2 { return SubID2GetPropertyDataReply }

// Label implements Message.
func (sf *GetPropertyDataReply) Label() string { return "GetPropertyDataReply" }

// BodyString implements Message.
func (sf *GetPropertyDataReply) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *GetPropertyDataReply) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2GetPropertyDataReply, p)
}

func decodeGetPropertyDataReply(c Common, r *reader) (Message, error) {
	return &GetPropertyDataReply{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// SetPropertyData writes a property resource [0x36].
type SetPropertyData struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *SetPropertyData) Type() SubID2 { return SubID2SetPropertyData }

// Label implements Message.
func (sf *SetPropertyData) Label() string { return "SetPropertyData" }

// BodyString implements Message.
func (sf *SetPropertyData) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *SetPropertyData) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2SetPropertyData, p)
}

func decodeSetPropertyData(c Common, r *reader) (Message, error) {
	return &SetPropertyData{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// SetPropertyDataReply answers SetPropertyData [0x37] with a status
// header and an empty body.
type SetPropertyDataReply struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *SetPropertyDataReply) Type() SubID2 { return SubID2SetPropertyDataReply }

// Label implements Message.
func (sf *SetPropertyDataReply) Label() string { return "SetPropertyDataReply" }

// BodyString implements Message.
func (sf *SetPropertyDataReply) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *SetPropertyDataReply) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2SetPropertyDataReply, p)
}

func decodeSetPropertyDataReply(c Common, r *reader) (Message, error) {
	return &SetPropertyDataReply{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// SubscribeProperty starts, feeds or ends a subscription [0x38]. The
// JSON header command distinguishes start/end from the host-pushed
// notify/full/partial updates.
type SubscribeProperty struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *SubscribeProperty) Type() SubID2 { return SubID2SubscribeProperty }

// Label implements Message.
func (sf *SubscribeProperty) Label() string { return "SubscribeProperty" }

// BodyString implements Message.
func (sf *SubscribeProperty) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *SubscribeProperty) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2SubscribeProperty, p)
}

func decodeSubscribeProperty(c Common, r *reader) (Message, error) {
	return &SubscribeProperty{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// SubscribePropertyReply answers SubscribeProperty [0x39].
type SubscribePropertyReply struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *SubscribePropertyReply) Type() SubID2 { return SubID2SubscribePropertyReply }

// Label implements Message.
func (sf *SubscribePropertyReply) Label() string { return "SubscribePropertyReply" }

// BodyString implements Message.
func (sf *SubscribePropertyReply) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *SubscribePropertyReply) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2SubscribePropertyReply, p)
}

func decodeSubscribePropertyReply(c Common, r *reader) (Message, error) {
	return &SubscribePropertyReply{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}

// PropertyNotify is the standalone property notification [0x3F].
type PropertyNotify struct {
	Common
	PropertyChunk
}

// Type implements Message.
func (sf *PropertyNotify) Type() SubID2 { return SubID2PropertyNotify }

// Label implements Message.
func (sf *PropertyNotify) Label() string { return "PropertyNotify" }

// BodyString implements Message.
func (sf *PropertyNotify) BodyString() string { return sf.chunkString() }

// Serialize implements Message.
func (sf *PropertyNotify) Serialize(p Params) ([][]byte, error) {
	return sf.serializeChunks(sf.Common, SubID2PropertyNotify, p)
}

func decodePropertyNotify(c Common, r *reader) (Message, error) {
	return &PropertyNotify{Common: c, PropertyChunk: decodePropertyChunk(r)}, r.err
}
