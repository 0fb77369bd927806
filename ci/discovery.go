package ci

import (
	"fmt"
)

// management messages - discovery, endpoint, invalidate MUID, ACK/NAK

// DiscoveryInquiry inquires the presence of MIDI-CI peers [0x70].
// Sent to the broadcast MUID at the function block address.
// See MIDI-CI v1.2, section 5.4.
type DiscoveryInquiry struct {
	Common
	DeviceDetails     DeviceDetails
	SupportedFeatures byte
	MaxSysExSize      uint32
	OutputPathID      byte
}

// Type implements Message.
func (sf *DiscoveryInquiry) Type() SubID2 { return SubID2DiscoveryInquiry }

// Label implements Message.
func (sf *DiscoveryInquiry) Label() string { return "DiscoveryInquiry" }

// BodyString implements Message.
func (sf *DiscoveryInquiry) BodyString() string {
	return fmt.Sprintf("%s, features: 0x%02X, maxSysEx: %d, outputPath: %d",
		sf.DeviceDetails, sf.SupportedFeatures, sf.MaxSysExSize, sf.OutputPathID)
}

// Serialize implements Message.
func (sf *DiscoveryInquiry) Serialize(Params) ([][]byte, error) {
	return single(appendDiscoveryCommon(sf.Common, SubID2DiscoveryInquiry, sf.DeviceDetails,
		sf.SupportedFeatures, sf.MaxSysExSize, sf.OutputPathID)), nil
}

func decodeDiscoveryInquiry(c Common, r *reader) (Message, error) {
	m := &DiscoveryInquiry{Common: c}
	decodeDiscoveryCommon(r, &m.DeviceDetails, &m.SupportedFeatures, &m.MaxSysExSize, &m.OutputPathID)
	return m, r.err
}

// DiscoveryReply answers a DiscoveryInquiry [0x71]. It extends the
// inquiry body with the responder's function block.
// See MIDI-CI v1.2, section 5.4.
type DiscoveryReply struct {
	Common
	DeviceDetails     DeviceDetails
	SupportedFeatures byte
	MaxSysExSize      uint32
	OutputPathID      byte
	FunctionBlock     byte
}

// Type implements Message.
func (sf *DiscoveryReply) Type() SubID2 { return SubID2DiscoveryReply }

// Label implements Message.
func (sf *DiscoveryReply) Label() string { return "DiscoveryReply" }

// BodyString implements Message.
func (sf *DiscoveryReply) BodyString() string {
	return fmt.Sprintf("%s, features: 0x%02X, maxSysEx: %d, outputPath: %d, functionBlock: %d",
		sf.DeviceDetails, sf.SupportedFeatures, sf.MaxSysExSize, sf.OutputPathID, sf.FunctionBlock)
}

// Serialize implements Message.
func (sf *DiscoveryReply) Serialize(Params) ([][]byte, error) {
	b := appendDiscoveryCommon(sf.Common, SubID2DiscoveryReply, sf.DeviceDetails,
		sf.SupportedFeatures, sf.MaxSysExSize, sf.OutputPathID)
	return single(append(b, sf.FunctionBlock)), nil
}

func decodeDiscoveryReply(c Common, r *reader) (Message, error) {
	m := &DiscoveryReply{Common: c}
	decodeDiscoveryCommon(r, &m.DeviceDetails, &m.SupportedFeatures, &m.MaxSysExSize, &m.OutputPathID)
	m.FunctionBlock = r.decodeByte()
	return m, r.err
}

// shared 17-byte discovery body after the common header
func appendDiscoveryCommon(c Common, subID2 SubID2, d DeviceDetails, features byte, maxSysEx uint32, outputPath byte) []byte {
	b := appendCommonHeader(make([]byte, 0, 32), c, subID2)
	b = append7bitInt21(b, d.Manufacturer)
	b = appendDirectUint16(b, d.Family)
	b = appendDirectUint16(b, d.Model)
	b = append7bitInt28(b, d.SoftwareRevision)
	b = append(b, features)
	b = append7bitInt28(b, maxSysEx)
	b = append(b, outputPath)
	return b
}

func decodeDiscoveryCommon(r *reader, d *DeviceDetails, features *byte, maxSysEx *uint32, outputPath *byte) {
	d.Manufacturer = r.decode7bitInt21()
	d.Family = r.decodeDirectUint16()
	d.Model = r.decodeDirectUint16()
	d.SoftwareRevision = r.decode7bitInt28()
	*features = r.decodeByte()
	*maxSysEx = r.decode7bitInt28()
	*outputPath = r.decodeByte()
}

// EndpointInquiry asks for endpoint information [0x72]. Status 0x00
// requests the product instance ID.
type EndpointInquiry struct {
	Common
	Status byte
}

// Type implements Message.
func (sf *EndpointInquiry) Type() SubID2 { return SubID2EndpointInquiry }

// Label implements Message.
func (sf *EndpointInquiry) Label() string { return "EndpointInquiry" }

// BodyString implements Message.
func (sf *EndpointInquiry) BodyString() string { return fmt.Sprintf("status: %d", sf.Status) }

// Serialize implements Message.
func (sf *EndpointInquiry) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 14), sf.Common, SubID2EndpointInquiry)
	return single(append(b, sf.Status)), nil
}

func decodeEndpointInquiry(c Common, r *reader) (Message, error) {
	return &EndpointInquiry{Common: c, Status: r.decodeByte()}, r.err
}

// EndpointReply answers an EndpointInquiry [0x73] with an
// int14-length-prefixed data field; for status 0x00 the data is the
// ASCII product instance ID.
type EndpointReply struct {
	Common
	Status byte
	Data   []byte
}

// Type implements Message.
func (sf *EndpointReply) Type() SubID2 { return SubID2EndpointReply }

// Label implements Message.
func (sf *EndpointReply) Label() string { return "EndpointReply" }

// BodyString implements Message.
func (sf *EndpointReply) BodyString() string {
	return fmt.Sprintf("status: %d, data: %q", sf.Status, sf.Data)
}

// Serialize implements Message.
func (sf *EndpointReply) Serialize(Params) ([][]byte, error) {
	if len(sf.Data) > maxInt14 {
		return nil, ErrBodyTooLarge
	}
	b := appendCommonHeader(make([]byte, 0, 16+len(sf.Data)), sf.Common, SubID2EndpointReply)
	b = append(b, sf.Status)
	b = append7bitInt14(b, uint16(len(sf.Data)))
	return single(append(b, sf.Data...)), nil
}

func decodeEndpointReply(c Common, r *reader) (Message, error) {
	m := &EndpointReply{Common: c}
	m.Status = r.decodeByte()
	m.Data = r.decodeBytes(int(r.decode7bitInt14()))
	return m, r.err
}

// InvalidateMUID declares a MUID void [0x7E]. Sent to the broadcast
// MUID; the body names the MUID being invalidated.
type InvalidateMUID struct {
	Common
	TargetMUID MUID
}

// Type implements Message.
func (sf *InvalidateMUID) Type() SubID2 { return SubID2InvalidateMUID }

// Label implements Message.
func (sf *InvalidateMUID) Label() string { return "InvalidateMUID" }

// BodyString implements Message.
func (sf *InvalidateMUID) BodyString() string { return fmt.Sprintf("target: %s", sf.TargetMUID) }

// Serialize implements Message.
func (sf *InvalidateMUID) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 17), sf.Common, SubID2InvalidateMUID)
	return single(AppendMUID(b, sf.TargetMUID)), nil
}

func decodeInvalidateMUID(c Common, r *reader) (Message, error) {
	return &InvalidateMUID{Common: c, TargetMUID: r.decodeMUID()}, r.err
}

// ackNakBody is the shared ACK/NAK body: the sub-ID 2 of the message
// being answered, a status code and status data, five detail bytes and
// an int14-length-prefixed message text.
// See MIDI-CI v1.2, section 5.9.
type ackNakBody struct {
	OriginalSubID2 SubID2
	StatusCode     byte
	StatusData     byte
	Details        [5]byte
	MessageText    []byte
}

// NAK status codes.
const (
	NakStatusUnsupported    byte = 0x01 // MIDI-CI message version/format not supported
	NakStatusBusy           byte = 0x02
	NakStatusTerminated     byte = 0x20
	NakStatusProfileNotOn   byte = 0x41
	NakStatusChannelUnavail byte = 0x42
)

func (sf *ackNakBody) bodyString() string {
	return fmt.Sprintf("original: %s, status: 0x%02X/0x%02X, text: %q",
		sf.OriginalSubID2, sf.StatusCode, sf.StatusData, sf.MessageText)
}

func (sf *ackNakBody) serialize(c Common, subID2 SubID2) ([][]byte, error) {
	if len(sf.MessageText) > maxInt14 {
		return nil, ErrBodyTooLarge
	}
	b := appendCommonHeader(make([]byte, 0, 23+len(sf.MessageText)), c, subID2)
	b = append(b, byte(sf.OriginalSubID2), sf.StatusCode, sf.StatusData)
	b = append(b, sf.Details[:]...)
	b = append7bitInt14(b, uint16(len(sf.MessageText)))
	return single(append(b, sf.MessageText...)), nil
}

func (sf *ackNakBody) decode(r *reader) {
	sf.OriginalSubID2 = SubID2(r.decodeByte())
	sf.StatusCode = r.decodeByte()
	sf.StatusData = r.decodeByte()
	copy(sf.Details[:], r.decodeBytes(5))
	sf.MessageText = r.decodeBytes(int(r.decode7bitInt14()))
}

// Ack is the management ACK [0x7D].
type Ack struct {
	Common
	ackNakBody
}

// Type implements Message.
func (sf *Ack) Type() SubID2 { return SubID2Ack }

// Label implements Message.
func (sf *Ack) Label() string { return "Ack" }

// BodyString implements Message.
func (sf *Ack) BodyString() string { return sf.bodyString() }

// Serialize implements Message.
func (sf *Ack) Serialize(Params) ([][]byte, error) { return sf.serialize(sf.Common, SubID2Ack) }

func decodeAck(c Common, r *reader) (Message, error) {
	m := &Ack{Common: c}
	m.decode(r)
	return m, r.err
}

// Nak is the management NAK [0x7F].
type Nak struct {
	Common
	ackNakBody
}

// Type implements Message.
func (sf *Nak) Type() SubID2 { return SubID2Nak }

// Label implements Message.
func (sf *Nak) Label() string { return "Nak" }

// BodyString implements Message.
func (sf *Nak) BodyString() string { return sf.bodyString() }

// Serialize implements Message.
func (sf *Nak) Serialize(Params) ([][]byte, error) { return sf.serialize(sf.Common, SubID2Nak) }

func decodeNak(c Common, r *reader) (Message, error) {
	m := &Nak{Common: c}
	m.decode(r)
	return m, r.err
}
