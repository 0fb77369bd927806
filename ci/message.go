package ci

import (
	"fmt"
)

// Message is one MIDI-CI message variant. A message knows its sub-ID 2,
// its delivery envelope, how to serialize itself into one or more
// on-wire packets, and a label plus body string for traffic logging.
type Message interface {
	Type() SubID2
	Envelope() Common
	// Serialize produces the on-wire packets for this message. Most
	// variants emit exactly one packet; the chunked property variants
	// may emit several, each carrying the full header and an
	// incrementing 1-based chunk index.
	Serialize(p Params) ([][]byte, error)
	Label() string
	BodyString() string
}

// Envelope returns the delivery envelope. Embedding Common gives every
// message variant this accessor.
func (sf Common) Envelope() Common { return sf }

// single wraps a one-packet serialization in the multi-packet shape.
func single(pkt []byte) [][]byte { return [][]byte{pkt} }

// LogString formats a message the way the traffic log prints it.
func LogString(m Message) string {
	body := m.BodyString()
	if body == "" {
		return fmt.Sprintf("%s (%s)", m.Label(), m.Envelope())
	}
	return fmt.Sprintf("%s (%s) %s", m.Label(), m.Envelope(), body)
}

// UnknownSubID2Error reports a payload whose sub-ID 2 is not a known
// MIDI-CI message type. The envelope is retained so the receiver can
// reply with a NAK.
type UnknownSubID2Error struct {
	Common Common
	SubID2 SubID2
}

// Error implements error.
func (sf *UnknownSubID2Error) Error() string {
	return fmt.Sprintf("ci: unknown sub-ID 2 0x%02X from %s", uint8(sf.SubID2), sf.Common.SourceMUID)
}

// Unwrap makes the error match ErrSubID2Unknown.
func (sf *UnknownSubID2Error) Unwrap() error { return ErrSubID2Unknown }

// Decode parses one received MIDI-CI payload into its typed message.
// The payload must start at the Universal SysEx ID (no 0xF0/0xF7).
// Destination filtering is not applied here; that is the dispatcher's
// concern. A payload with a valid envelope but an unknown sub-ID 2
// yields an *UnknownSubID2Error so the caller can NAK it.
func Decode(group uint8, raw []byte) (Message, error) {
	if len(raw) < 4 || raw[0] != UniversalSysExID || raw[2] != SubID1MidiCI {
		return nil, ErrEnvelope
	}
	if len(raw) < CommonHeaderSize {
		return nil, ErrMessageTooShort
	}

	subID2 := SubID2(raw[3])
	r := &reader{b: raw[5:]}
	c := Common{
		SourceMUID:      r.decodeMUID(),
		DestinationMUID: r.decodeMUID(),
		Address:         raw[1],
		Group:           group,
	}

	min, err := MinMessageSize(subID2)
	if err != nil {
		return nil, &UnknownSubID2Error{Common: c, SubID2: subID2}
	}
	if len(raw) < min {
		return nil, ErrMessageTooShort
	}

	var m Message
	switch subID2 {
	case SubID2DiscoveryInquiry:
		m, err = decodeDiscoveryInquiry(c, r)
	case SubID2DiscoveryReply:
		m, err = decodeDiscoveryReply(c, r)
	case SubID2EndpointInquiry:
		m, err = decodeEndpointInquiry(c, r)
	case SubID2EndpointReply:
		m, err = decodeEndpointReply(c, r)
	case SubID2InvalidateMUID:
		m, err = decodeInvalidateMUID(c, r)
	case SubID2Ack:
		m, err = decodeAck(c, r)
	case SubID2Nak:
		m, err = decodeNak(c, r)
	case SubID2ProfileInquiry:
		m, err = &ProfileInquiry{Common: c}, nil
	case SubID2ProfileInquiryReply:
		m, err = decodeProfileReply(c, r)
	case SubID2SetProfileOn:
		m, err = decodeSetProfileOn(c, r)
	case SubID2SetProfileOff:
		m, err = decodeSetProfileOff(c, r)
	case SubID2ProfileEnabledReport:
		m, err = decodeProfileEnabledReport(c, r)
	case SubID2ProfileDisabledReport:
		m, err = decodeProfileDisabledReport(c, r)
	case SubID2ProfileAddedReport:
		m, err = decodeProfileAddedReport(c, r)
	case SubID2ProfileRemovedReport:
		m, err = decodeProfileRemovedReport(c, r)
	case SubID2ProfileDetailsInquiry:
		m, err = decodeProfileDetailsInquiry(c, r)
	case SubID2ProfileDetailsReply:
		m, err = decodeProfileDetailsReply(c, r)
	case SubID2ProfileSpecificData:
		m, err = decodeProfileSpecificData(c, r)
	case SubID2PropertyGetCapabilities:
		m, err = &PropertyGetCapabilities{Common: c, MaxSimultaneousRequests: r.decodeByte()}, r.err
	case SubID2PropertyGetCapabilitiesReply:
		m, err = &PropertyGetCapabilitiesReply{Common: c, MaxSimultaneousRequests: r.decodeByte()}, r.err
	case SubID2GetPropertyData:
		m, err = decodeGetPropertyData(c, r)
	case SubID2GetPropertyDataReply:
		m, err = decodeGetPropertyDataReply(c, r)
	case SubID2SetPropertyData:
		m, err = decodeSetPropertyData(c, r)
	case SubID2SetPropertyDataReply:
		m, err = decodeSetPropertyDataReply(c, r)
	case SubID2SubscribeProperty:
		m, err = decodeSubscribeProperty(c, r)
	case SubID2SubscribePropertyReply:
		m, err = decodeSubscribePropertyReply(c, r)
	case SubID2PropertyNotify:
		m, err = decodePropertyNotify(c, r)
	case SubID2ProcessInquiryCapabilities:
		m, err = &ProcessInquiryCapabilities{Common: c}, nil
	case SubID2ProcessInquiryCapabilitiesReply:
		m, err = &ProcessInquiryCapabilitiesReply{Common: c, SupportedFeatures: r.decodeByte()}, r.err
	case SubID2MidiMessageReportInquiry:
		m, err = decodeMidiMessageReportInquiry(c, r)
	case SubID2MidiMessageReportReply:
		m, err = decodeMidiMessageReportReply(c, r)
	case SubID2MidiMessageReportNotifyEnd:
		m, err = &MidiMessageReportNotifyEnd{Common: c}, nil
	default:
		return nil, &UnknownSubID2Error{Common: c, SubID2: subID2}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
