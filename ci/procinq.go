package ci

import (
	"fmt"
)

// process inquiry messages [0x40..0x44]

// Process inquiry feature bits.
const (
	ProcessInquiryFeatureMidiMessageReport byte = 0x01
)

// MIDI message report flag bytes. See MIDI-CI v1.2, section 9.
const (
	MidiMessageReportDataControlNone byte = 0x00
	MidiMessageReportDataControlFull byte = 0x7F

	MidiMessageReportSystemMessagesAll     byte = 0x07
	MidiMessageReportChannelControllersAll byte = 0x1F
	MidiMessageReportNoteDataAll           byte = 0x03
)

// ProcessInquiryCapabilities inquires the process-inquiry features a
// peer supports [0x40].
type ProcessInquiryCapabilities struct {
	Common
}

// Type implements Message.
func (sf *ProcessInquiryCapabilities) Type() SubID2 { return SubID2ProcessInquiryCapabilities }

// Label implements Message.
func (sf *ProcessInquiryCapabilities) Label() string { return "ProcessInquiryCapabilities" }

// BodyString implements Message.
func (sf *ProcessInquiryCapabilities) BodyString() string { return "" }

// Serialize implements Message.
func (sf *ProcessInquiryCapabilities) Serialize(Params) ([][]byte, error) {
	return single(appendCommonHeader(make([]byte, 0, CommonHeaderSize), sf.Common, SubID2ProcessInquiryCapabilities)), nil
}

// ProcessInquiryCapabilitiesReply answers with the supported-features
// bitmask [0x41].
type ProcessInquiryCapabilitiesReply struct {
	Common
	SupportedFeatures byte
}

// Type implements Message.
func (sf *ProcessInquiryCapabilitiesReply) Type() SubID2 {
	return SubID2ProcessInquiryCapabilitiesReply
}

// Label implements Message.
func (sf *ProcessInquiryCapabilitiesReply) Label() string { return "ProcessInquiryCapabilitiesReply" }

// BodyString implements Message.
func (sf *ProcessInquiryCapabilitiesReply) BodyString() string {
	return fmt.Sprintf("features: 0x%02X", sf.SupportedFeatures)
}

// Serialize implements Message.
func (sf *ProcessInquiryCapabilitiesReply) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 14), sf.Common, SubID2ProcessInquiryCapabilitiesReply)
	return single(append(b, sf.SupportedFeatures)), nil
}

// MidiMessageReportInquiry requests a MIDI message report [0x42]. The
// byte after SystemMessages is reserved and transmitted as zero.
type MidiMessageReportInquiry struct {
	Common
	MessageDataControl byte
	SystemMessages     byte
	ChannelControllers byte
	NoteData           byte
}

// Type implements Message.
func (sf *MidiMessageReportInquiry) Type() SubID2 { return SubID2MidiMessageReportInquiry }

// Label implements Message.
func (sf *MidiMessageReportInquiry) Label() string { return "MidiMessageReportInquiry" }

// BodyString implements Message.
func (sf *MidiMessageReportInquiry) BodyString() string {
	return fmt.Sprintf("dataControl: 0x%02X, system: 0x%02X, channelController: 0x%02X, noteData: 0x%02X",
		sf.MessageDataControl, sf.SystemMessages, sf.ChannelControllers, sf.NoteData)
}

// Serialize implements Message.
func (sf *MidiMessageReportInquiry) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 18), sf.Common, SubID2MidiMessageReportInquiry)
	return single(append(b, sf.MessageDataControl, sf.SystemMessages, 0, sf.ChannelControllers, sf.NoteData)), nil
}

func decodeMidiMessageReportInquiry(c Common, r *reader) (Message, error) {
	m := &MidiMessageReportInquiry{Common: c}
	m.MessageDataControl = r.decodeByte()
	m.SystemMessages = r.decodeByte()
	_ = r.decodeByte() // reserved
	m.ChannelControllers = r.decodeByte()
	m.NoteData = r.decodeByte()
	return m, r.err
}

// MidiMessageReportReply acknowledges a report inquiry [0x43] with the
// flags the responder will actually report.
type MidiMessageReportReply struct {
	Common
	SystemMessages     byte
	ChannelControllers byte
	NoteData           byte
}

// Type implements Message.
func (sf *MidiMessageReportReply) Type() SubID2 { return SubID2MidiMessageReportReply }

// Label implements Message.
func (sf *MidiMessageReportReply) Label() string { return "MidiMessageReportReply" }

// BodyString implements Message.
func (sf *MidiMessageReportReply) BodyString() string {
	return fmt.Sprintf("system: 0x%02X, channelController: 0x%02X, noteData: 0x%02X",
		sf.SystemMessages, sf.ChannelControllers, sf.NoteData)
}

// Serialize implements Message.
func (sf *MidiMessageReportReply) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 17), sf.Common, SubID2MidiMessageReportReply)
	return single(append(b, sf.SystemMessages, 0, sf.ChannelControllers, sf.NoteData)), nil
}

func decodeMidiMessageReportReply(c Common, r *reader) (Message, error) {
	m := &MidiMessageReportReply{Common: c}
	m.SystemMessages = r.decodeByte()
	_ = r.decodeByte() // reserved
	m.ChannelControllers = r.decodeByte()
	m.NoteData = r.decodeByte()
	return m, r.err
}

// MidiMessageReportNotifyEnd closes a MIDI message report [0x44].
type MidiMessageReportNotifyEnd struct {
	Common
}

// Type implements Message.
func (sf *MidiMessageReportNotifyEnd) Type() SubID2 { return SubID2MidiMessageReportNotifyEnd }

// Label implements Message.
func (sf *MidiMessageReportNotifyEnd) Label() string { return "MidiMessageReportNotifyEnd" }

// BodyString implements Message.
func (sf *MidiMessageReportNotifyEnd) BodyString() string { return "" }

// Serialize implements Message.
func (sf *MidiMessageReportNotifyEnd) Serialize(Params) ([][]byte, error) {
	return single(appendCommonHeader(make([]byte, 0, CommonHeaderSize), sf.Common, SubID2MidiMessageReportNotifyEnd)), nil
}
