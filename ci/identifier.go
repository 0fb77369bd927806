package ci

import (
	"fmt"
)

// about message identification - Universal SysEx sub-ID 2 of each MIDI-CI message

// SubID2 is the MIDI-CI message type identification, carried as the
// fourth byte of every MIDI-CI SysEx payload.
// See MIDI-CI v1.2, section 5.
type SubID2 uint8

// The standard MIDI-CI message type identifications.
// <0x20..0x2F> profile configuration
// <0x30..0x3F> property exchange
// <0x40..0x4F> process inquiry
// <0x70..0x7F> management
const (
	SubID2ProfileInquiry        SubID2 = 0x20 // profile inquiry
	SubID2ProfileInquiryReply   SubID2 = 0x21 // reply to profile inquiry
	SubID2SetProfileOn          SubID2 = 0x22 // set profile on
	SubID2SetProfileOff         SubID2 = 0x23 // set profile off
	SubID2ProfileEnabledReport  SubID2 = 0x24 // profile enabled report
	SubID2ProfileDisabledReport SubID2 = 0x25 // profile disabled report
	SubID2ProfileAddedReport    SubID2 = 0x26 // profile added report
	SubID2ProfileRemovedReport  SubID2 = 0x27 // profile removed report
	SubID2ProfileDetailsInquiry SubID2 = 0x28 // profile details inquiry
	SubID2ProfileDetailsReply   SubID2 = 0x29 // reply to profile details inquiry
	SubID2ProfileSpecificData   SubID2 = 0x2F // profile specific data

	SubID2PropertyGetCapabilities      SubID2 = 0x30 // inquiry: property exchange capabilities
	SubID2PropertyGetCapabilitiesReply SubID2 = 0x31 // reply to property exchange capabilities
	SubID2GetPropertyData              SubID2 = 0x34 // inquiry: get property data
	SubID2GetPropertyDataReply         SubID2 = 0x35 // reply to get property data
	SubID2SetPropertyData              SubID2 = 0x36 // inquiry: set property data
	SubID2SetPropertyDataReply         SubID2 = 0x37 // reply to set property data
	SubID2SubscribeProperty            SubID2 = 0x38 // subscription message
	SubID2SubscribePropertyReply       SubID2 = 0x39 // reply to subscription message
	SubID2PropertyNotify               SubID2 = 0x3F // property notify

	SubID2ProcessInquiryCapabilities      SubID2 = 0x40 // inquiry: process inquiry capabilities
	SubID2ProcessInquiryCapabilitiesReply SubID2 = 0x41 // reply to process inquiry capabilities
	SubID2MidiMessageReportInquiry        SubID2 = 0x42 // inquiry: MIDI message report
	SubID2MidiMessageReportReply          SubID2 = 0x43 // reply to MIDI message report
	SubID2MidiMessageReportNotifyEnd      SubID2 = 0x44 // end of MIDI message report

	SubID2DiscoveryInquiry SubID2 = 0x70 // discovery inquiry
	SubID2DiscoveryReply   SubID2 = 0x71 // reply to discovery inquiry
	SubID2EndpointInquiry  SubID2 = 0x72 // endpoint message inquiry
	SubID2EndpointReply    SubID2 = 0x73 // reply to endpoint message inquiry
	SubID2Ack              SubID2 = 0x7D // management ACK
	SubID2InvalidateMUID   SubID2 = 0x7E // invalidate MUID
	SubID2Nak              SubID2 = 0x7F // management NAK
)

// minMessageSize maps the message type identification (SubID2) to the
// minimum serial octet size of the whole payload including the common
// header. Messages shorter than this are truncated and dropped.
var minMessageSize = map[SubID2]int{
	SubID2ProfileInquiry:        13,
	SubID2ProfileInquiryReply:   17,
	SubID2SetProfileOn:          20,
	SubID2SetProfileOff:         18,
	SubID2ProfileEnabledReport:  20,
	SubID2ProfileDisabledReport: 20,
	SubID2ProfileAddedReport:    18,
	SubID2ProfileRemovedReport:  18,
	SubID2ProfileDetailsInquiry: 19,
	SubID2ProfileDetailsReply:   21,
	SubID2ProfileSpecificData:   22,

	SubID2PropertyGetCapabilities:      14,
	SubID2PropertyGetCapabilitiesReply: 14,
	SubID2GetPropertyData:              22,
	SubID2GetPropertyDataReply:         22,
	SubID2SetPropertyData:              22,
	SubID2SetPropertyDataReply:         22,
	SubID2SubscribeProperty:            22,
	SubID2SubscribePropertyReply:       22,
	SubID2PropertyNotify:               22,

	SubID2ProcessInquiryCapabilities:      13,
	SubID2ProcessInquiryCapabilitiesReply: 14,
	SubID2MidiMessageReportInquiry:        18,
	SubID2MidiMessageReportReply:          17,
	SubID2MidiMessageReportNotifyEnd:      13,

	SubID2DiscoveryInquiry: 30,
	SubID2DiscoveryReply:   31,
	SubID2EndpointInquiry:  14,
	SubID2EndpointReply:    16,
	SubID2Ack:              23,
	SubID2InvalidateMUID:   17,
	SubID2Nak:              23,
}

// MinMessageSize get the minimum serial octet size of the message type
// identification (SubID2).
func MinMessageSize(id SubID2) (int, error) {
	size, exists := minMessageSize[id]
	if !exists {
		return 0, ErrSubID2Unknown
	}
	return size, nil
}

// String implements fmt.Stringer.
func (sf SubID2) String() string {
	switch sf {
	case SubID2ProfileInquiry:
		return "ProfileInquiry"
	case SubID2ProfileInquiryReply:
		return "ProfileInquiryReply"
	case SubID2SetProfileOn:
		return "SetProfileOn"
	case SubID2SetProfileOff:
		return "SetProfileOff"
	case SubID2ProfileEnabledReport:
		return "ProfileEnabledReport"
	case SubID2ProfileDisabledReport:
		return "ProfileDisabledReport"
	case SubID2ProfileAddedReport:
		return "ProfileAddedReport"
	case SubID2ProfileRemovedReport:
		return "ProfileRemovedReport"
	case SubID2ProfileDetailsInquiry:
		return "ProfileDetailsInquiry"
	case SubID2ProfileDetailsReply:
		return "ProfileDetailsReply"
	case SubID2ProfileSpecificData:
		return "ProfileSpecificData"
	case SubID2PropertyGetCapabilities:
		return "PropertyGetCapabilities"
	case SubID2PropertyGetCapabilitiesReply:
		return "PropertyGetCapabilitiesReply"
	case SubID2GetPropertyData:
		return "GetPropertyData"
	case SubID2GetPropertyDataReply:
		return "GetPropertyDataReply"
	case SubID2SetPropertyData:
		return "SetPropertyData"
	case SubID2SetPropertyDataReply:
		return "SetPropertyDataReply"
	case SubID2SubscribeProperty:
		return "SubscribeProperty"
	case SubID2SubscribePropertyReply:
		return "SubscribePropertyReply"
	case SubID2PropertyNotify:
		return "PropertyNotify"
	case SubID2ProcessInquiryCapabilities:
		return "ProcessInquiryCapabilities"
	case SubID2ProcessInquiryCapabilitiesReply:
		return "ProcessInquiryCapabilitiesReply"
	case SubID2MidiMessageReportInquiry:
		return "MidiMessageReportInquiry"
	case SubID2MidiMessageReportReply:
		return "MidiMessageReportReply"
	case SubID2MidiMessageReportNotifyEnd:
		return "MidiMessageReportNotifyEnd"
	case SubID2DiscoveryInquiry:
		return "DiscoveryInquiry"
	case SubID2DiscoveryReply:
		return "DiscoveryReply"
	case SubID2EndpointInquiry:
		return "EndpointInquiry"
	case SubID2EndpointReply:
		return "EndpointReply"
	case SubID2Ack:
		return "Ack"
	case SubID2InvalidateMUID:
		return "InvalidateMUID"
	case SubID2Nak:
		return "Nak"
	default:
		return fmt.Sprintf("SubID2(0x%02X)", uint8(sf))
	}
}
