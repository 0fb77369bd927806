package ci

import (
	"fmt"
)

// profile configuration messages [0x20..0x2F]

// ProfileInquiry asks a peer for the profiles configured at the
// addressed channel, group or function block [0x20].
// See MIDI-CI v1.2, section 7.
type ProfileInquiry struct {
	Common
}

// Type implements Message.
func (sf *ProfileInquiry) Type() SubID2 { return SubID2ProfileInquiry }

// Label implements Message.
func (sf *ProfileInquiry) Label() string { return "ProfileInquiry" }

// BodyString implements Message.
func (sf *ProfileInquiry) BodyString() string { return "" }

// Serialize implements Message.
func (sf *ProfileInquiry) Serialize(Params) ([][]byte, error) {
	return single(appendCommonHeader(make([]byte, 0, CommonHeaderSize), sf.Common, SubID2ProfileInquiry)), nil
}

// ProfileReply answers a ProfileInquiry [0x21] with the enabled and
// disabled profile IDs at the addressed target, each list prefixed with
// an int14 count.
type ProfileReply struct {
	Common
	EnabledProfiles  []ProfileID
	DisabledProfiles []ProfileID
}

// Type implements Message.
func (sf *ProfileReply) Type() SubID2 { return SubID2ProfileInquiryReply }

// Label implements Message.
func (sf *ProfileReply) Label() string { return "ProfileReply" }

// BodyString implements Message.
func (sf *ProfileReply) BodyString() string {
	return fmt.Sprintf("enabled: %v, disabled: %v", sf.EnabledProfiles, sf.DisabledProfiles)
}

// Serialize implements Message.
func (sf *ProfileReply) Serialize(Params) ([][]byte, error) {
	if len(sf.EnabledProfiles) > maxInt14 || len(sf.DisabledProfiles) > maxInt14 {
		return nil, ErrBodyTooLarge
	}
	n := CommonHeaderSize + 4 + ProfileIDSize*(len(sf.EnabledProfiles)+len(sf.DisabledProfiles))
	b := appendCommonHeader(make([]byte, 0, n), sf.Common, SubID2ProfileInquiryReply)
	b = append7bitInt14(b, uint16(len(sf.EnabledProfiles)))
	for _, id := range sf.EnabledProfiles {
		b = append(b, id[:]...)
	}
	b = append7bitInt14(b, uint16(len(sf.DisabledProfiles)))
	for _, id := range sf.DisabledProfiles {
		b = append(b, id[:]...)
	}
	return single(b), nil
}

func decodeProfileReply(c Common, r *reader) (Message, error) {
	m := &ProfileReply{Common: c}
	m.EnabledProfiles = decodeProfileIDList(r)
	m.DisabledProfiles = decodeProfileIDList(r)
	return m, r.err
}

func decodeProfileIDList(r *reader) []ProfileID {
	count := int(r.decode7bitInt14())
	if r.err != nil {
		return nil
	}
	if count*ProfileIDSize > r.remaining() {
		r.fail(ErrLengthExceedsBuffer)
		return nil
	}
	ids := make([]ProfileID, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, r.decodeProfileID())
	}
	return ids
}

// SetProfileOn asks the responder to enable a profile [0x22]. For
// channel addresses NumChannels is the number of channels requested,
// at least 1; for group and function block addresses it must be 0.
type SetProfileOn struct {
	Common
	Profile     ProfileID
	NumChannels uint16
}

// Type implements Message.
func (sf *SetProfileOn) Type() SubID2 { return SubID2SetProfileOn }

// Label implements Message.
func (sf *SetProfileOn) Label() string { return "SetProfileOn" }

// BodyString implements Message.
func (sf *SetProfileOn) BodyString() string {
	return fmt.Sprintf("profile: %s, channels: %d", sf.Profile, sf.NumChannels)
}

// Serialize implements Message.
func (sf *SetProfileOn) Serialize(Params) ([][]byte, error) {
	return single(appendProfileChannels(sf.Common, SubID2SetProfileOn, sf.Profile, sf.NumChannels)), nil
}

func decodeSetProfileOn(c Common, r *reader) (Message, error) {
	m := &SetProfileOn{Common: c}
	m.Profile = r.decodeProfileID()
	m.NumChannels = r.decode7bitInt14()
	return m, r.err
}

// SetProfileOff asks the responder to disable a profile [0x23]. The
// trailing num-channels field is emitted as 0; parsers accept its
// absence.
type SetProfileOff struct {
	Common
	Profile ProfileID
}

// Type implements Message.
func (sf *SetProfileOff) Type() SubID2 { return SubID2SetProfileOff }

// Label implements Message.
func (sf *SetProfileOff) Label() string { return "SetProfileOff" }

// BodyString implements Message.
func (sf *SetProfileOff) BodyString() string { return fmt.Sprintf("profile: %s", sf.Profile) }

// Serialize implements Message.
func (sf *SetProfileOff) Serialize(Params) ([][]byte, error) {
	return single(appendProfileChannels(sf.Common, SubID2SetProfileOff, sf.Profile, 0)), nil
}

func decodeSetProfileOff(c Common, r *reader) (Message, error) {
	m := &SetProfileOff{Common: c}
	m.Profile = r.decodeProfileID()
	return m, r.err
}

// ProfileEnabledReport announces that a profile was enabled [0x24].
// Sent to the broadcast MUID.
type ProfileEnabledReport struct {
	Common
	Profile     ProfileID
	NumChannels uint16
}

// Type implements Message.
func (sf *ProfileEnabledReport) Type() SubID2 { return SubID2ProfileEnabledReport }

// Label implements Message.
func (sf *ProfileEnabledReport) Label() string { return "ProfileEnabledReport" }

// BodyString implements Message.
func (sf *ProfileEnabledReport) BodyString() string {
	return fmt.Sprintf("profile: %s, channels: %d", sf.Profile, sf.NumChannels)
}

// Serialize implements Message.
func (sf *ProfileEnabledReport) Serialize(Params) ([][]byte, error) {
	return single(appendProfileChannels(sf.Common, SubID2ProfileEnabledReport, sf.Profile, sf.NumChannels)), nil
}

func decodeProfileEnabledReport(c Common, r *reader) (Message, error) {
	m := &ProfileEnabledReport{Common: c}
	m.Profile = r.decodeProfileID()
	m.NumChannels = r.decode7bitInt14()
	return m, r.err
}

// ProfileDisabledReport announces that a profile was disabled [0x25].
// Sent to the broadcast MUID.
type ProfileDisabledReport struct {
	Common
	Profile     ProfileID
	NumChannels uint16
}

// Type implements Message.
func (sf *ProfileDisabledReport) Type() SubID2 { return SubID2ProfileDisabledReport }

// Label implements Message.
func (sf *ProfileDisabledReport) Label() string { return "ProfileDisabledReport" }

// BodyString implements Message.
func (sf *ProfileDisabledReport) BodyString() string {
	return fmt.Sprintf("profile: %s, channels: %d", sf.Profile, sf.NumChannels)
}

// Serialize implements Message.
func (sf *ProfileDisabledReport) Serialize(Params) ([][]byte, error) {
	return single(appendProfileChannels(sf.Common, SubID2ProfileDisabledReport, sf.Profile, sf.NumChannels)), nil
}

func decodeProfileDisabledReport(c Common, r *reader) (Message, error) {
	m := &ProfileDisabledReport{Common: c}
	m.Profile = r.decodeProfileID()
	m.NumChannels = r.decode7bitInt14()
	return m, r.err
}

// ProfileAddedReport announces that a profile appeared in the catalog
// [0x26].
type ProfileAddedReport struct {
	Common
	Profile ProfileID
}

// Type implements Message.
func (sf *ProfileAddedReport) Type() SubID2 { return SubID2ProfileAddedReport }

// Label implements Message.
func (sf *ProfileAddedReport) Label() string { return "ProfileAddedReport" }

// BodyString implements Message.
func (sf *ProfileAddedReport) BodyString() string { return fmt.Sprintf("profile: %s", sf.Profile) }

// Serialize implements Message.
func (sf *ProfileAddedReport) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 18), sf.Common, SubID2ProfileAddedReport)
	return single(append(b, sf.Profile[:]...)), nil
}

func decodeProfileAddedReport(c Common, r *reader) (Message, error) {
	return &ProfileAddedReport{Common: c, Profile: r.decodeProfileID()}, r.err
}

// ProfileRemovedReport announces that a profile left the catalog [0x27].
type ProfileRemovedReport struct {
	Common
	Profile ProfileID
}

// Type implements Message.
func (sf *ProfileRemovedReport) Type() SubID2 { return SubID2ProfileRemovedReport }

// Label implements Message.
func (sf *ProfileRemovedReport) Label() string { return "ProfileRemovedReport" }

// BodyString implements Message.
func (sf *ProfileRemovedReport) BodyString() string { return fmt.Sprintf("profile: %s", sf.Profile) }

// Serialize implements Message.
func (sf *ProfileRemovedReport) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 18), sf.Common, SubID2ProfileRemovedReport)
	return single(append(b, sf.Profile[:]...)), nil
}

func decodeProfileRemovedReport(c Common, r *reader) (Message, error) {
	return &ProfileRemovedReport{Common: c, Profile: r.decodeProfileID()}, r.err
}

// ProfileDetailsInquiry asks for a target detail block of one profile
// [0x28].
type ProfileDetailsInquiry struct {
	Common
	Profile ProfileID
	Target  byte
}

// Type implements Message.
func (sf *ProfileDetailsInquiry) Type() SubID2 { return SubID2ProfileDetailsInquiry }

// Label implements Message.
func (sf *ProfileDetailsInquiry) Label() string { return "ProfileDetailsInquiry" }

// BodyString implements Message.
func (sf *ProfileDetailsInquiry) BodyString() string {
	return fmt.Sprintf("profile: %s, target: 0x%02X", sf.Profile, sf.Target)
}

// Serialize implements Message.
func (sf *ProfileDetailsInquiry) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 19), sf.Common, SubID2ProfileDetailsInquiry)
	b = append(b, sf.Profile[:]...)
	return single(append(b, sf.Target)), nil
}

func decodeProfileDetailsInquiry(c Common, r *reader) (Message, error) {
	m := &ProfileDetailsInquiry{Common: c}
	m.Profile = r.decodeProfileID()
	m.Target = r.decodeByte()
	return m, r.err
}

// ProfileDetailsReply answers a ProfileDetailsInquiry [0x29] with an
// int14-length-prefixed detail data block.
type ProfileDetailsReply struct {
	Common
	Profile ProfileID
	Target  byte
	Data    []byte
}

// Type implements Message.
func (sf *ProfileDetailsReply) Type() SubID2 { return SubID2ProfileDetailsReply }

// Label implements Message.
func (sf *ProfileDetailsReply) Label() string { return "ProfileDetailsReply" }

// BodyString implements Message.
func (sf *ProfileDetailsReply) BodyString() string {
	return fmt.Sprintf("profile: %s, target: 0x%02X, data: %d bytes", sf.Profile, sf.Target, len(sf.Data))
}

// Serialize implements Message.
func (sf *ProfileDetailsReply) Serialize(Params) ([][]byte, error) {
	if len(sf.Data) > maxInt14 {
		return nil, ErrBodyTooLarge
	}
	b := appendCommonHeader(make([]byte, 0, 21+len(sf.Data)), sf.Common, SubID2ProfileDetailsReply)
	b = append(b, sf.Profile[:]...)
	b = append(b, sf.Target)
	b = append7bitInt14(b, uint16(len(sf.Data)))
	return single(append(b, sf.Data...)), nil
}

func decodeProfileDetailsReply(c Common, r *reader) (Message, error) {
	m := &ProfileDetailsReply{Common: c}
	m.Profile = r.decodeProfileID()
	m.Target = r.decodeByte()
	m.Data = r.decodeBytes(int(r.decode7bitInt14()))
	return m, r.err
}

// ProfileSpecificData carries profile-defined payload bytes [0x2F]. The
// data length is a direct 32-bit little-endian field.
type ProfileSpecificData struct {
	Common
	Profile ProfileID
	Data    []byte
}

// Type implements Message.
func (sf *ProfileSpecificData) Type() SubID2 { return SubID2ProfileSpecificData }

// Label implements Message.
func (sf *ProfileSpecificData) Label() string { return "ProfileSpecificData" }

// BodyString implements Message.
func (sf *ProfileSpecificData) BodyString() string {
	return fmt.Sprintf("profile: %s, data: %d bytes", sf.Profile, len(sf.Data))
}

// Serialize implements Message.
func (sf *ProfileSpecificData) Serialize(Params) ([][]byte, error) {
	b := appendCommonHeader(make([]byte, 0, 22+len(sf.Data)), sf.Common, SubID2ProfileSpecificData)
	b = append(b, sf.Profile[:]...)
	n := uint32(len(sf.Data))
	b = append(b, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	return single(append(b, sf.Data...)), nil
}

func decodeProfileSpecificData(c Common, r *reader) (Message, error) {
	m := &ProfileSpecificData{Common: c}
	m.Profile = r.decodeProfileID()
	n := uint32(r.decodeByte()) | uint32(r.decodeByte())<<8 | uint32(r.decodeByte())<<16 | uint32(r.decodeByte())<<24
	m.Data = r.decodeBytes(int(n))
	return m, r.err
}

// 20-byte profile-and-channel-count body shared by several messages
func appendProfileChannels(c Common, subID2 SubID2, id ProfileID, channels uint16) []byte {
	b := appendCommonHeader(make([]byte, 0, 20), c, subID2)
	b = append(b, id[:]...)
	return append7bitInt14(b, channels)
}
