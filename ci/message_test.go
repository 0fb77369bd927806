package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCommon = Common{
	SourceMUID:      0x0123456,
	DestinationMUID: 0x7654321,
	Address:         AddressFunctionBlock,
	Group:           3,
}

var testProfile = ProfileID{0x7E, 0x02, 0x03, 0x04, 0x05}

// every message variant that fits one packet must round-trip through
// serialize and parse unchanged
func TestRoundTripAllVariants(t *testing.T) {
	details := DeviceDetails{Manufacturer: 0x123456 & 0x1FFFFF, Family: 0x4321, Model: 0x0765, SoftwareRevision: 0x0000002}

	messages := []Message{
		&DiscoveryInquiry{Common: testCommon, DeviceDetails: details, SupportedFeatures: 0x1C, MaxSysExSize: 4096, OutputPathID: 1},
		&DiscoveryReply{Common: testCommon, DeviceDetails: details, SupportedFeatures: 0x1C, MaxSysExSize: 4096, OutputPathID: 1, FunctionBlock: 0x05},
		&EndpointInquiry{Common: testCommon, Status: 0},
		&EndpointReply{Common: testCommon, Status: 0, Data: []byte("serial-0001")},
		&InvalidateMUID{Common: testCommon, TargetMUID: 0x0ABCDEF},
		&Ack{Common: testCommon, ackNakBody: ackNakBody{OriginalSubID2: SubID2ProfileInquiry, StatusCode: 0, StatusData: 1, Details: [5]byte{1, 2, 3, 4, 5}, MessageText: []byte("ok")}},
		&Nak{Common: testCommon, ackNakBody: ackNakBody{OriginalSubID2: SubID2SetProfileOn, StatusCode: NakStatusProfileNotOn, MessageText: []byte("no such profile")}},

		&ProfileInquiry{Common: testCommon},
		&ProfileReply{Common: testCommon, EnabledProfiles: []ProfileID{testProfile}, DisabledProfiles: []ProfileID{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}}},
		&SetProfileOn{Common: testCommon, Profile: testProfile, NumChannels: 1},
		&SetProfileOff{Common: testCommon, Profile: testProfile},
		&ProfileEnabledReport{Common: testCommon, Profile: testProfile, NumChannels: 2},
		&ProfileDisabledReport{Common: testCommon, Profile: testProfile, NumChannels: 0},
		&ProfileAddedReport{Common: testCommon, Profile: testProfile},
		&ProfileRemovedReport{Common: testCommon, Profile: testProfile},
		&ProfileDetailsInquiry{Common: testCommon, Profile: testProfile, Target: 0x01},
		&ProfileDetailsReply{Common: testCommon, Profile: testProfile, Target: 0x01, Data: []byte{9, 8, 7}},
		&ProfileSpecificData{Common: testCommon, Profile: testProfile, Data: []byte{0x10, 0x20}},

		&PropertyGetCapabilities{Common: testCommon, MaxSimultaneousRequests: 8},
		&PropertyGetCapabilitiesReply{Common: testCommon, MaxSimultaneousRequests: 4},
		&GetPropertyData{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 7, Header: []byte(`{"resource":"X-Foo"}`), NumChunks: 1, ChunkIndex: 1}},
		&GetPropertyDataReply{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 7, Header: []byte(`{"status":200}`), Body: []byte("42"), NumChunks: 1, ChunkIndex: 1}},
		&SetPropertyData{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 8, Header: []byte(`{"resource":"X-Foo"}`), Body: []byte(`{"a":1}`), NumChunks: 1, ChunkIndex: 1}},
		&SetPropertyDataReply{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 8, Header: []byte(`{"status":200}`), NumChunks: 1, ChunkIndex: 1}},
		&SubscribeProperty{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 9, Header: []byte(`{"resource":"X-Foo","command":"start"}`), NumChunks: 1, ChunkIndex: 1}},
		&SubscribePropertyReply{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 9, Header: []byte(`{"status":200,"subscribeId":"sub1"}`), NumChunks: 1, ChunkIndex: 1}},
		&PropertyNotify{Common: testCommon, PropertyChunk: PropertyChunk{RequestID: 10, Header: []byte(`{"resource":"X-Foo"}`), NumChunks: 1, ChunkIndex: 1}},

		&ProcessInquiryCapabilities{Common: testCommon},
		&ProcessInquiryCapabilitiesReply{Common: testCommon, SupportedFeatures: ProcessInquiryFeatureMidiMessageReport},
		&MidiMessageReportInquiry{Common: testCommon, MessageDataControl: MidiMessageReportDataControlFull, SystemMessages: MidiMessageReportSystemMessagesAll, ChannelControllers: MidiMessageReportChannelControllersAll, NoteData: MidiMessageReportNoteDataAll},
		&MidiMessageReportReply{Common: testCommon, SystemMessages: 0x07, ChannelControllers: 0x1F, NoteData: 0x03},
		&MidiMessageReportNotifyEnd{Common: testCommon},
	}

	for _, msg := range messages {
		msg := msg
		t.Run(msg.Label(), func(t *testing.T) {
			packets, err := msg.Serialize(ParamsStandard)
			require.NoError(t, err)
			require.Len(t, packets, 1)

			min, err := MinMessageSize(msg.Type())
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(packets[0]), min)

			parsed, err := Decode(testCommon.Group, packets[0])
			require.NoError(t, err)
			assert.Equal(t, msg, parsed)
		})
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	good, err := (&ProfileInquiry{Common: testCommon}).Serialize(ParamsStandard)
	require.NoError(t, err)

	wrongMagic := append([]byte{}, good[0]...)
	wrongMagic[0] = 0x7D
	_, err = Decode(0, wrongMagic)
	assert.ErrorIs(t, err, ErrEnvelope)

	wrongSubID1 := append([]byte{}, good[0]...)
	wrongSubID1[2] = 0x0C
	_, err = Decode(0, wrongSubID1)
	assert.ErrorIs(t, err, ErrEnvelope)

	_, err = Decode(0, good[0][:CommonHeaderSize-1])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestDecodeUnknownSubID2(t *testing.T) {
	b := appendCommonHeader(nil, testCommon, SubID2(0x55))

	_, err := Decode(testCommon.Group, b)
	require.ErrorIs(t, err, ErrSubID2Unknown)

	var unknown *UnknownSubID2Error
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, SubID2(0x55), unknown.SubID2)
	assert.Equal(t, testCommon.SourceMUID, unknown.Common.SourceMUID)
	assert.Equal(t, testCommon.DestinationMUID, unknown.Common.DestinationMUID)
}

func TestDecodeRejectsTruncatedBody(t *testing.T) {
	packets, err := (&DiscoveryReply{Common: testCommon}).Serialize(ParamsStandard)
	require.NoError(t, err)

	_, err = Decode(0, packets[0][:len(packets[0])-1])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestDecodeRejectsOversizedDeclaredHeader(t *testing.T) {
	msg := &GetPropertyData{Common: testCommon}
	msg.RequestID = 1
	msg.Header = []byte(`{"resource":"X-Foo"}`)
	packets, err := msg.Serialize(ParamsStandard)
	require.NoError(t, err)

	// inflate the declared header size past the buffer
	raw := packets[0]
	raw[14] = 0x7F
	raw[15] = 0x7F
	_, err = Decode(0, raw)
	assert.Error(t, err)
}

func TestEndpointReplyDataBound(t *testing.T) {
	msg := &EndpointReply{Common: testCommon, Data: make([]byte, maxInt14+1)}
	_, err := msg.Serialize(ParamsStandard)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestSysExFraming(t *testing.T) {
	packets, err := (&ProfileInquiry{Common: testCommon}).Serialize(ParamsStandard)
	require.NoError(t, err)

	frame := WrapSysEx(packets[0])
	assert.Equal(t, SysExStart, frame[0])
	assert.Equal(t, SysExEnd, frame[len(frame)-1])

	payload, err := UnwrapSysEx(frame)
	require.NoError(t, err)
	assert.Equal(t, packets[0], payload)

	_, err = UnwrapSysEx(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrNotSysEx)
}
