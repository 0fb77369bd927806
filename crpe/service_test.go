package crpe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atsushieno/midicci-sub001/ci"
)

const (
	hostMUID   ci.MUID = 0x0123456
	clientMUID ci.MUID = 0x7654321
)

func newTestService() *Service {
	svc := NewService(Identity{
		DeviceInfo: ci.DeviceInfo{
			DeviceDetails:    ci.DeviceDetails{Manufacturer: 0x7D, Family: 1, Model: 2, SoftwareRevision: 3},
			ManufacturerName: "ACME",
			ModelName:        "Synth-1",
		},
		ChannelList: json.RawMessage(`[{"title":"Lead","channel":1}]`),
	})
	svc.SetLocalMUID(hostMUID)
	return svc
}

func getRequest(resource string, fields RequestFields) *ci.GetPropertyData {
	msg := &ci.GetPropertyData{Common: ci.Common{
		SourceMUID:      clientMUID,
		DestinationMUID: hostMUID,
		Address:         ci.AddressFunctionBlock,
	}}
	msg.RequestID = 11
	msg.Header = CreateDataRequestHeader(resource, fields)
	return msg
}

func TestGetPropertyDataStatuses(t *testing.T) {
	svc := newTestService()
	svc.AddMetadata(NewPropertyMetadata("X-Foo", []byte("42")))

	reply := svc.GetPropertyData(getRequest("X-Foo", RequestFields{}))
	assert.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.Equal(t, []byte("42"), reply.Body)
	assert.Equal(t, hostMUID, reply.Common.SourceMUID)
	assert.Equal(t, clientMUID, reply.Common.DestinationMUID)
	assert.Equal(t, byte(11), reply.RequestID)

	reply = svc.GetPropertyData(getRequest("X-Missing", RequestFields{}))
	assert.Equal(t, StatusNotFound, HeaderFieldInteger(reply.Header, KeyStatus))

	malformed := getRequest("X-Foo", RequestFields{})
	malformed.Header = []byte(`{"no-resource":true}`)
	reply = svc.GetPropertyData(malformed)
	assert.Equal(t, StatusBadRequest, HeaderFieldInteger(reply.Header, KeyStatus))
}

func TestGetPropertyDataEncoded(t *testing.T) {
	svc := newTestService()
	svc.AddMetadata(NewPropertyMetadata("X-Bin", []byte{0x00, 0x80, 0xFF}))

	reply := svc.GetPropertyData(getRequest("X-Bin", RequestFields{MutualEncoding: EncodingMcoded7}))
	require.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.Equal(t, EncodingMcoded7, HeaderFieldString(reply.Header, KeyMutualEncoding))

	decoded, err := DecodeBody(reply.Header, reply.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x80, 0xFF}, decoded)
}

func TestGetPropertyDataPagination(t *testing.T) {
	svc := newTestService()
	meta := NewPropertyMetadata("X-List", []byte(`[1,2,3,4,5]`))
	meta.CanPaginate = true
	svc.AddMetadata(meta)

	reply := svc.GetPropertyData(getRequest("X-List", RequestFields{Offset: 1, Limit: 2}))
	require.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.JSONEq(t, `[2,3]`, string(reply.Body))

	// window past the end yields an empty array
	reply = svc.GetPropertyData(getRequest("X-List", RequestFields{Offset: 9, Limit: 2}))
	assert.JSONEq(t, `[]`, string(reply.Body))

	// properties that do not paginate return the whole body
	svc.AddMetadata(NewPropertyMetadata("X-Plain", []byte(`[1,2,3]`)))
	reply = svc.GetPropertyData(getRequest("X-Plain", RequestFields{Offset: 0, Limit: 1}))
	assert.JSONEq(t, `[1,2,3]`, string(reply.Body))
}

func TestResourceListIncludesFoundationals(t *testing.T) {
	svc := newTestService()
	svc.AddMetadata(NewPropertyMetadata("X-Foo", []byte("{}")))

	reply := svc.GetPropertyData(getRequest(ResourceResourceList, RequestFields{}))
	require.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))

	catalog, err := ParseResourceList(reply.Body)
	require.NoError(t, err)

	ids := make([]string, 0, len(catalog))
	for _, m := range catalog {
		ids = append(ids, m.PropertyID)
	}
	assert.Contains(t, ids, ResourceDeviceInfo)
	assert.Contains(t, ids, ResourceChannelList)
	assert.Contains(t, ids, "X-Foo")
	assert.NotContains(t, ids, ResourceJSONSchema, "no schema configured")
}

func TestDeviceInfoRoundTrip(t *testing.T) {
	svc := newTestService()

	reply := svc.GetPropertyData(getRequest(ResourceDeviceInfo, RequestFields{}))
	require.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))

	info, err := ParseDeviceInfo(reply.Body)
	require.NoError(t, err)
	assert.Equal(t, "ACME", info.ManufacturerName)
	assert.Equal(t, "Synth-1", info.ModelName)
	assert.Equal(t, uint32(0x7D), info.Manufacturer)
}

func setRequest(resource string, body []byte, partial bool) *ci.SetPropertyData {
	msg := &ci.SetPropertyData{Common: ci.Common{
		SourceMUID:      clientMUID,
		DestinationMUID: hostMUID,
		Address:         ci.AddressFunctionBlock,
	}}
	msg.RequestID = 12
	msg.Header = CreateDataRequestHeader(resource, RequestFields{SetPartial: partial})
	msg.Body = body
	return msg
}

func TestSetPropertyData(t *testing.T) {
	svc := newTestService()
	svc.AddMetadata(NewPropertyMetadata("X-Foo", []byte(`{"a":1,"b":{"c":2}}`)))
	svc.SetValue("X-Foo", "", []byte(`{"a":1,"b":{"c":2}}`))

	reply, id, value, applied := svc.SetPropertyData(setRequest("X-Foo", []byte(`{"a":9}`), false))
	assert.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.True(t, applied)
	assert.Equal(t, "X-Foo", id)
	assert.JSONEq(t, `{"a":9}`, string(value))

	// partial set patches by JSON pointer
	reply, _, value, applied = svc.SetPropertyData(setRequest("X-Foo", []byte(`{"/b/c":7}`), true))
	assert.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.True(t, applied)
	assert.JSONEq(t, `{"a":1,"b":{"c":7}}`, string(value))

	// bad pointer
	reply, _, _, applied = svc.SetPropertyData(setRequest("X-Foo", []byte(`{"/b/missing/deep":7}`), true))
	assert.Equal(t, StatusBadRequest, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.False(t, applied)

	// unknown property
	reply, _, _, applied = svc.SetPropertyData(setRequest("X-Nope", []byte(`{}`), false))
	assert.Equal(t, StatusNotFound, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.False(t, applied)

	// read-only property
	readonly := NewPropertyMetadata("X-RO", []byte(`{}`))
	readonly.CanSet = CanSetNone
	svc.AddMetadata(readonly)
	reply, _, _, applied = svc.SetPropertyData(setRequest("X-RO", []byte(`{}`), false))
	assert.Equal(t, StatusDenied, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.False(t, applied)
}

func subscribeRequest(resource, command, subscribeID string) *ci.SubscribeProperty {
	msg := &ci.SubscribeProperty{Common: ci.Common{
		SourceMUID:      clientMUID,
		DestinationMUID: hostMUID,
		Address:         ci.AddressFunctionBlock,
	}}
	msg.RequestID = 13
	msg.Header = CreateSubscriptionHeader(resource, SubscriptionFields{Command: command, SubscribeID: subscribeID})
	return msg
}

func TestSubscribeProperty(t *testing.T) {
	svc := newTestService()
	svc.AddMetadata(NewPropertyMetadata("X-Sub", []byte("1")))

	reply, action := svc.SubscribeProperty(subscribeRequest("X-Sub", CommandStart, ""))
	require.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	require.True(t, action.OK)
	assert.Equal(t, CommandStart, action.Command)
	assert.NotEmpty(t, action.SubscribeID)
	assert.Equal(t, action.SubscribeID, HeaderFieldString(reply.Header, KeySubscribeID))

	// a second start gets a distinct subscription id
	_, action2 := svc.SubscribeProperty(subscribeRequest("X-Sub", CommandStart, ""))
	assert.NotEqual(t, action.SubscribeID, action2.SubscribeID)

	reply, action = svc.SubscribeProperty(subscribeRequest("X-Sub", CommandEnd, action.SubscribeID))
	assert.Equal(t, StatusOK, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.True(t, action.OK)
	assert.Equal(t, CommandEnd, action.Command)

	// non-subscribable property
	static := NewPropertyMetadata("X-Static", []byte("1"))
	static.CanSubscribe = false
	svc.AddMetadata(static)
	reply, action = svc.SubscribeProperty(subscribeRequest("X-Static", CommandStart, ""))
	assert.Equal(t, StatusDenied, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.False(t, action.OK)

	// unknown command
	reply, action = svc.SubscribeProperty(subscribeRequest("X-Sub", "pause", ""))
	assert.Equal(t, StatusBadRequest, HeaderFieldInteger(reply.Header, KeyStatus))
	assert.False(t, action.OK)
}

func TestApplyPartial(t *testing.T) {
	merged, err := ApplyPartial([]byte(`{"a":[1,2,3]}`), []byte(`{"/a/1":9}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,9,3]}`, string(merged))

	// escaped tokens
	merged, err = ApplyPartial([]byte(`{"a/b":1,"c~d":2}`), []byte(`{"/a~1b":3,"/c~0d":4}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a/b":3,"c~d":4}`, string(merged))

	// whole-document replacement
	merged, err = ApplyPartial([]byte(`{"a":1}`), []byte(`{"":{"b":2}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(merged))

	// array index out of range
	_, err = ApplyPartial([]byte(`{"a":[1]}`), []byte(`{"/a/5":9}`))
	assert.ErrorIs(t, err, ErrPointer)

	// patch must be an object
	_, err = ApplyPartial([]byte(`{}`), []byte(`[1,2]`))
	assert.Error(t, err)
}
