package cidevice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// loopback joins two devices directly: everything one sends is fed
// into the other, with an optional tap on the raw packets.
type loopback struct {
	a, b *Device
	aOut [][]byte // packets a sent
	bOut [][]byte // packets b sent
}

func newLoopback(t *testing.T, mutate func(cfgA, cfgB *Config)) *loopback {
	t.Helper()
	lb := &loopback{}

	cfgA := DefaultConfig()
	cfgA.DeviceInfo = ci.DeviceInfo{
		DeviceDetails:    ci.DeviceDetails{Manufacturer: 0x7D, Family: 1, Model: 1, SoftwareRevision: 1},
		ManufacturerName: "ACME",
	}
	cfgA.ProductInstanceID = "initiator-0001"
	cfgB := cfgA
	cfgB.ProductInstanceID = "responder-0001"
	if mutate != nil {
		mutate(&cfgA, &cfgB)
	}

	var err error
	lb.a, err = NewDevice(cfgA, func(group uint8, data []byte) bool {
		pkt := append([]byte(nil), data...)
		lb.aOut = append(lb.aOut, pkt)
		lb.b.ProcessInput(group, pkt)
		return true
	})
	require.NoError(t, err)
	lb.b, err = NewDevice(cfgB, func(group uint8, data []byte) bool {
		pkt := append([]byte(nil), data...)
		lb.bOut = append(lb.bOut, pkt)
		lb.a.ProcessInput(group, pkt)
		return true
	})
	require.NoError(t, err)
	return lb
}

func (sf *loopback) sentBy(out [][]byte, subID2 ci.SubID2) [][]byte {
	var hits [][]byte
	for _, pkt := range out {
		if ci.SubID2(pkt[3]) == subID2 {
			hits = append(hits, pkt)
		}
	}
	return hits
}

func TestNewDeviceValidation(t *testing.T) {
	_, err := NewDevice(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxPropertyChunkSize = 0x4000
	_, err = NewDevice(cfg, func(uint8, []byte) bool { return true })
	assert.Error(t, err)

	dev, err := NewDevice(DefaultConfig(), func(uint8, []byte) bool { return true })
	require.NoError(t, err)
	assert.True(t, dev.MUID().Valid())
}

// S1: discovery creates the connection and fires the automatic
// follow-up inquiries
func TestScenarioDiscovery(t *testing.T) {
	lb := newLoopback(t, nil)

	var seenByB []ci.SubID2
	lb.b.OnMessage(func(m ci.Message) { seenByB = append(seenByB, m.Type()) })

	lb.a.SendDiscovery()

	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn, "initiator must hold a connection for the responder")
	assert.Equal(t, lb.b.MUID(), conn.TargetMUID())

	assert.Contains(t, seenByB, ci.SubID2DiscoveryInquiry)
	assert.Contains(t, seenByB, ci.SubID2EndpointInquiry)
	assert.Contains(t, seenByB, ci.SubID2ProfileInquiry)
	assert.Contains(t, seenByB, ci.SubID2PropertyGetCapabilities)
	assert.Contains(t, seenByB, ci.SubID2ProcessInquiryCapabilities)

	// the capabilities exchange bootstraps the remote catalog
	assert.NotEmpty(t, conn.Properties().Catalog(), "ResourceList should have been fetched")
	require.NotNil(t, conn.DeviceInfo(), "DeviceInfo should have been fetched")
	assert.Equal(t, "ACME", conn.DeviceInfo().ManufacturerName)
}

// S2: remote profile enable updates the responder catalog, broadcasts
// the report, and the initiator's client view follows
func TestScenarioProfileEnable(t *testing.T) {
	lb := newLoopback(t, nil)
	id := ci.ProfileID{0x7E, 0x02, 0x03, 0x04, 0x05}

	require.NoError(t, lb.b.ProfileHost().AddProfile(Profile{
		ID: id, Group: 0, Address: 0x00, Enabled: false, NumChannelsRequested: 1,
	}))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)

	// the profile inquiry already mirrored the disabled profile
	remote := conn.Profiles().Profiles()
	require.Len(t, remote, 1)
	assert.False(t, remote[0].Enabled)

	conn.Profiles().SetProfile(0, 0x00, id, true, 1)

	hostSide := lb.b.ProfileHost().Profiles()
	require.Len(t, hostSide, 1)
	assert.True(t, hostSide[0].Enabled, "responder catalog must show enabled")

	reports := lb.sentBy(lb.bOut, ci.SubID2ProfileEnabledReport)
	require.NotEmpty(t, reports, "enable must be announced")
	reportDest := ci.MUID(uint32(reports[0][9]) | uint32(reports[0][10])<<7 | uint32(reports[0][11])<<14 | uint32(reports[0][12])<<21)
	assert.True(t, reportDest.IsBroadcast(), "report goes to broadcast")

	remote = conn.Profiles().Profiles()
	require.Len(t, remote, 1)
	assert.True(t, remote[0].Enabled, "initiator view must follow the report")
}

// S3: small property get lands in the client cache
func TestScenarioSmallPropertyGet(t *testing.T) {
	lb := newLoopback(t, nil)
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Foo", []byte("42")))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)

	conn.Properties().SendGetPropertyData("X-Foo", crpe.RequestFields{})
	assert.Equal(t, []byte{0x34, 0x32}, conn.Properties().CachedProperty("X-Foo"))
	assert.Zero(t, conn.Properties().OpenRequestCount())
}

// S4: a large body is chunked on the wire and reassembled byte-exact
func TestScenarioLargePropertyGetChunked(t *testing.T) {
	lb := newLoopback(t, func(cfgA, cfgB *Config) {
		cfgB.MaxPropertyChunkSize = 256
	})

	body := make([]byte, 1000)
	for i := range body {
		body[i] = byte(i % 0x5F)
	}
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Big", body))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)
	lb.bOut = nil

	conn.Properties().SendGetPropertyData("X-Big", crpe.RequestFields{})

	chunks := lb.sentBy(lb.bOut, ci.SubID2GetPropertyDataReply)
	assert.Len(t, chunks, 4, "1000 bytes at 256 per chunk")
	assert.Equal(t, body, conn.Properties().CachedProperty("X-Big"))
}

// S5: subscribe, receive the pushed update, unsubscribe, and miss the
// next update
func TestScenarioSubscribeNotify(t *testing.T) {
	lb := newLoopback(t, nil)
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Sub", []byte(`"old"`)))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)

	var updates [][]byte
	conn.Properties().OnPropertyUpdated(func(propertyID string, body []byte) {
		if propertyID == "X-Sub" {
			updates = append(updates, body)
		}
	})

	conn.Properties().SendSubscribeProperty("X-Sub", "")
	subs := conn.Properties().Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, SubscriptionSubscribed, subs[0].State)
	assert.NotEmpty(t, subs[0].SubscriptionID)
	require.Len(t, lb.b.PropertyHost().Subscriptions(), 1)

	lb.b.PropertyHost().UpdateProperty("X-Sub", []byte(`"new"`))
	require.Len(t, updates, 1)
	assert.Equal(t, []byte(`"new"`), updates[0])
	assert.Equal(t, []byte(`"new"`), conn.Properties().CachedProperty("X-Sub"))

	conn.Properties().SendUnsubscribeProperty("X-Sub")
	assert.Empty(t, lb.b.PropertyHost().Subscriptions(), "host table must be empty after unsubscribe")
	assert.Empty(t, conn.Properties().Subscriptions())

	lb.b.PropertyHost().UpdateProperty("X-Sub", []byte(`"unseen"`))
	assert.Len(t, updates, 1, "a second update must not reach the unsubscribed client")
	assert.Equal(t, []byte(`"new"`), conn.Properties().CachedProperty("X-Sub"))
}

// S6: invalidating the peer MUID tears the connection down on both
// sides
func TestScenarioInvalidateMUID(t *testing.T) {
	lb := newLoopback(t, nil)
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Sub", []byte("1")))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)
	conn.Properties().SendSubscribeProperty("X-Sub", "")
	require.Len(t, lb.b.PropertyHost().Subscriptions(), 1)

	lb.a.SendInvalidateMUID(lb.b.MUID())

	assert.Nil(t, lb.a.Connection(lb.b.MUID()), "initiator forgets the peer")
	assert.Empty(t, lb.b.PropertyHost().Subscriptions(), "responder drops the invalidated subscriber")
}

// invariant: a payload addressed to neither the local MUID nor
// broadcast never reaches a handler
func TestAddressingFilter(t *testing.T) {
	lb := newLoopback(t, nil)

	var seen int
	lb.b.OnMessage(func(ci.Message) { seen++ })

	other := ci.Common{
		SourceMUID:      lb.a.MUID(),
		DestinationMUID: 0x0000042, // neither b nor broadcast
		Address:         ci.AddressFunctionBlock,
	}
	packets, err := (&ci.ProfileInquiry{Common: other}).Serialize(ci.ParamsStandard)
	require.NoError(t, err)
	lb.b.ProcessInput(0, packets[0])
	assert.Zero(t, seen)

	// broadcast from a foreign source is processed
	other.DestinationMUID = ci.BroadcastMUID
	packets, err = (&ci.ProfileInquiry{Common: other}).Serialize(ci.ParamsStandard)
	require.NoError(t, err)
	lb.b.ProcessInput(0, packets[0])
	assert.Equal(t, 1, seen)
}

// invariant: a reply with a known request ID fires the callback once;
// a replayed reply is dropped
func TestRequestIDCorrelation(t *testing.T) {
	lb := newLoopback(t, nil)
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Foo", []byte("42")))

	lb.a.SendDiscovery()
	conn := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, conn)

	var fired int
	conn.Properties().OnPropertyUpdated(func(propertyID string, _ []byte) {
		if propertyID == "X-Foo" {
			fired++
		}
	})

	lb.bOut = nil
	conn.Properties().SendGetPropertyData("X-Foo", crpe.RequestFields{})
	require.Equal(t, 1, fired)

	replies := lb.sentBy(lb.bOut, ci.SubID2GetPropertyDataReply)
	require.Len(t, replies, 1)
	lb.a.ProcessInput(0, replies[0])
	assert.Equal(t, 1, fired, "replayed reply must be dropped")
}

// unknown sub-ID 2 values addressed to the device are answered with a
// NAK carrying the unsupported status
func TestUnknownSubID2Nak(t *testing.T) {
	lb := newLoopback(t, nil)

	raw := append([]byte{}, ci.UniversalSysExID, ci.AddressFunctionBlock, 0x0D, 0x55, 0x02)
	raw = ci.AppendMUID(raw, lb.a.MUID())
	raw = ci.AppendMUID(raw, lb.b.MUID())

	lb.bOut = nil
	lb.b.ProcessInput(0, raw)

	naks := lb.sentBy(lb.bOut, ci.SubID2Nak)
	require.Len(t, naks, 1)
	parsed, err := ci.Decode(0, naks[0])
	require.NoError(t, err)
	nak := parsed.(*ci.Nak)
	assert.Equal(t, ci.SubID2(0x55), nak.OriginalSubID2)
	assert.Equal(t, ci.NakStatusUnsupported, nak.StatusCode)
}

// a second DiscoveryReply from the same MUID replaces the connection
// and discards subscription state
func TestRediscoveryResetsState(t *testing.T) {
	lb := newLoopback(t, nil)
	lb.b.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-Sub", []byte("1")))

	lb.a.SendDiscovery()
	first := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, first)
	first.Properties().SendSubscribeProperty("X-Sub", "")
	require.Len(t, lb.b.PropertyHost().Subscriptions(), 1)

	lb.a.SendDiscovery()
	second := lb.a.Connection(lb.b.MUID())
	require.NotNil(t, second)
	assert.NotSame(t, first, second, "rediscovery must start fresh")
	assert.Empty(t, second.Properties().Subscriptions())
	assert.Empty(t, lb.b.PropertyHost().Subscriptions(), "host-side state for the MUID is discarded")
}

func TestSendFailureSurfaced(t *testing.T) {
	dev, err := NewDevice(DefaultConfig(), func(uint8, []byte) bool { return false })
	require.NoError(t, err)

	var failed int
	dev.SetSendFailureHandler(func(uint8, []byte) { failed++ })
	dev.SendDiscovery()
	assert.Equal(t, 1, failed)
}

func TestConnectionsChangedCallback(t *testing.T) {
	lb := newLoopback(t, nil)

	var changes int
	id := lb.a.OnConnectionsChanged(func() { changes++ })

	lb.a.SendDiscovery()
	assert.Equal(t, 1, changes)

	lb.a.SendInvalidateMUID(lb.b.MUID())
	assert.Equal(t, 2, changes)

	lb.a.RemoveConnectionsListener(id)
	lb.a.SendDiscovery()
	assert.Equal(t, 2, changes, "removed listener must not fire")
}
