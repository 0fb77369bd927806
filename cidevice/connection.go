package cidevice

import (
	"encoding/json"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// Connection is the per-peer state created when a DiscoveryReply
// arrives from a previously unknown MUID and destroyed on
// InvalidateMUID or device shutdown. It exclusively owns the profile
// and property client facades observing the remote end.
type Connection struct {
	dev           *Device
	targetMUID    ci.MUID
	deviceDetails ci.DeviceDetails
	maxSysExSize  uint32
	functionBlock uint8

	productInstanceID string
	deviceInfo        *ci.DeviceInfo
	channelList       []crpe.MidiCIChannel
	jsonSchema        json.RawMessage

	profiles   ProfileClientFacade
	properties PropertyClientFacade
}

func newConnection(dev *Device, targetMUID ci.MUID, details ci.DeviceDetails) *Connection {
	sf := &Connection{
		dev:           dev,
		targetMUID:    targetMUID,
		deviceDetails: details,
	}
	sf.profiles.init(sf)
	sf.properties.init(sf)
	return sf
}

// TargetMUID returns the remote endpoint identifier.
func (sf *Connection) TargetMUID() ci.MUID { return sf.targetMUID }

// DeviceDetails returns the numeric identity from the discovery reply.
func (sf *Connection) DeviceDetails() ci.DeviceDetails { return sf.deviceDetails }

// Profiles returns the remote profile catalog facade.
func (sf *Connection) Profiles() *ProfileClientFacade { return &sf.profiles }

// Properties returns the remote property facade.
func (sf *Connection) Properties() *PropertyClientFacade { return &sf.properties }

// ProductInstanceID returns the endpoint reply data, when received.
func (sf *Connection) ProductInstanceID() string {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.productInstanceID
}

// DeviceInfo returns the cached DeviceInfo property, or nil before it
// was fetched.
func (sf *Connection) DeviceInfo() *ci.DeviceInfo {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.deviceInfo
}

// ChannelList returns the cached ChannelList property.
func (sf *Connection) ChannelList() []crpe.MidiCIChannel {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.channelList
}

// JSONSchema returns the cached JSONSchema property.
func (sf *Connection) JSONSchema() json.RawMessage {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.jsonSchema
}

func (sf *Connection) storeEndpointReply(t *ci.EndpointReply) {
	if t.Status == 0 {
		sf.productInstanceID = string(t.Data)
	}
}
