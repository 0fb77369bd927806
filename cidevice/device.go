// Package cidevice implements the MIDI-CI protocol engine: a device
// object per local endpoint that discovers peers, negotiates profiles,
// exchanges property resources and performs process inquiry over a
// SysEx transport supplied by the application.
package cidevice

import (
	"errors"
	"math/rand"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/clog"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// SendSysEx is the transport sink. The engine calls it with the MIDI-CI
// payload starting at the Universal SysEx ID; it never includes the
// surrounding 0xF0/0xF7. The sink must not block; it reports delivery
// failure by returning false.
type SendSysEx func(group uint8, data []byte) bool

// SendFailureHandler is notified when the transport sink rejected a
// packet. The engine does not retry.
type SendFailureHandler func(group uint8, data []byte)

// Device is one local MIDI-CI endpoint. It owns the connection
// registry, the profile and property host facades and the messenger.
//
// Every public entry point acquires the device lock, so message
// handlers run atomically with respect to public mutators. Observer
// callbacks are invoked after the triggering entry point has released
// the lock; callbacks may therefore call back into the device, but they
// must not block on external resources.
type Device struct {
	mu            deviceLock
	muid          ci.MUID
	config        Config
	sender        SendSysEx
	onSendFailure SendFailureHandler

	mlog trafficLog

	messenger    Messenger
	profileHost  ProfileHostFacade
	propertyHost PropertyHostFacade
	assembler    assembler

	connections        map[ci.MUID]*Connection
	connectionsChanged listenerSet[func()]
	messageListeners   listenerSet[func(ci.Message)]
}

// NewDevice creates a local endpoint with a fresh random MUID. The
// configuration is validated and defaulted in place; a nil sender is a
// construction error.
func NewDevice(config Config, sender SendSysEx) (*Device, error) {
	if sender == nil {
		return nil, errors.New("cidevice: nil transport sink")
	}
	if err := config.Valid(); err != nil {
		return nil, err
	}

	sf := &Device{
		muid:        generateMUID(),
		config:      config,
		sender:      sender,
		connections: make(map[ci.MUID]*Connection),
	}
	sf.mlog.init()
	sf.messenger.dev = sf
	sf.profileHost.init(sf)
	sf.propertyHost.init(sf, crpe.Identity{
		DeviceInfo:  config.DeviceInfo,
		ChannelList: config.ChannelList,
		JSONSchema:  config.JSONSchema,
	})
	sf.assembler.init()
	return sf, nil
}

// generateMUID picks a random 28-bit MUID outside the reserved top
// range 0x0FFFFF00..0x0FFFFFFF.
func generateMUID() ci.MUID {
	for {
		muid := ci.MUID(rand.Uint32() & 0x0FFFFFFF)
		if muid < 0x0FFFFF00 {
			return muid
		}
	}
}

// MUID returns the local endpoint identifier.
func (sf *Device) MUID() ci.MUID { return sf.muid }

// Config returns a copy of the effective configuration.
func (sf *Device) Config() Config {
	sf.mu.lock()
	defer sf.mu.unlock()
	return sf.config
}

// LogMode enables or disables the internal traffic log.
func (sf *Device) LogMode(enable bool) { sf.mlog.setMode(enable) }

// SetLogProvider replaces the log provider. Install the provider before
// traffic flows; the engine does not synchronize provider swaps.
func (sf *Device) SetLogProvider(p clog.LogProvider) { sf.mlog.setProvider(p) }

// SetSendFailureHandler installs the transport failure callback.
func (sf *Device) SetSendFailureHandler(h SendFailureHandler) {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.onSendFailure = h
}

// Messenger exposes the dispatcher, mostly for sending raw inquiries.
func (sf *Device) Messenger() *Messenger { return &sf.messenger }

// ProfileHost returns the local profile catalog facade.
func (sf *Device) ProfileHost() *ProfileHostFacade { return &sf.profileHost }

// PropertyHost returns the local property store facade.
func (sf *Device) PropertyHost() *PropertyHostFacade { return &sf.propertyHost }

// Connection returns the connection for a peer MUID, or nil.
func (sf *Device) Connection(muid ci.MUID) *Connection {
	sf.mu.lock()
	defer sf.mu.unlock()
	return sf.connections[muid]
}

// Connections returns a snapshot of all live connections.
func (sf *Device) Connections() []*Connection {
	sf.mu.lock()
	defer sf.mu.unlock()
	out := make([]*Connection, 0, len(sf.connections))
	for _, conn := range sf.connections {
		out = append(out, conn)
	}
	return out
}

// OnConnectionsChanged registers a registry observer and returns its
// listener id for O(1) unregistration.
func (sf *Device) OnConnectionsChanged(cb func()) int {
	sf.mu.lock()
	defer sf.mu.unlock()
	return sf.connectionsChanged.add(cb)
}

// RemoveConnectionsListener unregisters a registry observer.
func (sf *Device) RemoveConnectionsListener(id int) {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.connectionsChanged.remove(id)
}

// OnMessage registers an observer of every parsed inbound message.
func (sf *Device) OnMessage(cb func(ci.Message)) int {
	sf.mu.lock()
	defer sf.mu.unlock()
	return sf.messageListeners.add(cb)
}

// RemoveMessageListener unregisters a message observer.
func (sf *Device) RemoveMessageListener(id int) {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.messageListeners.remove(id)
}

// SendDiscovery broadcasts a DiscoveryInquiry on the configured group.
func (sf *Device) SendDiscovery() {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.messenger.sendDiscoveryInquiry()
}

// SendInvalidateMUID declares a peer MUID void and drops the local
// connection for it.
func (sf *Device) SendInvalidateMUID(target ci.MUID) {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.messenger.sendInvalidateMUID(target)
	sf.removeConnection(target)
}

// ProcessInput feeds one de-framed inbound MIDI-CI payload to the
// engine. Payloads addressed to neither the local MUID nor broadcast
// are dropped.
func (sf *Device) ProcessInput(group uint8, data []byte) {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.messenger.processInput(group, data)
}

// Close invalidates the local MUID on the wire and drops every
// connection.
func (sf *Device) Close() {
	sf.mu.lock()
	defer sf.mu.unlock()
	sf.messenger.sendInvalidateMUID(sf.muid)
	for muid := range sf.connections {
		delete(sf.connections, muid)
	}
	sf.assembler.init()
	sf.fireConnectionsChanged()
}

// storeConnection creates or replaces the connection for a peer. A
// replacement discards all prior per-peer state, including
// subscriptions; nothing is silently reused across a rediscovery.
func (sf *Device) storeConnection(muid ci.MUID, details ci.DeviceDetails) *Connection {
	if _, ok := sf.connections[muid]; ok {
		sf.assembler.dropPeer(muid)
		sf.propertyHost.dropSubscriber(muid)
	}
	conn := newConnection(sf, muid, details)
	sf.connections[muid] = conn
	sf.fireConnectionsChanged()
	return conn
}

func (sf *Device) removeConnection(muid ci.MUID) {
	if _, ok := sf.connections[muid]; !ok {
		return
	}
	delete(sf.connections, muid)
	sf.assembler.dropPeer(muid)
	sf.propertyHost.dropSubscriber(muid)
	sf.fireConnectionsChanged()
}

func (sf *Device) fireConnectionsChanged() {
	for _, cb := range sf.connectionsChanged.snapshot() {
		sf.mu.enqueue(cb)
	}
}

func (sf *Device) fireMessage(m ci.Message) {
	for _, cb := range sf.messageListeners.snapshot() {
		cb := cb
		sf.mu.enqueue(func() { cb(m) })
	}
}
