package cidevice

import (
	"errors"
	"sync/atomic"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// Messenger mediates all traffic of one device: it parses inbound
// payloads, dispatches them to the typed handlers, drives outbound
// sends through the transport sink and owns the request-ID counter.
//
// All unexported methods assume the device lock is held.
type Messenger struct {
	dev       *Device
	requestID atomic.Uint32
}

// NextRequestID allocates a request ID. The counter is atomic, wraps
// modulo 256 and skips 0, which is reserved for the resource-list
// bootstrap request.
func (sf *Messenger) NextRequestID() byte {
	for {
		if id := byte(sf.requestID.Add(1)); id != 0 {
			return id
		}
	}
}

// Send serializes a message and hands its packets to the transport
// sink in order.
func (sf *Messenger) Send(m ci.Message) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.send(m)
}

// send serializes under the lock and queues the sink calls for after
// its release, so a loopback transport can feed the packets straight
// back into another device (or this one) without deadlocking. All
// packets of one message go to the sink back-to-back, before any later
// outbound message.
func (sf *Messenger) send(m ci.Message) {
	sf.dev.mlog.message("send", m)

	packets, err := m.Serialize(sf.dev.config.params())
	if err != nil {
		sf.dev.mlog.Error("serialize %s: %v", m.Label(), err)
		return
	}
	var (
		group  = m.Envelope().Group
		label  = m.Label()
		sender = sf.dev.sender
		onFail = sf.dev.onSendFailure
	)
	sf.dev.mu.enqueue(func() {
		for _, pkt := range packets {
			if sender(group, pkt) {
				continue
			}
			sf.dev.mlog.Error("transport rejected %s packet", label)
			if onFail != nil {
				onFail(group, pkt)
			}
		}
	})
}

func (sf *Messenger) common(dest ci.MUID, address byte, group uint8) ci.Common {
	return ci.Common{
		SourceMUID:      sf.dev.muid,
		DestinationMUID: dest,
		Address:         address,
		Group:           group,
	}
}

// processInput validates, parses, reassembles and dispatches one
// inbound payload.
func (sf *Messenger) processInput(group uint8, data []byte) {
	m, err := ci.Decode(group, data)
	if err != nil {
		var unknown *ci.UnknownSubID2Error
		if errors.As(err, &unknown) {
			if unknown.Common.DestinationMUID == sf.dev.muid {
				sf.sendNak(unknown.Common, unknown.SubID2, ci.NakStatusUnsupported, "message type not supported")
			}
			return
		}
		sf.dev.mlog.Debug("drop input: %v", err)
		return
	}

	c := m.Envelope()
	if c.DestinationMUID != sf.dev.muid && !c.DestinationMUID.IsBroadcast() {
		return
	}
	if c.SourceMUID == sf.dev.muid {
		// own broadcast looped back by the transport
		return
	}

	if m = sf.assemble(m); m == nil {
		return
	}

	sf.dev.mlog.message("recv", m)
	sf.dev.fireMessage(m)
	sf.dispatch(m)
}

// assemble merges chunked property messages. It returns nil while a
// chunk sequence is incomplete or was discarded.
func (sf *Messenger) assemble(m ci.Message) ci.Message {
	var chunk *ci.PropertyChunk

	switch t := m.(type) {
	case *ci.GetPropertyData:
		chunk = &t.PropertyChunk
	case *ci.GetPropertyDataReply:
		chunk = &t.PropertyChunk
	case *ci.SetPropertyData:
		chunk = &t.PropertyChunk
	case *ci.SetPropertyDataReply:
		chunk = &t.PropertyChunk
	case *ci.SubscribeProperty:
		chunk = &t.PropertyChunk
	case *ci.SubscribePropertyReply:
		chunk = &t.PropertyChunk
	case *ci.PropertyNotify:
		chunk = &t.PropertyChunk
	default:
		return m
	}
	if chunk.IsComplete() {
		return m
	}

	header, body, done := sf.dev.assembler.feed(m.Envelope().SourceMUID, m.Type(), chunk)
	if !done {
		return nil
	}
	chunk.Header = header
	chunk.Body = body
	chunk.NumChunks = 1
	chunk.ChunkIndex = 1
	return m
}

// dispatch routes one complete message. Inquiry handlers answer on the
// responder side; reply handlers update initiator state on the matching
// connection.
func (sf *Messenger) dispatch(m ci.Message) {
	c := m.Envelope()

	switch t := m.(type) {
	case *ci.DiscoveryInquiry:
		// a fresh inquiry from a known MUID means the peer restarted:
		// all state for that MUID is discarded, nothing is reused
		sf.dev.removeConnection(c.SourceMUID)
		sf.dev.assembler.dropPeer(c.SourceMUID)
		sf.dev.propertyHost.dropSubscriber(c.SourceMUID)
		sf.sendDiscoveryReply(c.Group, c.SourceMUID)
	case *ci.DiscoveryReply:
		sf.handleNewEndpoint(t)
	case *ci.EndpointInquiry:
		reply := &ci.EndpointReply{
			Common: sf.common(c.SourceMUID, c.Address, c.Group),
			Status: t.Status,
		}
		if t.Status == 0 && sf.dev.config.ProductInstanceID != "" {
			reply.Data = []byte(sf.dev.config.ProductInstanceID)
		}
		sf.send(reply)
	case *ci.EndpointReply:
		sf.onClient(c, func(conn *Connection) { conn.storeEndpointReply(t) })
	case *ci.InvalidateMUID:
		sf.dev.removeConnection(t.SourceMUID)
		sf.dev.removeConnection(t.TargetMUID)
		for _, muid := range []ci.MUID{t.SourceMUID, t.TargetMUID} {
			sf.dev.assembler.dropPeer(muid)
			sf.dev.propertyHost.dropSubscriber(muid)
		}
	case *ci.ProfileInquiry:
		for _, reply := range sf.dev.profileHost.repliesForInquiry(c) {
			sf.send(reply)
		}
	case *ci.ProfileReply:
		sf.onClient(c, func(conn *Connection) { conn.profiles.processProfileReply(t) })
	case *ci.SetProfileOn:
		sf.dev.profileHost.handleSetProfileOn(t)
	case *ci.SetProfileOff:
		sf.dev.profileHost.handleSetProfileOff(t)
	case *ci.ProfileEnabledReport:
		sf.onClient(c, func(conn *Connection) { conn.profiles.processEnabledReport(t) })
	case *ci.ProfileDisabledReport:
		sf.onClient(c, func(conn *Connection) { conn.profiles.processDisabledReport(t) })
	case *ci.ProfileAddedReport:
		sf.onClient(c, func(conn *Connection) { conn.profiles.processAddedReport(t) })
	case *ci.ProfileRemovedReport:
		sf.onClient(c, func(conn *Connection) { conn.profiles.processRemovedReport(t) })
	case *ci.ProfileDetailsReply:
		// details are profile defined; the message observers have it
	case *ci.ProfileSpecificData:
		// profile defined payload, observers only
	case *ci.PropertyGetCapabilities:
		max := t.MaxSimultaneousRequests
		if limit := sf.dev.config.MaxSimultaneousPropertyRequests; max > limit {
			max = limit
		}
		sf.send(&ci.PropertyGetCapabilitiesReply{
			Common:                  sf.common(c.SourceMUID, c.Address, c.Group),
			MaxSimultaneousRequests: max,
		})
	case *ci.PropertyGetCapabilitiesReply:
		sf.onClient(c, func(conn *Connection) { conn.properties.processCapabilitiesReply(t) })
	case *ci.GetPropertyData:
		sf.send(sf.dev.propertyHost.processGetPropertyData(t))
	case *ci.SetPropertyData:
		sf.send(sf.dev.propertyHost.processSetPropertyData(t))
	case *ci.SubscribeProperty:
		sf.dispatchSubscribeProperty(t)
	case *ci.SubscribePropertyReply:
		sf.onClient(c, func(conn *Connection) { conn.properties.processSubscribePropertyReply(t) })
	case *ci.GetPropertyDataReply:
		sf.onClient(c, func(conn *Connection) { conn.properties.processGetDataReply(t) })
	case *ci.SetPropertyDataReply:
		sf.onClient(c, func(conn *Connection) { conn.properties.processSetDataReply(t) })
	case *ci.PropertyNotify:
		sf.onClient(c, func(conn *Connection) { conn.properties.processSubscribeMessage(&t.PropertyChunk) })
	case *ci.ProcessInquiryCapabilities:
		sf.send(&ci.ProcessInquiryCapabilitiesReply{
			Common:            sf.common(c.SourceMUID, c.Address, c.Group),
			SupportedFeatures: sf.dev.config.ProcessInquirySupportedFeatures,
		})
	case *ci.ProcessInquiryCapabilitiesReply,
		*ci.MidiMessageReportInquiry,
		*ci.MidiMessageReportReply,
		*ci.MidiMessageReportNotifyEnd,
		*ci.ProfileDetailsInquiry,
		*ci.Ack,
		*ci.Nak:
		// surfaced through the message observers; reporting the actual
		// MIDI traffic is the application's concern
	}
}

// dispatchSubscribeProperty routes the dual-direction subscription
// message: start/end commands target the local host facade, pushed
// notify/full/partial updates (and host-initiated end) target the
// client facade of the matching connection.
func (sf *Messenger) dispatchSubscribeProperty(t *ci.SubscribeProperty) {
	c := t.Envelope()
	conn := sf.dev.connections[c.SourceMUID]

	switch crpe.HeaderFieldString(t.Header, crpe.KeyCommand) {
	case crpe.CommandEnd:
		if conn != nil && conn.properties.ownsSubscription(t.Header) {
			conn.properties.processSubscribeMessage(&t.PropertyChunk)
			return
		}
		sf.send(sf.dev.propertyHost.processSubscribeProperty(t))
	case crpe.CommandNotify, crpe.CommandFull, crpe.CommandPartial:
		if conn != nil {
			conn.properties.processSubscribeMessage(&t.PropertyChunk)
		}
	default: // start, or a malformed command the host rules will reject
		sf.send(sf.dev.propertyHost.processSubscribeProperty(t))
	}
}

// onClient runs a reply handler against the connection matching the
// source MUID. Replies from unknown peers are dropped.
func (sf *Messenger) onClient(c ci.Common, fn func(*Connection)) {
	if conn := sf.dev.connections[c.SourceMUID]; conn != nil {
		fn(conn)
	}
}

// handleNewEndpoint creates (or replaces) the connection for a freshly
// discovered peer and fires the configured automatic follow-ups.
func (sf *Messenger) handleNewEndpoint(t *ci.DiscoveryReply) {
	c := t.Envelope()
	conn := sf.dev.storeConnection(c.SourceMUID, t.DeviceDetails)
	conn.maxSysExSize = t.MaxSysExSize
	conn.functionBlock = t.FunctionBlock

	cfg := &sf.dev.config
	if cfg.AutoSendEndpointInquiry {
		sf.sendEndpointInquiry(c.Group, c.SourceMUID, 0x01)
	}
	if cfg.AutoSendProfileInquiry {
		sf.sendProfileInquiry(c.Group, c.SourceMUID)
	}
	if cfg.AutoSendPropertyExchangeCapabilitiesInquiry {
		sf.send(&ci.PropertyGetCapabilities{
			Common:                  sf.common(c.SourceMUID, ci.AddressFunctionBlock, c.Group),
			MaxSimultaneousRequests: cfg.MaxSimultaneousPropertyRequests,
		})
	}
	if cfg.AutoSendProcessInquiry {
		sf.send(&ci.ProcessInquiryCapabilities{
			Common: sf.common(c.SourceMUID, ci.AddressFunctionBlock, c.Group),
		})
	}
}

func (sf *Messenger) sendDiscoveryInquiry() {
	cfg := &sf.dev.config
	sf.send(&ci.DiscoveryInquiry{
		Common:            sf.common(ci.BroadcastMUID, ci.AddressFunctionBlock, cfg.Group),
		DeviceDetails:     cfg.DeviceInfo.DeviceDetails,
		SupportedFeatures: cfg.CapabilityInquirySupported,
		MaxSysExSize:      uint32(cfg.ReceivableMaxSysExSize),
		OutputPathID:      cfg.OutputPathID,
	})
}

func (sf *Messenger) sendDiscoveryReply(group uint8, dest ci.MUID) {
	cfg := &sf.dev.config
	sf.send(&ci.DiscoveryReply{
		Common:            sf.common(dest, ci.AddressFunctionBlock, group),
		DeviceDetails:     cfg.DeviceInfo.DeviceDetails,
		SupportedFeatures: cfg.CapabilityInquirySupported,
		MaxSysExSize:      uint32(cfg.ReceivableMaxSysExSize),
		OutputPathID:      cfg.OutputPathID,
		FunctionBlock:     cfg.FunctionBlock,
	})
}

func (sf *Messenger) sendEndpointInquiry(group uint8, dest ci.MUID, status byte) {
	sf.send(&ci.EndpointInquiry{
		Common: sf.common(dest, ci.AddressFunctionBlock, group),
		Status: status,
	})
}

func (sf *Messenger) sendProfileInquiry(group uint8, dest ci.MUID) {
	sf.send(&ci.ProfileInquiry{
		Common: sf.common(dest, ci.AddressFunctionBlock, group),
	})
}

func (sf *Messenger) sendInvalidateMUID(target ci.MUID) {
	sf.send(&ci.InvalidateMUID{
		Common:     sf.common(ci.BroadcastMUID, ci.AddressFunctionBlock, sf.dev.config.Group),
		TargetMUID: target,
	})
}

func (sf *Messenger) sendNak(c ci.Common, original ci.SubID2, statusCode byte, text string) {
	nak := &ci.Nak{Common: sf.common(c.SourceMUID, c.Address, c.Group)}
	nak.OriginalSubID2 = original
	nak.StatusCode = statusCode
	nak.MessageText = []byte(text)
	sf.send(nak)
}

// SendEndpointInquiry asks a peer for endpoint information; status 0
// requests the product instance ID.
func (sf *Messenger) SendEndpointInquiry(dest ci.MUID, status byte) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.sendEndpointInquiry(sf.dev.config.Group, dest, status)
}

// SendProfileInquiry asks a peer for its profile catalog.
func (sf *Messenger) SendProfileInquiry(dest ci.MUID) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.sendProfileInquiry(sf.dev.config.Group, dest)
}

// SendMidiMessageReportInquiry requests a MIDI message report from a
// peer; the report itself arrives as ordinary MIDI traffic followed by
// MidiMessageReportNotifyEnd.
func (sf *Messenger) SendMidiMessageReportInquiry(dest ci.MUID, address byte, dataControl, systemMessages, channelControllers, noteData byte) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.send(&ci.MidiMessageReportInquiry{
		Common:             sf.common(dest, address, sf.dev.config.Group),
		MessageDataControl: dataControl,
		SystemMessages:     systemMessages,
		ChannelControllers: channelControllers,
		NoteData:           noteData,
	})
}
