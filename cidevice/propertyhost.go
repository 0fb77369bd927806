package cidevice

import (
	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// Subscription is one host-side subscription record: a peer that asked
// to be told when a property changes. The subscription ID is allocated
// by this host and is the sole key routing subsequent updates.
type Subscription struct {
	SubscriberMUID ci.MUID
	PropertyID     string
	SubscriptionID string
	Encoding       string
}

// PropertyHostFacade serves local properties to remote peers: it owns
// the rules engine with the property store, and the subscription table
// feeding pushed updates.
type PropertyHostFacade struct {
	dev           *Device
	rules         *crpe.Service
	subscriptions []Subscription

	propertyUpdated     listenerSet[func(propertyID string)]
	subscriptionChanged listenerSet[func(propertyID string)]
}

func (sf *PropertyHostFacade) init(dev *Device, identity crpe.Identity) {
	sf.dev = dev
	sf.rules = crpe.NewService(identity)
	sf.rules.SetLocalMUID(dev.muid)
}

// AddProperty installs or replaces a property in the catalog.
func (sf *PropertyHostFacade) AddProperty(meta *crpe.PropertyMetadata) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.rules.AddMetadata(meta)
	sf.firePropertyUpdated(meta.PropertyID)
}

// RemoveProperty drops a property, its values and its subscriptions.
func (sf *PropertyHostFacade) RemoveProperty(propertyID string) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.rules.RemoveMetadata(propertyID)
	kept := sf.subscriptions[:0]
	for _, sub := range sf.subscriptions {
		if sub.PropertyID != propertyID {
			kept = append(kept, sub)
		}
	}
	sf.subscriptions = kept
	sf.firePropertyUpdated(propertyID)
}

// UpdateProperty stores a new value and pushes it to every subscriber.
func (sf *PropertyHostFacade) UpdateProperty(propertyID string, data []byte) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.updateProperty(propertyID, "", data)
}

// SetPropertyValue is the low-level write: it stores a value under an
// optional resource ID and only notifies subscribers when asked to.
func (sf *PropertyHostFacade) SetPropertyValue(propertyID, resourceID string, data []byte, notify bool) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	if notify {
		sf.updateProperty(propertyID, resourceID, data)
		return
	}
	sf.rules.SetValue(propertyID, resourceID, data)
}

func (sf *PropertyHostFacade) updateProperty(propertyID, resourceID string, data []byte) {
	sf.rules.SetValue(propertyID, resourceID, data)
	sf.pushToSubscribers(propertyID, data)
	sf.firePropertyUpdated(propertyID)
}

// pushToSubscribers sends a full-value SubscribeProperty update to
// every peer subscribed to the property.
func (sf *PropertyHostFacade) pushToSubscribers(propertyID string, data []byte) {
	for _, sub := range sf.subscriptions {
		if sub.PropertyID != propertyID {
			continue
		}
		body, err := crpe.EncodeBody(data, sub.Encoding)
		if err != nil {
			sf.dev.mlog.Error("encode update for %s: %v", sub.SubscriberMUID, err)
			continue
		}
		msg := &ci.SubscribeProperty{
			Common: ci.Common{
				SourceMUID:      sf.dev.muid,
				DestinationMUID: sub.SubscriberMUID,
				Address:         ci.AddressFunctionBlock,
				Group:           sf.dev.config.Group,
			},
		}
		msg.RequestID = sf.dev.messenger.NextRequestID()
		msg.Header = crpe.CreateUpdateNotificationHeader(propertyID, crpe.UpdateNotificationFields{
			Command:        crpe.CommandFull,
			MutualEncoding: sub.Encoding,
			SubscribeID:    sub.SubscriptionID,
		})
		msg.Body = body
		sf.dev.messenger.send(msg)
	}
}

// Properties returns a snapshot of the catalog.
func (sf *PropertyHostFacade) Properties() []*crpe.PropertyMetadata {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.rules.MetadataList()
}

// Value returns the stored body of a property.
func (sf *PropertyHostFacade) Value(propertyID string) []byte {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.rules.Value(propertyID, "")
}

// Subscriptions returns a snapshot of the subscription table.
func (sf *PropertyHostFacade) Subscriptions() []Subscription {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	out := make([]Subscription, len(sf.subscriptions))
	copy(out, sf.subscriptions)
	return out
}

// ShutdownSubscription terminates one subscriber from the host side:
// the entry is dropped and an end command is sent to the peer.
func (sf *PropertyHostFacade) ShutdownSubscription(destination ci.MUID, propertyID string) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()

	removed := false
	kept := sf.subscriptions[:0]
	for _, sub := range sf.subscriptions {
		if sub.SubscriberMUID == destination && sub.PropertyID == propertyID {
			removed = true
			continue
		}
		kept = append(kept, sub)
	}
	sf.subscriptions = kept
	if !removed {
		return
	}
	sf.fireSubscriptionChanged(propertyID)

	msg := &ci.SubscribeProperty{
		Common: ci.Common{
			SourceMUID:      sf.dev.muid,
			DestinationMUID: destination,
			Address:         ci.AddressFunctionBlock,
			Group:           sf.dev.config.Group,
		},
	}
	msg.RequestID = sf.dev.messenger.NextRequestID()
	msg.Header = crpe.CreateShutdownSubscriptionHeader(propertyID)
	sf.dev.messenger.send(msg)
}

// OnPropertyUpdated registers a store observer.
func (sf *PropertyHostFacade) OnPropertyUpdated(cb func(propertyID string)) int {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.propertyUpdated.add(cb)
}

// RemovePropertyUpdatedListener unregisters a store observer.
func (sf *PropertyHostFacade) RemovePropertyUpdatedListener(id int) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.propertyUpdated.remove(id)
}

// OnSubscriptionChanged registers a subscription table observer.
func (sf *PropertyHostFacade) OnSubscriptionChanged(cb func(propertyID string)) int {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.subscriptionChanged.add(cb)
}

// RemoveSubscriptionChangedListener unregisters a table observer.
func (sf *PropertyHostFacade) RemoveSubscriptionChangedListener(id int) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.subscriptionChanged.remove(id)
}

func (sf *PropertyHostFacade) firePropertyUpdated(propertyID string) {
	for _, cb := range sf.propertyUpdated.snapshot() {
		cb := cb
		sf.dev.mu.enqueue(func() { cb(propertyID) })
	}
}

func (sf *PropertyHostFacade) fireSubscriptionChanged(propertyID string) {
	for _, cb := range sf.subscriptionChanged.snapshot() {
		cb := cb
		sf.dev.mu.enqueue(func() { cb(propertyID) })
	}
}

func (sf *PropertyHostFacade) processGetPropertyData(t *ci.GetPropertyData) *ci.GetPropertyDataReply {
	return sf.rules.GetPropertyData(t)
}

func (sf *PropertyHostFacade) processSetPropertyData(t *ci.SetPropertyData) *ci.SetPropertyDataReply {
	reply, propertyID, value, applied := sf.rules.SetPropertyData(t)
	if applied {
		resID := crpe.HeaderFieldString(t.Header, crpe.KeyResID)
		sf.updateProperty(propertyID, resID, value)
	}
	return reply
}

func (sf *PropertyHostFacade) processSubscribeProperty(t *ci.SubscribeProperty) *ci.SubscribePropertyReply {
	reply, action := sf.rules.SubscribeProperty(t)
	if !action.OK {
		return reply
	}
	source := t.Envelope().SourceMUID

	switch action.Command {
	case crpe.CommandStart:
		sf.subscriptions = append(sf.subscriptions, Subscription{
			SubscriberMUID: source,
			PropertyID:     action.PropertyID,
			SubscriptionID: action.SubscribeID,
			Encoding:       action.MutualEncoding,
		})
		sf.fireSubscriptionChanged(action.PropertyID)
	case crpe.CommandEnd:
		kept := sf.subscriptions[:0]
		for _, sub := range sf.subscriptions {
			if sub.SubscriberMUID == source &&
				(sub.PropertyID == action.PropertyID ||
					(action.SubscribeID != "" && sub.SubscriptionID == action.SubscribeID)) {
				continue
			}
			kept = append(kept, sub)
		}
		sf.subscriptions = kept
		sf.fireSubscriptionChanged(action.PropertyID)
	}
	return reply
}

// dropSubscriber removes every subscription of one peer, on
// InvalidateMUID or connection replacement.
func (sf *PropertyHostFacade) dropSubscriber(muid ci.MUID) {
	kept := sf.subscriptions[:0]
	for _, sub := range sf.subscriptions {
		if sub.SubscriberMUID != muid {
			kept = append(kept, sub)
		}
	}
	sf.subscriptions = kept
}
