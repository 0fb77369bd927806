package cidevice

import (
	"time"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// ClientSubscriptionState tracks a client-side subscription through its
// request/reply lifecycle.
type ClientSubscriptionState int

// The client-side subscription states.
const (
	SubscriptionSubscribing ClientSubscriptionState = iota
	SubscriptionSubscribed
	SubscriptionUnsubscribing
	SubscriptionUnsubscribed
)

// ClientSubscription is one client-side subscription record. The
// subscription ID is assigned by the remote host in its reply and is
// the sole key routing subsequent pushed updates that carry it; a push
// without one is resolved by its resource name.
type ClientSubscription struct {
	PropertyID     string
	SubscriptionID string
	State          ClientSubscriptionState

	pendingRequestID byte
	hasPending       bool
}

// openRequest correlates a reply to its request: the resource it named,
// so the response can resolve the right property.
type openRequest struct {
	resource  string
	resID     string
	encoding  string
	timestamp time.Time
}

// PropertyClientFacade consumes the properties of one remote endpoint:
// it tracks open requests by request ID, caches the last observed value
// per property, mirrors the remote catalog from ResourceList and keeps
// the subscription table. One per connection.
type PropertyClientFacade struct {
	conn *Connection

	openRequests  map[byte]openRequest
	cached        map[string][]byte
	catalog       []*crpe.PropertyMetadata
	subscriptions []ClientSubscription

	maxSimultaneousRequests byte

	propertyUpdated listenerSet[func(propertyID string, body []byte)]
	catalogUpdated  listenerSet[func()]
}

func (sf *PropertyClientFacade) init(conn *Connection) {
	sf.conn = conn
	sf.openRequests = make(map[byte]openRequest)
	sf.cached = make(map[string][]byte)
}

// SendGetPropertyData requests a property from the remote endpoint.
// The reply resolves through the open-request table and lands in the
// cache.
func (sf *PropertyClientFacade) SendGetPropertyData(resource string, fields crpe.RequestFields) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	sf.sendGet(sf.conn.dev.messenger.NextRequestID(), resource, fields)
}

func (sf *PropertyClientFacade) sendGet(requestID byte, resource string, fields crpe.RequestFields) {
	msg := &ci.GetPropertyData{Common: sf.requestCommon()}
	msg.RequestID = requestID
	msg.Header = crpe.CreateDataRequestHeader(resource, fields)
	sf.openRequests[requestID] = openRequest{
		resource:  resource,
		resID:     fields.ResID,
		encoding:  fields.MutualEncoding,
		timestamp: time.Now(),
	}
	sf.conn.dev.messenger.send(msg)
}

// SendSetPropertyData writes a property on the remote endpoint. With
// partial set, data is a JSON object mapping RFC 6901 pointers to
// replacement values.
func (sf *PropertyClientFacade) SendSetPropertyData(resource, resID string, data []byte, encoding string, partial bool) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()

	body, err := crpe.EncodeBody(data, encoding)
	if err != nil {
		sf.conn.dev.mlog.Error("encode set body: %v", err)
		return
	}
	msg := &ci.SetPropertyData{Common: sf.requestCommon()}
	msg.RequestID = sf.conn.dev.messenger.NextRequestID()
	msg.Header = crpe.CreateDataRequestHeader(resource, crpe.RequestFields{
		ResID:          resID,
		MutualEncoding: encoding,
		SetPartial:     partial,
	})
	msg.Body = body
	sf.openRequests[msg.RequestID] = openRequest{
		resource:  resource,
		resID:     resID,
		encoding:  encoding,
		timestamp: time.Now(),
	}
	sf.conn.dev.messenger.send(msg)
}

// SendSubscribeProperty starts a subscription. The subscription ID
// arrives with the host's reply.
func (sf *PropertyClientFacade) SendSubscribeProperty(resource, encoding string) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()

	for _, sub := range sf.subscriptions {
		if sub.PropertyID == resource &&
			(sub.State == SubscriptionSubscribing || sub.State == SubscriptionSubscribed) {
			return
		}
	}

	msg := &ci.SubscribeProperty{Common: sf.requestCommon()}
	msg.RequestID = sf.conn.dev.messenger.NextRequestID()
	msg.Header = crpe.CreateSubscriptionHeader(resource, crpe.SubscriptionFields{
		Command:        crpe.CommandStart,
		MutualEncoding: encoding,
	})
	sf.subscriptions = append(sf.subscriptions, ClientSubscription{
		PropertyID:       resource,
		State:            SubscriptionSubscribing,
		pendingRequestID: msg.RequestID,
		hasPending:       true,
	})
	sf.conn.dev.messenger.send(msg)
}

// SendUnsubscribeProperty ends a subscription.
func (sf *PropertyClientFacade) SendUnsubscribeProperty(propertyID string) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()

	for i := range sf.subscriptions {
		sub := &sf.subscriptions[i]
		if sub.PropertyID != propertyID || sub.State != SubscriptionSubscribed {
			continue
		}
		msg := &ci.SubscribeProperty{Common: sf.requestCommon()}
		msg.RequestID = sf.conn.dev.messenger.NextRequestID()
		msg.Header = crpe.CreateSubscriptionHeader(propertyID, crpe.SubscriptionFields{
			Command:     crpe.CommandEnd,
			SubscribeID: sub.SubscriptionID,
		})
		sub.State = SubscriptionUnsubscribing
		sub.pendingRequestID = msg.RequestID
		sub.hasPending = true
		sf.conn.dev.messenger.send(msg)
		return
	}
}

// CachedProperty returns the last observed value of a remote property.
func (sf *PropertyClientFacade) CachedProperty(propertyID string) []byte {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	return sf.cached[propertyID]
}

// Catalog returns the remote property catalog from ResourceList.
func (sf *PropertyClientFacade) Catalog() []*crpe.PropertyMetadata {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	out := make([]*crpe.PropertyMetadata, len(sf.catalog))
	copy(out, sf.catalog)
	return out
}

// Subscriptions returns a snapshot of the subscription table.
func (sf *PropertyClientFacade) Subscriptions() []ClientSubscription {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	out := make([]ClientSubscription, len(sf.subscriptions))
	copy(out, sf.subscriptions)
	return out
}

// OpenRequestCount reports the requests still waiting for a reply.
func (sf *PropertyClientFacade) OpenRequestCount() int {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	return len(sf.openRequests)
}

// PruneOpenRequests drops requests older than maxAge. The engine has no
// built-in reply timeout; this is the application's lever.
func (sf *PropertyClientFacade) PruneOpenRequests(maxAge time.Duration) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	cutoff := time.Now().Add(-maxAge)
	for id, req := range sf.openRequests {
		if req.timestamp.Before(cutoff) {
			delete(sf.openRequests, id)
		}
	}
}

// OnPropertyUpdated registers an observer fired when a remote property
// value lands in the cache (with the body) or a set is acknowledged
// (with nil).
func (sf *PropertyClientFacade) OnPropertyUpdated(cb func(propertyID string, body []byte)) int {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	return sf.propertyUpdated.add(cb)
}

// RemovePropertyUpdatedListener unregisters a cache observer.
func (sf *PropertyClientFacade) RemovePropertyUpdatedListener(id int) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	sf.propertyUpdated.remove(id)
}

// OnCatalogUpdated registers an observer of ResourceList arrivals.
func (sf *PropertyClientFacade) OnCatalogUpdated(cb func()) int {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	return sf.catalogUpdated.add(cb)
}

// RemoveCatalogUpdatedListener unregisters a catalog observer.
func (sf *PropertyClientFacade) RemoveCatalogUpdatedListener(id int) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	sf.catalogUpdated.remove(id)
}

func (sf *PropertyClientFacade) requestCommon() ci.Common {
	return ci.Common{
		SourceMUID:      sf.conn.dev.muid,
		DestinationMUID: sf.conn.targetMUID,
		Address:         ci.AddressFunctionBlock,
		Group:           sf.conn.dev.config.Group,
	}
}

// processCapabilitiesReply records the negotiated request window and
// bootstraps the catalog with the ResourceList request, which uses the
// reserved request ID 0.
func (sf *PropertyClientFacade) processCapabilitiesReply(t *ci.PropertyGetCapabilitiesReply) {
	sf.maxSimultaneousRequests = t.MaxSimultaneousRequests
	if sf.conn.dev.config.AutoSendGetResourceList {
		sf.sendGet(0, crpe.ResourceResourceList, crpe.RequestFields{})
	}
}

func (sf *PropertyClientFacade) processGetDataReply(t *ci.GetPropertyDataReply) {
	req, ok := sf.openRequests[t.RequestID]
	if !ok {
		// the request may have been pruned, or this reply is stale
		return
	}
	delete(sf.openRequests, t.RequestID)

	if status := crpe.HeaderFieldInteger(t.Header, crpe.KeyStatus); status != crpe.StatusOK {
		sf.conn.dev.mlog.Warn("get %q failed with status %d", req.resource, status)
		return
	}
	body, err := crpe.DecodeBody(t.Header, t.Body)
	if err != nil {
		sf.conn.dev.mlog.Warn("decode %q body: %v", req.resource, err)
		return
	}
	sf.storeValue(req.resource, body)
}

func (sf *PropertyClientFacade) processSetDataReply(t *ci.SetPropertyDataReply) {
	req, ok := sf.openRequests[t.RequestID]
	if !ok {
		return
	}
	delete(sf.openRequests, t.RequestID)

	if status := crpe.HeaderFieldInteger(t.Header, crpe.KeyStatus); status != crpe.StatusOK {
		sf.conn.dev.mlog.Warn("set %q failed with status %d", req.resource, status)
		return
	}
	sf.firePropertyUpdated(req.resource, nil)
}

func (sf *PropertyClientFacade) processSubscribePropertyReply(t *ci.SubscribePropertyReply) {
	idx := -1
	for i := range sf.subscriptions {
		if sf.subscriptions[i].hasPending && sf.subscriptions[i].pendingRequestID == t.RequestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	sub := &sf.subscriptions[idx]
	sub.hasPending = false

	status := crpe.HeaderFieldInteger(t.Header, crpe.KeyStatus)
	switch sub.State {
	case SubscriptionSubscribing:
		if status != crpe.StatusOK {
			sf.subscriptions = append(sf.subscriptions[:idx], sf.subscriptions[idx+1:]...)
			return
		}
		sub.SubscriptionID = crpe.HeaderFieldString(t.Header, crpe.KeySubscribeID)
		sub.State = SubscriptionSubscribed
	case SubscriptionUnsubscribing:
		if status != crpe.StatusOK {
			sub.State = SubscriptionSubscribed
			return
		}
		sub.State = SubscriptionUnsubscribed
		sf.subscriptions = append(sf.subscriptions[:idx], sf.subscriptions[idx+1:]...)
	}
}

// processSubscribeMessage handles a host-pushed subscription message:
// notify pulls the fresh value, full replaces the cache, partial
// patches it, end terminates the subscription.
func (sf *PropertyClientFacade) processSubscribeMessage(chunk *ci.PropertyChunk) {
	propertyID := crpe.PropertyIDForHeader(chunk.Header)
	if subscribeID := crpe.HeaderFieldString(chunk.Header, crpe.KeySubscribeID); subscribeID != "" {
		propertyID = sf.propertyForSubscribeID(subscribeID)
	}

	switch crpe.HeaderFieldString(chunk.Header, crpe.KeyCommand) {
	case crpe.CommandNotify:
		if propertyID != "" {
			sf.sendGet(sf.conn.dev.messenger.NextRequestID(), propertyID, crpe.RequestFields{})
		}
	case crpe.CommandFull:
		if propertyID == "" {
			propertyID = sf.propertyForSubscribeID(crpe.HeaderFieldString(chunk.Header, crpe.KeySubscribeID))
		}
		if propertyID == "" {
			return
		}
		body, err := crpe.DecodeBody(chunk.Header, chunk.Body)
		if err != nil {
			sf.conn.dev.mlog.Warn("decode pushed %q body: %v", propertyID, err)
			return
		}
		sf.storeValue(propertyID, body)
	case crpe.CommandPartial:
		if propertyID == "" {
			propertyID = sf.propertyForSubscribeID(crpe.HeaderFieldString(chunk.Header, crpe.KeySubscribeID))
		}
		if propertyID == "" {
			return
		}
		patch, err := crpe.DecodeBody(chunk.Header, chunk.Body)
		if err != nil {
			sf.conn.dev.mlog.Warn("decode pushed %q patch: %v", propertyID, err)
			return
		}
		merged, err := crpe.ApplyPartial(sf.cached[propertyID], patch)
		if err != nil {
			sf.conn.dev.mlog.Warn("apply pushed %q patch: %v", propertyID, err)
			return
		}
		sf.storeValue(propertyID, merged)
	case crpe.CommandEnd:
		subscribeID := crpe.HeaderFieldString(chunk.Header, crpe.KeySubscribeID)
		for i := range sf.subscriptions {
			sub := &sf.subscriptions[i]
			if (subscribeID != "" && sub.SubscriptionID == subscribeID) ||
				(subscribeID == "" && sub.PropertyID == propertyID) {
				sf.subscriptions = append(sf.subscriptions[:i], sf.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// ownsSubscription reports whether an end command from the peer refers
// to a subscription this client holds, to disambiguate it from an end
// request against the local host facade.
func (sf *PropertyClientFacade) ownsSubscription(header []byte) bool {
	subscribeID := crpe.HeaderFieldString(header, crpe.KeySubscribeID)
	propertyID := crpe.PropertyIDForHeader(header)
	for _, sub := range sf.subscriptions {
		if subscribeID != "" && sub.SubscriptionID == subscribeID {
			return true
		}
		if subscribeID == "" && propertyID != "" && sub.PropertyID == propertyID {
			return true
		}
	}
	return false
}

func (sf *PropertyClientFacade) propertyForSubscribeID(subscribeID string) string {
	if subscribeID == "" {
		return ""
	}
	for _, sub := range sf.subscriptions {
		if sub.SubscriptionID == subscribeID {
			return sub.PropertyID
		}
	}
	return ""
}

// storeValue lands a received body in the cache, resolves the
// foundational resources and notifies the observers.
func (sf *PropertyClientFacade) storeValue(propertyID string, body []byte) {
	sf.cached[propertyID] = body

	switch propertyID {
	case crpe.ResourceResourceList:
		catalog, err := crpe.ParseResourceList(body)
		if err != nil {
			sf.conn.dev.mlog.Warn("ResourceList: %v", err)
		} else {
			sf.catalog = catalog
			sf.fireCatalogUpdated()
			sf.requestFoundationals()
		}
	case crpe.ResourceDeviceInfo:
		if info, err := crpe.ParseDeviceInfo(body); err == nil {
			sf.conn.deviceInfo = &info
		} else {
			sf.conn.dev.mlog.Warn("DeviceInfo: %v", err)
		}
	case crpe.ResourceChannelList:
		if channels, err := crpe.ParseChannelList(body); err == nil {
			sf.conn.channelList = channels
		} else {
			sf.conn.dev.mlog.Warn("ChannelList: %v", err)
		}
	case crpe.ResourceJSONSchema:
		sf.conn.jsonSchema = body
	}

	sf.firePropertyUpdated(propertyID, body)
}

// requestFoundationals auto-requests the foundational resources the
// catalog advertises, once the ResourceList landed.
func (sf *PropertyClientFacade) requestFoundationals() {
	if !sf.conn.dev.config.AutoSendGetDeviceInfo {
		return
	}
	for _, meta := range sf.catalog {
		switch meta.PropertyID {
		case crpe.ResourceDeviceInfo, crpe.ResourceChannelList, crpe.ResourceJSONSchema:
			sf.sendGet(sf.conn.dev.messenger.NextRequestID(), meta.PropertyID, crpe.RequestFields{})
		}
	}
}

func (sf *PropertyClientFacade) firePropertyUpdated(propertyID string, body []byte) {
	for _, cb := range sf.propertyUpdated.snapshot() {
		cb := cb
		sf.conn.dev.mu.enqueue(func() { cb(propertyID, body) })
	}
}

func (sf *PropertyClientFacade) fireCatalogUpdated() {
	for _, cb := range sf.catalogUpdated.snapshot() {
		cb := cb
		sf.conn.dev.mu.enqueue(func() { cb() })
	}
}
