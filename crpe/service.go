package crpe

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/atsushieno/midicci-sub001/ci"
)

// Identity is the slice of device configuration the rules engine needs
// to serve the foundational resources. It is plain data captured at
// construction; the service holds no reference back into the device.
type Identity struct {
	DeviceInfo  ci.DeviceInfo
	ChannelList json.RawMessage
	JSONSchema  json.RawMessage
}

// Service is the host-side common-rules engine: it owns the property
// catalog and values, resolves request headers, applies pagination,
// encoding and partial-set transforms, and builds reply messages.
//
// The service is not safe for concurrent use; the owning facade
// serializes access.
type Service struct {
	identity  Identity
	localMUID ci.MUID
	metadata  []*PropertyMetadata
	values    map[valueKey][]byte
}

type valueKey struct {
	propertyID string
	resourceID string
}

// NewService creates a rules engine serving the given identity.
func NewService(identity Identity) *Service {
	return &Service{
		identity: identity,
		values:   make(map[valueKey][]byte),
	}
}

// SetLocalMUID installs the MUID used as the source of reply envelopes.
func (sf *Service) SetLocalMUID(muid ci.MUID) { sf.localMUID = muid }

// AddMetadata installs or replaces a property in the catalog. The
// metadata's Data field seeds the stored value.
func (sf *Service) AddMetadata(m *PropertyMetadata) {
	for i, existing := range sf.metadata {
		if existing.PropertyID == m.PropertyID {
			sf.metadata[i] = m
			sf.values[valueKey{m.PropertyID, m.ResourceID}] = m.Data
			return
		}
	}
	sf.metadata = append(sf.metadata, m)
	sf.values[valueKey{m.PropertyID, m.ResourceID}] = m.Data
}

// RemoveMetadata drops a property and its stored values.
func (sf *Service) RemoveMetadata(propertyID string) {
	for i, m := range sf.metadata {
		if m.PropertyID == propertyID {
			sf.metadata = append(sf.metadata[:i], sf.metadata[i+1:]...)
			break
		}
	}
	for k := range sf.values {
		if k.propertyID == propertyID {
			delete(sf.values, k)
		}
	}
}

// Metadata returns the catalog entry for a property, or nil.
func (sf *Service) Metadata(propertyID string) *PropertyMetadata {
	for _, m := range sf.metadata {
		if m.PropertyID == propertyID {
			return m
		}
	}
	return nil
}

// MetadataList returns a snapshot of the catalog.
func (sf *Service) MetadataList() []*PropertyMetadata {
	out := make([]*PropertyMetadata, len(sf.metadata))
	copy(out, sf.metadata)
	return out
}

// Value returns the stored body of a property, or nil.
func (sf *Service) Value(propertyID, resourceID string) []byte {
	return sf.values[valueKey{propertyID, resourceID}]
}

// SetValue stores the body of a property.
func (sf *Service) SetValue(propertyID, resourceID string, data []byte) {
	sf.values[valueKey{propertyID, resourceID}] = data
}

// ResourceListBody builds the ResourceList JSON catalog: the
// foundational resources the identity provides plus every configured
// property.
func (sf *Service) ResourceListBody() []byte {
	entries := make([]*PropertyMetadata, 0, len(sf.metadata)+3)

	deviceInfo := NewPropertyMetadata(ResourceDeviceInfo, nil)
	deviceInfo.CanSet = CanSetNone
	deviceInfo.CanSubscribe = false
	entries = append(entries, deviceInfo)
	if len(sf.identity.ChannelList) > 0 {
		channelList := NewPropertyMetadata(ResourceChannelList, nil)
		channelList.CanSet = CanSetNone
		channelList.CanSubscribe = false
		channelList.CanPaginate = true
		entries = append(entries, channelList)
	}
	if len(sf.identity.JSONSchema) > 0 {
		schema := NewPropertyMetadata(ResourceJSONSchema, nil)
		schema.CanSet = CanSetNone
		schema.CanSubscribe = false
		entries = append(entries, schema)
	}
	entries = append(entries, sf.metadata...)

	b, err := json.Marshal(entries)
	if err != nil {
		return []byte("[]")
	}
	return b
}

// foundationalBody resolves the resources served from the identity
// rather than the catalog.
func (sf *Service) foundationalBody(propertyID string) ([]byte, bool) {
	switch propertyID {
	case ResourceResourceList:
		return sf.ResourceListBody(), true
	case ResourceDeviceInfo:
		return DeviceInfoBody(sf.identity.DeviceInfo), true
	case ResourceChannelList:
		if len(sf.identity.ChannelList) == 0 {
			return nil, false
		}
		return sf.identity.ChannelList, true
	case ResourceJSONSchema:
		if len(sf.identity.JSONSchema) == 0 {
			return nil, false
		}
		return sf.identity.JSONSchema, true
	}
	return nil, false
}

func (sf *Service) replyCommon(c ci.Common) ci.Common {
	return ci.Common{
		SourceMUID:      sf.localMUID,
		DestinationMUID: c.SourceMUID,
		Address:         c.Address,
		Group:           c.Group,
	}
}

// GetPropertyData serves one get request. Status is 200 on success,
// 404 for an unknown property and 400 for a malformed header or an
// unusable mutual encoding.
func (sf *Service) GetPropertyData(msg *ci.GetPropertyData) *ci.GetPropertyDataReply {
	reply := &ci.GetPropertyDataReply{Common: sf.replyCommon(msg.Common)}
	reply.RequestID = msg.RequestID

	propertyID := PropertyIDForHeader(msg.Header)
	if propertyID == "" {
		reply.Header = CreateStatusHeader(StatusBadRequest)
		return reply
	}

	body, found := sf.foundationalBody(propertyID)
	meta := sf.Metadata(propertyID)
	if !found {
		if meta == nil {
			reply.Header = CreateStatusHeader(StatusNotFound)
			return reply
		}
		resID := HeaderFieldString(msg.Header, KeyResID)
		body = sf.Value(propertyID, resID)
	}

	if limit := HeaderFieldInteger(msg.Header, KeyLimit); limit > 0 && canPaginate(propertyID, meta) {
		body = paginate(body, HeaderFieldInteger(msg.Header, KeyOffset), limit)
	}

	encoding := HeaderFieldString(msg.Header, KeyMutualEncoding)
	encoded, err := EncodeBody(body, encoding)
	if err != nil {
		reply.Header = CreateStatusHeader(StatusBadRequest)
		return reply
	}
	reply.Header = CreateReplyHeader(StatusOK, encoding)
	reply.Body = encoded
	return reply
}

// SetPropertyData serves one set request. On success the decoded (and,
// for partial sets, merged) value is returned so the owning facade can
// store it and push it to subscribers; applied is false when the reply
// carries an error status.
func (sf *Service) SetPropertyData(msg *ci.SetPropertyData) (reply *ci.SetPropertyDataReply, propertyID string, newValue []byte, applied bool) {
	reply = &ci.SetPropertyDataReply{Common: sf.replyCommon(msg.Common)}
	reply.RequestID = msg.RequestID

	propertyID = PropertyIDForHeader(msg.Header)
	if propertyID == "" {
		reply.Header = CreateStatusHeader(StatusBadRequest)
		return reply, propertyID, nil, false
	}
	meta := sf.Metadata(propertyID)
	if meta == nil {
		reply.Header = CreateStatusHeader(StatusNotFound)
		return reply, propertyID, nil, false
	}
	if meta.CanSet == CanSetNone || meta.CanSet == "" {
		reply.Header = CreateStatusHeader(StatusDenied)
		return reply, propertyID, nil, false
	}

	decoded, err := DecodeBody(msg.Header, msg.Body)
	if err != nil {
		reply.Header = CreateStatusHeader(StatusBadRequest)
		return reply, propertyID, nil, false
	}

	resID := HeaderFieldString(msg.Header, KeyResID)
	if HeaderFieldBool(msg.Header, KeySetPartial) {
		if meta.CanSet != CanSetPartial && meta.CanSet != CanSetFull {
			reply.Header = CreateStatusHeader(StatusDenied)
			return reply, propertyID, nil, false
		}
		merged, err := ApplyPartial(sf.Value(propertyID, resID), decoded)
		if err != nil {
			reply.Header = CreateStatusHeader(StatusBadRequest)
			return reply, propertyID, nil, false
		}
		decoded = merged
	}

	reply.Header = CreateStatusHeader(StatusOK)
	return reply, propertyID, decoded, true
}

// SubscriptionAction describes what a subscribe request asked for so
// the owning facade can maintain its subscription table.
type SubscriptionAction struct {
	OK             bool
	Command        string
	PropertyID     string
	SubscribeID    string
	MutualEncoding string
}

// SubscribeProperty serves one subscription request. A start command
// allocates a fresh subscription ID returned in the reply header; an
// end command acknowledges with a bare status.
func (sf *Service) SubscribeProperty(msg *ci.SubscribeProperty) (*ci.SubscribePropertyReply, SubscriptionAction) {
	reply := &ci.SubscribePropertyReply{Common: sf.replyCommon(msg.Common)}
	reply.RequestID = msg.RequestID

	action := SubscriptionAction{
		Command:        HeaderFieldString(msg.Header, KeyCommand),
		PropertyID:     PropertyIDForHeader(msg.Header),
		MutualEncoding: HeaderFieldString(msg.Header, KeyMutualEncoding),
	}

	switch action.Command {
	case CommandStart:
		meta := sf.Metadata(action.PropertyID)
		if meta == nil {
			reply.Header = CreateStatusHeader(StatusNotFound)
			return reply, action
		}
		if !meta.CanSubscribe {
			reply.Header = CreateStatusHeader(StatusDenied)
			return reply, action
		}
		action.SubscribeID = uuid.NewString()
		action.OK = true
		reply.Header = CreateSubscribeReplyHeader(StatusOK, action.SubscribeID)
	case CommandEnd:
		action.SubscribeID = HeaderFieldString(msg.Header, KeySubscribeID)
		action.OK = true
		reply.Header = CreateStatusHeader(StatusOK)
	default:
		reply.Header = CreateStatusHeader(StatusBadRequest)
	}
	return reply, action
}

func canPaginate(propertyID string, meta *PropertyMetadata) bool {
	if meta != nil {
		return meta.CanPaginate
	}
	// of the foundational resources only the list-shaped ones paginate
	return propertyID == ResourceResourceList || propertyID == ResourceChannelList
}

// paginate slices a JSON array body. Non-array bodies pass through
// untouched; a window past the end yields an empty array.
func paginate(body []byte, offset, limit int) []byte {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return body
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(entries) {
		offset = len(entries)
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	out, err := json.Marshal(entries[offset:end])
	if err != nil {
		return body
	}
	return out
}
