package crpe

import (
	"encoding/json"
)

// Property message headers are small JSON objects. They are always
// built structurally and serialized in one step; header bytes are never
// assembled by string formatting.

// RequestFields are the optional fields of a data request header.
// Pagination is requested by a positive Limit; Offset is only emitted
// alongside it.
type RequestFields struct {
	ResID          string
	MutualEncoding string
	SetPartial     bool
	Offset         int
	Limit          int
}

// CreateDataRequestHeader builds the JSON header of a Get/SetPropertyData
// request.
func CreateDataRequestHeader(resource string, f RequestFields) []byte {
	h := map[string]interface{}{KeyResource: resource}
	if f.ResID != "" {
		h[KeyResID] = f.ResID
	}
	if f.MutualEncoding != "" {
		h[KeyMutualEncoding] = f.MutualEncoding
	}
	if f.SetPartial {
		h[KeySetPartial] = true
	}
	if f.Limit > 0 {
		if f.Offset > 0 {
			h[KeyOffset] = f.Offset
		}
		h[KeyLimit] = f.Limit
	}
	return marshalHeader(h)
}

// SubscriptionFields are the optional fields of a subscription header.
type SubscriptionFields struct {
	Command        string
	MutualEncoding string
	SubscribeID    string
}

// CreateSubscriptionHeader builds the JSON header of a SubscribeProperty
// message.
func CreateSubscriptionHeader(resource string, f SubscriptionFields) []byte {
	h := map[string]interface{}{KeyResource: resource}
	if f.Command != "" {
		h[KeyCommand] = f.Command
	}
	if f.MutualEncoding != "" {
		h[KeyMutualEncoding] = f.MutualEncoding
	}
	if f.SubscribeID != "" {
		h[KeySubscribeID] = f.SubscribeID
	}
	return marshalHeader(h)
}

// CreateStatusHeader builds a plain {"status":N} reply header.
func CreateStatusHeader(status int) []byte {
	return marshalHeader(map[string]interface{}{KeyStatus: status})
}

// CreateReplyHeader builds a reply header carrying the status and, when
// non-empty, the mutual encoding the body was encoded with.
func CreateReplyHeader(status int, mutualEncoding string) []byte {
	h := map[string]interface{}{KeyStatus: status}
	if mutualEncoding != "" {
		h[KeyMutualEncoding] = mutualEncoding
	}
	return marshalHeader(h)
}

// CreateSubscribeReplyHeader builds a subscription reply header; the
// subscribe ID is present on successful start replies only.
func CreateSubscribeReplyHeader(status int, subscribeID string) []byte {
	h := map[string]interface{}{KeyStatus: status}
	if subscribeID != "" {
		h[KeySubscribeID] = subscribeID
	}
	return marshalHeader(h)
}

// CreateShutdownSubscriptionHeader builds the header a host sends to
// terminate one of its subscribers.
func CreateShutdownSubscriptionHeader(propertyID string) []byte {
	return marshalHeader(map[string]interface{}{
		KeyResource: propertyID,
		KeyCommand:  CommandEnd,
	})
}

// UpdateNotificationFields parameterize a host push.
type UpdateNotificationFields struct {
	Command        string // notify, full or partial
	MutualEncoding string
	SubscribeID    string
}

// CreateUpdateNotificationHeader builds the header of a host-pushed
// subscription update.
func CreateUpdateNotificationHeader(propertyID string, f UpdateNotificationFields) []byte {
	h := map[string]interface{}{KeyResource: propertyID}
	command := f.Command
	if command == "" {
		command = CommandFull
	}
	h[KeyCommand] = command
	if f.MutualEncoding != "" {
		h[KeyMutualEncoding] = f.MutualEncoding
	}
	if f.SubscribeID != "" {
		h[KeySubscribeID] = f.SubscribeID
	}
	return marshalHeader(h)
}

func marshalHeader(h map[string]interface{}) []byte {
	// map keys marshal in sorted order, so headers are deterministic
	b, err := json.Marshal(h)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// HeaderFieldString parses one string field out of a header. Missing
// fields and malformed headers yield "".
func HeaderFieldString(header []byte, field string) string {
	h := parseHeader(header)
	if h == nil {
		return ""
	}
	s, _ := h[field].(string)
	return s
}

// HeaderFieldInteger parses one integer field out of a header. Missing
// fields and malformed headers yield 0.
func HeaderFieldInteger(header []byte, field string) int {
	h := parseHeader(header)
	if h == nil {
		return 0
	}
	f, _ := h[field].(float64)
	return int(f)
}

// HeaderFieldBool parses one boolean field out of a header.
func HeaderFieldBool(header []byte, field string) bool {
	h := parseHeader(header)
	if h == nil {
		return false
	}
	b, _ := h[field].(bool)
	return b
}

// PropertyIDForHeader parses the resource field out of a header.
func PropertyIDForHeader(header []byte) string {
	return HeaderFieldString(header, KeyResource)
}

func parseHeader(header []byte) map[string]interface{} {
	if len(header) == 0 {
		return nil
	}
	var h map[string]interface{}
	if err := json.Unmarshal(header, &h); err != nil {
		return nil
	}
	return h
}
