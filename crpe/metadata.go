// Package crpe implements the Common Rules for Property Exchange: the
// standardized JSON-header protocol layered on top of the raw MIDI-CI
// property message types.
package crpe

import (
	"encoding/json"
	"errors"
)

// Foundational property resource names.
// See Common Rules for Property Exchange v1.1, section 7.
const (
	ResourceResourceList = "ResourceList"
	ResourceDeviceInfo   = "DeviceInfo"
	ResourceChannelList  = "ChannelList"
	ResourceJSONSchema   = "JSONSchema"
)

// JSON header field keys.
const (
	KeyResource       = "resource"
	KeyResID          = "resId"
	KeyMutualEncoding = "mutualEncoding"
	KeySetPartial     = "setPartial"
	KeyOffset         = "offset"
	KeyLimit          = "limit"
	KeyStatus         = "status"
	KeyCommand        = "command"
	KeySubscribeID    = "subscribeId"
	KeyMediaType      = "mediaType"
	KeyMessage        = "message"
)

// Subscription commands.
const (
	CommandStart   = "start"
	CommandEnd     = "end"
	CommandNotify  = "notify"
	CommandFull    = "full"
	CommandPartial = "partial"
)

// Reply status codes, HTTP-flavored per the common rules.
const (
	StatusOK            = 200
	StatusBadRequest    = 400
	StatusDenied        = 403
	StatusNotFound      = 404
	StatusInternalError = 500
)

// Body encodings.
const (
	EncodingASCII       = "ASCII"
	EncodingMcoded7     = "Mcoded7"
	EncodingZlibMcoded7 = "zlib+Mcoded7"
)

// CanSet access levels.
const (
	CanSetNone    = "none"
	CanSetFull    = "full"
	CanSetPartial = "partial"
)

// MediaTypeJSON is the default media type of property bodies.
const MediaTypeJSON = "application/json"

var (
	// ErrEncodingUnknown the mutualEncoding value is not one of the defined encodings
	ErrEncodingUnknown = errors.New("crpe: unknown body encoding")
	// ErrMcoded7 the Mcoded7 stream is malformed
	ErrMcoded7 = errors.New("crpe: malformed Mcoded7 stream")
	// ErrPointer an RFC 6901 pointer does not resolve against the current value
	ErrPointer = errors.New("crpe: unresolvable JSON pointer")
)

// PropertyMetadata describes one property a host exposes. The JSON tags
// are the resource-list entry form; Name, Data and the primary
// MediaType/Encoding are host-side state that never travels in the
// catalog.
type PropertyMetadata struct {
	PropertyID   string   `json:"resource"`
	ResourceID   string   `json:"-"`
	Name         string   `json:"-"`
	MediaType    string   `json:"-"`
	Encoding     string   `json:"-"`
	Data         []byte   `json:"-"`
	CanGet       bool     `json:"canGet"`
	CanSet       string   `json:"canSet"`
	CanSubscribe bool     `json:"canSubscribe"`
	RequireResID bool     `json:"requireResId,omitempty"`
	CanPaginate  bool     `json:"canPaginate,omitempty"`
	MediaTypes   []string `json:"mediaTypes,omitempty"`
	Encodings    []string `json:"encodings,omitempty"`

	Schema json.RawMessage `json:"schema,omitempty"`
}

// NewPropertyMetadata returns metadata with the common-rules defaults:
// readable, writable in full, subscribable JSON.
func NewPropertyMetadata(propertyID string, data []byte) *PropertyMetadata {
	return &PropertyMetadata{
		PropertyID:   propertyID,
		Name:         propertyID,
		MediaType:    MediaTypeJSON,
		Data:         data,
		CanGet:       true,
		CanSet:       CanSetFull,
		CanSubscribe: true,
		MediaTypes:   []string{MediaTypeJSON},
		Encodings:    []string{EncodingASCII},
	}
}

// PropertyValue is the most recently stored representation of one
// property resource, after any transmission encoding is reversed.
type PropertyValue struct {
	PropertyID string
	ResourceID string
	MediaType  string
	Body       []byte
}
