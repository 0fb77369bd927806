package cidevice

import (
	"encoding/json"
	"errors"

	"github.com/atsushieno/midicci-sub001/ci"
)

// defines a MIDI-CI device configuration range
const (
	// receivable max SysEx size range [128, 268435455] default 4096
	ReceivableMaxSysExSizeMin = 128
	ReceivableMaxSysExSizeMax = 0x0FFFFFFF

	// property chunk size range [1, 16383] default 512
	MaxPropertyChunkSizeMin = 1
	MaxPropertyChunkSizeMax = 0x3FFF

	// simultaneous property requests range [1, 127] default 8
	MaxSimultaneousPropertyRequestsMin = 1
	MaxSimultaneousPropertyRequestsMax = 127
)

// Capability inquiry category bits advertised in discovery.
const (
	CategoryProtocolNegotiation  byte = 0x02
	CategoryProfileConfiguration byte = 0x04
	CategoryPropertyExchange     byte = 0x08
	CategoryProcessInquiry       byte = 0x10

	// CategoryThreeP profiles, property exchange and process inquiry
	CategoryThreeP = CategoryProfileConfiguration | CategoryPropertyExchange | CategoryProcessInquiry
)

// NoFunctionBlock is the function-block field value advertised when the
// device is not bound to a function block.
const NoFunctionBlock uint8 = 0x7F

// Config defines a MIDI-CI device configuration.
// The default is applied for each unspecified numeric value; the
// auto-send flags have no non-zero default, start from DefaultConfig
// to get the conventional behavior.
type Config struct {
	// DeviceInfo identifies this endpoint in discovery and in the
	// DeviceInfo foundational property.
	DeviceInfo ci.DeviceInfo

	// CapabilityInquirySupported is the category bitmask advertised in
	// DiscoveryInquiry/Reply. default CategoryThreeP.
	CapabilityInquirySupported byte

	// ReceivableMaxSysExSize is advertised in DiscoveryInquiry/Reply.
	// range [128, 268435455] default 4096.
	ReceivableMaxSysExSize int

	// MaxPropertyChunkSize is the property body chunking threshold.
	// range [1, 16383] default 512.
	MaxPropertyChunkSize int

	// MaxSimultaneousPropertyRequests is advertised in
	// PropertyGetCapabilitiesReply. range [1, 127] default 8.
	MaxSimultaneousPropertyRequests byte

	// ProductInstanceID is returned in EndpointReply for status 0.
	ProductInstanceID string

	// Addressing defaults.
	Group         uint8
	OutputPathID  uint8
	FunctionBlock uint8

	// ProcessInquirySupportedFeatures is the bitmask returned in
	// ProcessInquiryCapabilitiesReply.
	// default ProcessInquiryFeatureMidiMessageReport.
	ProcessInquirySupportedFeatures byte

	// ChannelList and JSONSchema are served verbatim as the
	// corresponding foundational properties when non-empty.
	ChannelList json.RawMessage
	JSONSchema  json.RawMessage

	// Automatic follow-ups after a DiscoveryReply creates a connection.
	AutoSendEndpointInquiry                     bool
	AutoSendProfileInquiry                      bool
	AutoSendPropertyExchangeCapabilitiesInquiry bool
	AutoSendProcessInquiry                      bool

	// Automatic property requests on the client side.
	AutoSendGetResourceList bool
	AutoSendGetDeviceInfo   bool
}

// Valid applies the default for each unspecified numeric value and
// checks the remaining ranges.
func (sf *Config) Valid() error {
	if sf == nil {
		return errors.New("invalid pointer")
	}

	if sf.CapabilityInquirySupported == 0 {
		sf.CapabilityInquirySupported = CategoryThreeP
	}

	if sf.ReceivableMaxSysExSize == 0 {
		sf.ReceivableMaxSysExSize = ci.DefaultReceivableMaxSysExSize
	} else if sf.ReceivableMaxSysExSize < ReceivableMaxSysExSizeMin || sf.ReceivableMaxSysExSize > ReceivableMaxSysExSizeMax {
		return errors.New(`ReceivableMaxSysExSize not in [128, 268435455]`)
	}

	if sf.MaxPropertyChunkSize == 0 {
		sf.MaxPropertyChunkSize = ci.DefaultMaxPropertyChunkSize
	} else if sf.MaxPropertyChunkSize < MaxPropertyChunkSizeMin || sf.MaxPropertyChunkSize > MaxPropertyChunkSizeMax {
		return errors.New(`MaxPropertyChunkSize not in [1, 16383]`)
	}

	if sf.MaxSimultaneousPropertyRequests == 0 {
		sf.MaxSimultaneousPropertyRequests = 8
	} else if sf.MaxSimultaneousPropertyRequests > MaxSimultaneousPropertyRequestsMax {
		return errors.New(`MaxSimultaneousPropertyRequests not in [1, 127]`)
	}

	if sf.ProcessInquirySupportedFeatures == 0 {
		sf.ProcessInquirySupportedFeatures = ci.ProcessInquiryFeatureMidiMessageReport
	}

	if len(sf.ChannelList) > 0 && !json.Valid(sf.ChannelList) {
		return errors.New("ChannelList is not valid JSON")
	}
	if len(sf.JSONSchema) > 0 && !json.Valid(sf.JSONSchema) {
		return errors.New("JSONSchema is not valid JSON")
	}
	return nil
}

// params projects the codec-relevant part of the configuration.
func (sf *Config) params() ci.Params {
	return ci.Params{
		MaxPropertyChunkSize:   sf.MaxPropertyChunkSize,
		ReceivableMaxSysExSize: sf.ReceivableMaxSysExSize,
	}
}

// DefaultConfig default config: conventional auto-send behavior and the
// standard sizes.
func DefaultConfig() Config {
	return Config{
		CapabilityInquirySupported:      CategoryThreeP,
		ReceivableMaxSysExSize:          ci.DefaultReceivableMaxSysExSize,
		MaxPropertyChunkSize:            ci.DefaultMaxPropertyChunkSize,
		MaxSimultaneousPropertyRequests: 8,
		FunctionBlock:                   NoFunctionBlock,
		ProcessInquirySupportedFeatures: ci.ProcessInquiryFeatureMidiMessageReport,

		AutoSendEndpointInquiry:                     true,
		AutoSendProfileInquiry:                      true,
		AutoSendPropertyExchangeCapabilitiesInquiry: true,
		AutoSendProcessInquiry:                      true,
		AutoSendGetResourceList:                     true,
		AutoSendGetDeviceInfo:                       true,
	}
}
