package ci

import (
	"fmt"
)

// MIDI-CI payload wire constants.
// The payload handed to and received from the transport starts at the
// Universal SysEx ID; it never includes the surrounding 0xF0/0xF7.
const (
	UniversalSysExID byte = 0x7E // universal non-realtime SysEx ID
	SubID1MidiCI     byte = 0x0D // MIDI-CI sub-ID 1

	Version11 byte = 0x01 // MIDI-CI v1.1
	Version12 byte = 0x02 // MIDI-CI v1.2

	CommonHeaderSize = 13 // address, sub-IDs, version, source and destination MUID
	ProfileIDSize    = 5  // profile bank/number encoding defined by MMA
)

// Address byte values beyond the channel range 0x00..0x0F.
const (
	AddressGroup         byte = 0x7E // whole group
	AddressFunctionBlock byte = 0x7F // whole function block
)

// MUID is a MIDI unique identifier, a 28-bit endpoint ID transmitted as
// four 7-bit bytes, little-endian.
type MUID uint32

// BroadcastMUID is the broadcast endpoint address, 0x7F 0x7F 0x7F 0x7F
// on the wire.
const BroadcastMUID MUID = 0x0FFFFFFF

// IsBroadcast reports whether the MUID is the broadcast address.
func (sf MUID) IsBroadcast() bool { return sf == BroadcastMUID }

// Valid reports whether the MUID fits in 28 bits and is not broadcast.
func (sf MUID) Valid() bool { return sf < BroadcastMUID }

// String implements fmt.Stringer.
func (sf MUID) String() string { return fmt.Sprintf("%07X", uint32(sf)) }

// MUID32To28 packs a 32-bit value into the 28-bit wire form: byte 3,
// then the low 7 bits of bytes 2, 1, 0, reassembled in 7-bit packing
// order. Used for device manufacturer and software revision fields.
func MUID32To28(value uint32) uint32 {
	return (((value >> 24) & 0x7F) << 21) |
		(((value >> 16) & 0x7F) << 14) |
		(((value >> 8) & 0x7F) << 7) |
		(value & 0x7F)
}

// MUID28To32 is the inverse of MUID32To28 on the low 28 bits.
func MUID28To32(value uint32) uint32 {
	return ((value >> 21) << 24) |
		(((value >> 14) & 0x7F) << 16) |
		(((value >> 7) & 0x7F) << 8) |
		(value & 0x7F)
}

// Common is the delivery envelope shared by every MIDI-CI message: the
// 13-byte common header fields plus the UMP group the payload travels
// on. The group is transport state, it is not serialized into the
// payload.
type Common struct {
	SourceMUID      MUID
	DestinationMUID MUID
	Address         byte
	Group           uint8
}

// String implements fmt.Stringer.
func (sf Common) String() string {
	return fmt.Sprintf("src: %s, dst: %s, address: 0x%02X, group: %d",
		sf.SourceMUID, sf.DestinationMUID, sf.Address, sf.Group)
}

// ProfileID is the 5-byte profile identifier (bank/number encoding
// defined by MMA).
type ProfileID [ProfileIDSize]byte

// String implements fmt.Stringer.
func (sf ProfileID) String() string {
	return fmt.Sprintf("%02X-%02X-%02X-%02X-%02X", sf[0], sf[1], sf[2], sf[3], sf[4])
}

// DeviceDetails identifies hardware with the numeric fields carried by
// DiscoveryInquiry and DiscoveryReply.
type DeviceDetails struct {
	// Manufacturer is the manufacturer SysEx ID, three 7-bit bytes on
	// the wire (21 significant bits).
	Manufacturer uint32
	// Family and Model are 14-bit, two full 8-bit bytes little-endian
	// on the wire.
	Family uint16
	Model  uint16
	// SoftwareRevision is 28-bit, four 7-bit bytes on the wire.
	SoftwareRevision uint32
}

// String implements fmt.Stringer.
func (sf DeviceDetails) String() string {
	return fmt.Sprintf("manufacturer: %06X, family: %04X, model: %04X, revision: %07X",
		sf.Manufacturer, sf.Family, sf.Model, sf.SoftwareRevision)
}

// DeviceInfo is the human-readable extension of DeviceDetails, served
// through the DeviceInfo foundational property.
type DeviceInfo struct {
	DeviceDetails
	ManufacturerName string
	FamilyName       string
	ModelName        string
	VersionName      string
	SerialNumber     string
}

// Params is the codec parameter set required to serialize multi-packet
// property messages. Zero values take the standard defaults through
// Valid.
type Params struct {
	// MaxPropertyChunkSize is the body chunking threshold.
	// range [1, 16383] default 512.
	MaxPropertyChunkSize int
	// ReceivableMaxSysExSize is the advertised maximum SysEx size.
	// range [128, 268435455] default 4096.
	ReceivableMaxSysExSize int
}

// Valid applies the default for each unspecified value and checks the
// remaining ranges.
func (sf *Params) Valid() error {
	if sf == nil {
		return ErrParam
	}
	if sf.MaxPropertyChunkSize == 0 {
		sf.MaxPropertyChunkSize = DefaultMaxPropertyChunkSize
	} else if sf.MaxPropertyChunkSize < 1 || sf.MaxPropertyChunkSize > maxInt14 {
		return fmt.Errorf("ci: MaxPropertyChunkSize not in [1, %d]", maxInt14)
	}
	if sf.ReceivableMaxSysExSize == 0 {
		sf.ReceivableMaxSysExSize = DefaultReceivableMaxSysExSize
	} else if sf.ReceivableMaxSysExSize < 128 || sf.ReceivableMaxSysExSize > int(BroadcastMUID) {
		return fmt.Errorf("ci: ReceivableMaxSysExSize not in [128, %d]", int(BroadcastMUID))
	}
	return nil
}

// Codec parameter defaults.
const (
	DefaultMaxPropertyChunkSize   = 512
	DefaultReceivableMaxSysExSize = 4096

	maxInt14 = 0x3FFF
)

// ParamsStandard is the default parameter set.
var ParamsStandard = Params{
	MaxPropertyChunkSize:   DefaultMaxPropertyChunkSize,
	ReceivableMaxSysExSize: DefaultReceivableMaxSysExSize,
}
