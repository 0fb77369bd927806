package crpe

import (
	"encoding/json"
	"fmt"

	"github.com/atsushieno/midicci-sub001/ci"
)

// Foundational resource bodies: JSON bytes to strongly-typed info and
// back.

// deviceInfoBody is the DeviceInfo resource wire form.
type deviceInfoBody struct {
	ManufacturerID uint32 `json:"manufacturerId"`
	FamilyID       uint16 `json:"familyId"`
	ModelID        uint16 `json:"modelId"`
	VersionID      uint32 `json:"versionId"`
	Manufacturer   string `json:"manufacturer"`
	Family         string `json:"family"`
	Model          string `json:"model"`
	Version        string `json:"version"`
	Serial         string `json:"serial,omitempty"`
}

// DeviceInfoBody builds the DeviceInfo resource body.
func DeviceInfoBody(info ci.DeviceInfo) []byte {
	b, err := json.Marshal(deviceInfoBody{
		ManufacturerID: info.Manufacturer,
		FamilyID:       info.Family,
		ModelID:        info.Model,
		VersionID:      info.SoftwareRevision,
		Manufacturer:   info.ManufacturerName,
		Family:         info.FamilyName,
		Model:          info.ModelName,
		Version:        info.VersionName,
		Serial:         info.SerialNumber,
	})
	if err != nil {
		return []byte("{}")
	}
	return b
}

// ParseDeviceInfo parses a DeviceInfo resource body.
func ParseDeviceInfo(body []byte) (ci.DeviceInfo, error) {
	var d deviceInfoBody
	if err := json.Unmarshal(body, &d); err != nil {
		return ci.DeviceInfo{}, fmt.Errorf("crpe: DeviceInfo body: %w", err)
	}
	return ci.DeviceInfo{
		DeviceDetails: ci.DeviceDetails{
			Manufacturer:     d.ManufacturerID,
			Family:           d.FamilyID,
			Model:            d.ModelID,
			SoftwareRevision: d.VersionID,
		},
		ManufacturerName: d.Manufacturer,
		FamilyName:       d.Family,
		ModelName:        d.Model,
		VersionName:      d.Version,
		SerialNumber:     d.Serial,
	}, nil
}

// ParseResourceList parses a ResourceList body into catalog metadata.
// Missing media types and encodings take the common-rules defaults.
func ParseResourceList(body []byte) ([]*PropertyMetadata, error) {
	var entries []*PropertyMetadata
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("crpe: ResourceList body: %w", err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e == nil || e.PropertyID == "" {
			continue
		}
		e.Name = e.PropertyID
		e.MediaType = MediaTypeJSON
		if len(e.MediaTypes) > 0 {
			e.MediaType = e.MediaTypes[0]
		}
		e.Encoding = EncodingASCII
		if len(e.Encodings) > 0 {
			e.Encoding = e.Encodings[0]
		}
		out = append(out, e)
	}
	return out, nil
}

// MidiCIChannel is one ChannelList entry.
type MidiCIChannel struct {
	Title           string `json:"title"`
	Channel         int    `json:"channel"`
	ProgramTitle    string `json:"programTitle,omitempty"`
	BankPC          []int  `json:"bankPC,omitempty"`
	ClusterChannels int    `json:"clusterChannelStart,omitempty"`
}

// ParseChannelList parses a ChannelList resource body.
func ParseChannelList(body []byte) ([]MidiCIChannel, error) {
	var channels []MidiCIChannel
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, fmt.Errorf("crpe: ChannelList body: %w", err)
	}
	return channels, nil
}
