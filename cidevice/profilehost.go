package cidevice

import (
	"errors"

	"github.com/atsushieno/midicci-sub001/ci"
)

// Profile is one catalog record: a profile ID bound to a (group,
// address) target with its enabled state. For group and function block
// addresses NumChannelsRequested is 0; for channel addresses it is at
// least 1.
type Profile struct {
	ID                   ci.ProfileID
	Group                uint8
	Address              byte
	Enabled              bool
	NumChannelsRequested uint16
}

// target identity of a profile record
func (sf Profile) sameTarget(id ci.ProfileID, group uint8, address byte) bool {
	return sf.ID == id && sf.Group == group && sf.Address == address
}

// ProfileEventKind classifies catalog change notifications.
type ProfileEventKind int

// The catalog change notifications.
const (
	ProfileEventAdded ProfileEventKind = iota
	ProfileEventRemoved
	ProfileEventEnabledChanged
	ProfileEventUpdated
)

// ProfileEvent is one catalog change, carrying a copy of the record
// after the change (before, for removals).
type ProfileEvent struct {
	Kind    ProfileEventKind
	Profile Profile
}

// Profile catalog errors.
var (
	// ErrProfileExists the (profile, group, address) target is already cataloged
	ErrProfileExists = errors.New("cidevice: profile already exists at target")
	// ErrProfileNotFound no record matches the (profile, group, address) target
	ErrProfileNotFound = errors.New("cidevice: profile not found at target")
	// ErrProfileChannels the channel count violates the addressing rule
	ErrProfileChannels = errors.New("cidevice: channel count invalid for address")
)

// ProfileHostFacade is the local profile catalog: the profiles this
// device advertises and lets peers switch. Catalog changes fire the
// registered listeners; additions, removals and enable/disable changes
// are also announced on the wire with the corresponding report
// messages, while UpdateProfileTarget sends no report.
type ProfileHostFacade struct {
	dev       *Device
	profiles  []Profile
	listeners listenerSet[func(ProfileEvent)]
}

func (sf *ProfileHostFacade) init(dev *Device) { sf.dev = dev }

// validTarget checks the channel-count rule: group and function block
// targets carry no channel count, channel targets at least one channel.
func validTarget(address byte, numChannels uint16) bool {
	if address >= ci.AddressGroup {
		return numChannels == 0
	}
	return numChannels >= 1
}

// AddProfile catalogs a profile. The (ID, Group, Address) triple must
// be unique; the channel count must fit the address.
func (sf *ProfileHostFacade) AddProfile(p Profile) error {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()

	if !validTarget(p.Address, p.NumChannelsRequested) {
		return ErrProfileChannels
	}
	for _, existing := range sf.profiles {
		if existing.sameTarget(p.ID, p.Group, p.Address) {
			return ErrProfileExists
		}
	}
	sf.profiles = append(sf.profiles, p)
	sf.fire(ProfileEvent{Kind: ProfileEventAdded, Profile: p})
	sf.dev.messenger.send(&ci.ProfileAddedReport{
		Common:  sf.reportCommon(p.Address, p.Group),
		Profile: p.ID,
	})
	return nil
}

// RemoveProfile drops a catalog record.
func (sf *ProfileHostFacade) RemoveProfile(id ci.ProfileID, group uint8, address byte) error {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()

	for i, p := range sf.profiles {
		if p.sameTarget(id, group, address) {
			sf.profiles = append(sf.profiles[:i], sf.profiles[i+1:]...)
			sf.fire(ProfileEvent{Kind: ProfileEventRemoved, Profile: p})
			sf.dev.messenger.send(&ci.ProfileRemovedReport{
				Common:  sf.reportCommon(address, group),
				Profile: id,
			})
			return nil
		}
	}
	return ErrProfileNotFound
}

// EnableProfile turns a cataloged profile on and broadcasts the
// enabled report.
func (sf *ProfileHostFacade) EnableProfile(group uint8, address byte, id ci.ProfileID, numChannels uint16) error {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.setEnabled(group, address, id, true, numChannels)
}

// DisableProfile turns a cataloged profile off and broadcasts the
// disabled report.
func (sf *ProfileHostFacade) DisableProfile(group uint8, address byte, id ci.ProfileID) error {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.setEnabled(group, address, id, false, 0)
}

func (sf *ProfileHostFacade) setEnabled(group uint8, address byte, id ci.ProfileID, enabled bool, numChannels uint16) error {
	for i := range sf.profiles {
		p := &sf.profiles[i]
		if !p.sameTarget(id, group, address) {
			continue
		}
		p.Enabled = enabled
		if enabled {
			if address < ci.AddressGroup && numChannels < 1 {
				numChannels = 1
			}
			if address >= ci.AddressGroup {
				numChannels = 0
			}
			p.NumChannelsRequested = numChannels
		}
		sf.fire(ProfileEvent{Kind: ProfileEventEnabledChanged, Profile: *p})
		sf.sendEnabledReport(*p)
		return nil
	}
	return ErrProfileNotFound
}

func (sf *ProfileHostFacade) sendEnabledReport(p Profile) {
	common := sf.reportCommon(p.Address, p.Group)
	if p.Enabled {
		sf.dev.messenger.send(&ci.ProfileEnabledReport{
			Common: common, Profile: p.ID, NumChannels: p.NumChannelsRequested,
		})
	} else {
		sf.dev.messenger.send(&ci.ProfileDisabledReport{
			Common: common, Profile: p.ID, NumChannels: p.NumChannelsRequested,
		})
	}
}

func (sf *ProfileHostFacade) reportCommon(address byte, group uint8) ci.Common {
	return ci.Common{
		SourceMUID:      sf.dev.muid,
		DestinationMUID: ci.BroadcastMUID,
		Address:         address,
		Group:           group,
	}
}

// UpdateProfileTarget atomically moves a profile to a new address,
// updating its enabled state and channel count in the same step.
func (sf *ProfileHostFacade) UpdateProfileTarget(id ci.ProfileID, group uint8, oldAddress, newAddress byte, enabled bool, numChannels uint16) error {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()

	if !validTarget(newAddress, numChannels) {
		return ErrProfileChannels
	}
	for _, p := range sf.profiles {
		if p.sameTarget(id, group, newAddress) {
			return ErrProfileExists
		}
	}
	for i := range sf.profiles {
		p := &sf.profiles[i]
		if p.sameTarget(id, group, oldAddress) {
			p.Address = newAddress
			p.Enabled = enabled
			p.NumChannelsRequested = numChannels
			sf.fire(ProfileEvent{Kind: ProfileEventUpdated, Profile: *p})
			return nil
		}
	}
	return ErrProfileNotFound
}

// Profiles returns a snapshot of the catalog.
func (sf *ProfileHostFacade) Profiles() []Profile {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	out := make([]Profile, len(sf.profiles))
	copy(out, sf.profiles)
	return out
}

// Matching returns the profile IDs at an address with the given enabled
// state, for profile reply construction.
func (sf *ProfileHostFacade) Matching(address byte, enabled bool) []ci.ProfileID {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.matching(address, enabled)
}

func (sf *ProfileHostFacade) matching(address byte, enabled bool) []ci.ProfileID {
	var out []ci.ProfileID
	for _, p := range sf.profiles {
		if p.Address == address && p.Enabled == enabled {
			out = append(out, p.ID)
		}
	}
	return out
}

// OnChange registers a catalog observer; the returned id unregisters
// it in O(1).
func (sf *ProfileHostFacade) OnChange(cb func(ProfileEvent)) int {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	return sf.listeners.add(cb)
}

// RemoveChangeListener unregisters a catalog observer.
func (sf *ProfileHostFacade) RemoveChangeListener(id int) {
	sf.dev.mu.lock()
	defer sf.dev.mu.unlock()
	sf.listeners.remove(id)
}

func (sf *ProfileHostFacade) fire(ev ProfileEvent) {
	for _, cb := range sf.listeners.snapshot() {
		cb := cb
		sf.dev.mu.enqueue(func() { cb(ev) })
	}
}

// repliesForInquiry builds one ProfileReply per address. A function
// block inquiry aggregates every cataloged address; an inquiry at an
// address with no profiles still gets one empty reply.
func (sf *ProfileHostFacade) repliesForInquiry(c ci.Common) []*ci.ProfileReply {
	var addresses []byte
	if c.Address == ci.AddressFunctionBlock {
		seen := make(map[byte]bool)
		for _, p := range sf.profiles {
			if !seen[p.Address] {
				seen[p.Address] = true
				addresses = append(addresses, p.Address)
			}
		}
		if len(addresses) == 0 {
			addresses = []byte{ci.AddressFunctionBlock}
		}
	} else {
		addresses = []byte{c.Address}
	}

	replies := make([]*ci.ProfileReply, 0, len(addresses))
	for _, address := range addresses {
		replies = append(replies, &ci.ProfileReply{
			Common: ci.Common{
				SourceMUID:      sf.dev.muid,
				DestinationMUID: c.SourceMUID,
				Address:         address,
				Group:           c.Group,
			},
			EnabledProfiles:  sf.matching(address, true),
			DisabledProfiles: sf.matching(address, false),
		})
	}
	return replies
}

// handleSetProfileOn serves a remote enable request. Unknown targets
// are answered with a NAK so the initiator is not left waiting for a
// report that will never come.
func (sf *ProfileHostFacade) handleSetProfileOn(t *ci.SetProfileOn) {
	c := t.Envelope()
	if err := sf.setEnabled(c.Group, c.Address, t.Profile, true, t.NumChannels); err != nil {
		sf.dev.messenger.sendNak(c, ci.SubID2SetProfileOn, ci.NakStatusProfileNotOn, "profile not available at target")
	}
}

// handleSetProfileOff serves a remote disable request.
func (sf *ProfileHostFacade) handleSetProfileOff(t *ci.SetProfileOff) {
	c := t.Envelope()
	if err := sf.setEnabled(c.Group, c.Address, t.Profile, false, 0); err != nil {
		sf.dev.messenger.sendNak(c, ci.SubID2SetProfileOff, ci.NakStatusProfileNotOn, "profile not available at target")
	}
}
