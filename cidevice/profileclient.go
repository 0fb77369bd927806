package cidevice

import (
	"github.com/atsushieno/midicci-sub001/ci"
)

// ProfileClientFacade observes the profiles a remote endpoint reports
// and lets the application switch them. One per connection.
type ProfileClientFacade struct {
	conn      *Connection
	profiles  []Profile
	listeners listenerSet[func(ProfileEvent)]
}

func (sf *ProfileClientFacade) init(conn *Connection) { sf.conn = conn }

// Profiles returns a snapshot of the remote catalog as last reported.
func (sf *ProfileClientFacade) Profiles() []Profile {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	out := make([]Profile, len(sf.profiles))
	copy(out, sf.profiles)
	return out
}

// OnChange registers an observer of the remote catalog.
func (sf *ProfileClientFacade) OnChange(cb func(ProfileEvent)) int {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	return sf.listeners.add(cb)
}

// RemoveChangeListener unregisters a remote catalog observer.
func (sf *ProfileClientFacade) RemoveChangeListener(id int) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()
	sf.listeners.remove(id)
}

// SetProfile asks the remote endpoint to switch a profile on or off.
// The catalog is not updated until the matching report arrives.
func (sf *ProfileClientFacade) SetProfile(group uint8, address byte, id ci.ProfileID, enabled bool, numChannels uint16) {
	sf.conn.dev.mu.lock()
	defer sf.conn.dev.mu.unlock()

	common := ci.Common{
		SourceMUID:      sf.conn.dev.muid,
		DestinationMUID: sf.conn.targetMUID,
		Address:         address,
		Group:           group,
	}
	if enabled {
		if address < ci.AddressGroup && numChannels < 1 {
			numChannels = 1
		}
		if address >= ci.AddressGroup {
			numChannels = 0
		}
		sf.conn.dev.messenger.send(&ci.SetProfileOn{Common: common, Profile: id, NumChannels: numChannels})
	} else {
		sf.conn.dev.messenger.send(&ci.SetProfileOff{Common: common, Profile: id})
	}
}

// processProfileReply replaces the cached set for the reply's address.
func (sf *ProfileClientFacade) processProfileReply(t *ci.ProfileReply) {
	c := t.Envelope()
	kept := sf.profiles[:0]
	for _, p := range sf.profiles {
		if p.Address != c.Address {
			kept = append(kept, p)
		}
	}
	sf.profiles = kept

	for _, id := range t.EnabledProfiles {
		sf.profiles = append(sf.profiles, Profile{ID: id, Group: c.Group, Address: c.Address, Enabled: true})
	}
	for _, id := range t.DisabledProfiles {
		sf.profiles = append(sf.profiles, Profile{ID: id, Group: c.Group, Address: c.Address, Enabled: false})
	}
	for _, p := range sf.profiles {
		if p.Address == c.Address {
			sf.fire(ProfileEvent{Kind: ProfileEventUpdated, Profile: p})
		}
	}
}

func (sf *ProfileClientFacade) processEnabledReport(t *ci.ProfileEnabledReport) {
	sf.applyReport(t.Envelope(), t.Profile, true, t.NumChannels)
}

func (sf *ProfileClientFacade) processDisabledReport(t *ci.ProfileDisabledReport) {
	sf.applyReport(t.Envelope(), t.Profile, false, t.NumChannels)
}

func (sf *ProfileClientFacade) applyReport(c ci.Common, id ci.ProfileID, enabled bool, numChannels uint16) {
	for i := range sf.profiles {
		p := &sf.profiles[i]
		if p.sameTarget(id, c.Group, c.Address) {
			p.Enabled = enabled
			p.NumChannelsRequested = numChannels
			sf.fire(ProfileEvent{Kind: ProfileEventEnabledChanged, Profile: *p})
			return
		}
	}
	p := Profile{ID: id, Group: c.Group, Address: c.Address, Enabled: enabled, NumChannelsRequested: numChannels}
	sf.profiles = append(sf.profiles, p)
	sf.fire(ProfileEvent{Kind: ProfileEventAdded, Profile: p})
}

func (sf *ProfileClientFacade) processAddedReport(t *ci.ProfileAddedReport) {
	c := t.Envelope()
	for _, p := range sf.profiles {
		if p.sameTarget(t.Profile, c.Group, c.Address) {
			return
		}
	}
	p := Profile{ID: t.Profile, Group: c.Group, Address: c.Address}
	sf.profiles = append(sf.profiles, p)
	sf.fire(ProfileEvent{Kind: ProfileEventAdded, Profile: p})
}

func (sf *ProfileClientFacade) processRemovedReport(t *ci.ProfileRemovedReport) {
	c := t.Envelope()
	for i, p := range sf.profiles {
		if p.sameTarget(t.Profile, c.Group, c.Address) {
			sf.profiles = append(sf.profiles[:i], sf.profiles[i+1:]...)
			sf.fire(ProfileEvent{Kind: ProfileEventRemoved, Profile: p})
			return
		}
	}
}

func (sf *ProfileClientFacade) fire(ev ProfileEvent) {
	for _, cb := range sf.listeners.snapshot() {
		cb := cb
		sf.conn.dev.mu.enqueue(func() { cb(ev) })
	}
}
