package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/cidevice"
	"github.com/atsushieno/midicci-sub001/clog"
	"github.com/atsushieno/midicci-sub001/crpe"
)

// loopbackCmd runs two devices against each other in process.
var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Run a full exchange between two in-process devices",
	RunE:  runLoopback,
}

func runLoopback(*cobra.Command, []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// two devices joined by a direct loopback: everything initiator A
	// sends lands in responder B and vice versa
	var devA, devB *cidevice.Device

	devA, err = cidevice.NewDevice(cfg, func(group uint8, data []byte) bool {
		log.WithFields(logrus.Fields{"dir": "A->B", "bytes": len(data)}).Debugf("% X", data)
		devB.ProcessInput(group, data)
		return true
	})
	if err != nil {
		return err
	}
	cfgB := cfg
	cfgB.ProductInstanceID = cfg.ProductInstanceID + "-responder"
	devB, err = cidevice.NewDevice(cfgB, func(group uint8, data []byte) bool {
		log.WithFields(logrus.Fields{"dir": "B->A", "bytes": len(data)}).Debugf("% X", data)
		devA.ProcessInput(group, data)
		return true
	})
	if err != nil {
		return err
	}
	for _, dev := range []*cidevice.Device{devA, devB} {
		dev.SetLogProvider(clog.NewLogrusProvider(log))
		dev.LogMode(verbose)
	}

	// responder-side state to discover
	profile := ci.ProfileID{0x7E, 0x01, 0x02, 0x03, 0x04}
	if err := devB.ProfileHost().AddProfile(cidevice.Profile{
		ID: profile, Address: 0x00, NumChannelsRequested: 1,
	}); err != nil {
		return err
	}
	devB.PropertyHost().AddProperty(crpe.NewPropertyMetadata("X-ProgramState", []byte(`{"program":12}`)))

	devA.SendDiscovery()

	conn := devA.Connection(devB.MUID())
	if conn == nil {
		return fmt.Errorf("discovery failed: no connection for %s", devB.MUID())
	}
	log.WithFields(logrus.Fields{
		"muid":    conn.TargetMUID().String(),
		"product": conn.ProductInstanceID(),
	}).Info("discovered responder")

	conn.Profiles().SetProfile(0, 0x00, profile, true, 1)
	for _, p := range conn.Profiles().Profiles() {
		log.WithFields(logrus.Fields{"profile": p.ID.String(), "enabled": p.Enabled}).Info("remote profile")
	}

	conn.Properties().SendGetPropertyData("X-ProgramState", crpe.RequestFields{})
	log.WithField("body", string(conn.Properties().CachedProperty("X-ProgramState"))).Info("fetched property")

	conn.Properties().SendSubscribeProperty("X-ProgramState", "")
	devB.PropertyHost().UpdateProperty("X-ProgramState", []byte(`{"program":13}`))
	log.WithField("body", string(conn.Properties().CachedProperty("X-ProgramState"))).Info("pushed update")

	devA.SendInvalidateMUID(devB.MUID())
	log.WithField("connections", len(devA.Connections())).Info("done")
	return nil
}
