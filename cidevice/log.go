package cidevice

import (
	"sync/atomic"

	"github.com/atsushieno/midicci-sub001/ci"
	"github.com/atsushieno/midicci-sub001/clog"
)

// trafficLog is the engine logger: a pluggable provider behind an
// atomic enable switch, so the hot path costs one load when logging is
// off. Message traces go through message() so every send/recv line has
// the same shape: direction, label, envelope, body.
type trafficLog struct {
	provider clog.LogProvider
	enabled  atomic.Bool
}

func (sf *trafficLog) init() {
	sf.provider = clog.NewStdProvider("cidevice ")
}

func (sf *trafficLog) setMode(enable bool) { sf.enabled.Store(enable) }

func (sf *trafficLog) setProvider(p clog.LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// message traces one message crossing the wire, dir is "send" or "recv".
func (sf *trafficLog) message(dir string, m ci.Message) {
	if sf.enabled.Load() {
		sf.provider.Debug("%s %s", dir, ci.LogString(m))
	}
}

func (sf *trafficLog) Debug(format string, v ...interface{}) {
	if sf.enabled.Load() {
		sf.provider.Debug(format, v...)
	}
}

func (sf *trafficLog) Warn(format string, v ...interface{}) {
	if sf.enabled.Load() {
		sf.provider.Warn(format, v...)
	}
}

func (sf *trafficLog) Error(format string, v ...interface{}) {
	if sf.enabled.Load() {
		sf.provider.Error(format, v...)
	}
}
