// Package layerlock lets a dedicated key lock the highest active momentary
// layer on, so it stays active without holding its key. Pressing the lock
// key again (or the layer's own momentary key) unlocks it. An idle timeout
// drops all locks after a period of inactivity.
package layerlock

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/rs/zerolog"
)

// Host is the subset of pipeline operations the machine needs.
type Host interface {
	LayerState() uint32
	HighestLayer() int
	LayerOn(n int)
	LayerOff(n int)
}

// Machine tracks which layers are locked.
type Machine struct {
	host Host
	log  zerolog.Logger

	// Timeout is the idle unlock in milliseconds; zero disables it.
	Timeout uint16

	locked   uint32
	deadline uint16
}

// New creates a machine with the given idle timeout in milliseconds.
func New(host Host, timeout uint16, log zerolog.Logger) *Machine {
	return &Machine{host: host, log: log, Timeout: timeout}
}

// Locked reports whether layer n is locked.
func (m *Machine) Locked(n int) bool { return m.locked&(1<<uint(n)) != 0 }

// LockedLayers returns the lock bitmask.
func (m *Machine) LockedLayers() uint32 { return m.locked }

// Tick drives the idle unlock.
func (m *Machine) Tick(now uint16) {
	if m.locked != 0 && m.Timeout > 0 && event.Expired(now, m.deadline) {
		m.log.Debug().Msg("layerlock: idle timeout, unlocking")
		m.UnlockAll()
	}
}

// UnlockAll turns off and unlocks every locked layer.
func (m *Machine) UnlockAll() {
	for n := 0; n < keycode.MaxLayers; n++ {
		if m.Locked(n) {
			m.host.LayerOff(n)
		}
	}
	m.locked = 0
}

// Invert toggles the lock on layer n, turning the layer on or off with it.
func (m *Machine) Invert(n int) {
	mask := uint32(1) << uint(n)
	if m.locked&mask == 0 {
		m.host.LayerOn(n)
		m.log.Debug().Int("layer", n).Msg("layerlock: locked")
	} else {
		m.host.LayerOff(n)
		m.log.Debug().Int("layer", n).Msg("layerlock: unlocked")
	}
	m.locked ^= mask
}

// Process runs the machine over one event. It reports whether the event
// should continue to later pipeline stages.
func (m *Machine) Process(ev event.Event) bool {
	if m.Timeout > 0 {
		m.deadline = ev.Time + m.Timeout
	}

	// If something else turned a locked layer off, drop the stale lock.
	if stale := m.locked &^ m.host.LayerState(); stale != 0 {
		m.locked &= m.host.LayerState()
	}

	if ev.Key.Base() == keycode.KeyLayerLock {
		if ev.Pressed {
			if n := m.host.HighestLayer(); n > 0 {
				m.Invert(n)
			}
		}
		return false
	}

	if n := ev.Key.LayerIndex(); n >= 0 && m.Locked(n) {
		// Momentary key for a locked layer: press unlocks it, and the
		// event is consumed either way so the default handling doesn't
		// re-toggle the layer.
		if ev.Pressed {
			m.Invert(n)
		}
		return false
	}

	return true
}
