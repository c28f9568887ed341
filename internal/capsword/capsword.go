// Package capsword implements caps word: pressing both shift keys together
// (or tapping the dedicated toggle key) shifts letters until a key outside
// the word ends it or the idle timeout expires. Letters receive a weak shift
// that affects only their own keystroke; digits, underscore, minus,
// backspace and delete continue the word unshifted.
package capsword

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/rs/zerolog"
)

// Host is the subset of pipeline operations the machine needs.
type Host interface {
	Mods() keycode.Mods
	OneshotMods() keycode.Mods
	AddWeakMods(m keycode.Mods)
}

// Machine tracks caps-word activation.
type Machine struct {
	host Host
	lay  *layout.Layout
	log  zerolog.Logger

	// Timeout is the idle reset in milliseconds; zero disables it.
	Timeout uint16

	active   bool
	deadline uint16
}

// New creates a machine with the given idle timeout in milliseconds.
func New(host Host, lay *layout.Layout, timeout uint16, log zerolog.Logger) *Machine {
	return &Machine{host: host, lay: lay, log: log, Timeout: timeout}
}

// Active reports whether caps word is on.
func (m *Machine) Active() bool { return m.active }

func (m *Machine) set(active bool) {
	if m.active == active {
		return
	}
	m.active = active
	m.log.Debug().Bool("active", active).Msg("capsword")
}

// Tick drives the idle timeout.
func (m *Machine) Tick(now uint16) {
	if m.active && m.Timeout > 0 && event.Expired(now, m.deadline) {
		m.set(false)
	}
}

// Process runs the machine over one event. It reports whether the event
// should continue to later pipeline stages.
func (m *Machine) Process(ev event.Event) bool {
	if ev.Key.Base() == keycode.KeyCapsWord {
		if ev.Pressed {
			m.set(!m.active)
			if m.Timeout > 0 {
				m.deadline = ev.Time + m.Timeout
			}
		}
		return false
	}

	mods := m.host.Mods() | m.host.OneshotMods()

	if !m.active {
		// Pressing both shift keys together enables caps word.
		if ev.Pressed && mods == keycode.MaskShift {
			m.set(true)
			if m.Timeout > 0 {
				m.deadline = ev.Time + m.Timeout
			}
			return false
		}
		return true
	}

	if m.Timeout > 0 {
		m.deadline = ev.Time + m.Timeout
	}
	if !ev.Pressed {
		return true
	}

	if mods&^(keycode.MaskShift|keycode.ModRAlt) != 0 {
		m.set(false)
		return true
	}

	kc := ev.Key
	switch {
	case kc.IsLayerKey(), kc.Base() == keycode.KeyLayerLock,
		kc.Base() == keycode.KeyRightAlt:
		return true
	case kc.Base() == keycode.KeyLeftShift, kc.Base() == keycode.KeyRightShift:
		return true
	case kc.IsDualRole():
		if ev.TapCount == 0 {
			d, _ := m.lay.DualRole(kc)
			// A held shift mod-tap continues the word; any other
			// held modifier ends it.
			if d.HoldLayer < 0 && d.HoldMods&^keycode.MaskShift != 0 {
				m.set(false)
			}
			return true
		}
		kc = m.lay.TapKeycode(kc)
	}
	kc = kc.Base()

	switch {
	case kc.IsLetter():
		// Weak shift: applied to exactly this keystroke by the
		// emission step, then cleared.
		if mods&keycode.MaskShift == 0 {
			m.host.AddWeakMods(keycode.ModLSft)
		}
	case kc.IsDigit(), kc == keycode.KeyMinus, kc == keycode.KeyBackspace,
		kc == keycode.KeyDelete:
		// Continue the word without shifting.
	default:
		m.set(false)
	}

	return true
}
