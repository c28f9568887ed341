// Package shiftkeys overrides what a key produces when pressed with shift
// held. The shift modifier is lifted from the live state while the override
// keycode is registered, and restored on release or when another key
// interrupts, so the host never sees shift plus the base key.
package shiftkeys

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
	RegisterMods(m keycode.Mods)
	UnregisterMods(m keycode.Mods)
	DelOneshotMods(m keycode.Mods)
	RegisterKeycode(kc keycode.Keycode)
	UnregisterKeycode(kc keycode.Keycode)
}

// Machine tracks the active custom shift key. At most one override is active
// at a time; pressing a second mapped key first cleanly releases the first.
type Machine struct {
	host Host
	lay  *layout.Layout
	log  zerolog.Logger

	activeKey keycode.Keycode // KeyNone when inactive
	savedMods keycode.Mods
	shifted   bool
}

// New creates a machine over the layout's shift-override table.
func New(host Host, lay *layout.Layout, log zerolog.Logger) *Machine {
	return &Machine{host: host, lay: lay, log: log, activeKey: keycode.KeyNone}
}

func (m *Machine) outputFor(base keycode.Keycode) keycode.Keycode {
	if m.shifted {
		if kc, ok := m.lay.ShiftOverride(base); ok {
			return kc
		}
	}
	return base
}

// Process runs the machine over one event. It reports whether the event
// should continue to later pipeline stages.
func (m *Machine) Process(ev event.Event) bool {
	// If an override is active, this event either releases it or touches
	// another key at the same time. Either way the active key is released
	// first and the saved shift state restored.
	if m.activeKey != keycode.KeyNone {
		m.host.UnregisterKeycode(m.outputFor(m.activeKey))
		m.host.RegisterMods(m.savedMods)
		m.activeKey = keycode.KeyNone
		m.savedMods = 0
		m.shifted = false
	}

	kc := ev.Key.Base()
	if !m.lay.HasShiftOverride(kc) {
		return true
	}

	if ev.Pressed {
		if (m.host.Mods()|m.host.OneshotMods())&keycode.MaskShift != 0 {
			// Pressed with shift held: remember the shift bits and
			// remove them while the override key is down.
			m.savedMods = m.host.Mods() & keycode.MaskShift
			m.host.UnregisterMods(keycode.MaskShift)
			m.host.DelOneshotMods(keycode.MaskShift)
			m.shifted = true
		} else {
			m.shifted = false
		}

		m.activeKey = kc
		m.log.Debug().Stringer("key", kc).Bool("shifted", m.shifted).
			Msg("shiftkeys: active")
		m.host.RegisterKeycode(m.outputFor(kc))
	}

	return false
}
