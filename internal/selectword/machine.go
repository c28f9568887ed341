// Package selectword implements the word/line selection macro. An unshifted
// press of the trigger key selects the word at the cursor using Ctrl+Right /
// Ctrl+Left positioning and Ctrl+Shift+Right extension; repeated presses
// while held extend by one more word. A shifted press selects the current
// line (Home, Shift+End); repeated presses extend line-wise with Down.
// Releasing the trigger or pressing any other key drops the synthetic
// modifier overlay, leaving the selection in place. Escape then collapses
// the selection.
package selectword

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/rs/zerolog"
)

// State is the selection mode.
type State uint8

const (
	StateNone      State = iota // no selection
	StateSelected               // trigger released with something selected
	StateWord                   // trigger held with word(s) selected
	StateFirstLine              // trigger held with one line selected
	StateLine                   // trigger held with multiple lines selected
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateSelected:
		return "SELECTED"
	case StateWord:
		return "WORD"
	case StateFirstLine:
		return "FIRST_LINE"
	case StateLine:
		return "LINE"
	default:
		return "NONE"
	}
}

// Host is the subset of pipeline operations the machine needs.
type Host interface {
	Mods() keycode.Mods
	OneshotMods() keycode.Mods
	ClearOneshotMods()
	SetMods(m keycode.Mods)
	ClearMods()
	RegisterMods(m keycode.Mods)
	UnregisterMods(m keycode.Mods)
	RegisterKeycode(kc keycode.Keycode)
	UnregisterKeycode(kc keycode.Keycode)
	TapKeycode(kc keycode.Keycode)
}

// Machine tracks an in-progress selection.
type Machine struct {
	host Host
	log  zerolog.Logger

	// Mac switches the navigation chords to Option/Command.
	Mac bool
	// Timeout is the idle reset in milliseconds; zero disables it.
	Timeout uint16

	state    State
	deadline uint16
}

// New creates a machine with the given idle timeout in milliseconds.
func New(host Host, timeout uint16, mac bool, log zerolog.Logger) *Machine {
	return &Machine{host: host, log: log, Timeout: timeout, Mac: mac}
}

// State returns the current selection mode.
func (m *Machine) State() State { return m.state }

// Tick drives the idle timeout.
func (m *Machine) Tick(now uint16) {
	if m.state != StateNone && m.Timeout > 0 && event.Expired(now, m.deadline) {
		m.state = StateNone
	}
}

// Process runs the machine over one event. It reports whether the event
// should continue to later pipeline stages.
func (m *Machine) Process(ev event.Event) bool {
	kc := ev.Key.Base()
	if kc == keycode.KeyLeftShift || kc == keycode.KeyRightShift {
		return true
	}

	if m.Timeout > 0 {
		m.deadline = ev.Time + m.Timeout
	}

	if kc == keycode.KeySelectWord && ev.Pressed {
		mods := m.host.Mods()
		shifted := (mods|m.host.OneshotMods())&keycode.MaskShift != 0
		m.host.ClearOneshotMods()

		if !shifted { // Select word.
			if m.Mac {
				m.host.SetMods(keycode.ModLAlt)
			} else {
				m.host.SetMods(keycode.ModLCtl)
			}
			if m.state == StateNone {
				// Position the cursor at the start of the word
				// before extending, so the first press selects a
				// whole word rather than a fragment.
				m.host.TapKeycode(keycode.KeyRight)
				m.host.TapKeycode(keycode.KeyLeft)
			}
			m.host.RegisterMods(keycode.ModLSft)
			m.host.RegisterKeycode(keycode.KeyRight)
			m.setState(StateWord)
		} else { // Select line.
			if m.state == StateNone {
				if m.Mac {
					m.host.SetMods(keycode.ModLGui)
					m.host.TapKeycode(keycode.KeyLeft)
					m.host.RegisterMods(keycode.ModLSft)
					m.host.TapKeycode(keycode.KeyRight)
				} else {
					m.host.ClearMods()
					m.host.TapKeycode(keycode.KeyHome)
					m.host.RegisterMods(keycode.ModLSft)
					m.host.TapKeycode(keycode.KeyEnd)
				}
				m.host.SetMods(mods)
				m.setState(StateFirstLine)
			} else {
				m.host.RegisterKeycode(keycode.KeyDown)
				m.setState(StateLine)
			}
		}
		return false
	}

	// The trigger was released, or another key was pressed: drop the
	// overlay so no synthetic modifier outlives the selection gesture.
	switch m.state {
	case StateWord:
		m.host.UnregisterKeycode(keycode.KeyRight)
		if m.Mac {
			m.host.UnregisterMods(keycode.ModLSft | keycode.ModLAlt)
		} else {
			m.host.UnregisterMods(keycode.ModLSft | keycode.ModLCtl)
		}
		m.setState(StateSelected)

	case StateFirstLine:
		m.setState(StateSelected)

	case StateLine:
		m.host.UnregisterKeycode(keycode.KeyDown)
		m.setState(StateSelected)

	case StateSelected:
		if kc == keycode.KeyEscape && ev.Pressed {
			m.host.TapKeycode(keycode.KeyRight)
			m.setState(StateNone)
			return false
		}
		m.setState(StateNone)

	default:
		m.state = StateNone
	}

	return true
}

func (m *Machine) setState(s State) {
	if m.state == s {
		return
	}
	m.log.Debug().Stringer("state", s).Msg("selectword: state")
	m.state = s
}
