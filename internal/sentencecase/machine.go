// Package sentencecase capitalizes the first letter of a sentence by
// recognizing sentence endings with a finite state machine over key classes
// and priming a one-shot shift for the following letter.
//
// The transition table (PUNCT = sentence-ending punctuation, LETTER =
// alphabetic, SPACE = space/enter/tab, anything else resets):
//
//	          PUNCT     LETTER    SPACE
//	         +----------------------------
//	 INIT    | INIT     WORD      INIT
//	 WORD    | ENDING   WORD      INIT
//	 MATCHED | ENDING   WORD      INIT
//	 ABBREV  | ABBREV   ABBREV    INIT
//	 ENDING  | INIT     ABBREV    PRIMED
//	 PRIMED  | INIT     MATCHED   PRIMED
//
// ENDING only advances to PRIMED if the rolling key buffer does not match an
// abbreviation exception such as "vs." or "etc.". Entering MATCHED from
// PRIMED applies a one-shot shift so exactly the next keystroke is
// capitalized.
package sentencecase

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/rs/zerolog"
)

// State is the matcher state.
type State uint8

const (
	StateInit State = iota
	StateWord
	StateMatched
	StateAbbrev
	StateEnding
	StatePrimed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateWord:
		return "WORD"
	case StateMatched:
		return "MATCHED"
	case StateAbbrev:
		return "ABBREV"
	case StateEnding:
		return "ENDING"
	case StatePrimed:
		return "PRIMED"
	default:
		return "INIT" // out-of-range values clamp to the initial state
	}
}

const (
	bufferSize  = 8
	historySize = 8
)

// Host is the subset of pipeline operations the machine needs.
type Host interface {
	Mods() keycode.Mods
	OneshotMods() keycode.Mods
	AddOneshotMods(m keycode.Mods)
}

// Machine is the sentence-case state machine.
type Machine struct {
	host Host
	lay  *layout.Layout
	log  zerolog.Logger

	// Timeout is the idle reset in milliseconds; zero disables it.
	Timeout uint16

	state       State
	keyBuffer   [bufferSize]keycode.Keycode
	history     [historySize]State
	suppressKey keycode.Keycode
	deadline    uint16
	armed       bool
}

// New creates a machine with the given idle timeout in milliseconds.
func New(host Host, lay *layout.Layout, timeout uint16, log zerolog.Logger) *Machine {
	return &Machine{
		host:        host,
		lay:         lay,
		log:         log,
		Timeout:     timeout,
		suppressKey: keycode.KeyNone,
	}
}

// State returns the current matcher state.
func (m *Machine) State() State { return m.state }

// Primed reports whether the next letter will be capitalized.
func (m *Machine) Primed() bool { return m.state == StatePrimed }

// WouldCapitalize reports whether pressing kc right now would receive the
// one-shot shift. It is a pure query with no side effects, intended for
// other components (the repeat engine records shift in its memory when this
// holds).
func (m *Machine) WouldCapitalize(kc keycode.Keycode) bool {
	return m.state == StatePrimed && kc.IsLetter() && kc != m.suppressKey
}

// Reset clears all matcher state.
func (m *Machine) Reset() {
	m.armed = false
	for i := range m.keyBuffer {
		m.keyBuffer[i] = keycode.KeyNone
	}
	for i := range m.history {
		m.history[i] = StateInit
	}
	m.suppressKey = keycode.KeyNone
	m.setState(StateInit)
}

// Tick drives the idle timeout.
func (m *Machine) Tick(now uint16) {
	if m.armed && event.Expired(now, m.deadline) {
		m.log.Debug().Msg("sentencecase: idle timeout")
		m.Reset()
	}
}

// Process runs the machine over one event. Release events and transparent
// keys (modifiers, layer switches) pass through without advancing the
// matcher.
func (m *Machine) Process(ev event.Event) bool {
	if !ev.Pressed {
		return true
	}

	if m.Timeout > 0 {
		m.deadline = ev.Time + m.Timeout
		m.armed = true
	}

	mods := m.host.Mods() | m.host.OneshotMods()
	if mods&^(keycode.MaskShift|keycode.ModRAlt) != 0 {
		// A chord with a non-shift modifier is not prose.
		m.Reset()
		return true
	}

	kc := ev.Key
	switch {
	case kc.IsLayerKey(), kc.Base() == keycode.KeyLayerLock:
		return true
	case kc.Base() == keycode.KeyLeftShift, kc.Base() == keycode.KeyRightShift:
		return true
	case kc.IsModifier():
		return true
	case kc.IsDualRole():
		if ev.TapCount == 0 {
			return true
		}
		kc = m.lay.TapKeycode(kc)
	}
	kc = kc.Base()

	shifted := mods&keycode.MaskShift != 0
	newState := StateInit
	switch {
	case isSpace(kc):
		if m.state == StatePrimed || (m.state == StateEnding && m.checkEnding()) {
			newState = StatePrimed
			m.suppressKey = keycode.KeyNone
		}
	case kc.IsLetter():
		switch {
		case m.state <= StateMatched:
			newState = StateWord
		case m.state == StatePrimed:
			if kc == m.suppressKey {
				newState = StateInit
			} else {
				// Start of a sentence: capitalize with a one-shot
				// shift unless the key is already shifted.
				m.suppressKey = kc
				newState = StateMatched
				if !shifted {
					m.host.AddOneshotMods(keycode.ModLSft)
				}
			}
		default:
			newState = StateAbbrev
		}
	case isPunct(kc, shifted):
		switch m.state {
		case StateWord, StateMatched:
			newState = StateEnding
		case StateAbbrev:
			newState = StateAbbrev
		}
	case kc == keycode.KeyBackspace:
		// Rewind one step so corrections don't lose the match.
		m.setState(m.history[historySize-1])
		copy(m.history[1:], m.history[:historySize-1])
		m.history[0] = StateInit
		copy(m.keyBuffer[1:], m.keyBuffer[:bufferSize-1])
		m.keyBuffer[0] = keycode.KeyNone
		return true
	default:
		m.Reset()
		return true
	}

	copy(m.keyBuffer[:], m.keyBuffer[1:])
	m.keyBuffer[bufferSize-1] = kc

	if newState == StateEnding && !m.checkEnding() {
		m.log.Debug().Msg("sentencecase: abbreviation, not a real ending")
		newState = StateInit
	}

	copy(m.history[:], m.history[1:])
	m.history[historySize-1] = m.state
	m.setState(newState)
	return true
}

func (m *Machine) setState(s State) {
	if m.state == s {
		return
	}
	m.log.Debug().Stringer("state", s).Msg("sentencecase: state")
	m.state = s
}

// checkEnding reports whether the rolling buffer ends a real sentence,
// i.e. its tail does not match a registered abbreviation.
func (m *Machine) checkEnding() bool {
	for _, abbr := range m.lay.Abbreviations() {
		if m.justTyped(abbr) {
			return false
		}
	}
	return true
}

// justTyped reports whether the buffer's most recent keys equal pattern.
func (m *Machine) justTyped(pattern []keycode.Keycode) bool {
	if len(pattern) > bufferSize {
		return false
	}
	tail := m.keyBuffer[bufferSize-len(pattern):]
	for i, kc := range pattern {
		if tail[i] != kc {
			return false
		}
	}
	return true
}

func isSpace(kc keycode.Keycode) bool {
	return kc == keycode.KeySpace || kc == keycode.KeyEnter || kc == keycode.KeyTab
}

// isPunct classifies sentence-ending punctuation. Period counts unshifted
// ("." rather than ">"); "!" and "?" arrive as shifted 1 and slash.
func isPunct(kc keycode.Keycode, shifted bool) bool {
	switch kc {
	case keycode.KeyDot:
		return !shifted
	case keycode.Key1, keycode.KeySlash:
		return shifted
	}
	return false
}
