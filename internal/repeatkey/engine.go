// Package repeatkey implements the repeat and alternate-repeat keys. The
// engine remembers the last eligible key press together with the modifier and
// layer context it was typed in. The repeat key replays that exact event
// through the pipeline; the alternate-repeat key looks up a complement action
// (paired arrow keys, bracket pairs, integrator macros) and taps that
// instead.
package repeatkey

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/rs/zerolog"
)

// Host is the subset of pipeline operations the engine needs.
type Host interface {
	Mods() keycode.Mods
	WeakMods() keycode.Mods
	OneshotMods() keycode.Mods
	SetMods(m keycode.Mods)
	RegisterMods(m keycode.Mods)
	LayerState() uint32
	SetLayerState(s uint32)
	Reinject(ev event.Event)
	RegisterKeycode(kc keycode.Keycode)
	UnregisterKeycode(kc keycode.Keycode)
}

// Eligible is the predicate deciding which key presses are remembered.
type Eligible func(ev event.Event) bool

// Engine holds the repeat memory.
type Engine struct {
	host Host
	lay  *layout.Layout
	log  zerolog.Logger

	lastEvent  event.Event
	lastKey    keycode.Keycode
	lastMods   keycode.Mods
	lastLayers uint32
	counter    int8
	altActive  keycode.Keycode

	recursing bool
	eligible  Eligible

	// capitalized, when set, reports whether the sentence-case machine
	// would capitalize the given key right now; the remembered modifiers
	// then include shift so repeats reproduce the capitalized letter.
	capitalized func(kc keycode.Keycode) bool

	// afterAlternate, when set, runs after an alternate-repeat press with
	// the keycode it produced. Pattern macros use it to rewrite the repeat
	// memory based on the alternate output.
	afterAlternate func(produced keycode.Keycode)
}

// New creates an engine with the default eligibility predicate.
func New(host Host, lay *layout.Layout, log zerolog.Logger) *Engine {
	e := &Engine{
		host:    host,
		lay:     lay,
		log:     log,
		lastKey: keycode.KeyNone,
	}
	e.eligible = e.defaultEligible
	return e
}

// SetEligible replaces the eligibility predicate.
func (e *Engine) SetEligible(fn Eligible) {
	if fn != nil {
		e.eligible = fn
	}
}

// SetCapitalizedQuery wires the sentence-case capitalization query.
func (e *Engine) SetCapitalizedQuery(fn func(kc keycode.Keycode) bool) {
	e.capitalized = fn
}

// SetAfterAlternate installs the post-alternate hook.
func (e *Engine) SetAfterAlternate(fn func(produced keycode.Keycode)) {
	e.afterAlternate = fn
}

// defaultEligible excludes pure modifier keys, layer-switch keys, the engine
// function keys, and unresolved holds of dual-role keys.
func (e *Engine) defaultEligible(ev event.Event) bool {
	kc := ev.Key
	switch {
	case kc.IsModifier(), kc.IsLayerKey():
		return false
	case kc.Base() == keycode.KeyLayerLock, kc.Base() == keycode.KeyCapsWord,
		kc.Base() == keycode.KeySelectWord:
		return false
	case kc.IsDualRole():
		return ev.TapCount > 0
	}
	return true
}

// Process runs the engine over one event. It reports whether the event
// should continue to later pipeline stages.
func (e *Engine) Process(ev event.Event) bool {
	if e.recursing {
		return true
	}

	switch ev.Key.Base() {
	case keycode.KeyRepeat:
		e.replayLast(ev.Pressed, ev.Time)
		return false
	case keycode.KeyAltRepeat:
		if ev.Pressed {
			e.registerAlternate()
		} else {
			e.unregisterAlternate()
		}
		return false
	}

	if ev.Pressed && e.eligible(ev) {
		e.remember(ev)
	}
	return true
}

func (e *Engine) remember(ev event.Event) {
	e.lastEvent = ev
	e.lastKey = e.lay.TapKeycode(ev.Key)
	e.lastMods = e.host.Mods() | e.host.WeakMods() | e.host.OneshotMods()
	if e.capitalized != nil && e.capitalized(e.lastKey) {
		e.lastMods |= keycode.ModLSft
	}
	e.lastLayers = e.host.LayerState()
	e.counter = 0
	e.log.Debug().Stringer("key", e.lastKey).Uint8("mods", uint8(e.lastMods)).
		Msg("repeat: remembered")
}

// replayLast re-synthesizes the remembered event, overlaying the remembered
// modifier state on top of the live one and restoring it afterward. The
// recursion flag prevents the replayed event from being re-captured or from
// triggering a nested replay.
func (e *Engine) replayLast(pressed bool, now uint16) {
	if e.recursing || e.lastKey == keycode.KeyNone {
		return
	}

	if pressed && e.counter < 127 {
		e.counter++
	}

	savedMods := e.host.Mods()
	e.host.RegisterMods(e.lastMods)

	savedLayers := e.host.LayerState()
	e.host.SetLayerState(e.lastLayers)

	ev := e.lastEvent
	ev.Pressed = pressed
	ev.Time = now | 1
	e.recursing = true
	e.host.Reinject(ev)
	e.recursing = false

	e.host.SetLayerState(savedLayers)
	if savedMods != e.host.Mods() {
		e.host.SetMods(savedMods)
	}
}

func (e *Engine) registerAlternate() {
	kc := e.AlternateKeycode()
	if kc == keycode.KeyNone {
		return
	}
	if e.counter > -128 {
		e.counter--
	}
	e.altActive = kc
	e.recursing = true
	e.host.RegisterKeycode(kc)
	e.recursing = false
	if e.afterAlternate != nil {
		e.afterAlternate(kc)
	}
}

func (e *Engine) unregisterAlternate() {
	// The press latches the keycode it registered; the hook may have
	// rewritten the repeat memory in between.
	kc := e.altActive
	if kc == keycode.KeyNone {
		return
	}
	e.altActive = keycode.KeyNone
	e.recursing = true
	e.host.UnregisterKeycode(kc)
	e.recursing = false
}

// AlternateKeycode returns the complement action the alternate-repeat key
// would perform right now, or KeyNone.
func (e *Engine) AlternateKeycode() keycode.Keycode {
	if e.lastKey == keycode.KeyNone {
		return keycode.KeyNone
	}
	return e.lay.AltRepeat(e.lastKey, e.lastMods)
}

// Count returns the signed repeat counter: positive after repeats, negative
// after alternate repeats, reset to zero whenever a new key is remembered.
func (e *Engine) Count() int8 { return e.counter }

// LastKeycode returns the remembered keycode, or KeyNone.
func (e *Engine) LastKeycode() keycode.Keycode { return e.lastKey }

// LastMods returns the modifier state captured with the remembered key.
func (e *Engine) LastMods() keycode.Mods { return e.lastMods }

// SetLastKeycode overwrites the remembered keycode. Together with
// SetLastMods this is the documented escape hatch for compound pattern
// macros that deliberately rewrite repeat memory after a repeat.
func (e *Engine) SetLastKeycode(kc keycode.Keycode) {
	e.lastKey = kc
	e.lastEvent = event.Event{
		Pos:      event.VirtualPos,
		Key:      kc,
		Time:     e.lastEvent.Time,
		TapCount: 1,
	}
}

// SetLastMods overwrites the remembered modifier state.
func (e *Engine) SetLastMods(m keycode.Mods) { e.lastMods = m }
