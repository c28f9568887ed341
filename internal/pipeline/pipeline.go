// Package pipeline threads key events through the engine's components in a
// fixed priority order: chord resolution, layer lock, repeat, the ergonomic
// hooks, word selection, sentence case, caps word, custom shift keys, and
// finally default key emission. Any component may consume an event, stopping
// the stages after it.
//
// The pipeline is strictly single-threaded: one event is processed to
// completion before the next, and the poll tick runs between events on the
// same goroutine. Components re-inject synthetic events (tap-hold replays,
// repeats) synchronously through Reinject; a depth counter bounds that
// recursion and degrades to plain pass-through if it is ever exceeded, since
// a dropped keystroke is worse for the user than a missed feature.
package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/keyweave/keyweave/internal/capsword"
	"github.com/keyweave/keyweave/internal/chord"
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layerlock"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/keyweave/keyweave/internal/repeatkey"
	"github.com/keyweave/keyweave/internal/selectword"
	"github.com/keyweave/keyweave/internal/sentencecase"
	"github.com/keyweave/keyweave/internal/shiftkeys"
	"github.com/rs/zerolog"
)

// Emitter receives the pipeline's output: key transitions and the effective
// modifier mask. Implementations are the PTY writer, the TUI recorder, and
// test fakes.
type Emitter interface {
	Key(kc keycode.Keycode, pressed bool)
	Modifiers(m keycode.Mods)
}

// Options are the pipeline's timing and behavior knobs.
type Options struct {
	// TapDelay separates a replayed tap press from its release.
	TapDelay time.Duration

	// Idle timeouts in milliseconds; zero disables the one it belongs to.
	SentenceCaseTimeout uint16
	SelectWordTimeout   uint16
	CapsWordTimeout     uint16
	LayerLockTimeout    uint16

	// SpaceRepeatShift makes a repeated Space behave as one-shot shift.
	SpaceRepeatShift bool
	// VowelPattern rewrites repeat memory to N after an alternate repeat
	// produces a vowel, enabling patterns like D-altrep-rep -> "dyn".
	VowelPattern bool

	// Sleep, when set, replaces time.Sleep for the tap delay. Tests use a
	// no-op here.
	Sleep func(d time.Duration)
}

const maxReplayDepth = 4

// Pipeline owns all engine state for one keyboard.
type Pipeline struct {
	lay     *layout.Layout
	emitter Emitter
	opts    Options
	log     zerolog.Logger

	chord    *chord.Resolver
	laylock  *layerlock.Machine
	repeat   *repeatkey.Engine
	selword  *selectword.Machine
	sentence *sentencecase.Machine
	caps     *capsword.Machine
	shift    *shiftkeys.Machine

	mods         keycode.Mods
	weakMods     keycode.Mods
	oneshotMods  keycode.Mods
	lastReported keycode.Mods
	layerState   uint32

	now   uint16
	depth int

	// dualHolds tracks dual-role keys held via the default immediate-hold
	// path (timeout zero or chord already settled), so their release can
	// undo exactly what their press applied.
	dualHolds map[keycode.Keycode]layout.DualRole

	busy atomic.Bool
}

// New assembles a pipeline over the given layout and emitter.
func New(lay *layout.Layout, emitter Emitter, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	p := &Pipeline{
		lay:        lay,
		emitter:    emitter,
		opts:       opts,
		log:        log,
		layerState: 1,
		dualHolds:  make(map[keycode.Keycode]layout.DualRole),
	}
	p.chord = chord.New(p, lay, log)
	p.laylock = layerlock.New(p, opts.LayerLockTimeout, log)
	p.repeat = repeatkey.New(p, lay, log)
	p.selword = selectword.New(p, opts.SelectWordTimeout, lay.MacHotkeys, log)
	p.sentence = sentencecase.New(p, lay, opts.SentenceCaseTimeout, log)
	p.caps = capsword.New(p, lay, opts.CapsWordTimeout, log)
	p.shift = shiftkeys.New(p, lay, log)

	p.repeat.SetCapitalizedQuery(p.sentence.WouldCapitalize)
	if opts.VowelPattern {
		p.repeat.SetAfterAlternate(p.vowelPattern)
	}
	return p
}

// Component accessors, used by the TUI inspector and tests.

func (p *Pipeline) Chord() *chord.Resolver              { return p.chord }
func (p *Pipeline) Repeat() *repeatkey.Engine           { return p.repeat }
func (p *Pipeline) SelectWord() *selectword.Machine     { return p.selword }
func (p *Pipeline) SentenceCase() *sentencecase.Machine { return p.sentence }
func (p *Pipeline) CapsWord() *capsword.Machine         { return p.caps }
func (p *Pipeline) LayerLock() *layerlock.Machine       { return p.laylock }
func (p *Pipeline) Layout() *layout.Layout              { return p.lay }

// Handle processes one inbound key event to completion, including any
// synthetic events it spawns. It reports whether a component consumed the
// event before default emission. Handle must not be called concurrently;
// the pipeline is deliberately lock-free and detects misuse instead.
func (p *Pipeline) Handle(ev event.Event) bool {
	p.enter()
	defer p.leave()
	p.now = ev.Time
	return p.process(ev)
}

// Tick drives every timeout-based transition. Call it once per scan cycle
// from the same goroutine that calls Handle.
func (p *Pipeline) Tick(now uint16) {
	p.enter()
	defer p.leave()
	p.now = now
	p.chord.Tick(now)
	p.sentence.Tick(now)
	p.selword.Tick(now)
	p.caps.Tick(now)
	p.laylock.Tick(now)
}

// Now returns the most recent timestamp the pipeline has seen.
func (p *Pipeline) Now() uint16 { return p.now }

// Reinject feeds a synthetic event into the top of the pipeline and
// processes it synchronously. Called by the chord resolver and the repeat
// engine from inside Handle.
func (p *Pipeline) Reinject(ev event.Event) {
	p.process(ev)
}

func (p *Pipeline) process(ev event.Event) bool {
	if p.depth >= maxReplayDepth {
		// A replay triggered another replay past the recursion guards.
		// Fail open: emit the event as-is rather than dropping input.
		p.log.Warn().Stringer("event", ev).Msg("pipeline: replay depth exceeded")
		p.defaultProcess(ev)
		return false
	}
	p.depth++
	defer func() { p.depth-- }()

	if !p.chord.Process(ev) {
		return true
	}
	if !p.laylock.Process(ev) {
		return true
	}
	if p.opts.SpaceRepeatShift && !p.spaceRepeatShift(ev) {
		return true
	}
	if !p.repeat.Process(ev) {
		return true
	}
	if !p.selword.Process(ev) {
		return true
	}
	if !p.sentence.Process(ev) {
		return true
	}
	if !p.caps.Process(ev) {
		return true
	}
	if !p.shift.Process(ev) {
		return true
	}
	p.defaultProcess(ev)
	return false
}

// spaceRepeatShift turns a Space arriving right after a repeat into one-shot
// shift, a convenience for starting capitalized words in repeat-heavy typing.
// It reports whether the event should continue.
func (p *Pipeline) spaceRepeatShift(ev event.Event) bool {
	if ev.Key.Base() != keycode.KeySpace || p.repeat.Count() <= 0 {
		return true
	}
	if ev.Pressed {
		p.AddOneshotMods(keycode.ModLSft)
		p.RegisterMods(keycode.ModLSft)
	} else {
		p.UnregisterMods(keycode.ModLSft)
	}
	return false
}

// vowelPattern runs after the alternate-repeat key produces a key. When the
// result is a vowel typed with at most shift, repeat memory is rewritten to
// N so that a following repeat completes common letter patterns (D-altrep
// gives Y, then repeat gives N: "dyn").
func (p *Pipeline) vowelPattern(produced keycode.Keycode) {
	if p.repeat.LastMods()&^keycode.MaskShift != 0 {
		return
	}
	switch produced.Base() {
	case keycode.KeyA, keycode.KeyE, keycode.KeyI, keycode.KeyO,
		keycode.KeyU, keycode.KeyY:
		p.repeat.SetLastKeycode(keycode.KeyN)
		p.repeat.SetLastMods(0)
	}
}

// defaultProcess performs the default behavior for events no component
// consumed: registering modifiers, switching layers, applying the immediate
// hold action of unresolved dual-role keys, and emitting plain keys.
func (p *Pipeline) defaultProcess(ev event.Event) {
	kc := ev.Key
	base := kc.Base()

	switch {
	case kc.IsDualRole():
		d, ok := p.lay.DualRole(kc)
		if !ok {
			return
		}
		if ev.TapCount > 0 {
			if ev.Pressed {
				p.RegisterKeycode(d.Tap)
			} else {
				p.UnregisterKeycode(d.Tap)
			}
			return
		}
		if ev.Pressed {
			if d.HoldLayer >= 0 {
				p.LayerOn(d.HoldLayer)
			} else {
				p.RegisterMods(d.HoldMods)
			}
			p.dualHolds[kc] = d
		} else if held, ok := p.dualHolds[kc]; ok {
			if held.HoldLayer >= 0 {
				p.LayerOff(held.HoldLayer)
			} else {
				p.UnregisterMods(held.HoldMods)
			}
			delete(p.dualHolds, kc)
		}

	case kc.IsLayerKey():
		n := kc.LayerIndex()
		if ev.Pressed {
			p.LayerOn(n)
		} else if !p.laylock.Locked(n) {
			p.LayerOff(n)
		}

	case base.IsModifier():
		if ev.Pressed {
			p.RegisterMods(base.ModifierBit())
		} else {
			p.UnregisterMods(base.ModifierBit())
		}

	case base == keycode.KeyNone, base == keycode.KeyTransparent,
		base == keycode.KeyRepeat, base == keycode.KeyAltRepeat,
		base == keycode.KeySelectWord, base == keycode.KeyCapsWord,
		base == keycode.KeyLayerLock:
		// Engine function keys that reach this point have nothing left
		// to do.

	default:
		if ev.Pressed {
			p.RegisterKeycode(kc)
		} else {
			p.UnregisterKeycode(kc)
		}
	}
}

// WaitTapDelay blocks for the configured inter-key delay. It is deliberately
// synchronous: the pipeline must not observe partial replay state.
func (p *Pipeline) WaitTapDelay() {
	if p.opts.TapDelay > 0 {
		p.opts.Sleep(p.opts.TapDelay)
	}
}

func (p *Pipeline) enter() {
	if !p.busy.CompareAndSwap(false, true) {
		panic("pipeline: concurrent use; Handle and Tick must run on one goroutine")
	}
}

func (p *Pipeline) leave() { p.busy.Store(false) }
