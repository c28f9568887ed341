// Package chord implements tap-hold resolution for dual-role keys. A
// dual-role key press is held "pending" until the settle timeout elapses
// (hold), another key resolves it (hold or tap by the chord decision
// function), or the key itself is released (tap already in flight).
//
// When a pending key settles as a tap, the resolver replays the tap press and
// release through the full pipeline so downstream consumers observe ordinary
// tap semantics, then re-injects the resolving event. The replay re-enters
// this resolver, so the settled flag doubles as the re-entrancy guard.
package chord

import (
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/rs/zerolog"
)

// Host is the subset of pipeline operations the resolver needs.
type Host interface {
	RegisterMods(m keycode.Mods)
	UnregisterMods(m keycode.Mods)
	LayerOn(n int)
	LayerOff(n int)
	// Reinject feeds a synthetic event back into the top of the pipeline
	// and processes it synchronously.
	Reinject(ev event.Event)
	// WaitTapDelay blocks for the configured inter-key delay between a
	// replayed tap press and its release.
	WaitTapDelay()
}

// Resolver decides tap versus hold for one dual-role key at a time.
type Resolver struct {
	host Host
	lay  *layout.Layout
	log  zerolog.Logger

	pendingKey   keycode.Keycode
	pendingEvent event.Event
	deadline     uint16
	settled      bool

	holdMods  keycode.Mods
	holdLayer int
}

// New creates a resolver. The logger may be logging.Discard().
func New(host Host, lay *layout.Layout, log zerolog.Logger) *Resolver {
	return &Resolver{
		host:       host,
		lay:        lay,
		log:        log,
		pendingKey: keycode.KeyNone,
		holdLayer:  -1,
	}
}

// Pending returns the currently pending dual-role keycode, or KeyNone.
func (r *Resolver) Pending() keycode.Keycode { return r.pendingKey }

// Process runs the resolver over one event. It reports whether the event
// should continue to later pipeline stages; false means the resolver consumed
// it.
func (r *Resolver) Process(ev event.Event) bool {
	_, isDual := r.lay.DualRole(ev.Key)
	isPhysical := !ev.Pos.IsVirtual()

	if r.pendingKey == keycode.KeyNone {
		if ev.Pressed && isPhysical && isDual && ev.TapCount == 0 {
			if timeout := r.timeout(ev.Key); timeout > 0 {
				r.settled = false
				r.pendingKey = ev.Key
				r.pendingEvent = ev
				r.deadline = ev.Time + timeout
				r.log.Debug().Stringer("key", ev.Key).Uint16("deadline", r.deadline).
					Msg("chord: pending")
				return false
			}
		}
		return true
	}

	if ev.Key == r.pendingKey && !ev.Pressed && ev.TapCount == 0 {
		if !r.settled {
			// Released before anything resolved it: a quick tap.
			// Settle first so the replay does not re-enter resolution.
			r.settled = true
			r.log.Debug().Stringer("key", r.pendingKey).Msg("chord: quick tap")
			tap := r.pendingEvent
			tap.TapCount = 1
			r.host.Reinject(tap)
			r.host.WaitTapDelay()
			tap.Pressed = false
			r.host.Reinject(tap)
			r.pendingKey = keycode.KeyNone
			return false
		}
		// It settled as held, so the hold action ends here; a settled tap
		// already had its replay and this release has nothing left to do.
		r.pendingKey = keycode.KeyNone
		r.clearHoldAction()
		return false
	}

	if !r.settled && ev.Pressed {
		// A press on another key resolves the pending key. Settle before
		// replaying anything: the replayed events pass through this same
		// resolver, and the flag is what stops them from nesting another
		// resolution.
		r.settled = true

		if !isPhysical || (isDual && ev.TapCount == 0) || r.lay.DecideHold(r.pendingKey, r.pendingEvent.Pos, ev.Key, ev.Pos) {
			r.log.Debug().Stringer("key", r.pendingKey).Stringer("other", ev.Key).
				Msg("chord: settled as hold")
			r.applyHoldAction()
		} else {
			r.log.Debug().Stringer("key", r.pendingKey).Stringer("other", ev.Key).
				Msg("chord: settled as tap")
			tap := r.pendingEvent
			tap.TapCount = 1
			r.host.Reinject(tap)
			r.host.WaitTapDelay()
			tap.Pressed = false
			r.host.Reinject(tap)
		}
		r.host.Reinject(ev)
		return false
	}

	return true
}

// Tick drives the settle timeout. Once the deadline passes with no resolving
// key, the pending key settles as held.
func (r *Resolver) Tick(now uint16) {
	if r.pendingKey != keycode.KeyNone && !r.settled && event.Expired(now, r.deadline) {
		r.settled = true
		r.log.Debug().Stringer("key", r.pendingKey).Msg("chord: timeout, settled as hold")
		r.applyHoldAction()
	}
}

func (r *Resolver) timeout(kc keycode.Keycode) uint16 {
	d, ok := r.lay.DualRole(kc)
	if !ok {
		return 0
	}
	return d.Timeout
}

func (r *Resolver) applyHoldAction() {
	d, ok := r.lay.DualRole(r.pendingKey)
	if !ok {
		return
	}
	if d.HoldLayer >= 0 {
		r.holdLayer = d.HoldLayer
		r.host.LayerOn(d.HoldLayer)
	} else {
		r.holdMods = d.HoldMods
		r.host.RegisterMods(d.HoldMods)
	}
}

func (r *Resolver) clearHoldAction() {
	if r.holdMods != 0 {
		r.host.UnregisterMods(r.holdMods)
		r.holdMods = 0
	} else if r.holdLayer >= 0 {
		r.host.LayerOff(r.holdLayer)
		r.holdLayer = -1
	}
}
