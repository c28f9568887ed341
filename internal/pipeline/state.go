package pipeline

import (
	"math/bits"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
)

// Modifier state. The pipeline keeps three masks the way keyboard firmware
// does: real mods follow physical modifier keys, weak mods apply to exactly
// the next report and clear on the next key press, one-shot mods persist
// until a non-modifier press consumes them.

// Mods returns the real modifier mask.
func (p *Pipeline) Mods() keycode.Mods { return p.mods }

// WeakMods returns the weak modifier mask.
func (p *Pipeline) WeakMods() keycode.Mods { return p.weakMods }

// OneshotMods returns the pending one-shot modifier mask.
func (p *Pipeline) OneshotMods() keycode.Mods { return p.oneshotMods }

// SetMods replaces the real modifier mask.
func (p *Pipeline) SetMods(m keycode.Mods) {
	p.mods = m
	p.sendReport()
}

// ClearMods clears the real modifier mask.
func (p *Pipeline) ClearMods() { p.SetMods(0) }

// RegisterMods adds bits to the real modifier mask.
func (p *Pipeline) RegisterMods(m keycode.Mods) {
	p.mods |= m
	p.sendReport()
}

// UnregisterMods removes bits from the real modifier mask.
func (p *Pipeline) UnregisterMods(m keycode.Mods) {
	p.mods &^= m
	p.sendReport()
}

// AddWeakMods adds bits to the weak modifier mask.
func (p *Pipeline) AddWeakMods(m keycode.Mods) {
	p.weakMods |= m
	p.sendReport()
}

// AddOneshotMods arms one-shot modifiers.
func (p *Pipeline) AddOneshotMods(m keycode.Mods) {
	p.oneshotMods |= m
}

// DelOneshotMods disarms one-shot modifiers.
func (p *Pipeline) DelOneshotMods(m keycode.Mods) {
	p.oneshotMods &^= m
}

// ClearOneshotMods disarms all one-shot modifiers.
func (p *Pipeline) ClearOneshotMods() { p.oneshotMods = 0 }

// sendReport pushes the effective modifier mask to the emitter when it
// changed since the last report.
func (p *Pipeline) sendReport() {
	effective := p.mods | p.weakMods | p.oneshotMods
	if effective == p.lastReported {
		return
	}
	p.lastReported = effective
	p.emitter.Modifiers(effective)
}

// Layer state is a bitmask with layer 0 permanently on.

// LayerState returns the active-layer bitmask.
func (p *Pipeline) LayerState() uint32 { return p.layerState }

// SetLayerState replaces the active-layer bitmask, keeping layer 0 on.
func (p *Pipeline) SetLayerState(state uint32) {
	p.layerState = state | 1
}

// LayerOn activates a layer.
func (p *Pipeline) LayerOn(n int) {
	if n >= 0 && n < p.lay.NumLayers() {
		p.layerState |= 1 << uint(n)
	}
}

// LayerOff deactivates a layer. Layer 0 cannot be turned off.
func (p *Pipeline) LayerOff(n int) {
	if n > 0 {
		p.layerState &^= 1 << uint(n)
	}
}

// HighestLayer returns the highest active layer.
func (p *Pipeline) HighestLayer() int {
	return 31 - bits.LeadingZeros32(p.layerState)
}

// ResolveKey maps a physical position to a keycode through the active
// layers, top layer first, skipping transparent entries.
func (p *Pipeline) ResolveKey(pos event.Pos) keycode.Keycode {
	return p.lay.ResolveKey(p.layerState, pos)
}

// Key emission. Keycodes may carry packed modifiers in their high byte;
// those are applied as weak mods around the base key so that the emitter
// sees e.g. Ctrl+Right as a modifier report followed by the key.

// RegisterKeycode emits a key press. One-shot mods are consumed by the
// press: they appear in the report for this key and clear with its release.
func (p *Pipeline) RegisterKeycode(kc keycode.Keycode) {
	p.weakMods |= kc.Mods()
	// Pending weak and one-shot mods must reach the emitter before the key.
	p.sendReport()
	base := kc.Base()
	if base == keycode.KeyNone {
		return
	}
	p.emitter.Key(base, true)
}

// UnregisterKeycode emits a key release and drops the weak and one-shot
// mods the press carried.
func (p *Pipeline) UnregisterKeycode(kc keycode.Keycode) {
	base := kc.Base()
	if base != keycode.KeyNone {
		p.emitter.Key(base, false)
	}
	if p.weakMods != 0 || p.oneshotMods != 0 {
		p.weakMods = 0
		p.oneshotMods = 0
		p.sendReport()
	}
}

// TapKeycode emits a press immediately followed by a release.
func (p *Pipeline) TapKeycode(kc keycode.Keycode) {
	p.RegisterKeycode(kc)
	p.UnregisterKeycode(kc)
}
