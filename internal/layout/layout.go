// Package layout holds the integrator-supplied data tables that parameterize
// the engine: layered keymaps, dual-role key definitions, chord-decision
// overrides, custom shift overrides, alternate-repeat pairs, and abbreviation
// exceptions. The engine packages stay free of per-layout special cases by
// consulting these tables.
package layout

import (
	"fmt"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
)

// DualRole describes a tap-hold key: an ordinary keycode when tapped, a
// modifier mask or a momentary layer when held. Exactly one of HoldMods and
// HoldLayer is meaningful; HoldLayer is -1 for modifier holds.
//
// Timeout is the chord-resolution settle timeout in milliseconds for this
// key. Zero bypasses the resolver entirely: the key falls through to the
// default immediate-hold behavior.
type DualRole struct {
	Tap       keycode.Keycode
	HoldMods  keycode.Mods
	HoldLayer int
	Timeout   uint16
}

// Layout is the full static configuration of one keyboard.
type Layout struct {
	Rows  uint8
	Cols  uint8
	Split bool

	// MacHotkeys switches the selection macro to Option/Command chords.
	MacHotkeys bool

	layers    [][]keycode.Keycode
	dualRoles []DualRole

	forceHold      map[[2]keycode.Keycode]struct{}
	forceTap       map[[2]keycode.Keycode]struct{}
	alwaysHoldRows map[uint8]struct{}

	shiftOverrides map[keycode.Keycode]keycode.Keycode
	altPairs       map[keycode.Keycode]keycode.Keycode
	abbreviations  [][]keycode.Keycode
}

// New creates an empty layout for a Rows x Cols matrix.
func New(rows, cols uint8, split bool) *Layout {
	return &Layout{
		Rows:           rows,
		Cols:           cols,
		Split:          split,
		forceHold:      make(map[[2]keycode.Keycode]struct{}),
		forceTap:       make(map[[2]keycode.Keycode]struct{}),
		alwaysHoldRows: make(map[uint8]struct{}),
		shiftOverrides: make(map[keycode.Keycode]keycode.Keycode),
		altPairs:       make(map[keycode.Keycode]keycode.Keycode),
	}
}

// AddLayer appends a keymap layer. The slice must have Rows*Cols entries in
// row-major order.
func (l *Layout) AddLayer(keys []keycode.Keycode) error {
	if len(keys) != int(l.Rows)*int(l.Cols) {
		return fmt.Errorf("layer has %d keys, want %d", len(keys), int(l.Rows)*int(l.Cols))
	}
	if len(l.layers) >= keycode.MaxLayers {
		return fmt.Errorf("too many layers (max %d)", keycode.MaxLayers)
	}
	l.layers = append(l.layers, keys)
	return nil
}

// NumLayers returns the number of keymap layers.
func (l *Layout) NumLayers() int { return len(l.layers) }

// KeyAt returns the keycode at pos on the given layer, without transparency
// resolution. Out-of-range lookups return KeyNone.
func (l *Layout) KeyAt(layer int, pos event.Pos) keycode.Keycode {
	if layer < 0 || layer >= len(l.layers) || pos.Row >= l.Rows || pos.Col >= l.Cols {
		return keycode.KeyNone
	}
	return l.layers[layer][int(pos.Row)*int(l.Cols)+int(pos.Col)]
}

// ResolveKey returns the keycode at pos for the given active-layer bitmask,
// walking layers from highest to lowest and skipping transparent entries.
func (l *Layout) ResolveKey(layerState uint32, pos event.Pos) keycode.Keycode {
	for i := len(l.layers) - 1; i > 0; i-- {
		if layerState&(1<<uint(i)) == 0 {
			continue
		}
		if kc := l.KeyAt(i, pos); kc != keycode.KeyTransparent && kc != keycode.KeyNone {
			return kc
		}
	}
	kc := l.KeyAt(0, pos)
	if kc == keycode.KeyTransparent {
		return keycode.KeyNone
	}
	return kc
}

// AddDualRole registers a dual-role definition and returns its reserved
// keycode for use in keymaps.
func (l *Layout) AddDualRole(d DualRole) (keycode.Keycode, error) {
	if len(l.dualRoles) >= keycode.MaxDualRole {
		return keycode.KeyNone, fmt.Errorf("too many dual-role keys (max %d)", keycode.MaxDualRole)
	}
	if d.HoldLayer >= 0 && d.HoldLayer >= keycode.MaxLayers {
		return keycode.KeyNone, fmt.Errorf("dual-role hold layer %d out of range", d.HoldLayer)
	}
	l.dualRoles = append(l.dualRoles, d)
	return keycode.DualRoleKey(len(l.dualRoles) - 1), nil
}

// DualRole looks up the definition behind a dual-role keycode.
func (l *Layout) DualRole(kc keycode.Keycode) (DualRole, bool) {
	i := kc.DualRoleIndex()
	if i < 0 || i >= len(l.dualRoles) {
		return DualRole{}, false
	}
	return l.dualRoles[i], true
}

// TapKeycode returns the tap meaning of a keycode: the tap key for dual-role
// ids, the keycode itself otherwise.
func (l *Layout) TapKeycode(kc keycode.Keycode) keycode.Keycode {
	if d, ok := l.DualRole(kc); ok {
		return d.Tap
	}
	return kc
}

// ForceHold registers a key pair that always resolves as hold, overriding the
// opposite-hands rule (e.g. a same-hand combination used as a deliberate
// two-key chord).
func (l *Layout) ForceHold(tapHold, other keycode.Keycode) {
	l.forceHold[[2]keycode.Keycode{tapHold, other}] = struct{}{}
}

// ForceTap registers a key pair that always resolves as tap.
func (l *Layout) ForceTap(tapHold, other keycode.Keycode) {
	l.forceTap[[2]keycode.Keycode{tapHold, other}] = struct{}{}
}

// AlwaysHoldRow exempts a matrix row (counted within one half on split
// boards) from the opposite-hands rule: any resolving key on that row
// settles the pending key as held. Used for thumb and function rows where
// same-hand chords are intended.
func (l *Layout) AlwaysHoldRow(row uint8) {
	l.alwaysHoldRows[row] = struct{}{}
}

// OnLeftHand reports whether pos is on the left half of the board. On split
// boards the matrix halves stack row-wise; otherwise the longer axis is
// divided in the middle.
func (l *Layout) OnLeftHand(pos event.Pos) bool {
	if l.Split {
		return pos.Row < l.Rows/2
	}
	if l.Cols > l.Rows {
		return pos.Col < l.Cols/2
	}
	return pos.Row < l.Rows/2
}

// DecideHold is the chord decision function: given the pending tap-hold key
// and the key event that resolves it, report whether the pending key settles
// as held. Pair overrides are consulted first, then the always-hold rows,
// then the opposite-hands default.
func (l *Layout) DecideHold(tapHold keycode.Keycode, tapHoldPos event.Pos, other keycode.Keycode, otherPos event.Pos) bool {
	pair := [2]keycode.Keycode{tapHold, other}
	if _, ok := l.forceTap[pair]; ok {
		return false
	}
	if _, ok := l.forceHold[pair]; ok {
		return true
	}
	if !otherPos.IsVirtual() {
		row := otherPos.Row
		if l.Split && l.Rows > 0 {
			row %= l.Rows / 2
		}
		if _, ok := l.alwaysHoldRows[row]; ok {
			return true
		}
	}
	return l.OnLeftHand(tapHoldPos) != l.OnLeftHand(otherPos)
}

// AddShiftOverride maps a base keycode to the keycode it should produce when
// pressed with shift held, replacing the host's default shifted symbol.
func (l *Layout) AddShiftOverride(base, shifted keycode.Keycode) {
	l.shiftOverrides[base] = shifted
}

// ShiftOverride looks up the custom shifted keycode for base.
func (l *Layout) ShiftOverride(base keycode.Keycode) (keycode.Keycode, bool) {
	kc, ok := l.shiftOverrides[base]
	return kc, ok
}

// HasShiftOverride reports whether base has a custom shift mapping.
func (l *Layout) HasShiftOverride(base keycode.Keycode) bool {
	_, ok := l.shiftOverrides[base]
	return ok
}

// AddAltRepeatPair declares a symmetric complement pair for the alternate
// repeat key: alt-repeating after a produces b and vice versa. Keycodes may
// carry packed mods, so "ctrl+left" and "ctrl+right" form a distinct pair
// from plain "left"/"right".
func (l *Layout) AddAltRepeatPair(a, b keycode.Keycode) {
	l.altPairs[a] = b
	l.altPairs[b] = a
}

// AddAltRepeatMapping declares a one-way complement: alt-repeating after
// from produces to.
func (l *Layout) AddAltRepeatMapping(from, to keycode.Keycode) {
	l.altPairs[from] = to
}

// builtinAltPairs are the directional defaults consulted when the integrator
// table has no entry.
var builtinAltPairs = [][2]keycode.Keycode{
	{keycode.KeyLeft, keycode.KeyRight},
	{keycode.KeyUp, keycode.KeyDown},
	{keycode.KeyHome, keycode.KeyEnd},
	{keycode.KeyPageUp, keycode.KeyPageDown},
	{keycode.KeyTab, keycode.KeyTab.WithMods(keycode.ModLSft)},
}

// AltRepeat returns the complement action for the remembered key, or KeyNone.
// When the remembered key is a basic key, the remembered modifiers are folded
// into the lookup target so that "ctrl+b" is considered distinctly from "b".
func (l *Layout) AltRepeat(last keycode.Keycode, mods keycode.Mods) keycode.Keycode {
	target := last
	if last.IsBasic() {
		target = last.WithMods(mods.Fold())
	}
	if kc, ok := l.altPairs[target]; ok {
		return kc
	}
	for _, pair := range builtinAltPairs {
		if target == pair[0] {
			return pair[1]
		}
		if target == pair[1] {
			return pair[0]
		}
	}
	return keycode.KeyNone
}

// AddAbbreviation registers a word that does not end a sentence when followed
// by a period, e.g. "vs" or "etc". The word is matched against the
// sentence-case rolling buffer as space + letters + period.
func (l *Layout) AddAbbreviation(word string) error {
	seq := make([]keycode.Keycode, 0, len(word)+2)
	seq = append(seq, keycode.KeySpace)
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return fmt.Errorf("abbreviation %q: only lowercase letters allowed", word)
		}
		seq = append(seq, keycode.KeyA+keycode.Keycode(r-'a'))
	}
	seq = append(seq, keycode.KeyDot)
	l.abbreviations = append(l.abbreviations, seq)
	return nil
}

// Abbreviations returns the registered abbreviation key sequences.
func (l *Layout) Abbreviations() [][]keycode.Keycode { return l.abbreviations }
