// Package keycode defines logical key identifiers and modifier masks for the
// remapping engine. A Keycode packs an 8-bit modifier mask into its high byte,
// so a single value can describe combinations like Ctrl+Shift+Left. This
// mirrors how host keymaps usually encode "key with mods" and keeps lookup
// tables (alternate-repeat pairs, shift overrides) flat.
package keycode

// Mods is a bitmask of modifier keys. Left-hand modifiers occupy the low
// nibble, right-hand modifiers the high nibble.
type Mods uint8

const (
	ModLCtl Mods = 1 << iota
	ModLSft
	ModLAlt
	ModLGui
	ModRCtl
	ModRSft
	ModRAlt
	ModRGui
)

// Masks covering both hands of a modifier.
const (
	MaskCtrl  = ModLCtl | ModRCtl
	MaskShift = ModLSft | ModRSft
	MaskAlt   = ModLAlt | ModRAlt
	MaskGui   = ModLGui | ModRGui
)

// Fold maps right-hand modifier bits onto their left-hand equivalents,
// except Right Alt (AltGr), which keeps its identity because it produces
// different characters on many layouts.
func (m Mods) Fold() Mods {
	folded := (m >> 4) | (m & 0x0f)
	if m&ModRAlt != 0 {
		folded |= ModRAlt
	}
	return folded
}

// Keycode identifies a logical key. The low byte is the base key; the high
// byte carries a Mods mask applied together with the key.
type Keycode uint16

// Base keys. The numbering is internal to keyweave and deliberately compact;
// adapters translate host scancodes at the boundary.
const (
	KeyNone Keycode = iota

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0

	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeySpace

	KeyMinus
	KeyEqual
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeySemicolon
	KeyQuote
	KeyGrave
	KeyComma
	KeyDot
	KeySlash

	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	// Modifier keys. Keep these contiguous; IsModifier relies on the range.
	KeyLeftCtrl
	KeyLeftShift
	KeyLeftAlt
	KeyLeftGui
	KeyRightCtrl
	KeyRightShift
	KeyRightAlt
	KeyRightGui

	// Engine function keys.
	KeyRepeat
	KeyAltRepeat
	KeySelectWord
	KeyCapsWord
	KeyLayerLock

	// Transparent keymap entry: fall through to the next lower active layer.
	KeyTransparent

	keyLayerBase     // momentary layer keys occupy [keyLayerBase, keyLayerBase+MaxLayers)
	keyLayerMax      = keyLayerBase + MaxLayers - 1
	keyDualRoleBase  = keyLayerMax + 1 // dual-role ids occupy the next MaxDualRole slots
	keyDualRoleMax   = keyDualRoleBase + MaxDualRole - 1
)

// Capacity limits for integrator-defined tables.
const (
	MaxLayers   = 8
	MaxDualRole = 32
)

// LayerKey returns the momentary-layer keycode for layer n.
func LayerKey(n int) Keycode {
	if n < 0 || n >= MaxLayers {
		return KeyNone
	}
	return keyLayerBase + Keycode(n)
}

// DualRoleKey returns the keycode reserved for the i-th dual-role definition.
func DualRoleKey(i int) Keycode {
	if i < 0 || i >= MaxDualRole {
		return KeyNone
	}
	return keyDualRoleBase + Keycode(i)
}

// Base strips the packed modifier byte.
func (k Keycode) Base() Keycode { return k & 0x00ff }

// Mods returns the modifier mask packed into the keycode.
func (k Keycode) Mods() Mods { return Mods(k >> 8) }

// WithMods packs a modifier mask into the keycode.
func (k Keycode) WithMods(m Mods) Keycode { return k.Base() | Keycode(m)<<8 }

// IsBasic reports whether the keycode is a plain key with no packed mods and
// no engine-internal meaning.
func (k Keycode) IsBasic() bool {
	b := k.Base()
	return k.Mods() == 0 && b >= KeyA && b <= KeyRightGui
}

// IsLetter reports whether the base key is alphabetic.
func (k Keycode) IsLetter() bool {
	b := k.Base()
	return b >= KeyA && b <= KeyZ
}

// IsDigit reports whether the base key is a digit.
func (k Keycode) IsDigit() bool {
	b := k.Base()
	return b >= Key1 && b <= Key0
}

// IsModifier reports whether the base key is itself a modifier key.
func (k Keycode) IsModifier() bool {
	b := k.Base()
	return b >= KeyLeftCtrl && b <= KeyRightGui
}

// ModifierBit returns the Mods bit for a modifier key, or 0.
func (k Keycode) ModifierBit() Mods {
	if !k.IsModifier() {
		return 0
	}
	return Mods(1) << uint(k.Base()-KeyLeftCtrl)
}

// IsLayerKey reports whether the keycode is a momentary layer key.
func (k Keycode) IsLayerKey() bool {
	b := k.Base()
	return b >= keyLayerBase && b <= keyLayerMax
}

// LayerIndex returns the layer a momentary layer key activates, or -1.
func (k Keycode) LayerIndex() int {
	if !k.IsLayerKey() {
		return -1
	}
	return int(k.Base() - keyLayerBase)
}

// IsDualRole reports whether the keycode is a dual-role (tap-hold) id.
func (k Keycode) IsDualRole() bool {
	b := k.Base()
	return b >= keyDualRoleBase && b <= keyDualRoleMax
}

// DualRoleIndex returns the dual-role table index for the keycode, or -1.
func (k Keycode) DualRoleIndex() int {
	if !k.IsDualRole() {
		return -1
	}
	return int(k.Base() - keyDualRoleBase)
}
