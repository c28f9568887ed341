package keycode

import (
	"fmt"
	"strconv"
	"strings"
)

var baseNames = map[Keycode]string{
	KeyNone: "none",

	KeyA: "a", KeyB: "b", KeyC: "c", KeyD: "d", KeyE: "e", KeyF: "f",
	KeyG: "g", KeyH: "h", KeyI: "i", KeyJ: "j", KeyK: "k", KeyL: "l",
	KeyM: "m", KeyN: "n", KeyO: "o", KeyP: "p", KeyQ: "q", KeyR: "r",
	KeyS: "s", KeyT: "t", KeyU: "u", KeyV: "v", KeyW: "w", KeyX: "x",
	KeyY: "y", KeyZ: "z",

	Key1: "1", Key2: "2", Key3: "3", Key4: "4", Key5: "5",
	Key6: "6", Key7: "7", Key8: "8", Key9: "9", Key0: "0",

	KeyEnter:     "enter",
	KeyEscape:    "esc",
	KeyBackspace: "backspace",
	KeyTab:       "tab",
	KeySpace:     "space",

	KeyMinus:        "minus",
	KeyEqual:        "equal",
	KeyLeftBracket:  "lbracket",
	KeyRightBracket: "rbracket",
	KeyBackslash:    "backslash",
	KeySemicolon:    "semicolon",
	KeyQuote:        "quote",
	KeyGrave:        "grave",
	KeyComma:        "comma",
	KeyDot:          "dot",
	KeySlash:        "slash",

	KeyRight:    "right",
	KeyLeft:     "left",
	KeyDown:     "down",
	KeyUp:       "up",
	KeyHome:     "home",
	KeyEnd:      "end",
	KeyPageUp:   "pgup",
	KeyPageDown: "pgdn",
	KeyInsert:   "insert",
	KeyDelete:   "delete",

	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4",
	KeyF5: "f5", KeyF6: "f6", KeyF7: "f7", KeyF8: "f8",
	KeyF9: "f9", KeyF10: "f10", KeyF11: "f11", KeyF12: "f12",

	KeyLeftCtrl:   "lctrl",
	KeyLeftShift:  "lshift",
	KeyLeftAlt:    "lalt",
	KeyLeftGui:    "lgui",
	KeyRightCtrl:  "rctrl",
	KeyRightShift: "rshift",
	KeyRightAlt:   "ralt",
	KeyRightGui:   "rgui",

	KeyRepeat:      "repeat",
	KeyAltRepeat:   "altrepeat",
	KeySelectWord:  "selword",
	KeyCapsWord:    "capsword",
	KeyLayerLock:   "layerlock",
	KeyTransparent: "_",
}

var namesToBase = func() map[string]Keycode {
	m := make(map[string]Keycode, len(baseNames))
	for kc, name := range baseNames {
		m[name] = kc
	}
	// Common aliases.
	m["return"] = KeyEnter
	m["escape"] = KeyEscape
	m["bspc"] = KeyBackspace
	m["period"] = KeyDot
	m["."] = KeyDot
	m[","] = KeyComma
	m["-"] = KeyMinus
	m["="] = KeyEqual
	m["/"] = KeySlash
	m["\\"] = KeyBackslash
	m[";"] = KeySemicolon
	m["'"] = KeyQuote
	m["`"] = KeyGrave
	m["trans"] = KeyTransparent
	return m
}()

// String renders the keycode as a config-style name, e.g. "ctrl+shift+left".
func (k Keycode) String() string {
	var sb strings.Builder
	m := k.Mods()
	if m&MaskCtrl != 0 {
		sb.WriteString("ctrl+")
	}
	if m&MaskShift != 0 {
		sb.WriteString("shift+")
	}
	if m&ModLAlt != 0 {
		sb.WriteString("alt+")
	}
	if m&ModRAlt != 0 {
		sb.WriteString("altgr+")
	}
	if m&MaskGui != 0 {
		sb.WriteString("gui+")
	}
	base := k.Base()
	if name, ok := baseNames[base]; ok {
		sb.WriteString(name)
	} else if n := base.LayerIndex(); n >= 0 {
		sb.WriteString("layer" + strconv.Itoa(n))
	} else if i := base.DualRoleIndex(); i >= 0 {
		sb.WriteString("dual" + strconv.Itoa(i))
	} else {
		fmt.Fprintf(&sb, "key(0x%02x)", uint16(base))
	}
	return sb.String()
}

// Parse parses a key name like "ctrl+shift+left" into a Keycode with the
// modifiers packed in. The last "+"-separated part is the base key; earlier
// parts are modifiers.
func Parse(s string) (Keycode, error) {
	var mods Mods
	parts := strings.Split(strings.ToLower(s), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if i == len(parts)-1 {
			kc, err := parseBase(part)
			if err != nil {
				return KeyNone, err
			}
			return kc.WithMods(mods), nil
		}

		switch part {
		case "ctrl", "control":
			mods |= ModLCtl
		case "shift":
			mods |= ModLSft
		case "alt", "option":
			mods |= ModLAlt
		case "altgr":
			mods |= ModRAlt
		case "gui", "cmd", "meta", "win", "super":
			mods |= ModLGui
		default:
			return KeyNone, fmt.Errorf("unknown modifier: %s", part)
		}
	}
	return KeyNone, fmt.Errorf("no key specified")
}

// ParseMods parses a "+"-joined modifier list like "lctrl+shift" into a
// modifier mask. Unsided names map to the left-side bit.
func ParseMods(s string) (Mods, error) {
	var mods Mods
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "ctrl", "control", "lctrl":
			mods |= ModLCtl
		case "rctrl":
			mods |= ModRCtl
		case "shift", "lshift":
			mods |= ModLSft
		case "rshift":
			mods |= ModRSft
		case "alt", "option", "lalt":
			mods |= ModLAlt
		case "altgr", "ralt":
			mods |= ModRAlt
		case "gui", "cmd", "meta", "win", "super", "lgui":
			mods |= ModLGui
		case "rgui":
			mods |= ModRGui
		default:
			return 0, fmt.Errorf("unknown modifier: %s", part)
		}
	}
	return mods, nil
}

func parseBase(name string) (Keycode, error) {
	if kc, ok := namesToBase[name]; ok {
		return kc, nil
	}
	if n, ok := strings.CutPrefix(name, "layer"); ok {
		idx, err := strconv.Atoi(n)
		if err == nil && idx >= 0 && idx < MaxLayers {
			return LayerKey(idx), nil
		}
	}
	return KeyNone, fmt.Errorf("invalid key: %s", name)
}

// FromRune maps a typed character to the base keycode that produces it and
// whether shift is required. Used by the TUI harness to turn typed text into
// synthetic key events.
func FromRune(r rune) (Keycode, bool, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return KeyA + Keycode(r-'a'), false, true
	case r >= 'A' && r <= 'Z':
		return KeyA + Keycode(r-'A'), true, true
	case r >= '1' && r <= '9':
		return Key1 + Keycode(r-'1'), false, true
	case r == '0':
		return Key0, false, true
	}
	switch r {
	case ' ':
		return KeySpace, false, true
	case '.':
		return KeyDot, false, true
	case ',':
		return KeyComma, false, true
	case '-':
		return KeyMinus, false, true
	case '=':
		return KeyEqual, false, true
	case '/':
		return KeySlash, false, true
	case ';':
		return KeySemicolon, false, true
	case '\'':
		return KeyQuote, false, true
	case '!':
		return Key1, true, true
	case '?':
		return KeySlash, true, true
	case '<':
		return KeyComma, true, true
	case '>':
		return KeyDot, true, true
	case '_':
		return KeyMinus, true, true
	case '+':
		return KeyEqual, true, true
	case ':':
		return KeySemicolon, true, true
	case '"':
		return KeyQuote, true, true
	}
	return KeyNone, false, false
}
