package pty

import (
	"github.com/keyweave/keyweave/internal/keycode"
)

// Encode converts a key press under the given modifier mask into the byte
// sequence a terminal application expects. Releases produce no bytes; the
// caller only encodes presses. A nil result means the key has no terminal
// representation (bare modifier taps, unmapped keys).
func Encode(kc keycode.Keycode, mods keycode.Mods) []byte {
	base := kc.Base()
	mods |= kc.Mods()

	ctrl := mods&keycode.MaskCtrl != 0
	alt := mods&keycode.ModLAlt != 0
	shift := mods&keycode.MaskShift != 0

	if ch, ok := printable(base, shift); ok {
		switch {
		case ctrl && base.IsLetter():
			// Ctrl+letter is ASCII 1..26 regardless of shift.
			b := []byte{byte(base-keycode.KeyA) + 1}
			if alt {
				return append([]byte{0x1b}, b...)
			}
			return b
		case alt:
			return []byte{0x1b, ch}
		default:
			return []byte{ch}
		}
	}

	if seq := navigation(base, mods); seq != nil {
		return seq
	}

	switch base {
	case keycode.KeyEnter:
		return []byte{'\r'}
	case keycode.KeyTab:
		if shift {
			return []byte{0x1b, '[', 'Z'}
		}
		return []byte{'\t'}
	case keycode.KeyEscape:
		return []byte{0x1b}
	case keycode.KeySpace:
		return []byte{' '}
	case keycode.KeyBackspace:
		return []byte{0x7f}
	}

	if base >= keycode.KeyF1 && base <= keycode.KeyF12 {
		return functionKey(base)
	}

	return nil
}

// printable maps a base keycode and shift state to its ASCII character.
func printable(base keycode.Keycode, shift bool) (byte, bool) {
	switch {
	case base.IsLetter():
		ch := byte('a') + byte(base-keycode.KeyA)
		if shift {
			ch -= 32
		}
		return ch, true
	case base >= keycode.Key1 && base <= keycode.Key9:
		if shift {
			return "!@#$%^&*("[base-keycode.Key1], true
		}
		return byte('1') + byte(base-keycode.Key1), true
	case base == keycode.Key0:
		if shift {
			return ')', true
		}
		return '0', true
	}

	type pair struct{ plain, shifted byte }
	punct := map[keycode.Keycode]pair{
		keycode.KeyMinus:        {'-', '_'},
		keycode.KeyEqual:        {'=', '+'},
		keycode.KeyLeftBracket:  {'[', '{'},
		keycode.KeyRightBracket: {']', '}'},
		keycode.KeyBackslash:    {'\\', '|'},
		keycode.KeySemicolon:    {';', ':'},
		keycode.KeyQuote:        {'\'', '"'},
		keycode.KeyGrave:        {'`', '~'},
		keycode.KeyComma:        {',', '<'},
		keycode.KeyDot:          {'.', '>'},
		keycode.KeySlash:        {'/', '?'},
	}
	if p, ok := punct[base]; ok {
		if shift {
			return p.shifted, true
		}
		return p.plain, true
	}
	return 0, false
}

// navigation encodes cursor and editing keys, using the xterm modified-key
// form ESC [ 1 ; m X when any modifier is held.
func navigation(base keycode.Keycode, mods keycode.Mods) []byte {
	final, tilde := byte(0), byte(0)
	switch base {
	case keycode.KeyUp:
		final = 'A'
	case keycode.KeyDown:
		final = 'B'
	case keycode.KeyRight:
		final = 'C'
	case keycode.KeyLeft:
		final = 'D'
	case keycode.KeyHome:
		final = 'H'
	case keycode.KeyEnd:
		final = 'F'
	case keycode.KeyInsert:
		tilde = '2'
	case keycode.KeyDelete:
		tilde = '3'
	case keycode.KeyPageUp:
		tilde = '5'
	case keycode.KeyPageDown:
		tilde = '6'
	default:
		return nil
	}

	m := modParam(mods)
	switch {
	case tilde != 0 && m > 1:
		return []byte{0x1b, '[', tilde, ';', '0' + m, '~'}
	case tilde != 0:
		return []byte{0x1b, '[', tilde, '~'}
	case m > 1:
		return []byte{0x1b, '[', '1', ';', '0' + m, final}
	default:
		return []byte{0x1b, '[', final}
	}
}

// modParam computes the xterm modifier parameter: 1 plus shift=1, alt=2,
// ctrl=4.
func modParam(mods keycode.Mods) byte {
	var m byte = 1
	if mods&keycode.MaskShift != 0 {
		m += 1
	}
	if mods&keycode.ModLAlt != 0 {
		m += 2
	}
	if mods&keycode.MaskCtrl != 0 {
		m += 4
	}
	return m
}

func functionKey(base keycode.Keycode) []byte {
	switch base {
	case keycode.KeyF1:
		return []byte{0x1b, 'O', 'P'}
	case keycode.KeyF2:
		return []byte{0x1b, 'O', 'Q'}
	case keycode.KeyF3:
		return []byte{0x1b, 'O', 'R'}
	case keycode.KeyF4:
		return []byte{0x1b, 'O', 'S'}
	}
	codes := map[keycode.Keycode]string{
		keycode.KeyF5:  "15",
		keycode.KeyF6:  "17",
		keycode.KeyF7:  "18",
		keycode.KeyF8:  "19",
		keycode.KeyF9:  "20",
		keycode.KeyF10: "21",
		keycode.KeyF11: "23",
		keycode.KeyF12: "24",
	}
	code, ok := codes[base]
	if !ok {
		return nil
	}
	seq := []byte{0x1b, '['}
	seq = append(seq, code...)
	return append(seq, '~')
}
