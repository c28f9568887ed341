package pty

import (
	"bytes"
	"testing"

	"github.com/keyweave/keyweave/internal/keycode"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		kc   keycode.Keycode
		mods keycode.Mods
		want []byte
	}{
		{"letter", keycode.KeyA, 0, []byte("a")},
		{"shifted letter", keycode.KeyA, keycode.ModLSft, []byte("A")},
		{"right shift counts", keycode.KeyA, keycode.ModRSft, []byte("A")},
		{"digit", keycode.Key5, 0, []byte("5")},
		{"shifted digit", keycode.Key1, keycode.ModLSft, []byte("!")},
		{"shifted zero", keycode.Key0, keycode.ModLSft, []byte(")")},
		{"punctuation", keycode.KeyComma, 0, []byte(",")},
		{"shifted punctuation", keycode.KeySlash, keycode.ModLSft, []byte("?")},

		{"ctrl letter", keycode.KeyC, keycode.ModLCtl, []byte{0x03}},
		{"ctrl shifted letter", keycode.KeyC, keycode.ModLCtl | keycode.ModLSft, []byte{0x03}},
		{"ctrl alt letter", keycode.KeyC, keycode.ModLCtl | keycode.ModLAlt, []byte{0x1b, 0x03}},
		{"alt letter", keycode.KeyX, keycode.ModLAlt, []byte{0x1b, 'x'}},

		{"enter", keycode.KeyEnter, 0, []byte("\r")},
		{"tab", keycode.KeyTab, 0, []byte("\t")},
		{"backtab", keycode.KeyTab, keycode.ModLSft, []byte{0x1b, '[', 'Z'}},
		{"escape", keycode.KeyEscape, 0, []byte{0x1b}},
		{"space", keycode.KeySpace, 0, []byte(" ")},
		{"backspace", keycode.KeyBackspace, 0, []byte{0x7f}},

		{"arrow", keycode.KeyRight, 0, []byte{0x1b, '[', 'C'}},
		{"home", keycode.KeyHome, 0, []byte{0x1b, '[', 'H'}},
		{"ctrl arrow", keycode.KeyRight, keycode.ModLCtl, []byte("\x1b[1;5C")},
		{"ctrl shift arrow", keycode.KeyRight, keycode.ModLCtl | keycode.ModLSft, []byte("\x1b[1;6C")},
		{"shift end", keycode.KeyEnd, keycode.ModLSft, []byte("\x1b[1;2F")},
		{"alt left", keycode.KeyLeft, keycode.ModLAlt, []byte("\x1b[1;3D")},
		{"delete", keycode.KeyDelete, 0, []byte("\x1b[3~")},
		{"ctrl delete", keycode.KeyDelete, keycode.ModLCtl, []byte("\x1b[3;5~")},
		{"page up", keycode.KeyPageUp, 0, []byte("\x1b[5~")},

		{"f1", keycode.KeyF1, 0, []byte{0x1b, 'O', 'P'}},
		{"f5", keycode.KeyF5, 0, []byte("\x1b[15~")},
		{"f12", keycode.KeyF12, 0, []byte("\x1b[24~")},

		{"packed mods", keycode.KeyRight.WithMods(keycode.ModLCtl), 0, []byte("\x1b[1;5C")},
		{"bare modifier", keycode.KeyLeftShift, 0, nil},
	}
	for _, tc := range cases {
		if got := Encode(tc.kc, tc.mods); !bytes.Equal(got, tc.want) {
			t.Errorf("%s: Encode(%v, %02x) = %q, want %q", tc.name, tc.kc, uint8(tc.mods), got, tc.want)
		}
	}
}
