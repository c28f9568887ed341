package keycode

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Keycode
	}{
		{"a", KeyA},
		{"space", KeySpace},
		{"ctrl+left", KeyLeft.WithMods(ModLCtl)},
		{"ctrl+shift+right", KeyRight.WithMods(ModLCtl | ModLSft)},
		{"Shift+1", Key1.WithMods(ModLSft)},
		{"altgr+e", KeyE.WithMods(ModRAlt)},
		{"cmd+left", KeyLeft.WithMods(ModLGui)},
		{"layer2", LayerKey(2)},
		{".", KeyDot},
		{"escape", KeyEscape},
		{"_", KeyTransparent},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "wobble", "hyper+a", "ctrl+", "layer99"} {
		if kc, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) = %v, want error", in, kc)
		}
	}
}

func TestParseMods(t *testing.T) {
	cases := []struct {
		in   string
		want Mods
	}{
		{"ctrl", ModLCtl},
		{"lctrl+rshift", ModLCtl | ModRSft},
		{"shift+alt", ModLSft | ModLAlt},
		{"altgr", ModRAlt},
		{"gui", ModLGui},
	}
	for _, tc := range cases {
		got, err := ParseMods(tc.in)
		if err != nil {
			t.Errorf("ParseMods(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMods(%q) = %02x, want %02x", tc.in, uint8(got), uint8(tc.want))
		}
	}

	if _, err := ParseMods("ctrl+a"); err == nil {
		t.Error("ParseMods(\"ctrl+a\") = nil error, want keys rejected")
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Keycode
		want string
	}{
		{KeyA, "a"},
		{KeyLeft.WithMods(ModLCtl | ModLSft), "ctrl+shift+left"},
		{KeyE.WithMods(ModRAlt), "altgr+e"},
		{LayerKey(3), "layer3"},
		{DualRoleKey(0), "dual0"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("%#x.String() = %q, want %q", uint16(tc.in), got, tc.want)
		}
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	for _, kc := range []Keycode{
		KeyQ, KeyDot, KeyPageDown,
		KeyHome.WithMods(ModLCtl),
		KeyTab.WithMods(ModLSft),
	} {
		got, err := Parse(kc.String())
		if err != nil {
			t.Errorf("Parse(%q): %v", kc.String(), err)
			continue
		}
		if got != kc {
			t.Errorf("Parse(String(%v)) = %v, want identity", kc, got)
		}
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		in   Mods
		want Mods
	}{
		{ModRCtl, ModLCtl},
		{ModRSft | ModLCtl, ModLSft | ModLCtl},
		{ModRAlt, ModLAlt | ModRAlt}, // AltGr keeps its identity
		{0, 0},
	}
	for _, tc := range cases {
		if got := tc.in.Fold(); got != tc.want {
			t.Errorf("Fold(%02x) = %02x, want %02x", uint8(tc.in), uint8(got), uint8(tc.want))
		}
	}
}

func TestClassification(t *testing.T) {
	if !KeyA.IsLetter() || KeyA.IsDigit() || KeyA.IsModifier() {
		t.Error("KeyA misclassified")
	}
	if !Key0.IsDigit() {
		t.Error("Key0.IsDigit() = false")
	}
	if !KeyRightGui.IsModifier() {
		t.Error("KeyRightGui.IsModifier() = false")
	}
	if got := KeyLeftAlt.ModifierBit(); got != ModLAlt {
		t.Errorf("KeyLeftAlt.ModifierBit() = %02x, want ModLAlt", uint8(got))
	}
	if got := KeyA.ModifierBit(); got != 0 {
		t.Errorf("KeyA.ModifierBit() = %02x, want 0", uint8(got))
	}

	// Packed mods do not change the base classification.
	if !KeyB.WithMods(ModLCtl).IsLetter() {
		t.Error("ctrl+b.IsLetter() = false")
	}
	if KeyB.WithMods(ModLCtl).IsBasic() {
		t.Error("ctrl+b.IsBasic() = true, want packed mods excluded")
	}
}

func TestLayerAndDualRoleRanges(t *testing.T) {
	if got := LayerKey(MaxLayers); got != KeyNone {
		t.Errorf("LayerKey(MaxLayers) = %v, want KeyNone", got)
	}
	if got := LayerKey(2).LayerIndex(); got != 2 {
		t.Errorf("LayerIndex = %d, want 2", got)
	}
	if got := KeyA.LayerIndex(); got != -1 {
		t.Errorf("KeyA.LayerIndex() = %d, want -1", got)
	}

	if got := DualRoleKey(MaxDualRole); got != KeyNone {
		t.Errorf("DualRoleKey(MaxDualRole) = %v, want KeyNone", got)
	}
	if got := DualRoleKey(5).DualRoleIndex(); got != 5 {
		t.Errorf("DualRoleIndex = %d, want 5", got)
	}
	if !DualRoleKey(0).IsDualRole() {
		t.Error("DualRoleKey(0).IsDualRole() = false")
	}
}

func TestFromRune(t *testing.T) {
	cases := []struct {
		r       rune
		want    Keycode
		shifted bool
	}{
		{'a', KeyA, false},
		{'Z', KeyZ, true},
		{'7', Key7, false},
		{'0', Key0, false},
		{' ', KeySpace, false},
		{'!', Key1, true},
		{'?', KeySlash, true},
		{'_', KeyMinus, true},
	}
	for _, tc := range cases {
		kc, shifted, ok := FromRune(tc.r)
		if !ok {
			t.Errorf("FromRune(%q) not ok", tc.r)
			continue
		}
		if kc != tc.want || shifted != tc.shifted {
			t.Errorf("FromRune(%q) = %v shifted=%v, want %v shifted=%v", tc.r, kc, shifted, tc.want, tc.shifted)
		}
	}

	if _, _, ok := FromRune('€'); ok {
		t.Error("FromRune('€') ok, want unmapped")
	}
}
