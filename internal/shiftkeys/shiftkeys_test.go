package shiftkeys

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/keyweave/keyweave/internal/logging"
)

type fakeHost struct {
	mods    keycode.Mods
	oneshot keycode.Mods
	ops     []string
}

func (h *fakeHost) op(format string, args ...any) {
	h.ops = append(h.ops, fmt.Sprintf(format, args...))
}

func (h *fakeHost) Mods() keycode.Mods        { return h.mods }
func (h *fakeHost) OneshotMods() keycode.Mods { return h.oneshot }
func (h *fakeHost) RegisterMods(m keycode.Mods) {
	h.mods |= m
	if m != 0 {
		h.op("regmods %02x", uint8(m))
	}
}
func (h *fakeHost) UnregisterMods(m keycode.Mods) {
	h.mods &^= m
	h.op("unregmods %02x", uint8(m))
}
func (h *fakeHost) DelOneshotMods(m keycode.Mods) {
	h.oneshot &^= m
}
func (h *fakeHost) RegisterKeycode(kc keycode.Keycode)   { h.op("press %s", kc) }
func (h *fakeHost) UnregisterKeycode(kc keycode.Keycode) { h.op("release %s", kc) }

// newFixture maps shift+comma to semicolon, the classic "comma stays
// unshifted punctuation" override.
func newFixture(t *testing.T) (*fakeHost, *Machine) {
	t.Helper()
	lay := layout.New(1, 1, false)
	lay.AddShiftOverride(keycode.KeyComma, keycode.KeySemicolon)
	h := &fakeHost{}
	return h, New(h, lay, logging.Discard())
}

func press(kc keycode.Keycode) event.Event {
	return event.Event{Key: kc, Pressed: true}
}

func release(kc keycode.Keycode) event.Event {
	return event.Event{Key: kc, Pressed: false}
}

func TestShiftedPressSendsOverride(t *testing.T) {
	h, m := newFixture(t)
	h.mods = keycode.ModLSft

	if m.Process(press(keycode.KeyComma)) {
		t.Fatal("Process(mapped press) = true, want consumed")
	}
	want := []string{"unregmods 22", "press semicolon"} // both shift bits lifted
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
	if h.mods&keycode.MaskShift != 0 {
		t.Errorf("mods = %02x, want shift lifted while override is down", uint8(h.mods))
	}

	h.ops = nil
	if m.Process(release(keycode.KeyComma)) {
		t.Fatal("Process(mapped release) = true, want consumed")
	}
	want = []string{"release semicolon", "regmods 02"} // held shift restored
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops on release = %v, want %v", h.ops, want)
	}
	if h.mods != keycode.ModLSft {
		t.Errorf("mods = %02x, want shift restored", uint8(h.mods))
	}
}

func TestUnshiftedPressSendsBase(t *testing.T) {
	h, m := newFixture(t)

	if m.Process(press(keycode.KeyComma)) {
		t.Fatal("Process(mapped press) = true, want consumed")
	}
	want := []string{"press comma"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}

	h.ops = nil
	m.Process(release(keycode.KeyComma))
	want = []string{"release comma"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops on release = %v, want %v", h.ops, want)
	}
}

func TestUnmappedKeyPassesThrough(t *testing.T) {
	h, m := newFixture(t)

	if !m.Process(press(keycode.KeyA)) {
		t.Error("Process(A) = false, want pass through")
	}
	if len(h.ops) != 0 {
		t.Errorf("ops = %v, want none", h.ops)
	}
}

func TestInterruptingKeyReleasesOverride(t *testing.T) {
	h, m := newFixture(t)
	h.mods = keycode.ModLSft

	m.Process(press(keycode.KeyComma))
	h.ops = nil

	if !m.Process(press(keycode.KeyA)) {
		t.Error("Process(A) = false, want pass through")
	}
	want := []string{"release semicolon", "regmods 02"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want override released before the interrupting key", h.ops)
	}

	// The mapped key's own release later has nothing to undo.
	h.ops = nil
	if m.Process(release(keycode.KeyComma)) {
		t.Error("Process(mapped release) = true, want consumed")
	}
	if len(h.ops) != 0 {
		t.Errorf("ops = %v, want none", h.ops)
	}
}

func TestSecondMappedKeyReplacesFirst(t *testing.T) {
	h, m := newFixture(t)
	lay := layout.New(1, 1, false)
	lay.AddShiftOverride(keycode.KeyComma, keycode.KeySemicolon)
	lay.AddShiftOverride(keycode.KeyDot, keycode.KeyQuote)
	m = New(h, lay, logging.Discard())
	h.mods = keycode.ModLSft

	m.Process(press(keycode.KeyComma))
	h.ops = nil
	m.Process(press(keycode.KeyDot))

	want := []string{"release semicolon", "regmods 02", "unregmods 22", "press quote"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
}

func TestOneshotShiftConsumedNotRestored(t *testing.T) {
	h, m := newFixture(t)
	h.oneshot = keycode.ModLSft

	m.Process(press(keycode.KeyComma))
	if h.oneshot != 0 {
		t.Errorf("oneshot = %02x, want consumed by the override", uint8(h.oneshot))
	}

	h.ops = nil
	m.Process(release(keycode.KeyComma))
	want := []string{"release semicolon"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops on release = %v, want no shift restored", h.ops)
	}
}
