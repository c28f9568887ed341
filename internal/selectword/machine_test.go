package selectword

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/logging"
)

// fakeHost records every host call as a readable op string so tests can
// assert the exact key sequence the macro sends.
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
func (h *fakeHost) ClearOneshotMods()         { h.oneshot = 0 }
func (h *fakeHost) SetMods(m keycode.Mods) {
	h.mods = m
	h.op("setmods %02x", uint8(m))
}
func (h *fakeHost) ClearMods() {
	h.mods = 0
	h.op("clearmods")
}
func (h *fakeHost) RegisterMods(m keycode.Mods) {
	h.mods |= m
	h.op("regmods %02x", uint8(m))
}
func (h *fakeHost) UnregisterMods(m keycode.Mods) {
	h.mods &^= m
	h.op("unregmods %02x", uint8(m))
}
func (h *fakeHost) RegisterKeycode(kc keycode.Keycode)   { h.op("press %s", kc) }
func (h *fakeHost) UnregisterKeycode(kc keycode.Keycode) { h.op("release %s", kc) }
func (h *fakeHost) TapKeycode(kc keycode.Keycode)        { h.op("tap %s", kc) }

func newFixture(t *testing.T, mac bool) (*fakeHost, *Machine) {
	t.Helper()
	h := &fakeHost{}
	return h, New(h, 1000, mac, logging.Discard())
}

func press(kc keycode.Keycode, at uint16) event.Event {
	return event.Event{Key: kc, Pressed: true, Time: at}
}

func release(kc keycode.Keycode, at uint16) event.Event {
	return event.Event{Key: kc, Pressed: false, Time: at}
}

func TestWordSelect(t *testing.T) {
	h, m := newFixture(t, false)

	if m.Process(press(keycode.KeySelectWord, 0)) {
		t.Fatal("Process(trigger press) = true, want consumed")
	}
	want := []string{
		"setmods 01",  // ctrl
		"tap right",   // position at word end
		"tap left",    // then word start
		"regmods 02",  // shift
		"press right", // extend over the word
	}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
	if got := m.State(); got != StateWord {
		t.Errorf("State() = %v, want WORD", got)
	}

	// Releasing the trigger drops the synthetic overlay but keeps the
	// selection.
	h.ops = nil
	m.Process(release(keycode.KeySelectWord, 50))
	want = []string{"release right", "unregmods 03"} // shift|ctrl
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops after release = %v, want %v", h.ops, want)
	}
	if got := m.State(); got != StateSelected {
		t.Errorf("State() = %v, want SELECTED", got)
	}
}

func TestWordExtend(t *testing.T) {
	h, m := newFixture(t, false)

	m.Process(press(keycode.KeySelectWord, 0))
	m.Process(release(keycode.KeySelectWord, 50))
	h.ops = nil

	// A second press extends without repositioning the cursor.
	m.Process(press(keycode.KeySelectWord, 100))
	want := []string{"setmods 01", "regmods 02", "press right"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
}

func TestMacWordSelectUsesOption(t *testing.T) {
	h, m := newFixture(t, true)

	m.Process(press(keycode.KeySelectWord, 0))
	want := []string{"setmods 04", "tap right", "tap left", "regmods 02", "press right"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}

	h.ops = nil
	m.Process(release(keycode.KeySelectWord, 50))
	want = []string{"release right", "unregmods 06"} // shift|alt
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops after release = %v, want %v", h.ops, want)
	}
}

func TestLineSelect(t *testing.T) {
	h, m := newFixture(t, false)
	h.mods = keycode.ModLSft

	m.Process(press(keycode.KeySelectWord, 0))
	want := []string{
		"clearmods",
		"tap home",
		"regmods 02",
		"tap end",
		"setmods 02", // restore the user's shift
	}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
	if got := m.State(); got != StateFirstLine {
		t.Errorf("State() = %v, want FIRST_LINE", got)
	}

	// Further shifted presses extend line-wise.
	h.ops = nil
	m.Process(release(keycode.KeySelectWord, 50))
	m.Process(press(keycode.KeySelectWord, 100))
	want = []string{"press down"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops on extension = %v, want %v", h.ops, want)
	}
	if got := m.State(); got != StateLine {
		t.Errorf("State() = %v, want LINE", got)
	}

	h.ops = nil
	m.Process(release(keycode.KeySelectWord, 150))
	want = []string{"release down"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops after release = %v, want %v", h.ops, want)
	}
}

func TestMacLineSelect(t *testing.T) {
	h, m := newFixture(t, true)
	h.mods = keycode.ModLSft

	m.Process(press(keycode.KeySelectWord, 0))
	want := []string{
		"setmods 08", // cmd
		"tap left",
		"regmods 02",
		"tap right",
		"setmods 02",
	}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
}

func TestOneshotShiftSelectsLine(t *testing.T) {
	h, m := newFixture(t, false)
	h.oneshot = keycode.ModLSft

	m.Process(press(keycode.KeySelectWord, 0))
	if got := m.State(); got != StateFirstLine {
		t.Errorf("State() = %v, want FIRST_LINE from a one-shot shift", got)
	}
	if h.oneshot != 0 {
		t.Errorf("oneshot = %02x, want consumed", uint8(h.oneshot))
	}
}

func TestEscapeCollapsesSelection(t *testing.T) {
	h, m := newFixture(t, false)

	m.Process(press(keycode.KeySelectWord, 0))
	m.Process(release(keycode.KeySelectWord, 50))
	h.ops = nil

	if m.Process(press(keycode.KeyEscape, 100)) {
		t.Error("Process(escape) = true, want consumed")
	}
	want := []string{"tap right"}
	if !reflect.DeepEqual(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
	if got := m.State(); got != StateNone {
		t.Errorf("State() = %v, want NONE", got)
	}
}

func TestOtherKeyLeavesSelectionBehind(t *testing.T) {
	h, m := newFixture(t, false)

	m.Process(press(keycode.KeySelectWord, 0))
	m.Process(release(keycode.KeySelectWord, 50))
	h.ops = nil

	if !m.Process(press(keycode.KeyA, 100)) {
		t.Error("Process(A) = false, want pass through")
	}
	if len(h.ops) != 0 {
		t.Errorf("ops = %v, want none", h.ops)
	}
	if got := m.State(); got != StateNone {
		t.Errorf("State() = %v, want NONE", got)
	}
}

func TestShiftKeysTransparent(t *testing.T) {
	_, m := newFixture(t, false)

	m.Process(press(keycode.KeySelectWord, 0))
	m.Process(press(keycode.KeyLeftShift, 10))
	if got := m.State(); got != StateWord {
		t.Errorf("State() = %v, want WORD preserved across a shift press", got)
	}
}

func TestIdleTimeout(t *testing.T) {
	_, m := newFixture(t, false)

	m.Process(press(keycode.KeySelectWord, 0))
	m.Process(release(keycode.KeySelectWord, 50))
	m.Tick(1049)
	if got := m.State(); got != StateSelected {
		t.Fatalf("State() before deadline = %v, want SELECTED", got)
	}
	m.Tick(1050)
	if got := m.State(); got != StateNone {
		t.Errorf("State() after deadline = %v, want NONE", got)
	}
}
