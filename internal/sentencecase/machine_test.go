package sentencecase

import (
	"testing"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/keyweave/keyweave/internal/logging"
)

type fakeHost struct {
	mods    keycode.Mods
	oneshot keycode.Mods

	// every mask passed to AddOneshotMods, in order
	primes []keycode.Mods
}

func (h *fakeHost) Mods() keycode.Mods        { return h.mods }
func (h *fakeHost) OneshotMods() keycode.Mods { return h.oneshot }
func (h *fakeHost) AddOneshotMods(m keycode.Mods) {
	h.oneshot |= m
	h.primes = append(h.primes, m)
}

type fixture struct {
	t    *testing.T
	h    *fakeHost
	m    *Machine
	lay  *layout.Layout
	time uint16
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lay := layout.New(1, 1, false)
	h := &fakeHost{}
	return &fixture{t: t, h: h, m: New(h, lay, 2000, logging.Discard()), lay: lay}
}

// press feeds one key press. The one-shot mask is cleared afterward, the way
// the pipeline consumes it with the key's release.
func (f *fixture) press(kc keycode.Keycode) {
	f.t.Helper()
	f.time += 10
	f.m.Process(event.Event{Pos: event.Pos{}, Key: kc, Pressed: true, Time: f.time})
	f.h.oneshot = 0
}

// typeString feeds lowercase prose: letters, spaces and periods.
func (f *fixture) typeString(s string) {
	f.t.Helper()
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			f.press(keycode.KeyA + keycode.Keycode(r-'a'))
		case r == ' ':
			f.press(keycode.KeySpace)
		case r == '.':
			f.press(keycode.KeyDot)
		default:
			f.t.Fatalf("typeString: unsupported rune %q", r)
		}
	}
}

func TestCapitalizesAfterSentenceEnd(t *testing.T) {
	f := newFixture(t)

	f.typeString("hello. ")
	if got := f.m.State(); got != StatePrimed {
		t.Fatalf("State() after \"hello. \" = %v, want PRIMED", got)
	}

	f.press(keycode.KeyW)
	if len(f.h.primes) != 1 || f.h.primes[0] != keycode.ModLSft {
		t.Errorf("primes = %v, want one ModLSft", f.h.primes)
	}
	if got := f.m.State(); got != StateMatched {
		t.Errorf("State() = %v, want MATCHED", got)
	}

	// Only the first letter of the sentence is capitalized.
	f.typeString("orld")
	if len(f.h.primes) != 1 {
		t.Errorf("primes after more letters = %v, want still one", f.h.primes)
	}
}

func TestPrimedSurvivesExtraSpaces(t *testing.T) {
	f := newFixture(t)

	f.typeString("done.   ")
	if got := f.m.State(); got != StatePrimed {
		t.Errorf("State() = %v, want PRIMED after repeated spaces", got)
	}
}

func TestAbbreviationDoesNotPrime(t *testing.T) {
	f := newFixture(t)
	if err := f.lay.AddAbbreviation("vs"); err != nil {
		t.Fatalf("AddAbbreviation: %v", err)
	}

	f.typeString("see vs. them")
	if len(f.h.primes) != 0 {
		t.Errorf("primes = %v, want none after an abbreviation", f.h.primes)
	}

	// A real sentence ending still primes.
	f.typeString(". t")
	if len(f.h.primes) != 1 {
		t.Errorf("primes = %v, want one after the real ending", f.h.primes)
	}
}

func TestShiftedPunctuationEndsSentence(t *testing.T) {
	cases := []struct {
		name string
		kc   keycode.Keycode
	}{
		{"exclamation", keycode.Key1},
		{"question", keycode.KeySlash},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.typeString("wow")

			f.h.mods = keycode.ModLSft
			f.press(tc.kc)
			f.h.mods = 0

			f.press(keycode.KeySpace)
			if got := f.m.State(); got != StatePrimed {
				t.Errorf("State() = %v, want PRIMED", got)
			}
		})
	}
}

func TestUnshiftedSlashDoesNotEndSentence(t *testing.T) {
	f := newFixture(t)

	f.typeString("a")
	f.press(keycode.KeySlash)
	f.press(keycode.KeySpace)
	if got := f.m.State(); got == StatePrimed {
		t.Errorf("State() = PRIMED, want no priming after a plain slash")
	}
}

func TestAlreadyShiftedLetterNotDoubled(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. ")
	f.h.mods = keycode.ModLSft
	f.press(keycode.KeyW)
	f.h.mods = 0

	if len(f.h.primes) != 0 {
		t.Errorf("primes = %v, want none when shift is already held", f.h.primes)
	}
	if got := f.m.State(); got != StateMatched {
		t.Errorf("State() = %v, want MATCHED", got)
	}
}

func TestBackspaceRewindKeepsMatch(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. w")
	if got := f.m.State(); got != StateMatched {
		t.Fatalf("State() = %v, want MATCHED", got)
	}

	f.press(keycode.KeyBackspace)
	if got := f.m.State(); got != StatePrimed {
		t.Fatalf("State() after backspace = %v, want rewound to PRIMED", got)
	}

	// A different letter is capitalized again; retyping the deleted one is
	// suppressed, the correction was deliberate.
	f.press(keycode.KeyX)
	if len(f.h.primes) != 2 {
		t.Errorf("primes = %v, want a second capitalization", f.h.primes)
	}
}

func TestRetypingSuppressedLetterNotRecapitalized(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. w")
	f.press(keycode.KeyBackspace)
	f.press(keycode.KeyW)

	if len(f.h.primes) != 1 {
		t.Errorf("primes = %v, want no second shift for the same letter", f.h.primes)
	}
	if got := f.m.State(); got != StateInit {
		t.Errorf("State() = %v, want INIT", got)
	}
}

func TestNonShiftChordResets(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. ")
	f.h.mods = keycode.ModLCtl
	f.press(keycode.KeyC)
	f.h.mods = 0

	if got := f.m.State(); got != StateInit {
		t.Errorf("State() after ctrl chord = %v, want INIT", got)
	}

	f.press(keycode.KeyT)
	if len(f.h.primes) != 0 {
		t.Errorf("primes = %v, want none after reset", f.h.primes)
	}
}

func TestTransparentKeysDoNotAdvance(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. ")
	f.press(keycode.KeyLeftShift)
	f.press(keycode.LayerKey(1))
	f.press(keycode.KeyLayerLock)

	if got := f.m.State(); got != StatePrimed {
		t.Errorf("State() = %v, want PRIMED preserved across modifiers", got)
	}
}

func TestReleasesIgnored(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. ")
	f.m.Process(event.Event{Key: keycode.KeyW, Pressed: false, Time: f.time})
	if got := f.m.State(); got != StatePrimed {
		t.Errorf("State() = %v, want PRIMED after a release", got)
	}
}

func TestWouldCapitalize(t *testing.T) {
	f := newFixture(t)

	if f.m.WouldCapitalize(keycode.KeyW) {
		t.Error("WouldCapitalize(W) = true before priming")
	}

	f.typeString("ok. ")
	if !f.m.WouldCapitalize(keycode.KeyW) {
		t.Error("WouldCapitalize(W) = false while primed")
	}
	if f.m.WouldCapitalize(keycode.KeyDot) {
		t.Error("WouldCapitalize(Dot) = true, want letters only")
	}
}

func TestIdleTimeout(t *testing.T) {
	f := newFixture(t)

	f.typeString("ok. ")
	f.m.Tick(f.time + 1999)
	if got := f.m.State(); got != StatePrimed {
		t.Fatalf("State() before deadline = %v, want PRIMED", got)
	}
	f.m.Tick(f.time + 2000)
	if got := f.m.State(); got != StateInit {
		t.Errorf("State() after deadline = %v, want INIT", got)
	}
}

func TestDualRoleTapAdvances(t *testing.T) {
	f := newFixture(t)
	dual, err := f.lay.AddDualRole(layout.DualRole{Tap: keycode.KeyW, HoldMods: keycode.ModLCtl, HoldLayer: -1, Timeout: 200})
	if err != nil {
		t.Fatalf("AddDualRole: %v", err)
	}

	f.typeString("ok. ")

	// An unresolved hold is transparent.
	f.m.Process(event.Event{Key: dual, Pressed: true, Time: f.time})
	if got := f.m.State(); got != StatePrimed {
		t.Fatalf("State() = %v, want PRIMED after unresolved hold", got)
	}

	// The resolved tap counts as its tap keycode.
	f.m.Process(event.Event{Key: dual, Pressed: true, Time: f.time, TapCount: 1})
	if len(f.h.primes) != 1 {
		t.Errorf("primes = %v, want capitalized dual-role tap", f.h.primes)
	}
}
