// Package event defines the key event passed through the processing pipeline
// and the wraparound-safe timer arithmetic used for every deadline check.
package event

import (
	"fmt"

	"github.com/keyweave/keyweave/internal/keycode"
)

// Pos is a key's matrix position. Synthetic events (combos, replays that have
// no physical origin) use VirtualPos.
type Pos struct {
	Row uint8
	Col uint8
}

// VirtualPos marks an event that did not originate from the key matrix.
var VirtualPos = Pos{Row: 255, Col: 255}

// IsVirtual reports whether the position is the synthetic-event sentinel.
func (p Pos) IsVirtual() bool { return p.Row >= 254 || p.Col >= 254 }

func (p Pos) String() string {
	if p.IsVirtual() {
		return "virtual"
	}
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// Event is a single key transition.
//
// Time is a monotonic millisecond counter that wraps at 16 bits, matching the
// timers of the keyboard controllers this engine models. Never compare Time
// values directly; use Expired.
//
// TapCount distinguishes how a dual-role key event has been classified:
// 0 means the key is held without having resolved as a tap, 1 means it
// resolved as (or was replayed as) a tap.
type Event struct {
	Pos      Pos
	Key      keycode.Keycode
	Pressed  bool
	Time     uint16
	TapCount uint8
}

func (e Event) String() string {
	dir := "up"
	if e.Pressed {
		dir = "down"
	}
	return fmt.Sprintf("%s %s @%d (%s)", e.Key, dir, e.Time, e.Pos)
}

// Expired reports whether deadline has passed at time now, tolerating
// wraparound of the 16-bit counter. It is the subtraction-based comparison:
// a deadline is expired when it lies in the half-range behind now.
func Expired(now, deadline uint16) bool {
	return now-deadline < 0x8000
}
