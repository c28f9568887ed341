package hid

import (
	"encoding/binary"
	"fmt"
)

// Report IDs
const (
	ReportIDKeyEvent byte = 0x01
	ReportIDStatus   byte = 0x02
)

// Event types for key reports
const (
	EventTypePress   byte = 0x01
	EventTypeRelease byte = 0x02
)

// Report is one key transition from the keyboard's matrix scan.
type Report struct {
	Pressed   bool
	Row       uint8
	Col       uint8
	Timestamp uint16
}

func (r Report) String() string {
	action := "release"
	if r.Pressed {
		action = "press"
	}
	return fmt.Sprintf("%s (%d,%d) @%d", action, r.Row, r.Col, r.Timestamp)
}

// ParseReport parses a raw HID report into a Report
// Expected format:
//   Byte 0: Report ID (0x01)
//   Byte 1: Event type (0x01=press, 0x02=release)
//   Byte 2: Matrix row
//   Byte 3: Matrix column
//   Byte 4-5: Timestamp (wrapping ms counter, little-endian u16)
func ParseReport(data []byte) (*Report, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("report too short: %d bytes", len(data))
	}

	if data[0] != ReportIDKeyEvent {
		return nil, fmt.Errorf("unexpected report ID: 0x%02X", data[0])
	}

	eventType := data[1]
	if eventType != EventTypePress && eventType != EventTypeRelease {
		return nil, fmt.Errorf("unknown event type: 0x%02X", eventType)
	}

	return &Report{
		Pressed:   eventType == EventTypePress,
		Row:       data[2],
		Col:       data[3],
		Timestamp: binary.LittleEndian.Uint16(data[4:6]),
	}, nil
}

// Status flags mirrored back to the keyboard for its indicator LEDs.
const (
	StatusCapsWord  byte = 1 << 0
	StatusLayerLock byte = 1 << 1
	StatusSelection byte = 1 << 2
	StatusPending   byte = 1 << 3
)

// Status is the engine-state summary the keyboard can display.
type Status struct {
	Flags byte
	Layer uint8
	Mods  uint8
}

// Encode serializes the Status for transmission
// Format:
//   Byte 0: Report ID (0x02)
//   Byte 1: Flags (caps word, layer lock, selection, pending tap-hold)
//   Byte 2: Highest active layer
//   Byte 3: Effective modifier mask
func (s *Status) Encode() []byte {
	return []byte{ReportIDStatus, s.Flags, s.Layer, s.Mods}
}
