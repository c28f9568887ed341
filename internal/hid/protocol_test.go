package hid

import (
	"encoding/binary"
	"reflect"
	"testing"
)

func TestParseReport(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    *Report
		wantErr bool
	}{
		{
			name: "press",
			data: func() []byte {
				buf := make([]byte, 6)
				buf[0] = ReportIDKeyEvent
				buf[1] = EventTypePress
				buf[2] = 3 // row
				buf[3] = 7 // col
				binary.LittleEndian.PutUint16(buf[4:6], 12345)
				return buf
			}(),
			want: &Report{
				Pressed:   true,
				Row:       3,
				Col:       7,
				Timestamp: 12345,
			},
		},
		{
			name: "release near timestamp wraparound",
			data: func() []byte {
				buf := make([]byte, 6)
				buf[0] = ReportIDKeyEvent
				buf[1] = EventTypeRelease
				buf[2] = 0
				buf[3] = 0
				binary.LittleEndian.PutUint16(buf[4:6], 0xFFFE)
				return buf
			}(),
			want: &Report{
				Pressed:   false,
				Row:       0,
				Col:       0,
				Timestamp: 0xFFFE,
			},
		},
		{
			name:    "data too short",
			data:    []byte{0x01, 0x01, 0x00},
			wantErr: true,
		},
		{
			name: "wrong report ID",
			data: func() []byte {
				buf := make([]byte, 6)
				buf[0] = 0xFF
				buf[1] = EventTypePress
				return buf
			}(),
			wantErr: true,
		},
		{
			name: "unknown event type",
			data: func() []byte {
				buf := make([]byte, 6)
				buf[0] = ReportIDKeyEvent
				buf[1] = 0xFF
				return buf
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReport(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseReport() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseReport() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStatusEncode(t *testing.T) {
	tests := []struct {
		name   string
		status *Status
		want   []byte
	}{
		{
			name:   "idle",
			status: &Status{},
			want:   []byte{ReportIDStatus, 0, 0, 0},
		},
		{
			name: "caps word with layer lock",
			status: &Status{
				Flags: StatusCapsWord | StatusLayerLock,
				Layer: 2,
				Mods:  0x02,
			},
			want: []byte{ReportIDStatus, 0x03, 2, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Encode(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportString(t *testing.T) {
	r := Report{Pressed: true, Row: 1, Col: 2, Timestamp: 500}
	if got := r.String(); got != "press (1,2) @500" {
		t.Errorf("String() = %q", got)
	}
}
