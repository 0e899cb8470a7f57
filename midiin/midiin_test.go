package midiin

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"mbsidmcp/engine"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  midi.Message
		want engine.Event
	}{
		{"note on", midi.NoteOn(2, 60, 100), engine.Event{Kind: engine.NoteOn, Channel: 2, A: 60, B: 100}},
		{"note off", midi.NoteOff(3, 61), engine.Event{Kind: engine.NoteOff, Channel: 3, A: 61}},
		{"note on velocity 0", midi.NoteOn(0, 62, 0), engine.Event{Kind: engine.NoteOff, A: 62}},
		{"control change", midi.ControlChange(1, 74, 90), engine.Event{Kind: engine.ControlChange, Channel: 1, A: 74, B: 90}},
		{"pitch bend centre", midi.Pitchbend(0, 0), engine.Event{Kind: engine.PitchBend, Value: 8192}},
		{"pitch bend down", midi.Pitchbend(5, -8192), engine.Event{Kind: engine.PitchBend, Channel: 5, Value: 0}},
		{"program change", midi.ProgramChange(4, 17), engine.Event{Kind: engine.ProgramChange, Channel: 4, A: 17}},
		{"timing clock", midi.Message{0xf8}, engine.Event{Kind: engine.Clock}},
	}
	for _, tt := range tests {
		got, ok := Decode(tt.msg)
		if !ok {
			t.Errorf("%s: not decoded", tt.name)
			continue
		}
		if got.Kind != tt.want.Kind || got.Channel != tt.want.Channel || got.A != tt.want.A ||
			got.B != tt.want.B || got.Value != tt.want.Value {
			t.Errorf("%s: %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestDecodeIgnores(t *testing.T) {
	for _, msg := range []midi.Message{
		midi.AfterTouch(0, 10),
		{0xfe},
		{0xf0, 0x00, 0x00, 0x7e, 0x4b, 0xf7},
		nil,
	} {
		if ev, ok := Decode(msg); ok {
			t.Errorf("% x decoded as %+v", []byte(msg), ev)
		}
	}
}
