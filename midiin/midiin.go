// Package midiin turns incoming MIDI into engine events.
package midiin

import (
	"log"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"mbsidmcp/engine"
)

const timingClock = 0xf8

// Decode converts msg to an engine event. Messages the engine has no use
// for report false.
func Decode(msg midi.Message) (engine.Event, bool) {
	var ch, a, b uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &a, &b):
		return engine.Event{Kind: engine.NoteOn, Channel: ch, A: a, B: b}, true
	case msg.GetNoteEnd(&ch, &a):
		return engine.Event{Kind: engine.NoteOff, Channel: ch, A: a}, true
	case msg.GetControlChange(&ch, &a, &b):
		return engine.Event{Kind: engine.ControlChange, Channel: ch, A: a, B: b}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return engine.Event{Kind: engine.PitchBend, Channel: ch, Value: abs}, true
	case msg.GetProgramChange(&ch, &a):
		return engine.Event{Kind: engine.ProgramChange, Channel: ch, A: a}, true
	case len(msg) == 1 && msg[0] == timingClock:
		return engine.Event{Kind: engine.Clock}, true
	}
	return engine.Event{}, false
}

// Listen forwards every decodable message from in to post until stop is
// called. Events post refuses are dropped.
func Listen(in drivers.In, post func(engine.Event) bool) (stop func(), err error) {
	stop, err = midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if ev, ok := Decode(msg); ok {
			post(ev)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", in)
	}
	log.Printf("[midi] listening on %s", in)
	return stop, nil
}
