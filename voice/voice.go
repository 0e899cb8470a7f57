// Package voice holds the runtime state of sound voices. None of it is patch
// data: it is reset on patch load and mutated by note events and by the
// pitchbend and note parameter routes.
package voice

import "mbsidmcp/patch"

// PitchbendCentre is the neutral pitchbender value.
const PitchbendCentre = 0x8000

// WTStackDepth is the number of notes kept for wavetable note playback.
const WTStackDepth = 4

// Voice is the runtime state of one sound voice.
type Voice struct {
	Instrument uint8  // MIDI voice (Lead, Bassline) or instrument (Drum, Multi) assignment
	Pitchbend  uint16 // centred at PitchbendCentre
	Note       uint8  // currently played note
	Velocity   uint8
	Wave       uint8 // waveform of the current drum model step
	Active     bool  // gate is on
	GateSet    bool  // gate-on requested for the next update
	GateClear  bool  // gate-off requested for the next update
	Portamento bool
	WTStack    [WTStackDepth]uint8 // 0 marks an empty slot
}

// GateOn requests the gate to open. An already open gate is left alone.
func (v *Voice) GateOn() {
	if v.Active {
		return
	}
	v.Active = true
	v.GateSet = true
}

// GateOff requests the gate to close and drops any pending gate-on.
func (v *Voice) GateOff() {
	if !v.Active {
		return
	}
	v.Active = false
	v.GateSet = false
	v.GateClear = true
}

// Retrigger closes and reopens the gate in one step: both requests stay
// pending for the next update and Active never drops.
func (v *Voice) Retrigger() {
	v.Active = true
	v.GateClear = true
	v.GateSet = true
}

// TakeGateRequests returns and clears the pending gate requests.
func (v *Voice) TakeGateRequests() (clear, set bool) {
	clear, set = v.GateClear, v.GateSet
	v.GateClear, v.GateSet = false, false
	return clear, set
}

// PushWT puts a note on top of the wavetable note stack.
func (v *Voice) PushWT(note uint8) {
	v.PopWT(note)
	copy(v.WTStack[1:], v.WTStack[:WTStackDepth-1])
	v.WTStack[0] = note
}

// PopWT removes a note from the wavetable note stack.
func (v *Voice) PopWT(note uint8) {
	for i, n := range v.WTStack {
		if n == note && n != 0 {
			copy(v.WTStack[i:], v.WTStack[i+1:])
			v.WTStack[WTStackDepth-1] = 0
			return
		}
	}
}

// Bank is the voice set of one engine.
type Bank struct {
	Voices []Voice
}

// NewBank returns voices initialised for engine e.
func NewBank(e patch.Engine) *Bank {
	b := &Bank{}
	b.Reset(e)
	return b
}

// Reset re-initialises the bank for engine e. Lead voices all follow MIDI
// voice 0; every other engine starts with voice n assigned to instrument n.
func (b *Bank) Reset(e patch.Engine) {
	b.Voices = make([]Voice, e.Voices())
	for i := range b.Voices {
		b.Voices[i].Pitchbend = PitchbendCentre
		if e != patch.Lead {
			b.Voices[i].Instrument = uint8(i)
		}
	}
}

// Len returns the number of voices.
func (b *Bank) Len() int {
	return len(b.Voices)
}

// At returns voice n, or nil when n is out of range.
func (b *Bank) At(n int) *Voice {
	if n < 0 || n >= len(b.Voices) {
		return nil
	}
	return &b.Voices[n]
}
