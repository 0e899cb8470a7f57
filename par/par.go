// Package par reads and writes sound parameters by number.
//
// A Target binds the loaded patch, the voice bank and an optional note
// router. Every operation re-reads the engine from the patch, looks the
// parameter up in partable and interprets its descriptor: the fan-out rule
// picks the voices, the shape picks patch memory or voice state, and the
// width masks the value. Nothing here fails; impossible selections reach no
// voice and oversized values are truncated.
package par

import (
	"mbsidmcp/partable"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
)

// NoteRouter plays notes written through the note route. index is a voice
// for Lead, Bassline and Drum and an instrument for Multi. Note 0 releases.
type NoteRouter interface {
	RouteNote(index int, note uint8)
}

// Target is the parameter context of one sound engine.
type Target struct {
	Patch  *patch.Store
	Voices *voice.Bank
	Notes  NoteRouter // nil plays notes on the voices directly
}

// Direction selects the scaling direction.
type Direction uint8

const (
	// Up converts a native value into the 16-bit domain.
	Up Direction = iota
	// Down converts a 16-bit value into the native domain.
	Down
)

// Scale shifts v between the native width of mode m and 16 bits. It is
// truncating, so a Down after an Up only returns v within the quantization
// step of the mode.
func Scale(m partable.Mode, v uint16, dir Direction) uint16 {
	sh := 16 - partable.Resolution(m)
	if dir == Up {
		return v << sh
	}
	return v >> sh
}

// Mode returns the addressing mode of parameter num on the current engine.
func (t *Target) Mode(num uint8) partable.Mode {
	return partable.Lookup(t.Patch.Engine(), num).Mode
}

// Set writes native value v to parameter num.
func (t *Target) Set(num uint8, v uint16, sidMask, ins uint8) {
	e := t.Patch.Engine()
	ent := partable.Lookup(e, num)
	d := partable.Describe(ent.Mode)
	mask := fanMask(e, d.Fan, num, sidMask, ins)

	switch d.Shape {
	case partable.ShapeBits:
		for i := 0; i < 16; i++ {
			if mask&(1<<i) != 0 {
				t.Patch.Write(field(e, ent, d, i), v)
			}
		}
	case partable.ShapeSwitch:
		t.Patch.Write(patch.Field{Offset: ent.Addr, Shift: num & 7, Width: 1}, v)
	case partable.ShapePitchbend:
		pb := (v & 0xff) << 8
		t.eachVoice(e, mask, func(_ int, vc *voice.Voice) {
			vc.Pitchbend = pb
		})
	case partable.ShapeNote:
		t.routeNotes(e, mask, uint8(v&0x7f))
	}
}

// SetScaled writes a 16-bit value, down-scaled to the width of the mode.
func (t *Target) SetScaled(num uint8, v uint16, sidMask, ins uint8) {
	t.Set(num, Scale(t.Mode(num), v, Down), sidMask, ins)
}

// Get returns the native value of parameter num from the first voice of the
// fan-out. With shadow set patch memory is read from the shadow image.
// Selections that reach no voice read as 0.
func (t *Target) Get(num, sidMask, ins uint8, shadow bool) uint16 {
	e := t.Patch.Engine()
	ent := partable.Lookup(e, num)
	d := partable.Describe(ent.Mode)
	idx := first(fanMask(e, d.Fan, num, sidMask, ins))
	if idx < 0 {
		return 0
	}

	img := t.Patch.Live()
	if shadow {
		img = t.Patch.Shadow()
	}

	switch d.Shape {
	case partable.ShapeBits:
		return img.Read(field(e, ent, d, idx))
	case partable.ShapeSwitch:
		return img.Read(patch.Field{Offset: ent.Addr, Shift: num & 7, Width: 1})
	case partable.ShapePitchbend:
		if vc := t.voiceFor(e, idx); vc != nil {
			return vc.Pitchbend >> 8
		}
	case partable.ShapeNote:
		if vc := t.voiceFor(e, idx); vc != nil {
			return uint16(vc.Note)
		}
	}
	return 0
}

// GetScaled returns the value of parameter num up-scaled to 16 bits.
func (t *Target) GetScaled(num, sidMask, ins uint8, shadow bool) uint16 {
	return Scale(t.Mode(num), t.Get(num, sidMask, ins, shadow), Up)
}

func field(e patch.Engine, ent partable.Entry, d partable.Descriptor, idx int) patch.Field {
	off := ent.Addr
	switch d.Fan {
	case partable.FanFilter:
		off += uint16(idx) * patch.FilterStride
	case partable.FanVoice, partable.FanSelected, partable.FanAll:
		off += uint16(idx) * e.Stride()
	}
	return patch.Field{Offset: off, Shift: d.Shift, Width: d.Width}
}

// eachVoice visits the voices selected by mask. On Multi the mask selects
// instruments and every voice playing one of them is visited.
func (t *Target) eachVoice(e patch.Engine, mask uint16, fn func(int, *voice.Voice)) {
	if t.Voices == nil {
		return
	}
	for i := range t.Voices.Voices {
		vc := &t.Voices.Voices[i]
		sel := i
		if e == patch.Multi {
			sel = int(vc.Instrument)
		}
		if sel < 16 && mask&(1<<sel) != 0 {
			fn(i, vc)
		}
	}
}

// voiceFor returns the voice read for selection idx.
func (t *Target) voiceFor(e patch.Engine, idx int) *voice.Voice {
	if t.Voices == nil {
		return nil
	}
	if e != patch.Multi {
		return t.Voices.At(idx)
	}
	for i := range t.Voices.Voices {
		if int(t.Voices.Voices[i].Instrument) == idx {
			return &t.Voices.Voices[i]
		}
	}
	return nil
}

func (t *Target) routeNotes(e patch.Engine, mask uint16, note uint8) {
	if t.Notes != nil {
		for i := 0; i < 16; i++ {
			if mask&(1<<i) != 0 {
				t.Notes.RouteNote(i, note)
			}
		}
		return
	}
	t.eachVoice(e, mask, func(_ int, vc *voice.Voice) {
		if note == 0 {
			vc.GateOff()
			return
		}
		vc.Note = note
		vc.GateOn()
	})
}
