// Package dispatch maps MIDI events onto sound voices.
//
// Each engine has a fixed number of MIDI voices (one Lead, two Bassline,
// one Drum, six Multi instruments). A MIDI voice listens on one channel and
// key range and keeps a note priority stack. Mono voices follow the top of
// the stack with legato or retrigger handling, poly voices (Lead and Multi
// instruments with the poly flag) allocate sound voices from an LRU queue,
// and arpeggiated voices step through a separate stack on the BPM clock.
//
// Nothing here fails. Events for unknown channels, keys outside every split
// or voices that do not exist are ignored.
package dispatch

import (
	"mbsidmcp/notestack"
	"mbsidmcp/par"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
	"mbsidmcp/wavetable"
)

// DefaultDrumBase is the note that plays drum 0.
const DefaultDrumBase = 36

const (
	ccBankSelect  = 0
	ccModWheel    = 1
	ccAllNotesOff = 123
)

// Trigger is notified about gate events so envelopes, LFOs and wavetables
// can be synchronised.
type Trigger interface {
	NoteOn(voice int, note, velocity uint8)
	NoteOff(voice int)
}

// PatchSource supplies patch images for program changes.
type PatchSource interface {
	Patch(bank, program uint8) ([]byte, bool)
}

// MidiVoice is one MIDI-facing voice.
type MidiVoice struct {
	Channel    uint8 // 0-based
	SplitLower uint8
	SplitUpper uint8
	Stack      *notestack.Stack
	Arp        *notestack.Stack

	arpOn  bool
	arpPos int
	arpDiv int
}

func (mv *MidiVoice) accepts(ch, note uint8) bool {
	return mv.Channel == ch && note >= mv.SplitLower && note <= mv.SplitUpper
}

// ArpRunning reports whether the arpeggiator of the voice is stepping.
func (mv *MidiVoice) ArpRunning() bool {
	return mv.arpOn
}

// Dispatcher routes MIDI events for the engine of its target patch.
type Dispatcher struct {
	Target   *par.Target
	Trigger  Trigger    // may be nil
	Channels []uint8    // per MIDI voice, 0-based; absent entries use defaults
	Splits   [][2]uint8 // per MIDI voice lower/upper key
	CC       map[uint8]uint8
	DrumBase uint8
	Mod      uint16 // modulation wheel, 16-bit

	MIDI []MidiVoice

	engine  patch.Engine
	alloc   *voice.Allocator
	mono    []int
	drums   []wavetable.DrumRuntime
	bank    uint8
	scratch [16]int
}

// New returns a dispatcher for t and installs itself as the note router of
// t. Configuration fields may be changed before calling Reset.
func New(t *par.Target, trig Trigger) *Dispatcher {
	d := &Dispatcher{Target: t, Trigger: trig, DrumBase: DefaultDrumBase}
	t.Notes = d
	d.Reset()
	return d
}

// MidiVoices returns the number of MIDI voices engine e listens with.
func MidiVoices(e patch.Engine) int {
	switch e {
	case patch.Bassline:
		return 2
	case patch.Multi:
		return 6
	default:
		return 1
	}
}

// Reset re-reads the engine and clears every voice, stack and allocation.
func (d *Dispatcher) Reset() {
	e := d.Target.Patch.Engine()
	d.engine = e
	if d.Target.Voices == nil {
		d.Target.Voices = voice.NewBank(e)
	} else {
		d.Target.Voices.Reset(e)
	}

	n := MidiVoices(e)
	d.MIDI = make([]MidiVoice, n)
	d.mono = make([]int, n)
	for i := range d.MIDI {
		ch := uint8(0)
		if e == patch.Multi {
			ch = uint8(i)
		}
		if i < len(d.Channels) {
			ch = d.Channels[i]
		}
		lo, hi := uint8(0), uint8(127)
		if i < len(d.Splits) {
			lo, hi = d.Splits[i][0], d.Splits[i][1]
		}
		d.MIDI[i] = MidiVoice{
			Channel:    ch & 0x0f,
			SplitLower: lo,
			SplitUpper: hi,
			Stack:      notestack.New(notestack.PushTop, false, 0),
			Arp:        notestack.New(notestack.PushBottom, false, 0),
		}
		d.mono[i] = -1
	}

	d.alloc = voice.NewAllocator(d.Target.Voices.Len())
	d.drums = nil
	if e == patch.Drum {
		d.drums = make([]wavetable.DrumRuntime, d.Target.Voices.Len())
	}
}

// Engine returns the engine the dispatcher was last reset for.
func (d *Dispatcher) Engine() patch.Engine {
	return d.engine
}

// Load replaces the patch and resets all runtime state.
func (d *Dispatcher) Load(data []byte) {
	e := patch.Lead
	if len(data) > patch.OffEngine {
		e = patch.Engine(data[patch.OffEngine] & 3)
	}
	d.Target.Patch.Replace(e, data)
	d.Reset()
}

// NoteOn handles a Note On. Velocity 0 is a Note Off.
func (d *Dispatcher) NoteOn(ch, note, vel uint8) {
	if vel == 0 {
		d.NoteOff(ch, note)
		return
	}
	note &= 0x7f
	if d.engine == patch.Drum {
		if i, ok := d.drumIndex(ch, note); ok {
			d.playDrum(i, note, vel)
		}
		return
	}
	for m := range d.MIDI {
		if d.MIDI[m].accepts(ch, note) {
			d.midiNoteOn(m, note, vel&0x7f)
		}
	}
}

// NoteOff handles a Note Off.
func (d *Dispatcher) NoteOff(ch, note uint8) {
	note &= 0x7f
	if d.engine == patch.Drum {
		if i, ok := d.drumIndex(ch, note); ok {
			d.release(i)
		}
		return
	}
	for m := range d.MIDI {
		if d.MIDI[m].accepts(ch, note) {
			d.midiNoteOff(m, note)
		}
	}
}

// ControlChange handles bank select, modulation wheel, all notes off and
// the configured CC to parameter map.
func (d *Dispatcher) ControlChange(ch, cc, val uint8) {
	val &= 0x7f
	switch cc {
	case ccBankSelect:
		d.bank = val
		return
	case ccModWheel:
		d.Mod = uint16(val) << 9
	case ccAllNotesOff:
		d.AllNotesOff(ch)
		return
	}
	num, ok := d.CC[cc]
	if !ok {
		return
	}
	for m := range d.MIDI {
		if d.MIDI[m].Channel == ch {
			d.Target.SetScaled(num, uint16(val)<<9, 3, uint8(m))
		}
	}
}

// PitchBend stores a 14-bit bender value in the voices of every MIDI voice
// on ch.
func (d *Dispatcher) PitchBend(ch uint8, value uint16) {
	pb := (value & 0x3fff) << 2
	for m := range d.MIDI {
		if d.MIDI[m].Channel != ch {
			continue
		}
		for _, sv := range d.voicesOf(m) {
			d.Target.Voices.At(sv).Pitchbend = pb
		}
	}
}

// Program resolves a program change on ch against the last bank select.
// It reports false when no MIDI voice listens on ch. Fetching and loading
// the patch is left to the caller.
func (d *Dispatcher) Program(ch, program uint8) (bank, prog uint8, ok bool) {
	if !d.listens(ch) {
		return 0, 0, false
	}
	return d.bank, program & 0x7f, true
}

// AllNotesOff clears the stacks of every MIDI voice on ch and releases
// their sound voices.
func (d *Dispatcher) AllNotesOff(ch uint8) {
	for m := range d.MIDI {
		mv := &d.MIDI[m]
		if mv.Channel != ch {
			continue
		}
		mv.Stack.Clear()
		mv.Arp.Clear()
		mv.arpOn = false
		for _, sv := range d.voicesOf(m) {
			d.release(sv)
			d.alloc.Release(sv)
		}
		d.mono[m] = -1
	}
}

// RouteNote plays note on a voice (a Multi instrument) on behalf of the
// note parameter route. Note 0 releases.
func (d *Dispatcher) RouteNote(index int, note uint8) {
	note &= 0x7f
	sv := index
	if d.engine == patch.Multi {
		if index < 0 || index >= len(d.MIDI) {
			return
		}
		vs := d.monoVoices(index, note != 0)
		if len(vs) == 0 {
			return
		}
		sv = vs[0]
	}
	v := d.Target.Voices.At(sv)
	if v == nil {
		return
	}
	if note == 0 {
		d.release(sv)
		if d.engine == patch.Multi {
			d.alloc.Release(sv)
			d.mono[index] = -1
		}
		return
	}
	vel := v.Velocity
	if vel == 0 {
		vel = 0x7f
	}
	if d.engine == patch.Drum {
		d.playDrum(sv, note, vel)
		return
	}
	d.voiceNoteOn(sv, note, vel, false, d.flags(int(v.Instrument)))
}

// DrumTick advances the drum models of all gated drum voices by one
// control-rate cycle.
func (d *Dispatcher) DrumTick() {
	if d.engine != patch.Drum {
		return
	}
	img := d.Target.Patch.Live()
	for i := range d.drums {
		v := d.Target.Voices.At(i)
		if v == nil || !v.Active {
			continue
		}
		base := d.engine.VoiceAddr(i)
		model := img.Byte(base+patch.DrumModel) & 0x7f
		speed := img.Byte(base+patch.DrumSpeed) & 0x7f
		if step, ok := d.drums[i].Tick(model, speed); ok {
			v.Note, v.Wave = step.Note, step.Wave
		}
	}
}

// Held returns the notes held by MIDI voice m in priority order.
func (d *Dispatcher) Held(m int) []uint8 {
	if m < 0 || m >= len(d.MIDI) {
		return nil
	}
	var out []uint8
	for _, it := range d.MIDI[m].Stack.Items() {
		out = append(out, it.Note)
	}
	return out
}

type voiceFlags struct {
	legato bool
	wtOnly bool
	susKey bool
	poly   bool
}

func (d *Dispatcher) flags(m int) voiceFlags {
	var off uint16
	switch d.engine {
	case patch.Lead:
		off = patch.OffFlags
	case patch.Bassline:
		off = d.engine.VoiceAddr(m) + patch.BassFlags
	case patch.Multi:
		off = d.engine.VoiceAddr(m) + patch.InsFlags
	default:
		return voiceFlags{}
	}
	b := d.Target.Patch.Byte(off)
	return voiceFlags{
		legato: b&(1<<patch.FlagLegato) != 0,
		wtOnly: b&(1<<patch.FlagWTOnly) != 0,
		susKey: b&(1<<patch.FlagSusKey) != 0,
		poly:   b&(1<<patch.FlagPoly) != 0 && d.engine != patch.Bassline,
	}
}

func (d *Dispatcher) listens(ch uint8) bool {
	for m := range d.MIDI {
		if d.MIDI[m].Channel == ch {
			return true
		}
	}
	return false
}

func (d *Dispatcher) midiNoteOn(m int, note, vel uint8) {
	if a := d.arpConfig(m); a.enabled {
		d.arpNoteOn(m, a, note, vel)
		return
	}
	f := d.flags(m)
	d.MIDI[m].Stack.Push(note, vel)
	if f.poly {
		if sv, _ := d.alloc.Get(m); sv >= 0 {
			d.Target.Voices.At(sv).Instrument = uint8(m)
			d.voiceNoteOn(sv, note, vel, true, f)
		}
		return
	}
	for _, sv := range d.monoVoices(m, true) {
		d.voiceNoteOn(sv, note, vel, !f.legato, f)
	}
}

func (d *Dispatcher) midiNoteOff(m int, note uint8) {
	if a := d.arpConfig(m); a.enabled {
		d.arpNoteOff(m, a, note)
		return
	}
	mv := &d.MIDI[m]
	top, _ := mv.Stack.Top()
	wasTop := top.Note == note
	if !mv.Stack.Pop(note) {
		return
	}

	f := d.flags(m)
	if f.poly {
		for i := range d.Target.Voices.Voices {
			v := &d.Target.Voices.Voices[i]
			if int(v.Instrument) == m && v.Note == note && d.alloc.Busy(i) {
				v.PopWT(note)
				d.release(i)
				d.alloc.Release(i)
			}
		}
		return
	}

	voices := d.monoVoices(m, false)
	for _, sv := range voices {
		d.Target.Voices.At(sv).PopWT(note)
	}
	if next, ok := mv.Stack.Top(); ok {
		for _, sv := range voices {
			d.voiceNoteOn(sv, next.Note, next.Tag, wasTop && !f.legato, f)
		}
		return
	}
	d.releaseMono(m, voices)
}

// voiceNoteOn plays note on sound voice sv. A closed gate is opened; an
// open gate is retriggered when retrig is set and otherwise only changes
// pitch. Wavetable-only voices never touch the gate.
func (d *Dispatcher) voiceNoteOn(sv int, note, vel uint8, retrig bool, f voiceFlags) {
	v := d.Target.Voices.At(sv)
	if v == nil {
		return
	}
	v.Portamento = !f.susKey || v.Active
	v.Note, v.Velocity = note, vel
	if !f.wtOnly {
		switch {
		case !v.Active:
			v.GateOn()
		case retrig:
			v.Retrigger()
		}
	}
	v.PushWT(note)
	if d.Trigger != nil {
		d.Trigger.NoteOn(sv, note, vel)
	}
}

func (d *Dispatcher) release(sv int) {
	v := d.Target.Voices.At(sv)
	if v == nil {
		return
	}
	v.GateOff()
	if d.Trigger != nil {
		d.Trigger.NoteOff(sv)
	}
}

func (d *Dispatcher) releaseMono(m int, voices []int) {
	for _, sv := range voices {
		d.release(sv)
	}
	if d.engine == patch.Multi && d.mono[m] >= 0 {
		d.alloc.Release(d.mono[m])
		d.mono[m] = -1
	}
}

// voicesOf returns every sound voice assigned to MIDI voice m.
func (d *Dispatcher) voicesOf(m int) []int {
	out := d.scratch[:0]
	for i := range d.Target.Voices.Voices {
		if d.engine == patch.Drum || int(d.Target.Voices.Voices[i].Instrument) == m {
			out = append(out, i)
		}
	}
	return out
}

// monoVoices returns the sound voices a mono MIDI voice plays on. Multi
// instruments hold one voice from the allocator, taken when alloc is set.
func (d *Dispatcher) monoVoices(m int, alloc bool) []int {
	if d.engine != patch.Multi {
		return d.voicesOf(m)
	}
	out := d.scratch[:0]
	if sv := d.mono[m]; sv >= 0 && d.alloc.Busy(sv) && d.alloc.Owner(sv) == m {
		return append(out, sv)
	}
	d.mono[m] = -1
	if !alloc {
		return out
	}
	sv, _ := d.alloc.Get(m)
	if sv < 0 {
		return out
	}
	d.Target.Voices.At(sv).Instrument = uint8(m)
	d.mono[m] = sv
	return append(out, sv)
}

func (d *Dispatcher) drumIndex(ch, note uint8) (int, bool) {
	if len(d.MIDI) == 0 || !d.MIDI[0].accepts(ch, note) {
		return 0, false
	}
	i := int(note) - int(d.DrumBase)
	if i < 0 || i >= len(d.drums) {
		return 0, false
	}
	return i, true
}

func (d *Dispatcher) playDrum(i int, note, vel uint8) {
	v := d.Target.Voices.At(i)
	if v == nil || i >= len(d.drums) {
		return
	}
	v.Note, v.Velocity = note, vel
	if v.Active {
		v.Retrigger()
	} else {
		v.GateOn()
	}
	d.drums[i].Restart()
	if d.Trigger != nil {
		d.Trigger.NoteOn(i, note, vel)
	}
}
