package dispatch

import (
	"reflect"
	"testing"

	"mbsidmcp/par"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
	"mbsidmcp/wavetable"
)

type event struct {
	on    bool
	voice int
	note  uint8
}

type recorder struct{ events []event }

func (r *recorder) NoteOn(v int, note, vel uint8) {
	r.events = append(r.events, event{true, v, note})
}

func (r *recorder) NoteOff(v int) {
	r.events = append(r.events, event{false, v, 0})
}

func (r *recorder) of(v int) []event {
	var out []event
	for _, e := range r.events {
		if e.voice == v {
			out = append(out, e)
		}
	}
	return out
}

func newDispatcher(e patch.Engine) (*Dispatcher, *recorder) {
	t := &par.Target{Patch: patch.New(e), Voices: voice.NewBank(e)}
	r := &recorder{}
	return New(t, r), r
}

func setBit(d *Dispatcher, off uint16, bit uint8) {
	d.Target.Patch.Write(patch.Flag(off, bit), 1)
}

func TestRetriggerOnReleaseOfLowerNote(t *testing.T) {
	d, r := newDispatcher(patch.Bassline)
	d.Channels = []uint8{0, 1}
	d.Reset()
	v := d.Target.Voices.At(0)

	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 90)
	d.NoteOff(0, 60)
	if !v.Active || v.Note != 64 {
		t.Fatalf("after releasing 60: %+v", *v)
	}
	d.NoteOff(0, 64)

	want := []event{{true, 0, 60}, {true, 0, 64}, {true, 0, 64}, {false, 0, 0}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("events %v, want %v", r.events, want)
	}
	if v.Active {
		t.Fatal("gate still open")
	}
	if d.Target.Voices.At(1).Active {
		t.Fatal("second bassline voice played")
	}
}

func TestLegatoChordRelease(t *testing.T) {
	for _, legato := range []bool{true, false} {
		d, r := newDispatcher(patch.Lead)
		if legato {
			setBit(d, patch.OffFlags, patch.FlagLegato)
		}
		v := d.Target.Voices.At(0)

		for _, n := range []uint8{60, 64, 67} {
			d.NoteOn(0, n, 100)
		}
		v.TakeGateRequests()

		for _, n := range []uint8{67, 64} {
			d.NoteOff(0, n)
			if !v.Active {
				t.Fatalf("legato=%v: gate closed after releasing %d", legato, n)
			}
			clear, set := v.TakeGateRequests()
			if legato && (clear || set) {
				t.Fatalf("legato=%v: gate requests after releasing %d", legato, n)
			}
			if !legato && !(clear && set) {
				t.Fatalf("legato=%v: no retrigger after releasing %d", legato, n)
			}
		}
		d.NoteOff(0, 60)

		want := []event{
			{true, 0, 60}, {true, 0, 64}, {true, 0, 67},
			{true, 0, 64}, {true, 0, 60},
			{false, 0, 0},
		}
		if got := r.of(0); !reflect.DeepEqual(got, want) {
			t.Fatalf("legato=%v: voice 0 events %v, want %v", legato, got, want)
		}
		if v.Active {
			t.Fatalf("legato=%v: gate open after last release", legato)
		}
		if len(r.of(5)) != len(want) {
			t.Fatalf("legato=%v: lead voices diverged", legato)
		}
	}
}

func TestLegatoKeepsGate(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	setBit(d, patch.OffFlags, patch.FlagLegato)
	v := d.Target.Voices.At(2)
	d.NoteOn(0, 60, 100)
	v.TakeGateRequests()
	d.NoteOn(0, 62, 100)
	if clear, set := v.TakeGateRequests(); clear || set || v.Note != 62 {
		t.Fatalf("legato note on: clear=%v set=%v note=%d", clear, set, v.Note)
	}
}

func TestWavetableOnlyLeavesGate(t *testing.T) {
	d, r := newDispatcher(patch.Lead)
	setBit(d, patch.OffFlags, patch.FlagWTOnly)
	d.NoteOn(0, 60, 100)
	v := d.Target.Voices.At(0)
	if v.Active || v.Note != 60 || v.WTStack[0] != 60 {
		t.Fatalf("wt-only voice %+v", *v)
	}
	if len(r.of(0)) != 1 {
		t.Fatal("trigger not fired")
	}
}

func TestVelocityZeroIsNoteOff(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 60, 0)
	if d.Target.Voices.At(0).Active || len(d.Held(0)) != 0 {
		t.Fatal("velocity 0 did not release")
	}
}

func TestSplitAndChannel(t *testing.T) {
	d, _ := newDispatcher(patch.Bassline)
	d.Splits = [][2]uint8{{0, 59}, {60, 127}}
	d.Reset()
	d.NoteOn(0, 40, 100)
	d.NoteOn(0, 70, 100)
	d.NoteOn(5, 41, 100)
	if got := d.Target.Voices.At(0).Note; got != 40 {
		t.Fatalf("lower voice note %d", got)
	}
	if got := d.Target.Voices.At(1).Note; got != 70 {
		t.Fatalf("upper voice note %d", got)
	}
	if !reflect.DeepEqual(d.Held(0), []uint8{40}) {
		t.Fatalf("held %v", d.Held(0))
	}
}

func enableArp(d *Dispatcher, mode, speed byte) {
	base := d.Engine().VoiceAddr(0)
	d.Target.Patch.Live()[base+patch.VoiceArpMode] = mode | 1<<patch.ArpEnable
	d.Target.Patch.Live()[base+patch.VoiceArpSpeed] = speed
}

func arpNotes(d *Dispatcher, clocks int) []uint8 {
	var out []uint8
	for i := 0; i < clocks; i++ {
		d.ArpClock()
		out = append(out, d.Target.Voices.At(0).Note)
	}
	return out
}

func TestArpSteps(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	enableArp(d, 0, 1)
	d.NoteOn(0, 67, 100)
	d.NoteOn(0, 60, 100)
	if got := d.Target.Voices.At(0).Note; got != 67 {
		t.Fatalf("first arp note %d", got)
	}
	if got := arpNotes(d, 4); !reflect.DeepEqual(got, []uint8{67, 60, 60, 67}) {
		t.Fatalf("arp notes %v", got)
	}
	if len(d.Held(0)) != 0 {
		t.Fatal("arp notes went to the priority stack")
	}

	d.NoteOff(0, 67)
	d.NoteOff(0, 60)
	if d.MIDI[0].ArpRunning() || d.Target.Voices.At(0).Active {
		t.Fatal("arp still running after release")
	}
}

func TestArpSorted(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	enableArp(d, 1<<patch.ArpSort, 0)
	for _, n := range []uint8{67, 60, 64} {
		d.NoteOn(0, n, 100)
	}
	if got := arpNotes(d, 3); !reflect.DeepEqual(got, []uint8{64, 67, 60}) {
		t.Fatalf("sorted arp %v", got)
	}
}

func TestArpHold(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	enableArp(d, 1<<patch.ArpHold, 0)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 100)
	d.NoteOff(0, 60)
	d.NoteOff(0, 64)
	if !d.MIDI[0].ArpRunning() || d.MIDI[0].Arp.Len() != 2 {
		t.Fatal("hold arp stopped on release")
	}
	d.NoteOn(0, 72, 100)
	if got := arpNotes(d, 2); !reflect.DeepEqual(got, []uint8{72, 72}) {
		t.Fatalf("new chord %v", got)
	}
}

func TestArpEasyChord(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	enableArp(d, 0, 1<<patch.ArpEasyChord)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 100)
	d.NoteOff(0, 60)
	if d.MIDI[0].Arp.Len() != 2 || !d.MIDI[0].ArpRunning() {
		t.Fatal("released note dropped before the next key")
	}

	d.NoteOn(0, 67, 100)
	items := d.MIDI[0].Arp.Items()
	if len(items) != 2 || items[0].Note != 64 || items[1].Note != 67 {
		t.Fatalf("after next key %v", items)
	}

	d.NoteOff(0, 64)
	d.NoteOff(0, 67)
	if !d.MIDI[0].ArpRunning() || !d.Target.Voices.At(0).Active {
		t.Fatal("arp stopped with all keys released")
	}
	if d.MIDI[0].Arp.Len() != 2 {
		t.Fatal("released notes purged before the next key")
	}
	if got := arpNotes(d, 2); !reflect.DeepEqual(got, []uint8{64, 67}) && !reflect.DeepEqual(got, []uint8{67, 64}) {
		t.Fatalf("released chord played %v", got)
	}
	d.NoteOn(0, 50, 100)
	if d.MIDI[0].Arp.Len() != 1 || !d.MIDI[0].ArpRunning() {
		t.Fatal("new chord did not replace released notes")
	}
}

func TestMultiPoly(t *testing.T) {
	d, r := newDispatcher(patch.Multi)
	setBit(d, patch.Multi.VoiceAddr(0)+patch.InsFlags, patch.FlagPoly)

	for _, n := range []uint8{60, 64, 67} {
		d.NoteOn(0, n, 100)
	}
	playing := map[uint8]int{}
	for i, v := range d.Target.Voices.Voices {
		if v.Active {
			if v.Instrument != 0 {
				t.Fatalf("voice %d plays instrument %d", i, v.Instrument)
			}
			playing[v.Note] = i
		}
	}
	if len(playing) != 3 {
		t.Fatalf("poly voices %v", playing)
	}

	d.NoteOff(0, 64)
	if d.Target.Voices.At(playing[64]).Active {
		t.Fatal("released voice still gated")
	}
	if !d.Target.Voices.At(playing[60]).Active || !d.Target.Voices.At(playing[67]).Active {
		t.Fatal("poly release touched other notes")
	}
	offs := 0
	for _, e := range r.events {
		if !e.on {
			offs++
		}
	}
	if offs != 1 {
		t.Fatalf("%d note offs", offs)
	}

	d.NoteOn(1, 50, 100)
	var mono *voice.Voice
	for i := range d.Target.Voices.Voices {
		if v := &d.Target.Voices.Voices[i]; v.Active && v.Note == 50 {
			mono = v
		}
	}
	if mono == nil || mono.Instrument != 1 {
		t.Fatal("mono instrument got no voice")
	}
	d.NoteOn(1, 52, 100)
	if mono.Note != 52 {
		t.Fatal("mono instrument took a second voice")
	}
}

func TestDrumNotes(t *testing.T) {
	d, r := newDispatcher(patch.Drum)
	base := patch.Drum.VoiceAddr(5)
	d.Target.Patch.Live()[base+patch.DrumModel] = 0
	d.Target.Patch.Live()[base+patch.DrumSpeed] = 127

	d.NoteOn(0, DefaultDrumBase+5, 100)
	d.NoteOn(0, 20, 100)
	v := d.Target.Voices.At(5)
	if !v.Active || !reflect.DeepEqual(r.events, []event{{true, 5, DefaultDrumBase + 5}}) {
		t.Fatalf("drum events %v", r.events)
	}

	d.DrumTick()
	first := wavetable.Models[0].Steps[0]
	if v.Note != first.Note || v.Wave != first.Wave {
		t.Fatalf("drum step note %#x wave %#x", v.Note, v.Wave)
	}
	d.DrumTick()
	if v.Note != wavetable.Models[0].Steps[1].Note {
		t.Fatal("drum model did not advance")
	}

	d.NoteOff(0, DefaultDrumBase+5)
	if v.Active {
		t.Fatal("drum still gated")
	}
}

func TestControlChange(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	d.CC = map[uint8]uint8{74: 0x04}
	d.ControlChange(0, 74, 127)
	if got := d.Target.Get(0x04, 2, 0, false); got != 0xfe0 {
		t.Fatalf("cutoff %#x", got)
	}
	d.ControlChange(0, 1, 64)
	if d.Mod != 0x8000 {
		t.Fatalf("mod wheel %#x", d.Mod)
	}

	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 62, 100)
	d.ControlChange(0, 123, 0)
	if d.Target.Voices.At(0).Active || len(d.Held(0)) != 0 {
		t.Fatal("all notes off left notes playing")
	}
}

func TestPitchBend(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	d.PitchBend(0, 0x3fff)
	for i, v := range d.Target.Voices.Voices {
		if v.Pitchbend != 0xfffc {
			t.Fatalf("voice %d pitchbend %#x", i, v.Pitchbend)
		}
	}
	d.PitchBend(3, 0)
	if d.Target.Voices.At(0).Pitchbend != 0xfffc {
		t.Fatal("bend on another channel applied")
	}
}

func TestProgramAndLoad(t *testing.T) {
	d, _ := newDispatcher(patch.Lead)
	if _, _, ok := d.Program(5, 7); ok {
		t.Fatal("program change on an unused channel resolved")
	}
	d.ControlChange(0, 0, 2)
	bank, prog, ok := d.Program(0, 0x87)
	if !ok || bank != 2 || prog != 7 {
		t.Fatalf("resolved bank %d program %d %v", bank, prog, ok)
	}

	img := make([]byte, patch.Size)
	img[patch.OffEngine] = byte(patch.Drum)
	img[patch.OffVolume] = 0x55
	d.Load(img)
	if d.Engine() != patch.Drum || d.Target.Voices.Len() != 16 {
		t.Fatalf("engine %v with %d voices", d.Engine(), d.Target.Voices.Len())
	}
	if d.Target.Patch.Shadow().Byte(patch.OffVolume) != 0x55 {
		t.Fatal("shadow not synchronised")
	}
}

func TestNoteRouteThroughDispatcher(t *testing.T) {
	d, r := newDispatcher(patch.Lead)
	d.Target.Set(0x7d, 60, 1, 0)
	v := d.Target.Voices.At(0)
	if !v.Active || v.Note != 60 {
		t.Fatalf("routed voice %+v", *v)
	}
	d.Target.Set(0x7d, 0, 1, 0)
	if v.Active {
		t.Fatal("note 0 did not release")
	}
	want := []event{{true, 0, 60}, {false, 0, 0}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("events %v", r.events)
	}

	m, _ := newDispatcher(patch.Multi)
	m.Target.Set(0x93, 48, 0, 0)
	found := false
	for _, v := range m.Target.Voices.Voices {
		if v.Active && v.Note == 48 && v.Instrument == 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("multi note route did not play instrument 1")
	}
}
