package dispatch

import (
	"mbsidmcp/notestack"
	"mbsidmcp/patch"
)

type arpConfig struct {
	enabled bool
	sort    bool
	hold    bool
	easy    bool // easy chord: released notes stay until the next key
	speed   uint8
}

func (d *Dispatcher) arpConfig(m int) arpConfig {
	if d.engine == patch.Drum {
		return arpConfig{}
	}
	base := d.engine.VoiceAddr(m)
	mode := d.Target.Patch.Byte(base + patch.VoiceArpMode)
	spd := d.Target.Patch.Byte(base + patch.VoiceArpSpeed)
	return arpConfig{
		enabled: mode&(1<<patch.ArpEnable) != 0,
		sort:    mode&(1<<patch.ArpSort) != 0,
		hold:    mode&(1<<patch.ArpHold) != 0,
		easy:    spd&(1<<patch.ArpEasyChord) != 0,
		speed:   spd & 0x3f,
	}
}

func (d *Dispatcher) arpNoteOn(m int, a arpConfig, note, vel uint8) {
	mv := &d.MIDI[m]
	st := mv.Arp
	st.Hold = a.hold
	st.Mode = notestack.PushBottom
	if a.sort {
		st.Mode = notestack.Sort
	}
	if a.easy && !a.hold {
		st.PurgeReleased()
	}

	restart := st.Len() == 0 || st.AllReleased()
	st.Push(note, vel)
	if restart || !mv.arpOn {
		mv.arpOn = true
		mv.arpPos, mv.arpDiv = 0, 0
		d.arpStep(m)
	}
}

func (d *Dispatcher) arpNoteOff(m int, a arpConfig, note uint8) {
	mv := &d.MIDI[m]
	st := mv.Arp
	switch {
	case a.hold, a.easy:
		// released notes keep playing until the next key
		st.Release(note)
	default:
		st.Hold = false
		st.Pop(note)
		if st.Len() == 0 {
			d.arpStop(m)
		}
	}
}

// ArpClock advances every running arpeggiator by one BPM clock. A step
// lasts arp speed + 1 clocks.
func (d *Dispatcher) ArpClock() {
	for m := range d.MIDI {
		mv := &d.MIDI[m]
		if !mv.arpOn {
			continue
		}
		a := d.arpConfig(m)
		if !a.enabled {
			d.arpStop(m)
			continue
		}
		mv.arpDiv++
		if mv.arpDiv <= int(a.speed) {
			continue
		}
		mv.arpDiv = 0
		d.arpStep(m)
	}
}

func (d *Dispatcher) arpStep(m int) {
	mv := &d.MIDI[m]
	items := mv.Arp.Items()
	if len(items) == 0 {
		d.arpStop(m)
		return
	}
	if mv.arpPos >= len(items) {
		mv.arpPos = 0
	}
	it := items[mv.arpPos]
	mv.arpPos++

	f := d.flags(m)
	for _, sv := range d.monoVoices(m, true) {
		d.voiceNoteOn(sv, it.Note, it.Tag, true, f)
	}
}

func (d *Dispatcher) arpStop(m int) {
	d.MIDI[m].arpOn = false
	d.releaseMono(m, d.monoVoices(m, false))
}
