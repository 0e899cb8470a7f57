// Package wavetable steps through stored byte sequences and writes each step
// to a sound parameter.
//
// A Slot is clocked by the BPM clock and restarted by the trigger matrix.
// Every step reads one byte of wavetable memory. Bytes below 0x80 are deltas
// around 0x40 added to the current parameter value, bytes from 0x80 up are
// absolute 7-bit values. Key and modulation control bypass the clock and
// derive the position from the played note or a modulation value.
package wavetable

import (
	"mbsidmcp/par"
	"mbsidmcp/partable"
	"mbsidmcp/patch"
)

// Stopped is the position reported by a oneshot slot that ran past its end.
const Stopped = 0xaa

// Params is the parameter access a slot needs. *par.Target satisfies it.
type Params interface {
	Get(num, sidMask, ins uint8, shadow bool) uint16
	SetScaled(num uint8, v uint16, sidMask, ins uint8)
	Mode(num uint8) partable.Mode
}

// Config is the patch-resident setup of one slot.
type Config struct {
	Speed      uint8 // clocks per step minus one, 0..63
	Left       bool
	Right      bool
	Assign     uint8 // target parameter number, 0 forwards nothing
	Begin      uint8
	End        uint8
	Loop       uint8
	KeyControl bool
	ModControl bool
	Oneshot    bool
}

// ParseConfig decodes the five configuration bytes of a slot.
func ParseConfig(b []byte) Config {
	var raw [patch.WTStride]byte
	copy(raw[:], b)
	return Config{
		Speed:      raw[0] & 0x3f,
		Left:       raw[0]&0x40 != 0,
		Right:      raw[0]&0x80 != 0,
		Assign:     raw[1],
		Begin:      raw[2] & 0x7f,
		KeyControl: raw[2]&0x80 != 0,
		End:        raw[3] & 0x7f,
		ModControl: raw[3]&0x80 != 0,
		Loop:       raw[4] & 0x7f,
		Oneshot:    raw[4]&0x80 != 0,
	}
}

// Bytes encodes c in patch form.
func (c Config) Bytes() [patch.WTStride]byte {
	var b [patch.WTStride]byte
	b[0] = c.Speed & 0x3f
	if c.Left {
		b[0] |= 0x40
	}
	if c.Right {
		b[0] |= 0x80
	}
	b[1] = c.Assign
	b[2] = c.Begin & 0x7f
	if c.KeyControl {
		b[2] |= 0x80
	}
	b[3] = c.End & 0x7f
	if c.ModControl {
		b[3] |= 0x80
	}
	b[4] = c.Loop & 0x7f
	if c.Oneshot {
		b[4] |= 0x80
	}
	return b
}

// SIDMask returns the channel mask steps are written with. A slot with
// neither channel selected writes both.
func (c Config) SIDMask() uint8 {
	var m uint8
	if c.Left {
		m |= 1
	}
	if c.Right {
		m |= 2
	}
	if m == 0 {
		m = 3
	}
	return m
}

// State of a slot.
type State uint8

const (
	Idle    State = iota // never started
	Primed               // restarted, next advance goes to begin
	Running
	Halted // oneshot ran past its end
)

var stateNames = [...]string{"idle", "primed", "running", "stopped"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Input carries the per-tick context of a slot.
type Input struct {
	Note uint8  // played note, for key control
	Mod  uint16 // modulation value, for modulation control
	Ins  uint8  // instrument the slot belongs to
}

// Slot is the runtime state of one wavetable.
type Slot struct {
	Restart bool // set to restart on the next tick
	Clock   bool // set by the BPM clock

	state State
	pos   uint8
	div   uint8
}

// State returns the slot state.
func (s *Slot) State() State {
	return s.state
}

// Position returns the current position, or Stopped.
func (s *Slot) Position() uint8 {
	if s.state == Halted {
		return Stopped
	}
	return s.pos
}

// Tick services pending requests and forwards a step when the position
// moved. It reports whether a step was played.
func (s *Slot) Tick(cfg Config, data []byte, in Input, p Params) bool {
	if cfg.KeyControl || cfg.ModControl {
		s.Restart, s.Clock = false, false
		pos := s.controlled(cfg, in)
		if s.state == Running && pos == s.pos {
			return false
		}
		s.state, s.pos = Running, pos
		s.play(cfg, data, in, p)
		return true
	}

	if s.Restart {
		s.Restart = false
		s.div = 0
		s.state = Primed
	}
	if !s.Clock {
		return false
	}
	s.Clock = false
	if s.state == Halted {
		return false
	}

	s.div++
	if s.div <= cfg.Speed {
		return false
	}
	s.div = 0

	if s.state == Running {
		s.pos++
	} else {
		s.pos = cfg.Begin
		s.state = Running
	}
	if s.pos > cfg.End {
		if cfg.Oneshot {
			s.state = Halted
			return false
		}
		s.pos = cfg.Loop
	}
	s.play(cfg, data, in, p)
	return true
}

func (s *Slot) controlled(cfg Config, in Input) uint8 {
	span := 1
	if cfg.End > cfg.Begin {
		span = int(cfg.End-cfg.Begin) + 1
	}
	var off int
	if cfg.KeyControl {
		off = int(in.Note)
	} else {
		off = int(in.Mod) * span >> 16
	}
	if off >= span {
		off = span - 1
	}
	return cfg.Begin + uint8(off)
}

func (s *Slot) play(cfg Config, data []byte, in Input, p Params) {
	if cfg.Assign == 0 || p == nil {
		return
	}
	var b byte
	if i := int(s.pos & 0x7f); i < len(data) {
		b = data[i]
	}
	num, mask := cfg.Assign, cfg.SIDMask()
	m := p.Mode(num)

	if b >= 0x80 {
		p.SetScaled(num, uint16(b&0x7f)<<9, mask, in.Ins)
		return
	}
	top := int(par.Scale(m, 0xffff, par.Down))
	v := int(p.Get(num, mask, in.Ins, false)) + int(b) - 0x40
	if v < 0 {
		v = 0
	} else if v > top {
		v = top
	}
	p.SetScaled(num, par.Scale(m, uint16(v), par.Up), mask, in.Ins)
}

// Sequencer holds the slots of one engine.
type Sequencer struct {
	Engine patch.Engine
	Slots  []Slot
}

// NewSequencer returns the slots of engine e: four for Lead, one per
// instrument for Multi and none otherwise.
func NewSequencer(e patch.Engine) *Sequencer {
	n := 0
	switch e {
	case patch.Lead:
		n = patch.LeadWTSlots
	case patch.Multi:
		n = patch.MultiWTSlots
	}
	return &Sequencer{Engine: e, Slots: make([]Slot, n)}
}

// ConfigAddr returns the address of the configuration of slot i.
func ConfigAddr(e patch.Engine, i int) uint16 {
	if e == patch.Multi {
		return e.VoiceAddr(i) + patch.InsWT
	}
	return patch.LeadWT + uint16(i*patch.WTStride)
}

// Config reads the configuration of slot i from img.
func (s *Sequencer) Config(img *patch.Image, i int) Config {
	a := ConfigAddr(s.Engine, i)
	var b [patch.WTStride]byte
	for k := range b {
		b[k] = img.Byte(a + uint16(k))
	}
	return ParseConfig(b[:])
}

// Restart requests a restart of slot i.
func (s *Sequencer) Restart(i int) {
	if i >= 0 && i < len(s.Slots) {
		s.Slots[i].Restart = true
	}
}

// Clock requests a clock step on every slot.
func (s *Sequencer) Clock() {
	for i := range s.Slots {
		s.Slots[i].Clock = true
	}
}

// Tick ticks every slot against the live patch. input supplies the
// per-slot context and may be nil.
func (s *Sequencer) Tick(st *patch.Store, p Params, input func(slot int) Input) {
	img := st.Live()
	data := img[patch.WavetableData : patch.WavetableData+patch.WavetableSize]
	for i := range s.Slots {
		var in Input
		if input != nil {
			in = input(i)
		}
		if s.Engine == patch.Multi {
			in.Ins = uint8(i)
		}
		s.Slots[i].Tick(s.Config(img, i), data, in, p)
	}
}
