package wavetable

import (
	"testing"

	"mbsidmcp/par"
	"mbsidmcp/partable"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
)

type call struct {
	num  uint8
	v    uint16
	mask uint8
	ins  uint8
}

type fakeParams struct {
	mode  partable.Mode
	value uint16
	calls []call
}

func (f *fakeParams) Get(num, sidMask, ins uint8, shadow bool) uint16 { return f.value }
func (f *fakeParams) Mode(num uint8) partable.Mode { return f.mode }
func (f *fakeParams) SetScaled(num uint8, v uint16, sidMask, ins uint8) {
	f.calls = append(f.calls, call{num, v, sidMask, ins})
}

func clockTicks(s *Slot, cfg Config, data []byte, p Params, n int) []uint8 {
	var pos []uint8
	for i := 0; i < n; i++ {
		s.Clock = true
		s.Tick(cfg, data, Input{}, p)
		pos = append(pos, s.Position())
	}
	return pos
}

func TestLoopingSequence(t *testing.T) {
	cfg := Config{Assign: 0x01, Begin: 0, End: 3, Loop: 0}
	data := []byte{0x80, 0x81, 0x82, 0x83}
	p := &fakeParams{mode: partable.ModeValue7}

	var s Slot
	got := clockTicks(&s, cfg, data, p, 5)
	want := []uint8{0, 1, 2, 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions %v, want %v", got, want)
		}
	}
	if len(p.calls) != 5 {
		t.Fatalf("%d parameter writes, want 5", len(p.calls))
	}
	if p.calls[3].v != 3<<9 || p.calls[4].v != 0 {
		t.Fatalf("values %+v", p.calls)
	}
}

func TestOneshotLatchesStopped(t *testing.T) {
	cfg := Config{Assign: 0x01, Begin: 0, End: 2, Oneshot: true}
	data := []byte{0x90, 0x91, 0x92}
	p := &fakeParams{mode: partable.ModeValue7}

	var s Slot
	got := clockTicks(&s, cfg, data, p, 4)
	if got[2] != 2 || got[3] != Stopped || s.State() != Halted {
		t.Fatalf("positions %v state %v", got, s.State())
	}
	calls := len(p.calls)
	for _, pos := range clockTicks(&s, cfg, data, p, 20) {
		if pos != Stopped {
			t.Fatalf("stopped slot moved to %d", pos)
		}
	}
	if len(p.calls) != calls {
		t.Fatal("stopped slot wrote parameters")
	}

	s.Restart = true
	if pos := clockTicks(&s, cfg, data, p, 1)[0]; pos != 0 {
		t.Fatalf("after restart position %d", pos)
	}
	if len(p.calls) != calls+1 {
		t.Fatal("restart did not resume writing")
	}
}

func TestSpeedDivider(t *testing.T) {
	cfg := Config{Speed: 2, Begin: 5, End: 9}
	var s Slot
	got := clockTicks(&s, cfg, nil, nil, 7)
	want := []uint8{0, 0, 5, 5, 5, 6, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions %v, want %v", got, want)
		}
	}

	s.Restart = true
	s.Tick(cfg, nil, Input{}, nil)
	if s.State() != Primed {
		t.Fatalf("state after restart without clock: %v", s.State())
	}
	if got := clockTicks(&s, cfg, nil, nil, 3); got[2] != 5 {
		t.Fatalf("restart did not return to begin: %v", got)
	}
}

func TestStepValues(t *testing.T) {
	tests := []struct {
		name  string
		b     byte
		value uint16
		want  uint16
	}{
		{"absolute", 0x85, 0x33, 5 << 9},
		{"relative up", 0x45, 0x10, 0x15 << 9},
		{"relative down", 0x3e, 0x10, 0x0e << 9},
		{"clamp low", 0x00, 0x10, 0},
		{"clamp high", 0x50, 0x7e, 0x7f << 9},
	}
	for _, tt := range tests {
		p := &fakeParams{mode: partable.ModeValue7, value: tt.value}
		var s Slot
		s.Clock = true
		s.Tick(Config{Assign: 0x01, Right: true}, []byte{tt.b}, Input{Ins: 2}, p)
		if len(p.calls) != 1 {
			t.Fatalf("%s: %d writes", tt.name, len(p.calls))
		}
		c := p.calls[0]
		if c.v != tt.want || c.mask != 2 || c.ins != 2 || c.num != 0x01 {
			t.Errorf("%s: %+v, want value %#x", tt.name, c, tt.want)
		}
	}
}

func TestUnassignedSlotAdvancesSilently(t *testing.T) {
	p := &fakeParams{mode: partable.ModeValue7}
	var s Slot
	got := clockTicks(&s, Config{End: 1}, []byte{0x80, 0x81}, p, 3)
	if got[2] != 0 || len(p.calls) != 0 {
		t.Fatalf("positions %v, writes %d", got, len(p.calls))
	}
}

func TestKeyAndModControl(t *testing.T) {
	p := &fakeParams{mode: partable.ModeValue7}
	data := make([]byte, 0x80)
	cfg := Config{Assign: 0x01, Begin: 0x10, End: 0x1f, KeyControl: true}

	var s Slot
	s.Clock = true
	s.Tick(cfg, data, Input{Note: 3}, p)
	if s.Position() != 0x13 || s.Clock {
		t.Fatalf("key position %#x, clock pending %v", s.Position(), s.Clock)
	}
	if s.Tick(cfg, data, Input{Note: 3}, p) {
		t.Fatal("unchanged note played a step")
	}
	s.Tick(cfg, data, Input{Note: 40}, p)
	if s.Position() != 0x1f {
		t.Fatalf("key position not clamped: %#x", s.Position())
	}

	mod := Config{Assign: 0x01, Begin: 0, End: 7, ModControl: true}
	var m Slot
	m.Tick(mod, data, Input{Mod: 0x8000}, p)
	if m.Position() != 4 {
		t.Fatalf("mod position %d", m.Position())
	}
	m.Tick(mod, data, Input{Mod: 0xffff}, p)
	if m.Position() != 7 {
		t.Fatalf("mod position %d", m.Position())
	}
	if len(p.calls) != 4 {
		t.Fatalf("%d writes, want 4", len(p.calls))
	}
}

func TestConfigBytes(t *testing.T) {
	raw := []byte{0xc5, 0x64, 0x81, 0x82, 0x83}
	c := ParseConfig(raw)
	want := Config{Speed: 5, Left: true, Right: true, Assign: 0x64, Begin: 1, KeyControl: true,
		End: 2, ModControl: true, Loop: 3, Oneshot: true}
	if c != want {
		t.Fatalf("parsed %+v", c)
	}
	if b := c.Bytes(); string(b[:]) != string(raw) {
		t.Fatalf("encoded % x", b)
	}
	if (Config{}).SIDMask() != 3 || (Config{Left: true}).SIDMask() != 1 {
		t.Fatal("SID mask")
	}
}

func TestSequencerWritesLeadPatch(t *testing.T) {
	st := patch.New(patch.Lead)
	tg := &par.Target{Patch: st, Voices: voice.NewBank(patch.Lead)}
	cfg := Config{Left: true, Assign: 0x64, Begin: 0, End: 1, Loop: 0}
	b := cfg.Bytes()
	copy(st.Live()[patch.LeadWT:], b[:])
	st.Live()[patch.WavetableData] = 0x85
	st.Live()[patch.WavetableData+1] = 0x8c

	seq := NewSequencer(patch.Lead)
	if len(seq.Slots) != patch.LeadWTSlots {
		t.Fatalf("%d slots", len(seq.Slots))
	}
	seq.Restart(0)
	seq.Clock()
	seq.Tick(st, tg, nil)

	for v := 0; v < 6; v++ {
		want := uint16(5)
		if v >= 3 {
			want = 0
		}
		got := st.Read(patch.Field{Offset: st.Engine().VoiceAddr(v) + patch.VoiceTranspose, Width: 7})
		if got != want {
			t.Errorf("voice %d transpose %d, want %d", v, got, want)
		}
	}

	seq.Clock()
	seq.Tick(st, tg, nil)
	if got := tg.Get(0x64, 1, 0, false); got != 0x0c {
		t.Fatalf("second step transpose %d", got)
	}
}

func TestMultiSlotsCarryInstrument(t *testing.T) {
	st := patch.New(patch.Multi)
	cfg := Config{Assign: 0x31, End: 0}
	for i := 0; i < patch.MultiWTSlots; i++ {
		b := cfg.Bytes()
		copy(st.Live()[ConfigAddr(patch.Multi, i):], b[:])
	}
	st.Live()[patch.WavetableData] = 0x81
	p := &fakeParams{mode: partable.ModeVoice4L}

	seq := NewSequencer(patch.Multi)
	seq.Clock()
	seq.Tick(st, p, nil)
	if len(p.calls) != patch.MultiWTSlots {
		t.Fatalf("%d writes", len(p.calls))
	}
	for i, c := range p.calls {
		if int(c.ins) != i {
			t.Fatalf("slot %d wrote instrument %d", i, c.ins)
		}
	}
}

func TestDrumModels(t *testing.T) {
	if len(Models) < 16 {
		t.Fatalf("%d drum models", len(Models))
	}
	seen := map[string]bool{}
	for _, m := range Models {
		if seen[m.Name] || len(m.Steps) == 0 {
			t.Fatalf("bad model %q", m.Name)
		}
		seen[m.Name] = true
	}
}

func TestDrumTick(t *testing.T) {
	var r DrumRuntime
	bd := Models[0]
	for i, want := range bd.Steps {
		step, ok := r.Tick(0, 127)
		if !ok || step != want {
			t.Fatalf("tick %d: %+v %v, want %+v", i, step, ok, want)
		}
	}
	if _, ok := r.Tick(0, 127); ok || r.Position() != -1 {
		t.Fatal("oneshot model kept playing")
	}

	r.Restart()
	if r.Position() != -1 {
		t.Fatal("position before first tick")
	}
	r.Tick(0, 119)
	if _, ok := r.Tick(0, 119); ok {
		t.Fatal("speed 119 stepped after one cycle")
	}
	if step, ok := r.Tick(0, 119); !ok || step != bd.Steps[1] {
		t.Fatalf("speed 119 second step %+v %v", step, ok)
	}

	var loop DrumRuntime
	m := Models[1]
	for i := 0; i < len(m.Steps); i++ {
		loop.Tick(1, 127)
	}
	if step, ok := loop.Tick(1, 127); !ok || step != m.Steps[m.Loop] || loop.Position() != m.Loop {
		t.Fatalf("loop step %+v %v at %d", step, ok, loop.Position())
	}

	var bad DrumRuntime
	if _, ok := bad.Tick(200, 127); ok {
		t.Fatal("unknown model played")
	}
}
