// Package engine runs the sound core on a single goroutine.
//
// MIDI callbacks and tools never touch the patch or the voices directly.
// They post events, which Run applies one at a time between control-rate
// ticks and BPM clocks. Post never blocks: a full queue drops the event and
// counts it. Do runs a function on the engine goroutine and waits for it,
// for callers that need a consistent read.
package engine

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"mbsidmcp/dispatch"
	"mbsidmcp/par"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
	"mbsidmcp/wavetable"
)

// Kind identifies an event.
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
	PitchBend
	ProgramChange
	Clock // MIDI timing clock
	SetParam
	LoadPatch
	SyncShadow
	exec
)

// Event is one unit of work for the engine goroutine.
type Event struct {
	Kind    Kind
	Channel uint8
	A, B    uint8  // note and velocity, controller and value, program, or parameter number
	Value   uint16 // pitch bend (14-bit) or parameter value
	SIDMask uint8
	Ins     uint8
	Data    []byte // patch image for LoadPatch

	fn func(*Core)
}

// Options configure a Core.
type Options struct {
	QueueSize     int
	UpdateHz      int
	BPM           float64
	ExternalClock bool // follow MIDI clock instead of the internal BPM clock
	Channels      []uint8
	Splits        [][2]uint8
	DrumBase      uint8
	CC            map[uint8]uint8
	Patches       dispatch.PatchSource // read off the engine goroutine
	Observer      dispatch.Trigger     // also receives gate events; must not block
}

const (
	defaultQueue  = 256
	defaultUpdate = 500
	defaultBPM    = 120
	ppqn          = 24
	programQueue  = 4
)

// Core owns the live patch and all runtime state.
type Core struct {
	Patch    *patch.Store
	Target   *par.Target
	Dispatch *dispatch.Dispatcher
	WT       *wavetable.Sequencer

	opts     Options
	events   chan Event
	programs chan program
	dropped  atomic.Uint64
}

type program struct{ bank, number uint8 }

// New builds a core around store.
func New(store *patch.Store, opts Options) *Core {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueue
	}
	if opts.UpdateHz <= 0 {
		opts.UpdateHz = defaultUpdate
	}
	if opts.BPM <= 0 {
		opts.BPM = defaultBPM
	}

	c := &Core{
		Patch:    store,
		opts:     opts,
		events:   make(chan Event, opts.QueueSize),
		programs: make(chan program, programQueue),
	}
	c.Target = &par.Target{Patch: store, Voices: voice.NewBank(store.Engine())}
	c.Dispatch = dispatch.New(c.Target, c)
	c.Dispatch.CC = opts.CC
	c.Dispatch.Channels = opts.Channels
	c.Dispatch.Splits = opts.Splits
	if opts.DrumBase != 0 {
		c.Dispatch.DrumBase = opts.DrumBase
	}
	c.reset()
	return c
}

func (c *Core) reset() {
	c.Dispatch.Reset()
	c.WT = wavetable.NewSequencer(c.Patch.Engine())
}

// Post queues ev without blocking. It reports false when the queue was
// full and the event dropped.
func (c *Core) Post(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("[engine] event queue full, %d events dropped", n)
		}
		return false
	}
}

// Dropped returns the number of events lost to a full queue.
func (c *Core) Dropped() uint64 {
	return c.dropped.Load()
}

// Do runs fn on the engine goroutine and waits until it returned.
func (c *Core) Do(ctx context.Context, fn func(*Core)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	ev := Event{Kind: exec, fn: func(c *Core) {
		defer close(done)
		fn(c)
	}}
	select {
	case c.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies events and drives the control-rate tick and the BPM clock
// until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	tick := time.NewTicker(time.Second / time.Duration(c.opts.UpdateHz))
	defer tick.Stop()

	var clock <-chan time.Time
	if !c.opts.ExternalClock {
		t := time.NewTicker(ClockPeriod(c.opts.BPM))
		defer t.Stop()
		clock = t.C
	}

	if c.opts.Patches != nil {
		go c.fetchPrograms(ctx)
	}

	log.Printf("[engine] running %s engine at %d Hz", c.Patch.Engine(), c.opts.UpdateHz)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.Handle(ev)
		case <-clock:
			c.Clock()
		case <-tick.C:
			c.Step()
		}
	}
}

// ClockPeriod returns the interval of one MIDI clock at bpm.
func ClockPeriod(bpm float64) time.Duration {
	if bpm <= 0 {
		bpm = defaultBPM
	}
	return time.Duration(float64(time.Minute) / (bpm * ppqn))
}

// Handle applies one event. Only the engine goroutine may call it while
// Run is active.
func (c *Core) Handle(ev Event) {
	d := c.Dispatch
	switch ev.Kind {
	case NoteOn:
		d.NoteOn(ev.Channel, ev.A, ev.B)
	case NoteOff:
		d.NoteOff(ev.Channel, ev.A)
	case ControlChange:
		d.ControlChange(ev.Channel, ev.A, ev.B)
	case PitchBend:
		d.PitchBend(ev.Channel, ev.Value)
	case ProgramChange:
		if c.opts.Patches == nil {
			return
		}
		if bank, num, ok := d.Program(ev.Channel, ev.A); ok {
			select {
			case c.programs <- program{bank, num}:
			default:
			}
		}
	case Clock:
		if c.opts.ExternalClock {
			c.Clock()
		}
	case SetParam:
		c.Target.Set(ev.A, ev.Value, ev.SIDMask, ev.Ins)
	case LoadPatch:
		d.Load(ev.Data)
		c.loaded()
	case SyncShadow:
		c.Patch.SyncShadow()
	case exec:
		ev.fn(c)
	}
}

// fetchPrograms reads the patches of program changes and posts them back
// as LoadPatch events.
func (c *Core) fetchPrograms(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-c.programs:
			data, ok := c.opts.Patches.Patch(p.bank, p.number)
			if !ok {
				continue
			}
			if !c.Post(Event{Kind: LoadPatch, Data: data}) {
				log.Printf("[engine] program %d dropped", p.number+1)
			}
		}
	}
}

func (c *Core) loaded() {
	c.WT = wavetable.NewSequencer(c.Patch.Engine())
	log.Printf("[engine] loaded %s patch %q", c.Patch.Engine(), c.Patch.Live().Name())
}

// Clock advances the wavetables and arpeggiators by one MIDI clock.
func (c *Core) Clock() {
	c.WT.Clock()
	c.Dispatch.ArpClock()
}

// Step runs one control-rate update.
func (c *Core) Step() {
	c.WT.Tick(c.Patch, c.Target, c.wtInput)
	c.Dispatch.DrumTick()
}

func (c *Core) wtInput(slot int) wavetable.Input {
	in := wavetable.Input{Mod: c.Dispatch.Mod}
	want := 0
	if c.WT.Engine == patch.Multi {
		want = slot
	}
	for _, v := range c.Target.Voices.Voices {
		if int(v.Instrument) == want && v.Active {
			in.Note = v.Note
			break
		}
	}
	return in
}

// Voices returns a copy of the voice states. Call it from the engine
// goroutine, for example inside Do.
func (c *Core) Voices() []voice.Voice {
	return append([]voice.Voice(nil), c.Target.Voices.Voices...)
}

// NoteOn fires the Note On row of the trigger matrix for sound voice v.
func (c *Core) NoteOn(v int, note, velocity uint8) {
	c.trigger(v, patch.TriggerNoteOn)
	if c.opts.Observer != nil {
		c.opts.Observer.NoteOn(v, note, velocity)
	}
}

// NoteOff fires the Note Off row of the trigger matrix for sound voice v.
func (c *Core) NoteOff(v int) {
	c.trigger(v, patch.TriggerNoteOff)
	if c.opts.Observer != nil {
		c.opts.Observer.NoteOff(v)
	}
}

// trigger restarts the wavetables selected by a trigger matrix row. Lead
// rows are 24-bit masks with WT1-4 at bits 8-11; a Multi instrument always
// restarts its own wavetable on Note On.
func (c *Core) trigger(v, row int) {
	switch c.Patch.Engine() {
	case patch.Lead:
		off := uint16(patch.LeadTrigger + row*patch.TriggerStride)
		mask := c.Patch.Read(patch.Field{Offset: off, Width: 16})
		for i := 0; i < patch.LeadWTSlots; i++ {
			if mask&(1<<(patch.TriggerWTReset+i)) != 0 {
				c.WT.Restart(i)
			}
		}
	case patch.Multi:
		if row == patch.TriggerNoteOn {
			if vc := c.Target.Voices.At(v); vc != nil {
				c.WT.Restart(int(vc.Instrument))
			}
		}
	}
}
