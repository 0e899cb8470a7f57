package wavetable

// Waveform bits of a drum step.
const (
	WaveTri   = 0x01
	WaveSaw   = 0x02
	WavePulse = 0x04
	WaveNoise = 0x08
)

// DrumStep is one step of a drum model.
type DrumStep struct {
	Note uint8
	Wave uint8
}

// DrumModel is a fixed note/waveform sequence played by a drum voice.
type DrumModel struct {
	Name  string
	Steps []DrumStep
	Loop  int // step to continue from after the last one, -1 stops
}

// Models are the compiled-in drum models, indexed by the drum model byte.
var Models = []DrumModel{
	{"BD1", []DrumStep{{0x30, WavePulse}, {0x24, WaveTri}, {0x18, WaveTri}, {0x0c, WaveTri}}, -1},
	{"BD2", []DrumStep{{0x3c, WaveNoise}, {0x24, WavePulse}, {0x1c, WaveTri}, {0x14, WaveTri}}, 3},
	{"BD3", []DrumStep{{0x40, WaveSaw}, {0x28, WaveTri}, {0x1c, WaveTri}}, -1},
	{"SD1", []DrumStep{{0x48, WaveNoise}, {0x3c, WavePulse}, {0x60, WaveNoise}}, 2},
	{"SD2", []DrumStep{{0x50, WaveNoise}, {0x40, WaveTri}, {0x64, WaveNoise}}, 2},
	{"SD3", []DrumStep{{0x44, WavePulse}, {0x6c, WaveNoise}}, 1},
	{"HH1", []DrumStep{{0x7c, WaveNoise}}, 0},
	{"HH2", []DrumStep{{0x70, WaveNoise}, {0x7f, WaveNoise}}, 1},
	{"OH1", []DrumStep{{0x78, WaveNoise}, {0x74, WaveNoise}}, 0},
	{"OH2", []DrumStep{{0x6c, WavePulse}, {0x7c, WaveNoise}}, 1},
	{"Tom1", []DrumStep{{0x3c, WaveNoise}, {0x30, WaveTri}, {0x2c, WaveTri}, {0x28, WaveTri}}, -1},
	{"Tom2", []DrumStep{{0x48, WaveNoise}, {0x3c, WaveTri}, {0x38, WaveTri}, {0x34, WaveTri}}, -1},
	{"Clap", []DrumStep{{0x60, WaveNoise}, {0x00, 0}, {0x60, WaveNoise}, {0x00, 0}, {0x64, WaveNoise}}, -1},
	{"Cowb", []DrumStep{{0x51, WavePulse}, {0x58, WavePulse}}, 0},
	{"Rim", []DrumStep{{0x5c, WavePulse}, {0x4c, WaveTri}}, -1},
	{"Crsh", []DrumStep{{0x74, WaveNoise}, {0x70, WaveNoise}, {0x6c, WaveNoise}}, 2},
	{"Ride", []DrumStep{{0x68, WavePulse | WaveNoise}, {0x7a, WaveNoise}}, 1},
	{"Zap", []DrumStep{{0x7f, WaveSaw}, {0x60, WaveSaw}, {0x40, WaveSaw}, {0x20, WaveSaw}}, -1},
}

// DrumRuntime plays a drum model on one drum voice. It runs off the
// control rate, not the BPM clock.
type DrumRuntime struct {
	started bool
	stopped bool
	pos     int
	div     int
}

// Restart plays the model from its first step on the next tick.
func (r *DrumRuntime) Restart() {
	*r = DrumRuntime{}
}

// Position returns the current step, or -1 before the first tick and after
// a oneshot model finished.
func (r *DrumRuntime) Position() int {
	if !r.started || r.stopped {
		return -1
	}
	return r.pos
}

// Tick advances model by one control-rate cycle. A higher speed steps
// faster: a step lasts (127-speed)>>3 + 1 cycles. It returns the step to
// play when one starts.
func (r *DrumRuntime) Tick(model, speed uint8) (DrumStep, bool) {
	if int(model) >= len(Models) || r.stopped {
		return DrumStep{}, false
	}
	m := &Models[model]
	if len(m.Steps) == 0 {
		return DrumStep{}, false
	}
	if !r.started {
		r.started = true
		return m.Steps[0], true
	}

	r.div++
	if r.div <= int(127-speed&0x7f)>>3 {
		return DrumStep{}, false
	}
	r.div = 0
	r.pos++
	if r.pos >= len(m.Steps) {
		if m.Loop < 0 || m.Loop >= len(m.Steps) {
			r.stopped = true
			return DrumStep{}, false
		}
		r.pos = m.Loop
	}
	return m.Steps[r.pos], true
}
