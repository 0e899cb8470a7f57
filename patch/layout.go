package patch

// Common header, shared by all engines.
const (
	OffName         = 0x000
	NameLen         = 16
	OffEngine       = 0x010
	OffCustomSwitch = 0x014
	OffKnobs        = 0x018
	KnobStride      = 5
	OffExtPar       = 0x040
	OffFlags        = 0x050
	OffDetune       = 0x051
	OffVolume       = 0x052
	OffPhase        = 0x053
	OffFilter       = 0x054
	FilterStride    = 6
	OffVoices       = 0x060
)

// Filter block, relative to OffFilter + n*FilterStride.
const (
	FilterChnMode  = 0x0
	FilterCutoff   = 0x1
	FilterRes      = 0x3
	FilterKeytrack = 0x4
)

// Engine and instrument flag bits (OffFlags for Lead, InsFlags otherwise).
const (
	FlagLegato = 0
	FlagWTOnly = 1
	FlagSusKey = 2
	FlagPoly   = 3
)

// Voice block, relative to Engine.VoiceAddr. Bassline and Multi blocks start
// with the same sixteen bytes.
const (
	VoiceFlags      = 0x0
	VoiceWaveform   = 0x1
	VoiceAD         = 0x2
	VoiceSR         = 0x3
	VoicePulsewidth = 0x4
	VoiceAccent     = 0x6
	VoiceDelay      = 0x7
	VoiceTranspose  = 0x8
	VoiceFinetune   = 0x9
	VoicePitchrange = 0xa
	VoicePortamento = 0xb
	VoiceArpMode    = 0xc
	VoiceArpSpeed   = 0xd
	VoiceArpGate    = 0xe
)

// Bits of VoiceFlags, VoiceArpMode and VoiceArpSpeed.
const (
	VoiceFlagCTGlide = 1
	ArpEnable        = 0
	ArpSort          = 4
	ArpHold          = 5
	ArpEasyChord     = 7
)

const (
	LeadStride     = 0x10
	BasslineStride = 0x50
	DrumStride     = 10
	MultiStride    = 0x30
)

// Lead engine sections.
const (
	LeadLFO        = 0x0c0
	LeadLFOStride  = 5
	LeadENV        = 0x0e0
	LeadENVStride  = 8
	LeadMod        = 0x100
	LeadModStride  = 8
	LeadModDepth   = 3
	LeadTrigger    = 0x140
	TriggerStride  = 3
	LeadWT         = 0x16c
	WTStride       = 5
	LeadWTSlots    = 4
	WavetableData  = 0x180
	WavetableSize  = 0x80
	TriggerNoteOn  = 0
	TriggerNoteOff = 1
	TriggerWTReset = 8
)

// Bassline voice block extension.
const (
	BassFlags    = 0x10
	BassLFO1     = 0x11
	BassLFO2     = 0x16
	BassENV      = 0x1b
	BassSeqSpeed = 0x28
	BassSeqNum   = 0x29
	BassSeqData  = 0x100
)

// Drum instrument block.
const (
	DrumAssign   = 0x0
	DrumModel    = 0x1
	DrumAD       = 0x2
	DrumSR       = 0x3
	DrumTune     = 0x4
	DrumGate     = 0x5
	DrumSpeed    = 0x6
	DrumPar3     = 0x7
	DrumVelAsg   = 0x8
	DrumSeqSpeed = 0x100
	DrumSeqNum   = 0x101
	DrumSeqLen   = 0x102
)

// Multi instrument block extension.
const (
	InsFlags     = 0x10
	InsVoiceAsg  = 0x11
	InsLFO1      = 0x12
	InsLFO2      = 0x17
	InsENV       = 0x1c
	InsWT        = 0x24
	MultiWTSlots = 6
)

// Envelope block, relative to its section start.
const (
	EnvMode    = 0
	EnvDepthP  = 1
	EnvDepthPW = 2
	EnvDepthF  = 3
	EnvAttack  = 4
	EnvDecay   = 5
	EnvSustain = 6
	EnvRelease = 7
)

// LFO block, relative to its section start.
const (
	LFOMode  = 0
	LFODepth = 1
	LFORate  = 2
	LFODelay = 3
	LFOPhase = 4
)

// Flag returns a one-bit field at byte off.
func Flag(off uint16, bit uint8) Field {
	return Field{Offset: off, Shift: bit, Width: 1}
}

// Byte8 returns a full-byte field at off.
func Byte8(off uint16) Field {
	return Field{Offset: off, Width: 8}
}
