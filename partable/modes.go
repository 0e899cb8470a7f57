package partable

// Shape is the storage form of a parameter.
type Shape uint8

const (
	// ShapeNone is never read or written.
	ShapeNone Shape = iota
	// ShapeBits is a bitfield in patch memory.
	ShapeBits
	// ShapeSwitch is one bit of a byte, chosen by the parameter number.
	ShapeSwitch
	// ShapePitchbend bypasses patch memory and writes voice pitchbenders.
	ShapePitchbend
	// ShapeNote bypasses patch memory and plays notes on voices.
	ShapeNote
)

// Fan selects which voices (or filters) a write is propagated to.
type Fan uint8

const (
	// FanNone writes once, at the entry address.
	FanNone Fan = iota
	// FanFilter writes the left and/or right filter, by SID channel mask.
	FanFilter
	// FanVoice uses the engine's voice selection rule on the parameter number.
	FanVoice
	// FanSelected targets the voice or instrument given by the caller.
	FanSelected
	// FanAll targets every voice of the engine.
	FanAll
)

// Descriptor is the complete addressing rule of a mode.
type Descriptor struct {
	Name   string
	Shape  Shape
	Fan    Fan
	Width  uint8 // field width in bits; also the scaling resolution
	Shift  uint8
	Signed bool // centred at half range
}

// Mode indexes the descriptor table.
type Mode uint8

const (
	ModeNOP Mode = iota

	ModeValue6
	ModeValue7
	ModeValue8
	ModeSigned8
	ModeValue16
	ModeFlag0
	ModeFlag1
	ModeFlag2
	ModeFlag3
	ModeFlag7
	ModeSwitch

	ModeFilter4L
	ModeFilter4H
	ModeFilter8
	ModeFilter12

	ModeDirect4L
	ModeDirect4H
	ModeDirect8
	ModeDirect12

	ModeVoice4L
	ModeVoice4H
	ModeVoice5
	ModeVoice6
	ModeVoice7
	ModeVoice8
	ModeVoiceSigned8
	ModeVoice12
	ModeVoiceFlag0
	ModeVoiceFlag1
	ModeVoiceFlag3
	ModeVoiceFlag4
	ModeVoiceFlag5
	ModeVoiceFlag7
	ModePitchbend
	ModeNote

	ModeSel4L
	ModeSel4H
	ModeSel7
	ModeSel8

	ModeAll4L
	ModeAll4H
	ModeAll7
	ModeAll8

	numModes
)

// NumModes is the number of defined modes.
const NumModes = int(numModes)

var descriptors = [numModes]Descriptor{
	ModeNOP: {Name: "nop", Shape: ShapeNone, Width: 16},

	ModeValue6:  {Name: "value6", Shape: ShapeBits, Width: 6},
	ModeValue7:  {Name: "value7", Shape: ShapeBits, Width: 7},
	ModeValue8:  {Name: "value8", Shape: ShapeBits, Width: 8},
	ModeSigned8: {Name: "signed8", Shape: ShapeBits, Width: 8, Signed: true},
	ModeValue16: {Name: "value16", Shape: ShapeBits, Width: 16},
	ModeFlag0:   {Name: "flag0", Shape: ShapeBits, Width: 1, Shift: 0},
	ModeFlag1:   {Name: "flag1", Shape: ShapeBits, Width: 1, Shift: 1},
	ModeFlag2:   {Name: "flag2", Shape: ShapeBits, Width: 1, Shift: 2},
	ModeFlag3:   {Name: "flag3", Shape: ShapeBits, Width: 1, Shift: 3},
	ModeFlag7:   {Name: "flag7", Shape: ShapeBits, Width: 1, Shift: 7},
	ModeSwitch:  {Name: "switch", Shape: ShapeSwitch, Width: 1},

	ModeFilter4L: {Name: "filter4l", Shape: ShapeBits, Fan: FanFilter, Width: 4},
	ModeFilter4H: {Name: "filter4h", Shape: ShapeBits, Fan: FanFilter, Width: 4, Shift: 4},
	ModeFilter8:  {Name: "filter8", Shape: ShapeBits, Fan: FanFilter, Width: 8},
	ModeFilter12: {Name: "filter12", Shape: ShapeBits, Fan: FanFilter, Width: 12},

	ModeDirect4L: {Name: "direct4l", Shape: ShapeBits, Width: 4},
	ModeDirect4H: {Name: "direct4h", Shape: ShapeBits, Width: 4, Shift: 4},
	ModeDirect8:  {Name: "direct8", Shape: ShapeBits, Width: 8},
	ModeDirect12: {Name: "direct12", Shape: ShapeBits, Width: 12},

	ModeVoice4L:      {Name: "voice4l", Shape: ShapeBits, Fan: FanVoice, Width: 4},
	ModeVoice4H:      {Name: "voice4h", Shape: ShapeBits, Fan: FanVoice, Width: 4, Shift: 4},
	ModeVoice5:       {Name: "voice5", Shape: ShapeBits, Fan: FanVoice, Width: 5},
	ModeVoice6:       {Name: "voice6", Shape: ShapeBits, Fan: FanVoice, Width: 6},
	ModeVoice7:       {Name: "voice7", Shape: ShapeBits, Fan: FanVoice, Width: 7},
	ModeVoice8:       {Name: "voice8", Shape: ShapeBits, Fan: FanVoice, Width: 8},
	ModeVoiceSigned8: {Name: "voicesigned8", Shape: ShapeBits, Fan: FanVoice, Width: 8, Signed: true},
	ModeVoice12:      {Name: "voice12", Shape: ShapeBits, Fan: FanVoice, Width: 12},
	ModeVoiceFlag0:   {Name: "voiceflag0", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 0},
	ModeVoiceFlag1:   {Name: "voiceflag1", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 1},
	ModeVoiceFlag3:   {Name: "voiceflag3", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 3},
	ModeVoiceFlag4:   {Name: "voiceflag4", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 4},
	ModeVoiceFlag5:   {Name: "voiceflag5", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 5},
	ModeVoiceFlag7:   {Name: "voiceflag7", Shape: ShapeBits, Fan: FanVoice, Width: 1, Shift: 7},
	ModePitchbend:    {Name: "pitchbend", Shape: ShapePitchbend, Fan: FanVoice, Width: 8, Signed: true},
	ModeNote:         {Name: "note", Shape: ShapeNote, Fan: FanVoice, Width: 7},

	ModeSel4L: {Name: "sel4l", Shape: ShapeBits, Fan: FanSelected, Width: 4},
	ModeSel4H: {Name: "sel4h", Shape: ShapeBits, Fan: FanSelected, Width: 4, Shift: 4},
	ModeSel7:  {Name: "sel7", Shape: ShapeBits, Fan: FanSelected, Width: 7},
	ModeSel8:  {Name: "sel8", Shape: ShapeBits, Fan: FanSelected, Width: 8},

	ModeAll4L: {Name: "all4l", Shape: ShapeBits, Fan: FanAll, Width: 4},
	ModeAll4H: {Name: "all4h", Shape: ShapeBits, Fan: FanAll, Width: 4, Shift: 4},
	ModeAll7:  {Name: "all7", Shape: ShapeBits, Fan: FanAll, Width: 7},
	ModeAll8:  {Name: "all8", Shape: ShapeBits, Fan: FanAll, Width: 8},
}

// Describe returns the descriptor of m. Unknown modes describe as NOP.
func Describe(m Mode) Descriptor {
	if m >= numModes {
		return descriptors[ModeNOP]
	}
	return descriptors[m]
}

// Resolution returns the scaling resolution of m in bits. Modes that are not
// scaled report 16.
func Resolution(m Mode) uint8 {
	d := Describe(m)
	if d.Shape == ShapeNone || d.Width == 0 || d.Width > 16 {
		return 16
	}
	return d.Width
}

func (m Mode) String() string {
	return Describe(m).Name
}
