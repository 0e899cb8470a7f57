// Package partable maps parameter numbers to patch addresses.
//
// Every engine has 256 parameter numbers. Each number resolves to an Entry
// naming its display labels, its addressing mode and its base address. The
// addressing mode indexes a single descriptor table giving the storage shape,
// the voice fan-out rule and the bit width, so reading, writing and scaling
// all consult the same data.
package partable

import (
	"fmt"

	"mbsidmcp/patch"
)

// Entry is one row of a parameter table.
type Entry struct {
	Left  string
	Right string
	Mode  Mode
	Addr  uint16
}

// Label joins both display labels.
func (e Entry) Label() string {
	return e.Left + " " + e.Right
}

var tables [4][256]Entry

func init() {
	tables[patch.Lead] = buildLead()
	tables[patch.Bassline] = buildBassline()
	tables[patch.Drum] = buildDrum()
	tables[patch.Multi] = buildMulti()
}

// Lookup returns the entry for parameter num of engine e.
func Lookup(e patch.Engine, num uint8) Entry {
	return tables[e&3][num]
}

// Entries returns a copy of the whole table of engine e.
func Entries(e patch.Engine) [256]Entry {
	return tables[e&3]
}

type builder [256]Entry

func newBuilder() *builder {
	b := &builder{}
	for i := range b {
		b[i] = Entry{Left: "--", Right: "---", Mode: ModeNOP}
	}
	return b
}

func (b *builder) set(num int, left, right string, m Mode, addr uint16) {
	b[num] = Entry{Left: left, Right: right, Mode: m, Addr: addr}
}

// common fills the parameters every engine shares.
func (b *builder) common() {
	b.set(0x01, "Eng", "Vol", ModeValue7, patch.OffVolume)
	for i := 0; i < 8; i++ {
		b.set(0x10+i, fmt.Sprintf("Knb%d", i+1), "Val", ModeValue8, patch.OffKnobs+uint16(i*patch.KnobStride))
		b.set(0x18+i, fmt.Sprintf("Sw%d", i+1), "Cus", ModeSwitch, patch.OffCustomSwitch)
		b.set(0x20+i, fmt.Sprintf("Ext%d", i+1), "Val", ModeValue16, patch.OffExtPar+uint16(i*2))
	}
}

// filter fills the shared filter parameters, fanned out to L/R by SID mask.
func (b *builder) filter() {
	b.set(0x04, "Fil", "Cut", ModeFilter12, patch.OffFilter+patch.FilterCutoff)
	b.set(0x05, "Fil", "Res", ModeFilter8, patch.OffFilter+patch.FilterRes)
	b.set(0x06, "Fil", "KTr", ModeFilter8, patch.OffFilter+patch.FilterKeytrack)
	b.set(0x07, "Fil", "Chn", ModeFilter4L, patch.OffFilter+patch.FilterChnMode)
	b.set(0x08, "Fil", "Mod", ModeFilter4H, patch.OffFilter+patch.FilterChnMode)
}

// group fills len(lefts) consecutive numbers with the same mode and field.
func (b *builder) group(num int, lefts []string, right string, m Mode, addr uint16) {
	for i, l := range lefts {
		b.set(num+i, l, right, m, addr)
	}
}

var (
	oscLabels   = []string{"OSC", "OS1", "OS2", "OS3"}
	bassLabels  = []string{"Cur", "BL1", "BL2", "B12"}
	multiLabels = []string{"All", "Ins", "I1", "I2", "I3", "I4", "I5", "I6"}
	drumLabels  = func() []string {
		l := make([]string, 16)
		for i := range l {
			l[i] = fmt.Sprintf("D%d", i+1)
		}
		return l
	}()
)

// voiceFields lists the sixteen-byte voice block parameters shared by Lead,
// Bassline and Multi, in table order.
var voiceFields = []struct {
	right string
	m     Mode
	off   uint16
}{
	{"Wav", ModeVoice4L, patch.VoiceWaveform},
	{"Ctl", ModeVoice4H, patch.VoiceWaveform},
	{"Atk", ModeVoice4H, patch.VoiceAD},
	{"Dec", ModeVoice4L, patch.VoiceAD},
	{"Sus", ModeVoice4H, patch.VoiceSR},
	{"Rel", ModeVoice4L, patch.VoiceSR},
	{"PW", ModeVoice12, patch.VoicePulsewidth},
	{"Acc", ModeVoice7, patch.VoiceAccent},
	{"Dly", ModeVoice8, patch.VoiceDelay},
	{"Trn", ModeVoice7, patch.VoiceTranspose},
	{"Fin", ModeVoiceSigned8, patch.VoiceFinetune},
	{"PRn", ModeVoice7, patch.VoicePitchrange},
	{"Por", ModeVoice8, patch.VoicePortamento},
}

// arpFields are the per-voice arpeggiator parameters.
var arpFields = []struct {
	right string
	m     Mode
	off   uint16
}{
	{"Arp", ModeVoiceFlag0, patch.VoiceArpMode},
	{"Srt", ModeVoiceFlag4, patch.VoiceArpMode},
	{"Hld", ModeVoiceFlag5, patch.VoiceArpMode},
	{"ECh", ModeVoiceFlag7, patch.VoiceArpSpeed},
	{"Spd", ModeVoice6, patch.VoiceArpSpeed},
	{"GL", ModeVoice5, patch.VoiceArpGate},
}
