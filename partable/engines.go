package partable

import (
	"fmt"

	"mbsidmcp/patch"
)

func buildLead() [256]Entry {
	b := newBuilder()
	b.common()
	b.filter()
	b.set(0x02, "Osc", "Phs", ModeValue8, patch.OffPhase)
	b.set(0x03, "Osc", "Det", ModeValue8, patch.OffDetune)
	b.set(0x09, "Eng", "Leg", ModeFlag0, patch.OffFlags)
	b.set(0x0a, "Eng", "WTO", ModeFlag1, patch.OffFlags)
	b.set(0x0b, "Eng", "SKy", ModeFlag2, patch.OffFlags)
	b.set(0x0c, "Eng", "Ply", ModeFlag3, patch.OffFlags)

	for i := 0; i < 8; i++ {
		b.set(0x30+i, fmt.Sprintf("Mod%d", i+1), "Dep", ModeSigned8,
			patch.LeadMod+uint16(i*patch.LeadModStride)+patch.LeadModDepth)
	}

	num := 0x40
	for _, f := range voiceFields {
		b.group(num, oscLabels, f.right, f.m, patch.OffVoices+f.off)
		num += 4
	}
	b.group(0x74, oscLabels, "CTG", ModeVoiceFlag1, patch.OffVoices+patch.VoiceFlags)
	b.group(0x78, oscLabels, "PB", ModePitchbend, 0)
	b.group(0x7c, oscLabels, "Not", ModeNote, 0)

	lfoFields := []struct {
		right string
		m     Mode
	}{{"Mod", ModeValue8}, {"Dep", ModeSigned8}, {"Rte", ModeValue8}, {"Dly", ModeValue8}, {"Phs", ModeValue8}}
	for l := 0; l < 6; l++ {
		for k, f := range lfoFields {
			b.set(0x80+l*patch.LeadLFOStride+k, fmt.Sprintf("LFO%d", l+1), f.right, f.m,
				patch.LeadLFO+uint16(l*patch.LeadLFOStride+k))
		}
	}

	envFields := []struct {
		right string
		m     Mode
	}{
		{"Mod", ModeValue8}, {"DpP", ModeSigned8}, {"DpW", ModeSigned8}, {"DpF", ModeSigned8},
		{"Atk", ModeValue8}, {"Dec", ModeValue8}, {"Sus", ModeValue8}, {"Rel", ModeValue8},
	}
	for e := 0; e < 2; e++ {
		for k, f := range envFields {
			b.set(0xa0+e*patch.LeadENVStride+k, fmt.Sprintf("ENV%d", e+1), f.right, f.m,
				patch.LeadENV+uint16(e*patch.LeadENVStride+k))
		}
	}

	num = 0xc0
	for _, f := range arpFields {
		b.group(num, oscLabels, f.right, f.m, patch.OffVoices+f.off)
		num += 4
	}

	for i := 0; i < patch.LeadWTSlots; i++ {
		left := fmt.Sprintf("WT%d", i+1)
		base := patch.LeadWT + uint16(i*patch.WTStride)
		b.set(0xe0+i, left, "Spd", ModeValue6, base)
		b.set(0xe4+i, left, "Par", ModeValue8, base+1)
		b.set(0xe8+i, left, "Beg", ModeValue7, base+2)
		b.set(0xec+i, left, "End", ModeValue7, base+3)
		b.set(0xf0+i, left, "Lop", ModeValue7, base+4)
		b.set(0xf4+i, left, "1Sh", ModeFlag7, base+4)
	}
	return *b
}

func buildBassline() [256]Entry {
	b := newBuilder()
	b.common()
	b.filter()
	b.set(0x02, "Osc", "Phs", ModeValue8, patch.OffPhase)
	b.set(0x03, "Osc", "Det", ModeValue8, patch.OffDetune)

	num := 0x40
	for _, f := range voiceFields {
		b.group(num, bassLabels, f.right, f.m, patch.OffVoices+f.off)
		num += 4
	}
	b.group(0x74, bassLabels, "CTG", ModeVoiceFlag1, patch.OffVoices+patch.VoiceFlags)
	b.group(0x78, bassLabels, "PB", ModePitchbend, 0)
	b.group(0x7c, bassLabels, "Not", ModeNote, 0)

	rows := []struct {
		right string
		m     Mode
		off   uint16
	}{
		{"L1M", ModeVoice8, patch.BassLFO1 + patch.LFOMode},
		{"L1D", ModeVoiceSigned8, patch.BassLFO1 + patch.LFODepth},
		{"L1R", ModeVoice8, patch.BassLFO1 + patch.LFORate},
		{"L2M", ModeVoice8, patch.BassLFO2 + patch.LFOMode},
		{"L2D", ModeVoiceSigned8, patch.BassLFO2 + patch.LFODepth},
		{"L2R", ModeVoice8, patch.BassLFO2 + patch.LFORate},
		{"EDP", ModeVoiceSigned8, patch.BassENV + patch.EnvDepthP},
		{"EDF", ModeVoiceSigned8, patch.BassENV + patch.EnvDepthF},
		{"Atk", ModeVoice8, patch.BassENV + patch.EnvAttack},
		{"Dec", ModeVoice8, patch.BassENV + patch.EnvDecay},
		{"Sus", ModeVoice8, patch.BassENV + patch.EnvSustain},
		{"Rel", ModeVoice8, patch.BassENV + patch.EnvRelease},
		{"Leg", ModeVoiceFlag0, patch.BassFlags},
		{"WTO", ModeVoiceFlag1, patch.BassFlags},
		{"SqS", ModeVoice6, patch.BassSeqSpeed},
		{"SqN", ModeVoice7, patch.BassSeqNum},
	}
	num = 0x80
	for _, r := range rows {
		b.group(num, bassLabels, r.right, r.m, patch.OffVoices+r.off)
		num += 4
	}

	num = 0xc0
	for _, f := range arpFields {
		b.group(num, bassLabels, f.right, f.m, patch.OffVoices+f.off)
		num += 4
	}
	return *b
}

// drumField pairs a drum block field with its modes per fan-out rule.
type drumField struct {
	right              string
	nibble, sel, every Mode
	off                uint16
}

var drumFields = []drumField{
	{"Asg", ModeVoice4L, ModeSel4L, ModeAll4L, patch.DrumAssign},
	{"Mdl", ModeVoice7, ModeSel7, ModeAll7, patch.DrumModel},
	{"Atk", ModeVoice4H, ModeSel4H, ModeAll4H, patch.DrumAD},
	{"Dec", ModeVoice4L, ModeSel4L, ModeAll4L, patch.DrumAD},
	{"Sus", ModeVoice4H, ModeSel4H, ModeAll4H, patch.DrumSR},
	{"Rel", ModeVoice4L, ModeSel4L, ModeAll4L, patch.DrumSR},
	{"Tun", ModeVoice8, ModeSel8, ModeAll8, patch.DrumTune},
	{"GL", ModeVoice8, ModeSel8, ModeAll8, patch.DrumGate},
	{"Spd", ModeVoice7, ModeSel7, ModeAll7, patch.DrumSpeed},
	{"Pr3", ModeVoice8, ModeSel8, ModeAll8, patch.DrumPar3},
}

func buildDrum() [256]Entry {
	b := newBuilder()
	b.common()
	b.filter()

	for k, f := range drumFields {
		addr := patch.OffVoices + f.off
		selNum, allNum := 0x28+k, 0x30+k
		if k >= 8 {
			selNum, allNum = 0x38+(k-8), 0x3a+(k-8)
		}
		b.set(selNum, "Drm", f.right, f.sel, addr)
		b.set(allNum, "All", f.right, f.every, addr)
		b.group(0x40+k*16, drumLabels, f.right, f.nibble, addr)
	}

	b.set(0x3c, "Seq", "Spd", ModeValue6, patch.DrumSeqSpeed)
	b.set(0x3d, "Seq", "Num", ModeValue7, patch.DrumSeqNum)
	b.set(0x3e, "Seq", "Len", ModeValue7, patch.DrumSeqLen)
	return *b
}

func buildMulti() [256]Entry {
	b := newBuilder()
	b.common()
	b.set(0x02, "Osc", "Phs", ModeValue8, patch.OffPhase)
	b.set(0x03, "Osc", "Det", ModeValue8, patch.OffDetune)

	filters := []struct {
		right string
		m     Mode
		off   uint16
	}{
		{"Cut", ModeDirect12, patch.FilterCutoff},
		{"Res", ModeDirect8, patch.FilterRes},
		{"Chn", ModeDirect4L, patch.FilterChnMode},
		{"Mod", ModeDirect4H, patch.FilterChnMode},
		{"KTr", ModeDirect8, patch.FilterKeytrack},
	}
	for k, f := range filters {
		b.set(0x04+2*k, "FlL", f.right, f.m, patch.OffFilter+f.off)
		b.set(0x05+2*k, "FlR", f.right, f.m, patch.OffFilter+patch.FilterStride+f.off)
	}

	num := 0x30
	for _, f := range voiceFields {
		if f.off == patch.VoiceAccent || f.off == patch.VoiceDelay {
			continue
		}
		b.group(num, multiLabels, f.right, f.m, patch.OffVoices+f.off)
		num += 8
	}

	rows := []struct {
		right string
		m     Mode
		off   uint16
	}{
		{"PB", ModePitchbend, 0},
		{"Not", ModeNote, 0},
		{"Leg", ModeVoiceFlag0, patch.InsFlags},
		{"Ply", ModeVoiceFlag3, patch.InsFlags},
		{"L1D", ModeVoiceSigned8, patch.InsLFO1 + patch.LFODepth},
		{"L1R", ModeVoice8, patch.InsLFO1 + patch.LFORate},
		{"Atk", ModeVoice8, patch.InsENV + patch.EnvAttack},
		{"Dec", ModeVoice8, patch.InsENV + patch.EnvDecay},
		{"Sus", ModeVoice8, patch.InsENV + patch.EnvSustain},
		{"Rel", ModeVoice8, patch.InsENV + patch.EnvRelease},
		{"WSp", ModeVoice6, patch.InsWT},
		{"WPr", ModeVoice8, patch.InsWT + 1},
		{"WBg", ModeVoice7, patch.InsWT + 2},
		{"WEn", ModeVoice7, patch.InsWT + 3},
		{"WLp", ModeVoice7, patch.InsWT + 4},
	}
	for _, r := range rows {
		addr := uint16(0)
		if r.m != ModePitchbend && r.m != ModeNote {
			addr = patch.OffVoices + r.off
		}
		b.group(num, multiLabels, r.right, r.m, addr)
		num += 8
	}
	return *b
}
