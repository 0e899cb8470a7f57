package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mbsidmcp/partable"
	"mbsidmcp/patch"
	"mbsidmcp/voice"
	"mbsidmcp/wavetable"
)

type styles struct {
	header lipgloss.Style
	number lipgloss.Style
	label  lipgloss.Style
	mode   lipgloss.Style
	gate   lipgloss.Style
	idle   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(4)),
		number: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
		label:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(6)),
		mode:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(5)),
		gate:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		idle:   lipgloss.NewStyle().Faint(true),
	}
}

// renderTable lists every parameter of engine e that is not a NOP.
func renderTable(e patch.Engine, color bool) string {
	st := newStyles(color)
	var b strings.Builder
	b.WriteString(st.header.Render(fmt.Sprintf(" %-3s %-12s %-14s %-6s %s ", "#", "label", "mode", "addr", "bits")))
	b.WriteByte('\n')
	for num, ent := range partable.Entries(e) {
		if ent.Mode == partable.ModeNOP {
			continue
		}
		b.WriteString(st.number.Render(fmt.Sprintf(" %02X ", num)))
		b.WriteString(st.label.Render(fmt.Sprintf("%-12s ", ent.Label())))
		b.WriteString(st.mode.Render(fmt.Sprintf("%-14s ", ent.Mode)))
		fmt.Fprintf(&b, "%03X    %d", ent.Addr, partable.Resolution(ent.Mode))
		if partable.Describe(ent.Mode).Signed {
			b.WriteString(" signed")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// renderVoices prints one line per sound voice.
func renderVoices(voices []voice.Voice, color bool) string {
	st := newStyles(color)
	var b strings.Builder
	for i, v := range voices {
		line := fmt.Sprintf("voice %d  ins %d  note %-4s vel %3d  bend %04X  wave %X",
			i+1, v.Instrument, noteName(v.Note), v.Velocity, v.Pitchbend, v.Wave)
		if v.Active {
			b.WriteString(st.gate.Render("● " + line))
		} else {
			b.WriteString(st.idle.Render("○ " + line))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// renderWavetables prints the position of every wavetable slot.
func renderWavetables(seq *wavetable.Sequencer) string {
	var b strings.Builder
	for i := range seq.Slots {
		s := &seq.Slots[i]
		pos := fmt.Sprintf("%02X", s.Position())
		if s.Position() == wavetable.Stopped {
			pos = "--"
		}
		fmt.Fprintf(&b, "WT%d %-7s %s\n", i+1, s.State(), pos)
	}
	return b.String()
}

var noteNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(n uint8) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}
