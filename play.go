package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"mbsidmcp/config"
	"mbsidmcp/engine"
	"mbsidmcp/patch"
)

const (
	noteLength = 300 * time.Millisecond
	noteGap    = 60 * time.Millisecond
	restLength = 360 * time.Millisecond
)

// playVerb plays notesText through a local engine and prints the voices
// after every note.
func playVerb(cfg config.Config, store *patch.Store, syn *Synth, notesText string) error {
	if strings.TrimSpace(notesText) == "" {
		notesText = "C4 E4 G4"
	}
	gates := newGateQueue(syn)
	core := newCore(cfg, store, gates)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)
	if gates != nil {
		go gates.run(ctx, syn)
	}

	ch := uint8(0)
	if chs := cfg.MIDIChannels(); len(chs) > 0 {
		ch = chs[0]
	}
	return playNotesFromText(core.Post, ch, notesText, func(d time.Duration) {
		time.Sleep(d)
		_ = core.Do(ctx, func(c *engine.Core) {
			fmt.Print(renderVoices(c.Voices(), true))
			fmt.Print(renderWavetables(c.WT))
		})
	})
}

// playNotesFromText posts one Note On / Note Off pair per token. wait is
// called for every note, gap and rest.
func playNotesFromText(post func(engine.Event) bool, channel uint8, notesText string, wait func(time.Duration)) error {
	tokens := strings.FieldsFunc(notesText, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return fmt.Errorf("no notes provided")
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err != nil {
			return fmt.Errorf("invalid note %q: %w", tok, err)
		}

		if isRest {
			wait(restLength)
			continue
		}

		if !post(engine.Event{Kind: engine.NoteOn, Channel: channel, A: n, B: 100}) {
			return fmt.Errorf("note on dropped for %d", n)
		}
		wait(noteLength)
		if !post(engine.Event{Kind: engine.NoteOff, Channel: channel, A: n}) {
			return fmt.Errorf("note off dropped for %d", n)
		}
		wait(noteGap)
	}

	return nil
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// parseNoteToken reads C4, F#3, Bb2 (C4 = 60) or r/rest.
func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}

	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}

	if len(t) < 2 {
		return 0, false, fmt.Errorf("too short")
	}

	semitone, ok := semitones[strings.ToUpper(t[:1])[0]]
	if !ok {
		return 0, false, fmt.Errorf("invalid note letter %q", t[:1])
	}
	rest := t[1:]

	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'b', 'B':
		semitone--
		rest = rest[1:]
	}

	if rest == "" {
		return 0, false, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false, fmt.Errorf("invalid octave: %w", err)
	}

	n := 12*(octave+1) + semitone
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}

	return uint8(n), false, nil
}
