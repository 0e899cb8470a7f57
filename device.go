package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"mbsidmcp/sysex"
)

const dumpTimeout = 5 * time.Second

// Synth is the MIDI output towards the hardware. Besides patch transfer it
// mirrors the engine's gates as notes, one MIDI channel per sound voice.
type Synth struct {
	devID    byte
	out      drivers.Out
	notes    [16]uint8
	sounding [16]bool
}

func OpenSynth(devID byte, portIndex int) (*Synth, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Println("[midi] opened output port", devID, out.String())
	return &Synth{devID: devID, out: out}, closer, nil
}

// Send transmits a MIDI message to the output port.
func (s *Synth) Send(msg midi.Message) error {
	if !s.out.IsOpen() {
		if err := s.out.Open(); err != nil {
			return err
		}
	}
	return s.out.Send(msg.Bytes())
}

// SendSysEx transmits a raw SysEx payload.
func (s *Synth) SendSysEx(data []byte) error {
	return s.Send(midi.Message(data))
}

// NoteOn mirrors a gate-on of sound voice v. A different note still
// sounding on the voice's channel is released first.
func (s *Synth) NoteOn(v int, note, velocity uint8) {
	ch := uint8(v) & 0x0f
	if s.sounding[ch] && s.notes[ch] != note {
		s.NoteOff(v)
	}
	s.notes[ch] = note
	s.sounding[ch] = true
	if err := s.Send(midi.NoteOn(ch, note, velocity)); err != nil {
		log.Printf("[midi] voice %d note on: %v", v, err)
	}
}

// NoteOff mirrors a gate-off of sound voice v.
func (s *Synth) NoteOff(v int) {
	ch := uint8(v) & 0x0f
	if !s.sounding[ch] {
		return
	}
	s.sounding[ch] = false
	if err := s.Send(midi.NoteOff(ch, s.notes[ch])); err != nil {
		log.Printf("[midi] voice %d note off: %v", v, err)
	}
}

// RequestPatch asks the device for one patch and waits for the dump.
func (s *Synth) RequestPatch(inPort drivers.In, bank string, program int) (sysex.Dump, error) {
	bankByte, progByte, err := patchAddress(bank, program)
	if err != nil {
		return sysex.Dump{}, err
	}

	msgCh := make(chan midi.Message, 1)

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		if sysex.IsDump(msg) {
			select {
			case msgCh <- msg:
			default:
			}
		}
	}, midi.UseSysEx(), midi.SysExBufferSize(2048))
	if err != nil {
		return sysex.Dump{}, fmt.Errorf("failed to listen for patch dump: %w", err)
	}
	defer stop()

	log.Printf("[midi] requesting patch %s%03d from device 0x%02X", bank, program, s.devID)
	if err := s.SendSysEx(sysex.Request(s.devID, bankByte, progByte)); err != nil {
		return sysex.Dump{}, fmt.Errorf("failed to request patch dump: %w", err)
	}

	select {
	case msg := <-msgCh:
		return sysex.Decode(msg)
	case <-time.After(dumpTimeout):
		log.Println("[midi] timed out waiting for patch dump")
	}
	return sysex.Dump{}, errors.New("timed out waiting for patch dump")
}

// SendPatch transmits img to the given bank/program.
func (s *Synth) SendPatch(bank string, program int, img []byte) error {
	bankByte, progByte, err := patchAddress(bank, program)
	if err != nil {
		return err
	}
	if err := s.SendSysEx(sysex.Encode(s.devID, bankByte, progByte, img)); err != nil {
		return fmt.Errorf("failed to send patch to bank %s program %d: %w", bank, program, err)
	}
	return nil
}

func patchAddress(bank string, program int) (byte, byte, error) {
	bankByte, err := bankToByte(bank)
	if err != nil {
		return 0, 0, err
	}
	if program < 1 || program > 128 {
		return 0, 0, fmt.Errorf("program must be in range 1–128, got %d", program)
	}
	return bankByte, byte(program - 1), nil
}
