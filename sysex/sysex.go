// Package sysex frames patch images for transfer over MIDI.
//
// A patch dump is
//
//	F0 00 00 7E 4B <dev> 02 00 <bank> <patch> <1024 nibbles> <checksum> F7
//
// Every image byte is sent as two nibbles, low nibble first. The checksum
// is the two's complement of the nibble sum, masked to seven bits.
package sysex

import (
	"github.com/pkg/errors"

	"mbsidmcp/patch"
)

const (
	cmdRequest = 0x01
	cmdDump    = 0x02
	typePatch  = 0x00
	headerLen  = 10
	dumpLen    = headerLen + 2*patch.Size + 2
	maxDevice  = 0x7f
)

var vendor = [...]byte{0xf0, 0x00, 0x00, 0x7e, 0x4b}

// Dump is a decoded patch dump.
type Dump struct {
	Device uint8
	Bank   uint8
	Patch  uint8
	Image  []byte
}

func header(dev, cmd, bank, program uint8) []byte {
	out := make([]byte, 0, dumpLen)
	out = append(out, vendor[:]...)
	return append(out, dev&maxDevice, cmd, typePatch, bank&0x7f, program&0x7f)
}

// Request returns the message asking device dev for a patch.
func Request(dev, bank, program uint8) []byte {
	return append(header(dev, cmdRequest, bank, program), 0xf7)
}

// Encode frames img as a patch dump. Short images are zero padded.
func Encode(dev, bank, program uint8, img []byte) []byte {
	out := header(dev, cmdDump, bank, program)
	var sum byte
	for i := 0; i < patch.Size; i++ {
		var b byte
		if i < len(img) {
			b = img[i]
		}
		lo, hi := b&0x0f, b>>4
		sum += lo + hi
		out = append(out, lo, hi)
	}
	return append(out, -sum&0x7f, 0xf7)
}

// Decode parses a patch dump.
func Decode(msg []byte) (Dump, error) {
	if len(msg) < headerLen+2 || msg[0] != 0xf0 || msg[len(msg)-1] != 0xf7 {
		return Dump{}, errors.New("not a SysEx frame")
	}
	for i, b := range vendor {
		if msg[i] != b {
			return Dump{}, errors.New("not a MIDIbox SID message")
		}
	}
	if msg[6] != cmdDump || msg[7] != typePatch {
		return Dump{}, errors.Errorf("unexpected command %02x type %02x", msg[6], msg[7])
	}
	if len(msg) != dumpLen {
		return Dump{}, errors.Errorf("unexpected dump size %d (want %d)", len(msg), dumpLen)
	}

	d := Dump{Device: msg[5], Bank: msg[8], Patch: msg[9], Image: make([]byte, patch.Size)}
	var sum byte
	body := msg[headerLen : headerLen+2*patch.Size]
	for i := range d.Image {
		lo, hi := body[2*i], body[2*i+1]
		if lo > 0x0f || hi > 0x0f {
			return Dump{}, errors.Errorf("invalid nibble at byte %d", i)
		}
		sum += lo + hi
		d.Image[i] = hi<<4 | lo
	}
	if chk := msg[dumpLen-2]; chk != -sum&0x7f {
		return Dump{}, errors.Errorf("checksum mismatch: expected %02x got %02x", -sum&0x7f, chk)
	}
	return d, nil
}

// IsDump reports whether msg looks like a patch dump, before validation.
func IsDump(msg []byte) bool {
	if len(msg) < headerLen {
		return false
	}
	for i, b := range vendor {
		if msg[i] != b {
			return false
		}
	}
	return msg[6] == cmdDump
}
